package models

import "time"

// Contact holds the identity used to fill application forms and sign emails.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Profile is the candidate profile extracted from a resume.
type Profile struct {
	UserID     string    `json:"user_id"`
	Contact    Contact   `json:"contact"`
	Skills     []string  `json:"skills"`
	Titles     []string  `json:"titles,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	Experience []string  `json:"experience,omitempty"`
	RawText    string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SearchCriteria drives a job search across the registered sources.
type SearchCriteria struct {
	Keywords   []string `json:"keywords"`
	Location   string   `json:"location,omitempty"`
	RemoteOnly bool     `json:"remote_only"`
	Limit      int      `json:"limit"`
	Sources    []string `json:"sources,omitempty"`
}
