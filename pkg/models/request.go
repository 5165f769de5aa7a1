package models

// SearchRequest represents the request payload for a job search
type SearchRequest struct {
	UserID     string   `json:"user_id" validate:"required"`
	Keywords   []string `json:"keywords" validate:"required,min=1,dive,required"`
	Location   string   `json:"location,omitempty"`
	RemoteOnly bool     `json:"remote_only"`
	Limit      int      `json:"limit" validate:"omitempty,gte=1,lte=200"`
	Sources    []string `json:"sources,omitempty"` // empty or "all" means every registered source
	MinScore   float64  `json:"min_score" validate:"omitempty,gte=0,lte=100"`
}

// Criteria converts the request into search criteria with defaults applied.
func (r *SearchRequest) Criteria() SearchCriteria {
	limit := r.Limit
	if limit == 0 {
		limit = 50
	}
	return SearchCriteria{
		Keywords:   r.Keywords,
		Location:   r.Location,
		RemoteOnly: r.RemoteOnly,
		Limit:      limit,
		Sources:    r.Sources,
	}
}

// BulkApplyRequest represents the request payload for applying to a batch of jobs
type BulkApplyRequest struct {
	UserID string   `json:"user_id" validate:"required"`
	JobIDs []string `json:"job_ids" validate:"required,min=1,dive,required"`
}
