package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autoapply/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id     TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	skills      TEXT[] NOT NULL DEFAULT '{}',
	titles      TEXT[] NOT NULL DEFAULT '{}',
	summary     TEXT NOT NULL DEFAULT '',
	experience  TEXT[] NOT NULL DEFAULT '{}',
	raw_text    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS postings (
	user_id         TEXT NOT NULL,
	job_id          TEXT NOT NULL,
	external_id     TEXT NOT NULL,
	source          TEXT NOT NULL,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL DEFAULT '',
	application_url TEXT NOT NULL DEFAULT '',
	company_website TEXT NOT NULL DEFAULT '',
	contact_email   TEXT NOT NULL DEFAULT '',
	tags            TEXT[] NOT NULL DEFAULT '{}',
	remote          BOOLEAN NOT NULL DEFAULT false,
	salary          TEXT NOT NULL DEFAULT '',
	posted_at       TIMESTAMPTZ,
	match_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, job_id)
);

CREATE TABLE IF NOT EXISTS applications (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	job_id        TEXT NOT NULL,
	job_title     TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	match_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	email_to      TEXT NOT NULL DEFAULT '',
	email_subject TEXT NOT NULL DEFAULT '',
	email_body    TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	applied_at    TIMESTAMPTZ,
	UNIQUE (user_id, job_id)
);

CREATE INDEX IF NOT EXISTS idx_applications_user_status ON applications (user_id, status);
`

// PostgresRepository is the pgxpool-backed Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository connects to Postgres, verifies the connection, and
// ensures the schema exists.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) SaveProfile(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, name, email, phone, skills, titles, summary, experience, raw_text, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			skills = EXCLUDED.skills,
			titles = EXCLUDED.titles,
			summary = EXCLUDED.summary,
			experience = EXCLUDED.experience,
			raw_text = EXCLUDED.raw_text,
			updated_at = now()`

	_, err := r.pool.Exec(ctx, query,
		profile.UserID, profile.Contact.Name, profile.Contact.Email, profile.Contact.Phone,
		profile.Skills, profile.Titles, profile.Summary, profile.Experience, profile.RawText)
	if err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT user_id, name, email, phone, skills, titles, summary, experience, raw_text, created_at, updated_at
		FROM profiles WHERE user_id = $1`

	var p models.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Contact.Name, &p.Contact.Email, &p.Contact.Phone,
		&p.Skills, &p.Titles, &p.Summary, &p.Experience, &p.RawText,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) SavePostings(ctx context.Context, userID string, postings []models.Posting) error {
	if len(postings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO postings (user_id, job_id, external_id, source, title, company, location,
			description, url, application_url, company_website, contact_email, tags, remote, salary, posted_at, match_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (user_id, job_id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			description = EXCLUDED.description,
			url = EXCLUDED.url,
			application_url = EXCLUDED.application_url,
			company_website = EXCLUDED.company_website,
			contact_email = EXCLUDED.contact_email,
			tags = EXCLUDED.tags,
			remote = EXCLUDED.remote,
			salary = EXCLUDED.salary,
			posted_at = EXCLUDED.posted_at,
			match_score = EXCLUDED.match_score`

	for i := range postings {
		p := &postings[i]
		batch.Queue(query, userID, p.ID(), p.ExternalID, string(p.Source), p.Title, p.Company,
			p.Location, p.Description, p.URL, p.ApplicationURL, p.CompanyWebsite, p.ContactEmail,
			p.Tags, p.Remote, p.Salary, p.PostedAt, p.MatchScore)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range postings {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("saving postings: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetPosting(ctx context.Context, userID, jobID string) (*models.Posting, error) {
	query := `
		SELECT external_id, source, title, company, location, description, url,
			application_url, company_website, contact_email, tags, remote, salary, posted_at, match_score
		FROM postings WHERE user_id = $1 AND job_id = $2`

	var p models.Posting
	var source string
	err := r.pool.QueryRow(ctx, query, userID, jobID).Scan(
		&p.ExternalID, &source, &p.Title, &p.Company, &p.Location, &p.Description,
		&p.URL, &p.ApplicationURL, &p.CompanyWebsite, &p.ContactEmail, &p.Tags,
		&p.Remote, &p.Salary, &p.PostedAt, &p.MatchScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting posting: %w", err)
	}
	p.Source = models.JobSource(source)
	return &p, nil
}

func (r *PostgresRepository) SaveApplication(ctx context.Context, app *models.Application) error {
	app.UpdatedAt = time.Now()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = app.UpdatedAt
	}

	query := `
		INSERT INTO applications (id, user_id, job_id, job_title, company, status, match_score,
			error, email_to, email_subject, email_body, created_at, updated_at, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			match_score = EXCLUDED.match_score,
			error = EXCLUDED.error,
			email_to = EXCLUDED.email_to,
			email_subject = EXCLUDED.email_subject,
			email_body = EXCLUDED.email_body,
			updated_at = EXCLUDED.updated_at,
			applied_at = EXCLUDED.applied_at`

	_, err := r.pool.Exec(ctx, query,
		app.ID, app.UserID, app.JobID, app.JobTitle, app.Company, string(app.Status),
		app.MatchScore, app.Error, app.EmailTo, app.EmailSubject, app.EmailBody,
		app.CreatedAt, app.UpdatedAt, app.AppliedAt)
	if err != nil {
		return fmt.Errorf("saving application: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	row := r.pool.QueryRow(ctx, applicationSelect+` WHERE id = $1`, id)
	return scanApplication(row)
}

func (r *PostgresRepository) FindApplicationByUserAndJob(ctx context.Context, userID, jobID string) (*models.Application, error) {
	row := r.pool.QueryRow(ctx, applicationSelect+` WHERE user_id = $1 AND job_id = $2`, userID, jobID)
	return scanApplication(row)
}

func (r *PostgresRepository) ListApplications(ctx context.Context, userID string, statuses []models.ApplicationStatus) ([]models.Application, error) {
	query := applicationSelect + ` WHERE user_id = $1`
	args := []interface{}{userID}

	if len(statuses) > 0 {
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		query += ` AND status = ANY($2)`
		args = append(args, strs)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *app)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

const applicationSelect = `
	SELECT id, user_id, job_id, job_title, company, status, match_score,
		error, email_to, email_subject, email_body, created_at, updated_at, applied_at
	FROM applications`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var app models.Application
	var status string
	err := row.Scan(&app.ID, &app.UserID, &app.JobID, &app.JobTitle, &app.Company, &status,
		&app.MatchScore, &app.Error, &app.EmailTo, &app.EmailSubject, &app.EmailBody,
		&app.CreatedAt, &app.UpdatedAt, &app.AppliedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning application: %w", err)
	}
	app.Status = models.ApplicationStatus(status)
	return &app, nil
}

var _ Repository = (*PostgresRepository)(nil)
