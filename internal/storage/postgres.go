package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/romangod6/shop-crawler/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an already opened connection pool.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
            id UUID PRIMARY KEY,
            kind VARCHAR(32) NOT NULL,
            sitemap_url VARCHAR(2048),
            urls TEXT[],
            url_limit INTEGER NOT NULL DEFAULT 0,
            status VARCHAR(32) NOT NULL,
            total INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0,
            records JSONB,
            errors TEXT[],
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            completed_at TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
        INSERT INTO jobs (id, kind, sitemap_url, urls, url_limit, status, total, failed, records, errors, created_at, updated_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        ON CONFLICT (id) DO UPDATE SET
            status = EXCLUDED.status,
            total = EXCLUDED.total,
            failed = EXCLUDED.failed,
            records = EXCLUDED.records,
            errors = EXCLUDED.errors,
            updated_at = EXCLUDED.updated_at,
            completed_at = EXCLUDED.completed_at
    `

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		string(job.Kind),
		job.SitemapURL,
		pq.Array(job.URLs),
		job.Limit,
		job.Status,
		job.Total,
		job.Failed,
		rawOrNil(job.Records),
		pq.Array(job.Errors),
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt,
	)

	return err
}

func (s *PostgresStore) UpdateJob(ctx context.Context, job *models.Job) error {
	query := `
        UPDATE jobs
        SET status = $1, total = $2, failed = $3, records = $4, errors = $5, updated_at = $6, completed_at = $7
        WHERE id = $8
    `

	result, err := s.db.ExecContext(ctx, query,
		job.Status,
		job.Total,
		job.Failed,
		rawOrNil(job.Records),
		pq.Array(job.Errors),
		job.UpdatedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const postgresJobColumns = `id, kind, sitemap_url, urls, url_limit, status, total, failed, records, errors, created_at, updated_at, completed_at`

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + postgresJobColumns + ` FROM jobs WHERE id = $1`

	job, err := scanPostgresJob(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `SELECT ` + postgresJobColumns + ` FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanPostgresJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) CountJobs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	return n, err
}

func (s *PostgresStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func scanPostgresJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var (
		kind        string
		sitemapURL  sql.NullString
		records     []byte
		completedAt sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&kind,
		&sitemapURL,
		pq.Array(&job.URLs),
		&job.Limit,
		&job.Status,
		&job.Total,
		&job.Failed,
		&records,
		pq.Array(&job.Errors),
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Kind = models.JobKind(kind)
	job.SitemapURL = sitemapURL.String
	if len(records) > 0 {
		raw := json.RawMessage(records)
		job.Records = &raw
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}
