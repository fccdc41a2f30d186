package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/romangod6/shop-crawler/internal/models"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            sitemap_url TEXT,
            urls TEXT,
            url_limit INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            total INTEGER NOT NULL DEFAULT 0,
            failed INTEGER NOT NULL DEFAULT 0,
            records TEXT,
            errors TEXT,
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            completed_at DATETIME
        )`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}

	return nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
        INSERT INTO jobs (id, kind, sitemap_url, urls, url_limit, status, total, failed, records, errors, created_at, updated_at, completed_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            total = excluded.total,
            failed = excluded.failed,
            records = excluded.records,
            errors = excluded.errors,
            updated_at = excluded.updated_at,
            completed_at = excluded.completed_at
    `

	urlsJSON, err := json.Marshal(job.URLs)
	if err != nil {
		return err
	}
	errorsJSON, err := json.Marshal(job.Errors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, query,
		job.ID.String(),
		string(job.Kind),
		job.SitemapURL,
		string(urlsJSON),
		job.Limit,
		job.Status,
		job.Total,
		job.Failed,
		rawOrNil(job.Records),
		string(errorsJSON),
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt,
	)

	return err
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *models.Job) error {
	query := `
        UPDATE jobs
        SET status = ?, total = ?, failed = ?, records = ?, errors = ?, updated_at = ?, completed_at = ?
        WHERE id = ?
    `

	errorsJSON, err := json.Marshal(job.Errors)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query,
		job.Status,
		job.Total,
		job.Failed,
		rawOrNil(job.Records),
		string(errorsJSON),
		job.UpdatedAt,
		job.CompletedAt,
		job.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const sqliteJobColumns = `id, kind, sitemap_url, urls, url_limit, status, total, failed, records, errors, created_at, updated_at, completed_at`

func (s *SQLiteStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + sqliteJobColumns + ` FROM jobs WHERE id = ?`

	job, err := scanSQLiteJob(s.db.QueryRowContext(ctx, query, id.String()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `SELECT ` + sqliteJobColumns + ` FROM jobs ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *SQLiteStore) CountJobs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteJob(row rowScanner) (*models.Job, error) {
	job := &models.Job{}
	var (
		idStr       string
		kind        string
		sitemapURL  sql.NullString
		urlsJSON    sql.NullString
		records     sql.NullString
		errorsJSON  sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&idStr,
		&kind,
		&sitemapURL,
		&urlsJSON,
		&job.Limit,
		&job.Status,
		&job.Total,
		&job.Failed,
		&records,
		&errorsJSON,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid job id %q: %w", idStr, err)
	}
	job.Kind = models.JobKind(kind)
	job.SitemapURL = sitemapURL.String
	if urlsJSON.Valid {
		json.Unmarshal([]byte(urlsJSON.String), &job.URLs)
	}
	if errorsJSON.Valid {
		json.Unmarshal([]byte(errorsJSON.String), &job.Errors)
	}
	if records.Valid && records.String != "" {
		raw := json.RawMessage(records.String)
		job.Records = &raw
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

func rawOrNil(raw *json.RawMessage) interface{} {
	if raw == nil {
		return nil
	}
	return string(*raw)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

