package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/romangod6/shop-crawler/internal/models"
)

// ErrJobNotFound is returned by DeleteJob for an unknown id.
var ErrJobNotFound = errors.New("job not found")

type Store interface {
	Initialize() error
	Close() error

	// Job operations
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, job *models.Job) error
	// GetJob returns nil, nil when no job has the id.
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, limit, offset int) ([]*models.Job, error)
	CountJobs(ctx context.Context) (int, error)
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

// Open picks the backend from the url: postgres:// and postgresql:// go to
// Postgres, anything else is a SQLite database path.
func Open(url string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		store, err = NewPostgresStore(url)
	default:
		store, err = NewSQLiteStore(strings.TrimPrefix(url, "sqlite://"))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := store.Initialize(); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}
