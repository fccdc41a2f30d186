package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindAudit    JobKind = "audit"
	JobKindProducts JobKind = "products"
)

const (
	JobStatusPending   = "Pending"
	JobStatusRunning   = "Running"
	JobStatusCompleted = "Completed"
	JobStatusError     = "Error"
)

// Job is one batch run started through the API. Records holds the JSON
// encoded []PageAuditRecord or []ProductRecord depending on Kind.
type Job struct {
	ID          uuid.UUID        `json:"id"`
	Kind        JobKind          `json:"kind"`
	SitemapURL  string           `json:"sitemapUrl,omitempty"`
	URLs        []string         `json:"urls,omitempty"`
	Limit       int              `json:"limit"`
	Status      string           `json:"status"`
	Total       int              `json:"total"`
	Failed      int              `json:"failed"`
	Records     *json.RawMessage `json:"records,omitempty"`
	Errors      []string         `json:"errors,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
}

// NewJob creates a pending job with generated UUID and timestamps
func NewJob(kind JobKind) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (k JobKind) Valid() bool {
	return k == JobKindAudit || k == JobKindProducts
}
