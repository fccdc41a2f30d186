package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteJobLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	job := models.NewJob(models.JobKindAudit)
	job.SitemapURL = "https://shop.example/sitemap.xml"
	job.Limit = 5
	require.NoError(t, store.CreateJob(ctx, job))

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, models.JobKindAudit, got.Kind)
	assert.Equal(t, job.SitemapURL, got.SitemapURL)
	assert.Equal(t, 5, got.Limit)
	assert.Equal(t, models.JobStatusPending, got.Status)
	assert.Nil(t, got.Records)
	assert.Nil(t, got.CompletedAt)

	records := json.RawMessage(`[{"url":"https://shop.example/a"}]`)
	done := time.Now()
	job.Status = models.JobStatusCompleted
	job.Total, job.Failed = 1, 0
	job.Records = &records
	job.Errors = []string{"child sitemap failed"}
	job.UpdatedAt, job.CompletedAt = done, &done
	require.NoError(t, store.UpdateJob(ctx, job))

	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	require.NotNil(t, got.Records)
	assert.JSONEq(t, string(records), string(*got.Records))
	assert.Equal(t, []string{"child sitemap failed"}, got.Errors)
	require.NotNil(t, got.CompletedAt)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	got, err = store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.DeleteJob(ctx, job.ID), ErrJobNotFound)
	assert.ErrorIs(t, store.UpdateJob(ctx, job), ErrJobNotFound)
}

func TestSQLiteListJobsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)

	base := time.Now().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		job := models.NewJob(models.JobKindProducts)
		job.URLs = []string{"https://shop.example/p"}
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateJob(ctx, job))
		ids = append(ids, job.ID)
	}

	n, err := store.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	jobs, err := store.ListJobs(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, ids[2], jobs[0].ID)
	assert.Equal(t, ids[1], jobs[1].ID)
	assert.Equal(t, []string{"https://shop.example/p"}, jobs[0].URLs)

	jobs, err = store.ListJobs(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, ids[0], jobs[0].ID)
}
