package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/report"
	"github.com/romangod6/shop-crawler/internal/storage"
	"github.com/romangod6/shop-crawler/internal/utils"
)

// Scraper is the crawler surface the API drives.
type Scraper interface {
	ScrapeProduct(ctx context.Context, url string) (*models.ProductRecord, error)
	Audit(ctx context.Context, urls []string) ([]*models.PageAuditRecord, error)
	ScrapeProducts(ctx context.Context, urls []string) ([]*models.ProductRecord, error)
	AuditSitemap(ctx context.Context, sitemapURL string, limit int) ([]*models.PageAuditRecord, error)
	ScrapeSitemap(ctx context.Context, sitemapURL string, limit int) ([]*models.ProductRecord, error)
}

type Handler struct {
	store      storage.Store
	scraper    Scraper
	baseOrigin string
	logDir     string

	// jobs run under ctx so shutdown can cancel them
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PaginationResponse struct {
	Data       interface{} `json:"data"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int         `json:"total_count,omitempty"`
}

type ScrapeRequest struct {
	URL string `json:"url"`
}

type ScrapeResponse struct {
	Success bool                  `json:"success"`
	Data    *models.ProductRecord `json:"data"`
}

type JobRequest struct {
	Kind       models.JobKind `json:"kind"`
	SitemapURL string         `json:"sitemapUrl"`
	URLs       []string       `json:"urls"`
	Limit      int            `json:"limit"`
}

func NewHandler(store storage.Store, scraper Scraper, baseOrigin, logDir string) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		store:      store,
		scraper:    scraper,
		baseOrigin: strings.TrimRight(baseOrigin, "/"),
		logDir:     logDir,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// ScrapeProduct scrapes one product page synchronously.
func (h *Handler) ScrapeProduct(c *gin.Context) {
	var req ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !h.allowedURL(req.URL) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid or missing URL."})
		return
	}

	record, err := h.scraper.ScrapeProduct(c.Request.Context(), req.URL)
	if err != nil {
		log.Printf("Scraping failed for %s: %v", req.URL, err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to scrape product data."})
		return
	}

	c.JSON(http.StatusOK, ScrapeResponse{Success: true, Data: record})
}

// allowedURL accepts http(s) URLs, restricted to the configured site when a
// base origin is set.
func (h *Handler) allowedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	if h.baseOrigin == "" {
		return true
	}
	return strings.HasPrefix(raw, h.baseOrigin+"/")
}

func (h *Handler) CreateJob(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid job data"})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Invalid job kind %q", req.Kind)})
		return
	}
	if (req.SitemapURL == "") == (len(req.URLs) == 0) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Exactly one of sitemapUrl or urls is required"})
		return
	}
	for _, u := range append([]string{req.SitemapURL}, req.URLs...) {
		if u != "" && !h.allowedURL(u) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Invalid URL %q", u)})
			return
		}
	}
	if req.Limit < 0 {
		req.Limit = 0
	}

	job := models.NewJob(req.Kind)
	job.SitemapURL = req.SitemapURL
	job.URLs = req.URLs
	job.Limit = req.Limit

	if err := h.store.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create job"})
		return
	}

	h.jobs.Add(1)
	go func(job models.Job) {
		defer h.jobs.Done()
		h.runJob(h.ctx, &job)
	}(*job)

	c.JSON(http.StatusAccepted, job)
}

// RunJob stores job and runs it to completion in the caller's goroutine.
func (h *Handler) RunJob(ctx context.Context, job *models.Job) error {
	if err := h.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	h.jobs.Add(1)
	defer h.jobs.Done()
	h.runJob(ctx, job)
	return nil
}

func (h *Handler) ListJobs(c *gin.Context) {
	page, limit := getPaginationParams(c)
	offset := (page - 1) * limit

	jobs, err := h.store.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch jobs"})
		return
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	// records are only served through the report endpoint
	for _, job := range jobs {
		job.Records = nil
	}

	total, err := h.store.CountJobs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to count jobs"})
		return
	}

	c.JSON(http.StatusOK, PaginationResponse{
		Data:       jobs,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
	})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *Handler) DeleteJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid job ID"})
		return
	}

	if err := h.store.DeleteJob(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to delete job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// JobReport streams the records of a finished job as csv or json.
func (h *Handler) JobReport(c *gin.Context) {
	job, ok := h.lookupJob(c)
	if !ok {
		return
	}
	if job.Records == nil {
		c.JSON(http.StatusConflict, ErrorResponse{Error: fmt.Sprintf("Job is %s, no report available", job.Status)})
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "csv" && format != "json" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Format must be csv or json"})
		return
	}

	if format == "json" {
		var records any
		if err := json.Unmarshal(*job.Records, &records); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to decode job records"})
			return
		}
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.WriteJSON(c.Writer, records); err != nil {
			log.Printf("Error writing report for job %s: %v", job.ID, err)
		}
		return
	}

	var write func() error
	switch job.Kind {
	case models.JobKindAudit:
		var records []*models.PageAuditRecord
		if err := json.Unmarshal(*job.Records, &records); err == nil {
			write = func() error { return report.WriteAuditCSV(c.Writer, records) }
		}
	case models.JobKindProducts:
		var records []*models.ProductRecord
		if err := json.Unmarshal(*job.Records, &records); err == nil {
			write = func() error { return report.WriteProductCSV(c.Writer, records) }
		}
	}
	if write == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to decode job records"})
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, job.Kind, job.ID))
	c.Status(http.StatusOK)
	if err := write(); err != nil {
		log.Printf("Error writing report for job %s: %v", job.ID, err)
	}
}

func (h *Handler) lookupJob(c *gin.Context) (*models.Job, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid job ID"})
		return nil, false
	}

	job, err := h.store.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to fetch job"})
		return nil, false
	}
	if job == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Job not found"})
		return nil, false
	}
	return job, true
}

// Wait blocks until every started job has finished.
func (h *Handler) Wait() {
	h.jobs.Wait()
}

// Stop cancels running jobs and waits for them to record their outcome.
func (h *Handler) Stop() {
	h.cancel()
	h.jobs.Wait()
}

func (h *Handler) runJob(ctx context.Context, job *models.Job) {
	logger, err := utils.NewCrawlerLogger(h.logDir, fmt.Sprintf("%s %s", job.Kind, job.ID))
	if err != nil {
		log.Printf("Failed to create logger for job %s: %v", job.ID, err)
		logger = utils.Discard()
	}
	defer logger.Close()

	logger.LogInfo("Starting %s job %s", job.Kind, job.ID)
	if job.SitemapURL != "" {
		logger.LogInfo("  Sitemap URL: %s", job.SitemapURL)
	} else {
		logger.LogInfo("  URLs: %d", len(job.URLs))
	}
	logger.LogInfo("  Limit: %d", job.Limit)

	job.Status = models.JobStatusRunning
	job.UpdatedAt = time.Now()
	if err := h.store.UpdateJob(ctx, job); err != nil {
		logger.LogError("Failed to update job status: %v", err)
	}

	records, total, failed, err := h.execute(ctx, job)

	now := time.Now()
	job.UpdatedAt = now
	job.CompletedAt = &now
	job.Total, job.Failed = total, failed

	if records != nil {
		data, marshalErr := json.Marshal(records)
		if marshalErr != nil {
			logger.LogError("Failed to encode records: %v", marshalErr)
			err = errors.Join(err, marshalErr)
		} else {
			raw := json.RawMessage(data)
			job.Records = &raw
		}
	}

	if err != nil {
		job.Status = models.JobStatusError
		job.Errors = append(job.Errors, err.Error())
		logger.LogError("Job failed: %v", err)
	} else {
		job.Status = models.JobStatusCompleted
		logger.LogInfo("Job completed: %d pages, %d failed", total, failed)
	}

	// the run context may be cancelled by now
	if err := h.store.UpdateJob(context.Background(), job); err != nil {
		logger.LogError("Failed to update job: %v", err)
	}
}

func (h *Handler) execute(ctx context.Context, job *models.Job) (records any, total, failed int, err error) {
	urls := job.URLs
	if job.Limit > 0 && len(urls) > job.Limit {
		urls = urls[:job.Limit]
	}

	switch job.Kind {
	case models.JobKindAudit:
		var recs []*models.PageAuditRecord
		if len(urls) > 0 {
			recs, err = h.scraper.Audit(ctx, urls)
		} else {
			recs, err = h.scraper.AuditSitemap(ctx, job.SitemapURL, job.Limit)
		}
		for _, r := range recs {
			if r.Failed() {
				failed++
			}
		}
		if recs != nil {
			records = recs
		}
		return records, len(recs), failed, err
	case models.JobKindProducts:
		var recs []*models.ProductRecord
		if len(urls) > 0 {
			recs, err = h.scraper.ScrapeProducts(ctx, urls)
		} else {
			recs, err = h.scraper.ScrapeSitemap(ctx, job.SitemapURL, job.Limit)
		}
		for _, r := range recs {
			if r.Failed() {
				failed++
			}
		}
		if recs != nil {
			records = recs
		}
		return records, len(recs), failed, err
	}
	return nil, 0, 0, fmt.Errorf("unknown job kind %q", job.Kind)
}

// Utility functions
func getPaginationParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	return page, limit
}
