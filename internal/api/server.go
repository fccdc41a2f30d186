package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/storage"
)

type ServerConfig struct {
	Port int
	// BaseOrigin restricts scrape URLs to one site when set.
	BaseOrigin string
	LogDir     string
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	port    int
	server  *http.Server
}

func NewServer(cfg ServerConfig, store storage.Store, scraper Scraper) *Server {
	router := gin.Default()

	// Setup CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	handler := NewHandler(store, scraper, cfg.BaseOrigin, cfg.LogDir)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Setup routes
	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})

		api.POST("/scrape", handler.ScrapeProduct)

		jobs := api.Group("/jobs")
		{
			jobs.POST("", handler.CreateJob)
			jobs.GET("", handler.ListJobs)
			jobs.GET("/:id", handler.GetJob)
			jobs.DELETE("/:id", handler.DeleteJob)
			jobs.GET("/:id/report", handler.JobReport)
		}
	}

	return &Server{
		router:  router,
		handler: handler,
		port:    cfg.Port,
	}
}

// RunJob runs a job outside of any request, e.g. a scheduled audit. The
// job is visible through the jobs API like any other.
func (s *Server) RunJob(ctx context.Context, job *models.Job) error {
	return s.handler.RunJob(ctx, job)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		// scrape requests wait for a full page render
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests, then cancels running jobs and waits
// for them to store their final state.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.handler.Stop()
	return err
}
