package commands

import (
	"context"
	"log"
	"time"

	"github.com/romangod6/shop-crawler/internal/api"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API and the periodic audit of the configured sitemap.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Initialize storage
		store, err := storage.Open(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer store.Close()

		a, err := newApp(cfg, "API Server")
		if err != nil {
			return err
		}
		defer a.Close()

		server := api.NewServer(api.ServerConfig{
			Port:       cfg.Server.Port,
			BaseOrigin: cfg.Crawler.BaseOrigin,
			LogDir:     cfg.Crawler.LogDir,
			Gatherer:   a.registry,
		}, store, a.crawler)

		// Setup periodic audits
		if cfg.Crawler.SitemapURL != "" {
			go runPeriodicAudits(ctx, server, cfg.GetCrawlInterval())
		} else {
			log.Println("crawler.sitemapurl not set, periodic audits disabled")
		}

		// Start the API server
		go func() {
			log.Printf("Starting API server on port %d", cfg.Server.Port)
			if err := server.Start(); err != nil {
				log.Printf("API server stopped: %v", err)
			}
		}()

		waitForShutdown(ctx, server)
		return nil
	},
}

// runPeriodicAudits audits the configured sitemap on every tick. A run that
// outlasts the interval delays the next one instead of overlapping it.
func runPeriodicAudits(ctx context.Context, server *api.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Println("Starting periodic audit...")
			job := models.NewJob(models.JobKindAudit)
			job.SitemapURL = cfg.Crawler.SitemapURL
			job.Limit = cfg.Crawler.Limit
			if err := server.RunJob(ctx, job); err != nil {
				log.Printf("Periodic audit failed: %v", err)
				continue
			}
			log.Printf("Periodic audit %s finished with status %s", job.ID, job.Status)
		case <-ctx.Done():
			return
		}
	}
}

func waitForShutdown(ctx context.Context, server *api.Server) {
	<-ctx.Done()
	log.Println("Shutting down...")

	// Graceful server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	log.Println("Server shut down gracefully")
}
