package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	auditLimit  int
	auditFormat string
	auditOut    string
)

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", -1, "Audit at most this many URLs (default crawler.limit, 0 for all).")
	auditCmd.Flags().StringVar(&auditFormat, "format", "csv", "Output format: csv, json or table.")
	auditCmd.Flags().StringVar(&auditOut, "out", "seo_audit_results.csv", "Output file, empty for stdout.")
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit [sitemap-url]",
	Short: "Audits title, meta description and H1 of every page in a sitemap.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(auditFormat); err != nil {
			return err
		}
		sitemapURL := cfg.Crawler.SitemapURL
		if len(args) == 1 {
			sitemapURL = args[0]
		}
		if sitemapURL == "" {
			return errors.New("no sitemap url given and crawler.sitemapurl is not set")
		}
		limit := auditLimit
		if limit < 0 {
			limit = cfg.Crawler.Limit
		}

		a, err := newApp(cfg, "SEO Audit")
		if err != nil {
			return err
		}
		defer a.Close()

		a.logger.LogInfo("Fetching sitemap: %s", sitemapURL)
		records, err := a.crawler.AuditSitemap(cmd.Context(), sitemapURL, limit)
		if err != nil && records == nil {
			return fmt.Errorf("audit failed: %w", err)
		}

		out, openErr := output(auditOut)
		if openErr != nil {
			return openErr
		}
		defer out.Close()
		if writeErr := writeAudit(out, auditFormat, records); writeErr != nil {
			return writeErr
		}
		if auditOut != "" {
			a.logger.LogInfo("Report saved to %s", auditOut)
		}
		return err
	},
}
