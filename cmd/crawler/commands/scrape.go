package commands

import (
	"errors"
	"fmt"

	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/spf13/cobra"
)

var (
	scrapeSitemap string
	scrapeLimit   int
	scrapeFormat  string
	scrapeOut     string
)

func init() {
	scrapeCmd.Flags().StringVar(&scrapeSitemap, "sitemap", "", "Scrape every product listed in this sitemap.")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", -1, "Scrape at most this many sitemap URLs (default crawler.limit, 0 for all).")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "json", "Output format: json, csv or table.")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "", "Output file, empty for stdout.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [product-url...] [--sitemap <url>]",
	Short: "Scrapes product pages into structured records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validFormat(scrapeFormat); err != nil {
			return err
		}
		if (len(args) == 0) == (scrapeSitemap == "") {
			return errors.New("give either product urls or --sitemap")
		}
		limit := scrapeLimit
		if limit < 0 {
			limit = cfg.Crawler.Limit
		}

		a, err := newApp(cfg, "Product Scrape")
		if err != nil {
			return err
		}
		defer a.Close()

		var records []*models.ProductRecord
		if scrapeSitemap != "" {
			records, err = a.crawler.ScrapeSitemap(cmd.Context(), scrapeSitemap, limit)
		} else {
			records, err = a.crawler.ScrapeProducts(cmd.Context(), args)
		}
		if err != nil && records == nil {
			return fmt.Errorf("scrape failed: %w", err)
		}

		out, openErr := output(scrapeOut)
		if openErr != nil {
			return openErr
		}
		defer out.Close()
		if writeErr := writeProducts(out, scrapeFormat, records); writeErr != nil {
			return writeErr
		}
		return err
	},
}
