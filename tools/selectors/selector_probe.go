package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/romangod6/shop-crawler/config"
	"github.com/romangod6/shop-crawler/internal/extract"
	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
	"github.com/romangod6/shop-crawler/internal/sitemap"
	"github.com/spf13/cobra"
)

var (
	configPath string
	samples    int
)

var probeCmd = &cobra.Command{
	Use:   "selector-probe <page-or-sitemap-url>",
	Short: "Shows what every configured selector matches on sample pages.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		urls := []string{args[0]}
		if strings.HasSuffix(strings.ToLower(args[0]), ".xml") {
			resolver := sitemap.NewResolver(sitemap.NewHTTPFetcher(cfg.Crawler.FetchTimeout, cfg.Crawler.UserAgent))
			entries, err := resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Total URLs found: %d\n", len(entries))
			urls = models.Strings(entries)
			if len(urls) > samples {
				urls = urls[:samples]
			}
		}

		browser := render.NewStaticBrowser(cfg.Crawler.UserAgent, cfg.Crawler.NavigationTimeout)
		defer browser.Close()
		page, err := browser.NewPage(cmd.Context())
		if err != nil {
			return err
		}
		defer page.Close()

		for i, u := range urls {
			fmt.Printf("\n=== Analyzing URL %d/%d: %s ===\n", i+1, len(urls), u)
			if err := probe(cmd.Context(), page, u, cfg.Selectors); err != nil {
				fmt.Fprintf(os.Stderr, "Error fetching page: %v\n", err)
			}
		}
		return nil
	},
}

func probe(ctx context.Context, page render.Page, url string, selectors extract.Selectors) error {
	if err := page.Navigate(ctx, url); err != nil {
		return err
	}
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Selector", "Matches", "First Value"})

	firstRow := doc.Find(selectors.SpecRows).First()
	for _, s := range selectors.Named() {
		count, sample := match(doc, firstRow, s)
		t.AppendRow(table.Row{s.Name, s.Selector, count, sample})
	}
	t.Render()
	return nil
}

func match(doc *goquery.Document, row *goquery.Selection, s extract.NamedSelector) (string, string) {
	if render.IsXPath(s.Selector) {
		nodes, err := render.QueryXPath(doc, s.Selector)
		if err != nil {
			return "error", err.Error()
		}
		if len(nodes) == 0 {
			return "0", ""
		}
		return fmt.Sprint(len(nodes)), shorten(extract.CollapseWhitespace(htmlquery.InnerText(nodes[0])))
	}

	var sel *goquery.Selection
	if s.RowRelative {
		sel = row.Find(s.Selector)
	} else {
		sel = doc.Find(s.Selector)
	}
	if sel.Length() == 0 {
		return "0", ""
	}

	value := extract.CollapseWhitespace(sel.First().Text())
	if s.Attr != "" {
		value, _ = sel.First().Attr(s.Attr)
	}
	return fmt.Sprint(sel.Length()), shorten(value)
}

func shorten(value string) string {
	if r := []rune(value); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return value
}

func main() {
	probeCmd.Flags().StringVar(&configPath, "config", "", "Path to a config file.")
	probeCmd.Flags().IntVar(&samples, "samples", 3, "Number of sitemap URLs to analyze.")

	if err := probeCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
