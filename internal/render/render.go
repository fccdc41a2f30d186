package render

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ErrInteractionUnsupported is returned by pages that cannot execute scripts,
// so a click cannot reveal anything.
var ErrInteractionUnsupported = errors.New("page does not support interaction")

// Browser hands out pages. A page may be reused for many URLs.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one rendering session. Selectors starting with "/" or "(" are
// XPath expressions, everything else is CSS.
type Page interface {
	// Navigate loads url and waits until the document is ready. Failures are
	// *NavigationError.
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	// Snapshot returns the current DOM, including script-made changes.
	Snapshot(ctx context.Context) (*goquery.Document, error)
	Exists(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	Click(ctx context.Context, selector string) error
	// Reset drops in-page state left by the previous URL.
	Reset(ctx context.Context) error
	Close() error
}

// NavigationError is a page load failure: transport error, bad status or timeout.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

func IsXPath(selector string) bool {
	s := strings.TrimSpace(selector)
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(")
}

// QueryXPath evaluates an XPath expression against a parsed document.
func QueryXPath(doc *goquery.Document, expr string) ([]*html.Node, error) {
	if len(doc.Nodes) == 0 {
		return nil, nil
	}
	var root *html.Node = doc.Nodes[0]
	nodes, err := htmlquery.QueryAll(root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	return nodes, nil
}

// CountMatches evaluates selector against a parsed document.
func CountMatches(doc *goquery.Document, selector string) (int, error) {
	if IsXPath(selector) {
		nodes, err := QueryXPath(doc, selector)
		return len(nodes), err
	}
	return doc.Find(selector).Length(), nil
}
