package extract

import (
	"context"
	"strings"
	"time"

	"github.com/romangod6/shop-crawler/internal/models"
	"github.com/romangod6/shop-crawler/internal/render"
)

// AuditExtractor reads the SEO basics of a page: title, meta description
// and first H1.
type AuditExtractor struct {
	selectors AuditSelectors
}

func NewAuditExtractor(selectors AuditSelectors) *AuditExtractor {
	return &AuditExtractor{selectors: selectors.WithDefaults()}
}

// Extract never fails. A page whose DOM cannot be read yields a record
// carrying the error.
func (e *AuditExtractor) Extract(ctx context.Context, page render.Page, pageURL string) *models.PageAuditRecord {
	doc, err := page.Snapshot(ctx)
	if err != nil {
		return models.NewFailedAudit(pageURL, err)
	}

	rec := &models.PageAuditRecord{
		URL:       pageURL,
		Missing:   []string{},
		AuditedAt: time.Now(),
	}

	title, err := page.Title(ctx)
	title = CollapseWhitespace(title)
	if err != nil || title == "" {
		rec.Missing = append(rec.Missing, "title")
		title = models.MissingValue
	}
	rec.Title = title

	rec.MetaDescription = models.MissingValue
	if v, ok := doc.Find(e.selectors.MetaDescription).First().Attr(e.selectors.MetaDescriptionAttr); ok && strings.TrimSpace(v) != "" {
		rec.MetaDescription = strings.TrimSpace(v)
	} else {
		rec.Missing = append(rec.Missing, "metaDescription")
	}

	if h1 := doc.Find(e.selectors.H1).First(); h1.Length() > 0 {
		rec.H1 = CollapseWhitespace(h1.Text())
	} else {
		rec.H1 = models.MissingValue
		rec.Missing = append(rec.Missing, "h1")
	}

	return rec
}
