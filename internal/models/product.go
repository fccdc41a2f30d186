package models

import "time"

// MissingValue is the sentinel stored in any scalar field whose selector did
// not match. It is distinct from an empty string, which means the element
// exists but carries no text.
const MissingValue = "N/A"

type ProductRecord struct {
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	SKU            string            `json:"sku"`
	Price          string            `json:"price"`
	Description    string            `json:"description"`
	InStock        string            `json:"inStock"`
	Images         []string          `json:"images"`
	Specifications map[string]string `json:"specifications"`
	Breadcrumbs    []string          `json:"breadcrumbs,omitempty"`
	Missing        []string          `json:"missing,omitempty"`
	Warnings       []string          `json:"warnings,omitempty"`
	Error          string            `json:"error,omitempty"`
	ScrapedAt      time.Time         `json:"scrapedAt"`
}

// NewProductRecord creates an empty record for url with initialized collections
func NewProductRecord(url string) *ProductRecord {
	return &ProductRecord{
		URL:            url,
		Images:         []string{},
		Specifications: map[string]string{},
		ScrapedAt:      time.Now(),
	}
}

// Failed reports whether the page could not be loaded at all
func (p *ProductRecord) Failed() bool {
	return p.Error != ""
}

// NewFailedProduct builds the record reported for a page that could not be
// loaded or read.
func NewFailedProduct(url string, err error) *ProductRecord {
	rec := NewProductRecord(url)
	rec.Error = err.Error()
	return rec
}
