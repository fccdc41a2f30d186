package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/romangod6/shop-crawler/internal/models"
)

var auditHeader = []string{"URL", "Title", "Meta Description", "H1", "Error"}

// WriteAuditCSV writes one row per audited page.
func WriteAuditCSV(w io.Writer, records []*models.PageAuditRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(auditHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.URL, r.Title, r.MetaDescription, r.H1, r.Error}); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

var productHeader = []string{"URL", "Title", "SKU", "Price", "Description", "In Stock", "Images", "Breadcrumbs"}

// WriteProductCSV writes the fixed product columns, then one column per
// specification key found in any record (sorted), then Missing and Error.
func WriteProductCSV(w io.Writer, records []*models.ProductRecord) error {
	specKeys := SpecificationKeys(records)

	header := append(append(append([]string{}, productHeader...), specKeys...), "Missing", "Error")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.URL, r.Title, r.SKU, r.Price, r.Description, r.InStock,
			strings.Join(r.Images, " "),
			strings.Join(r.Breadcrumbs, " > "),
		}
		for _, k := range specKeys {
			row = append(row, r.Specifications[k])
		}
		row = append(row, strings.Join(r.Missing, ";"), r.Error)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.URL, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SpecificationKeys returns the sorted union of specification keys.
func SpecificationKeys(records []*models.ProductRecord) []string {
	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Specifications {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
