package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/romangod6/shop-crawler/internal/models"
)

const maxCellWidth = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func RenderAuditTable(w io.Writer, records []*models.PageAuditRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "URL", "Title", "Meta Description", "H1", "Error"})
	failed := 0
	for i, r := range records {
		if r.Failed() {
			failed++
		}
		t.AppendRow(table.Row{i + 1, r.URL, r.Title, r.MetaDescription, r.H1, r.Error})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d pages", len(records)), "", "", "", fmt.Sprintf("%d failed", failed)})
	t.SetColumnConfigs(wrapColumns(2, 3, 4, 5, 6))
	t.Render()
}

func RenderProductTable(w io.Writer, records []*models.ProductRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "URL", "Title", "SKU", "Price", "In Stock", "Specs", "Notes"})
	failed := 0
	for i, r := range records {
		notes := r.Error
		if r.Failed() {
			failed++
		} else {
			notes = strings.Join(append(missingNote(r.Missing), r.Warnings...), "; ")
		}
		t.AppendRow(table.Row{i + 1, r.URL, r.Title, r.SKU, r.Price, r.InStock, len(r.Specifications), notes})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d pages", len(records)), "", "", "", "", "", fmt.Sprintf("%d failed", failed)})
	t.SetColumnConfigs(wrapColumns(2, 3, 8))
	t.Render()
}

func missingNote(missing []string) []string {
	if len(missing) == 0 {
		return nil
	}
	return []string{"missing: " + strings.Join(missing, ", ")}
}

func wrapColumns(numbers ...int) []table.ColumnConfig {
	configs := make([]table.ColumnConfig, 0, len(numbers))
	for _, n := range numbers {
		configs = append(configs, table.ColumnConfig{
			Number:           n,
			WidthMax:         maxCellWidth,
			WidthMaxEnforcer: text.WrapSoft,
		})
	}
	return configs
}
