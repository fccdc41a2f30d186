// internal/models/sitemap.go
package models

// SitemapEntry is a single absolute URL taken from a sitemap <loc>.
type SitemapEntry string

// SitemapDocument is the decoded shape of one sitemap XML document. The
// concrete type is one of URLSet, SitemapIndex or UnrecognizedSitemap.
type SitemapDocument interface {
	isSitemapDocument()
}

// URLSet is a leaf sitemap: its entries are page URLs.
type URLSet struct {
	Entries []SitemapEntry
}

// SitemapIndex points at other sitemap documents.
type SitemapIndex struct {
	Children []SitemapEntry
}

// UnrecognizedSitemap is well-formed XML whose root is neither <urlset> nor
// <sitemapindex>. Root holds the local name of the root element, if any.
type UnrecognizedSitemap struct {
	Root string
}

func (URLSet) isSitemapDocument()              {}
func (SitemapIndex) isSitemapDocument()        {}
func (UnrecognizedSitemap) isSitemapDocument() {}

// Strings converts entries to plain strings.
func Strings(entries []SitemapEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e)
	}
	return out
}
