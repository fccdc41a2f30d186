package sitemap

import (
	"bytes"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/romangod6/shop-crawler/internal/models"
)

// Decode parses body into a generic XML tree and classifies it. Malformed XML
// is an error; well-formed XML with an unknown root is UnrecognizedSitemap.
func Decode(body []byte) (models.SitemapDocument, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	root := firstElement(doc)
	if root == nil {
		return models.UnrecognizedSitemap{}, nil
	}

	switch root.Data {
	case "urlset":
		return models.URLSet{Entries: locs(root, "url")}, nil
	case "sitemapindex":
		return models.SitemapIndex{Children: locs(root, "sitemap")}, nil
	default:
		return models.UnrecognizedSitemap{Root: root.Data}, nil
	}
}

// firstElement walks depth-first; xmlquery may hang the root element under a
// declaration node.
func firstElement(n *xmlquery.Node) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
		if found := firstElement(c); found != nil {
			return found
		}
	}
	return nil
}

// locs collects the trimmed <loc> of every direct child named entry, in
// document order. A single child yields a one-element slice.
func locs(parent *xmlquery.Node, entry string) []models.SitemapEntry {
	out := []models.SitemapEntry{}
	for _, el := range childElements(parent, entry) {
		locNodes := childElements(el, "loc")
		if len(locNodes) == 0 {
			continue
		}
		loc := strings.TrimSpace(locNodes[0].InnerText())
		if loc == "" {
			continue
		}
		out = append(out, models.SitemapEntry(loc))
	}
	return out
}

func childElements(parent *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			out = append(out, c)
		}
	}
	return out
}
