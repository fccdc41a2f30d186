package extract

import (
	"net/url"
	"strings"
)

// CollapseWhitespace trims s and folds every internal whitespace run into a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AbsoluteURL rewrites a relative image source against the site's base
// origin. Sources that already carry a scheme (https:, data:, ...) are
// returned unchanged, and so is src when base is empty or unparsable.
func AbsoluteURL(base, src string) string {
	src = strings.TrimSpace(src)
	ref, err := url.Parse(src)
	if err != nil || ref.IsAbs() {
		return src
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return src
	}
	if baseURL.Path == "" {
		baseURL.Path = "/"
	}
	return baseURL.ResolveReference(ref).String()
}

type specPair struct {
	key   string
	value string
}

// MergeSpecs inserts every pair whose key is not in dst yet. Existing keys are
// never overwritten.
func MergeSpecs(dst map[string]string, src []specPair) {
	for _, p := range src {
		if _, exists := dst[p.key]; exists {
			continue
		}
		dst[p.key] = p.value
	}
}
