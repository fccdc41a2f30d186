package sitemap

import "fmt"

// FetchError means a sitemap URL was unreachable, timed out or answered with a
// non-2xx status. StatusCode is 0 when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch sitemap %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch sitemap %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError means a sitemap body was not well-formed XML.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse sitemap %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
