package models

import "time"

type PageAuditRecord struct {
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	MetaDescription string    `json:"metaDescription"`
	H1              string    `json:"h1"`
	Missing         []string  `json:"missing,omitempty"`
	Error           string    `json:"error,omitempty"`
	AuditedAt       time.Time `json:"auditedAt"`
}

// NewFailedAudit builds the record reported for a page that could not be loaded.
// Every other field stays empty.
func NewFailedAudit(url string, err error) *PageAuditRecord {
	return &PageAuditRecord{
		URL:       url,
		Error:     err.Error(),
		AuditedAt: time.Now(),
	}
}

func (a *PageAuditRecord) Failed() bool {
	return a.Error != ""
}
