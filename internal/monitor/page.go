// Package monitor turns captured legacy call-control pages into the call
// records, per-source summaries and seat grids served to dashboard clients.
//
// Build is the only entry point that derives data; it is pure and is invoked
// by both the resync and the push path. Store is the only long-lived state.
package monitor

import (
	"strings"
	"time"
)

// PageMetadata carries the request facts recorded alongside a capture.
type PageMetadata struct {
	Description   string `json:"description,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
	RequestMethod string `json:"requestMethod,omitempty"`
	Status        string `json:"status,omitempty"`
}

// CapturedPage is one raw observation of a legacy HTML page.
type CapturedPage struct {
	ID          string       `json:"id,omitempty"`
	URL         string       `json:"url"`
	RecordType  string       `json:"recordType,omitempty"`
	Content     string       `json:"content,omitempty"`
	HTMLContent string       `json:"htmlContent,omitempty"`
	Domain      string       `json:"domain,omitempty"`
	Title       string       `json:"title,omitempty"`
	Metadata    PageMetadata `json:"metadata"`
	CapturedAt  time.Time    `json:"capturedAt,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// PageEnded reports whether a page status, as set by a status delta, means
// the calls on the page are over.
func PageEnded(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ended", "end", "hangup", "hungup", "completed", "closed", StatusEnded:
		return true
	}
	return false
}

// Key identifies the physical resource the page was captured from: the
// upstream id, or the URL when the page has none.
func (p CapturedPage) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return p.URL
}

// Body returns the HTML of the page, preferring Content over HTMLContent.
func (p CapturedPage) Body() string {
	if p.Content != "" {
		return p.Content
	}
	return p.HTMLContent
}

// ObservedAt returns the first non-zero of CapturedAt, CreatedAt, UpdatedAt.
func (p CapturedPage) ObservedAt() time.Time {
	for _, t := range []time.Time{p.CapturedAt, p.CreatedAt, p.UpdatedAt} {
		if !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}
