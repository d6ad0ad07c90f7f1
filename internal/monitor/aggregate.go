package monitor

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/zulandar/dialwatch/internal/scrape"
)

// SourceData is everything observed for one logical source in a single pass.
type SourceData struct {
	Source       string                    `json:"source"`
	CapturedAt   time.Time                 `json:"capturedAt,omitempty"`
	Calls        []scrape.CallRow          `json:"calls"`
	Summary      scrape.Summary            `json:"summary"`
	SeatStatuses [][]scrape.PeerSeatStatus `json:"seatStatuses,omitempty"`
}

// unlabeledSourcePrefix names sources that carry neither a usable URL nor a
// declared domain.
const unlabeledSourcePrefix = "聯調來源"

var looseHostRe = regexp.MustCompile(`(?i)https?://([^/]+)`)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

// ExtractSourceLabel derives the source key of a page. index is the page's
// position in the input and is only used for unlabeled pages.
func ExtractSourceLabel(p CapturedPage, index int) string {
	if raw := strings.TrimSpace(p.URL); raw != "" {
		if u, err := url.Parse(raw); err == nil {
			if host := strings.ToLower(u.Hostname()); host != "" && u.Scheme != "" {
				port := u.Port()
				if port == "" || defaultPorts[strings.ToLower(u.Scheme)] == port {
					return host
				}
				return net.JoinHostPort(host, port)
			}
		} else if m := looseHostRe.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	if p.Domain != "" {
		return p.Domain
	}
	return fmt.Sprintf("%s%d", unlabeledSourcePrefix, index+1)
}

// parsedPage is the per-page result before grouping.
type parsedPage struct {
	table scrape.CallTable
	seats [][]scrape.PeerSeatStatus
}

// parsePage runs every parser that applies to p. ok is false when the page
// should be skipped: unrecognized, bodyless, or yielding neither a table nor
// a seat grid.
func parsePage(p CapturedPage) (parsedPage, bool) {
	c := Classify(p)
	if !c.Recognized() {
		return parsedPage{}, false
	}
	body := p.Body()
	if body == "" {
		return parsedPage{}, false
	}

	hasTable := (c.CallList || c.CampaignController) && strings.Contains(strings.ToLower(body), "<table")
	seats := scrape.ParsePeerStatusHTML(body)
	if !hasTable && seats == nil {
		return parsedPage{}, false
	}

	table := scrape.CallTable{Calls: []scrape.CallRow{}}
	switch {
	case hasTable && c.CallList:
		table = scrape.ParseCallTable(body)
	case hasTable && c.CampaignController:
		table = scrape.ParseCampaignControllerTable(body)
	}

	if PageEnded(p.Metadata.Status) {
		for i := range table.Calls {
			table.Calls[i].Ended = true
		}
	}

	connect, callback := scrape.ExtractCampaignRates(body)
	if connect.Defined() {
		table.Summary.ConnectRate = connect
	}
	if callback.Defined() {
		table.Summary.CallbackRate = callback
	}
	return parsedPage{table: table, seats: seats}, true
}

// Aggregate parses pages and groups the results by source, in first-seen
// order. Calls are appended, summaries merged by sample weight, the earliest
// capture time kept, and the seat grid replaced by any later non-nil grid.
func Aggregate(pages []CapturedPage) []SourceData {
	var out []SourceData
	index := make(map[string]int)

	for i, p := range pages {
		parsed, ok := parsePage(p)
		if !ok {
			continue
		}
		source := ExtractSourceLabel(p, i)
		capturedAt := p.ObservedAt()

		pos, seen := index[source]
		if !seen {
			index[source] = len(out)
			calls := make([]scrape.CallRow, len(parsed.table.Calls))
			copy(calls, parsed.table.Calls)
			out = append(out, SourceData{
				Source:       source,
				CapturedAt:   capturedAt,
				Calls:        calls,
				Summary:      parsed.table.Summary,
				SeatStatuses: parsed.seats,
			})
			continue
		}

		existing := &out[pos]
		existing.Calls = append(existing.Calls, parsed.table.Calls...)
		existing.Summary = existing.Summary.Merge(parsed.table.Summary)
		if !capturedAt.IsZero() && (existing.CapturedAt.IsZero() || capturedAt.Before(existing.CapturedAt)) {
			existing.CapturedAt = capturedAt
		}
		if parsed.seats != nil {
			existing.SeatStatuses = parsed.seats
		}
	}
	return out
}
