// Package scrape extracts structured call-center data from the HTML pages
// served by the legacy group-dial call-control system.
//
// Every function in this package is pure and tolerant: malformed or partial
// markup yields empty results or zero values, never an error.
package scrape

import "strings"

// SeatStatus is the live state of one agent seat.
type SeatStatus string

const (
	SeatOnline       SeatStatus = "online"
	SeatOffline      SeatStatus = "offline"
	SeatRinging      SeatStatus = "ringing"
	SeatInCall       SeatStatus = "inCall"
	SeatDisconnected SeatStatus = "disconnected"
)

// SeatsPerRow is the display row width of the seat grid.
const SeatsPerRow = 10

// CallRow is one row of a call-list table.
type CallRow struct {
	Sequence       int    `json:"sequence,omitempty"` // 0 when the row carries no ordinal
	CalledNumber   string `json:"calledNumber"`
	CallbackNumber string `json:"callbackNumber,omitempty"`
	CallStatus     string `json:"callStatus"`
	StartTime      string `json:"startTime,omitempty"`
	DurationText   string `json:"durationText,omitempty"`
	DerivedAgent   int    `json:"derivedAgent,omitempty"` // 0 when not derivable
	Ended          bool   `json:"ended,omitempty"`        // the capturing page was reported ended
}

// Rate is a percentage averaged over Samples observations. A rate is
// defined only when Samples > 0.
type Rate struct {
	Value   float64 `json:"value"`
	Samples int     `json:"samples"`
}

// Defined reports whether the rate is backed by at least one sample.
func (r Rate) Defined() bool { return r.Samples > 0 }

// MergeRate combines two rates into their sample-weighted average.
func MergeRate(a, b Rate) Rate {
	if !a.Defined() {
		if !b.Defined() {
			return Rate{}
		}
		return b
	}
	if !b.Defined() {
		return a
	}
	total := a.Samples + b.Samples
	return Rate{
		Value:   (a.Value*float64(a.Samples) + b.Value*float64(b.Samples)) / float64(total),
		Samples: total,
	}
}

// RateOf averages values into a Rate. An empty slice yields an undefined rate.
func RateOf(values []float64) Rate {
	avg, ok := CalculateAverage(values)
	if !ok {
		return Rate{}
	}
	return Rate{Value: avg, Samples: len(values)}
}

// SegmentCounts holds the per-segment call counters of a call-list header.
type SegmentCounts struct {
	Segment1 int `json:"segment1"`
	Segment2 int `json:"segment2"`
	Segment3 int `json:"segment3"`
	Segment4 int `json:"segment4"`
}

// Total sums all four segments.
func (s SegmentCounts) Total() int {
	return s.Segment1 + s.Segment2 + s.Segment3 + s.Segment4
}

// Summary aggregates the counters observed for one source.
type Summary struct {
	ManualCalls    int           `json:"manualCalls"`
	SegmentCounts  SegmentCounts `json:"segmentCounts"`
	VoiceCallCount int           `json:"voiceCallCount"`
	ConnectRate    Rate          `json:"connectRate"`
	CallbackRate   Rate          `json:"callbackRate"`
}

// Merge adds counters and sample-weights the rates of two summaries.
func (s Summary) Merge(o Summary) Summary {
	return Summary{
		ManualCalls: s.ManualCalls + o.ManualCalls,
		SegmentCounts: SegmentCounts{
			Segment1: s.SegmentCounts.Segment1 + o.SegmentCounts.Segment1,
			Segment2: s.SegmentCounts.Segment2 + o.SegmentCounts.Segment2,
			Segment3: s.SegmentCounts.Segment3 + o.SegmentCounts.Segment3,
			Segment4: s.SegmentCounts.Segment4 + o.SegmentCounts.Segment4,
		},
		VoiceCallCount: s.VoiceCallCount + o.VoiceCallCount,
		ConnectRate:    MergeRate(s.ConnectRate, o.ConnectRate),
		CallbackRate:   MergeRate(s.CallbackRate, o.CallbackRate),
	}
}

// CallTable is the result of parsing a call-list or campaign-controller page.
type CallTable struct {
	Calls   []CallRow `json:"calls"`
	Summary Summary   `json:"summary"`
}

// PeerSeatStatus is one seat scraped from a peer-status page.
type PeerSeatStatus struct {
	SeatNumber int        `json:"seatNumber"`
	Status     SeatStatus `json:"status"`
}

// ChunkSeats groups seats into display rows of perRow entries. Every row but
// the last holds exactly perRow seats.
func ChunkSeats(seats []PeerSeatStatus, perRow int) [][]PeerSeatStatus {
	if perRow <= 0 {
		perRow = SeatsPerRow
	}
	var rows [][]PeerSeatStatus
	for i := 0; i < len(seats); i += perRow {
		end := i + perRow
		if end > len(seats) {
			end = len(seats)
		}
		row := make([]PeerSeatStatus, end-i)
		copy(row, seats[i:end])
		rows = append(rows, row)
	}
	return rows
}

// FlattenSeats undoes ChunkSeats.
func FlattenSeats(rows [][]PeerSeatStatus) []PeerSeatStatus {
	var out []PeerSeatStatus
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// MapPeerColorToStatus maps a seat-grid font color to a seat status.
// Unknown colors read as offline.
func MapPeerColorToStatus(color string) SeatStatus {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "green":
		return SeatOnline
	case "purple":
		return SeatRinging
	case "blue":
		return SeatInCall
	case "grey", "gray":
		return SeatDisconnected
	default:
		return SeatOffline
	}
}
