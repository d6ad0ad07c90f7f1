package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/zulandar/dialwatch/internal/scrape"
)

// Display labels shared by the synthesizer and the stores.
const (
	StatusEnded       = "通話結束"
	StatusIntegration = "聯調通話"
	StatusInCall      = "通話中"
	StatusTransferred = "轉座席"
)

// PanelDisplay is the fixed panel of the display store.
const PanelDisplay = "A"

// agentCycle is the size of the fallback seat rotation for rows whose agent
// cannot be derived.
const agentCycle = 20

// Transcript is the captured text attached to a record.
type Transcript struct {
	Chinese      string `json:"chinese"`
	IsTranslated bool   `json:"isTranslated"`
}

// CallRecord is the flat, UI-facing call record.
type CallRecord struct {
	ID                string      `json:"id"`
	CalledNumber      string      `json:"calledNumber"`
	CallbackNumber    string      `json:"callbackNumber,omitempty"`
	Agent             int         `json:"agent"`
	Note              string      `json:"note"`
	CallStatus        string      `json:"callStatus"`
	Duration          int         `json:"duration"`
	RecordingURL      string      `json:"recordingUrl"`
	CallTime          time.Time   `json:"callTime"`
	Panel             string      `json:"panel"`
	IntegrationSource string      `json:"integrationSource,omitempty"`
	Transcript        *Transcript `json:"transcript,omitempty"`
}

// Synthesize flattens aggregated sources into call records sorted by call
// time, newest first. now stands in for missing or unparseable times.
func Synthesize(entries []SourceData, now time.Time) []CallRecord {
	records := []CallRecord{}
	for _, entry := range entries {
		for i, call := range entry.Calls {
			records = append(records, synthesizeRecord(entry, call, i, len(records), now))
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CallTime.After(records[j].CallTime)
	})
	return records
}

func synthesizeRecord(entry SourceData, call scrape.CallRow, rowIndex, outputIndex int, now time.Time) CallRecord {
	agent := call.DerivedAgent
	if agent <= 0 {
		agent = scrape.ExtractAgentNumberFromStatus(call.CallStatus, rowIndex%agentCycle+1)
	}

	callTime := now
	switch {
	case call.StartTime != "":
		callTime = scrape.ParseMonitorDate(call.StartTime, now)
	case !entry.CapturedAt.IsZero():
		callTime = entry.CapturedAt
	}

	seq := rowIndex
	if call.Sequence != 0 {
		seq = call.Sequence
	}

	calledNumber := call.CalledNumber
	if calledNumber == "" {
		calledNumber = "-"
	}
	status := call.CallStatus
	switch {
	case call.Ended:
		status = StatusEnded
	case status == "":
		status = StatusIntegration
	}

	return CallRecord{
		ID:                fmt.Sprintf("webpage-%s-%d-%d", entry.Source, seq, outputIndex),
		CalledNumber:      calledNumber,
		CallbackNumber:    stripSpace(call.CallbackNumber),
		Agent:             agent,
		Note:              status,
		CallStatus:        status,
		Duration:          scrape.ParseDurationToSeconds(call.DurationText),
		CallTime:          callTime,
		Panel:             entry.Source,
		IntegrationSource: entry.Source,
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
