package monitor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zulandar/dialwatch/internal/scrape"
)

// AgentStatus is a seat's state as derived from its call records.
type AgentStatus string

const (
	AgentInCall  AgentStatus = "inCall"
	AgentRinging AgentStatus = "ringing"
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
	AgentNoData  AgentStatus = "noData"
)

const (
	// DefaultTotalSeats is the seat count shown when nothing larger is known.
	DefaultTotalSeats = 20

	longCallMinSeconds = 30
	longCallLimit      = 3
	maxValidSeat       = scrape.MaxAgentNumber
)

// AgentStats summarizes the records of one seat.
type AgentStats struct {
	SeatNumber    int         `json:"seatNumber"`
	Status        AgentStatus `json:"status"`
	Answered      int         `json:"answered"`
	HungUp        int         `json:"hungUp"`
	AvgDuration   int         `json:"avgDuration"`
	MaxDuration   int         `json:"maxDuration"`
	MaxCallNumber string      `json:"maxCallNumber"`
	OnlineTime    int         `json:"onlineTime"`
}

// PanelSummary is the statistics block of one dashboard panel.
type PanelSummary struct {
	Panel             string                    `json:"panel"`
	HasData           bool                      `json:"hasData"`
	Agents            []AgentStats              `json:"agents"`
	AgentStatusCounts map[AgentStatus]int       `json:"agentStatusCounts"`
	LongRunning       []CallRecord              `json:"longRunning"`
	ManualCalls       int                       `json:"manualCalls"`
	SegmentTotal      int                       `json:"segmentTotal"`
	VoicePackages     int                       `json:"voicePackages"`
	ConnectRate       scrape.Rate               `json:"connectRate"`
	CallbackRate      scrape.Rate               `json:"callbackRate"`
	AvgDuration       int                       `json:"avgDuration"`
	SeatStatusCounts  map[scrape.SeatStatus]int `json:"seatStatusCounts,omitempty"`
}

// PanelStats computes the statistics of panel from v. The display panel
// reads the display records and the first source's summary; any other panel
// reads the records of that source from the latest pass.
func PanelStats(v View, panel string, totalSeats int) PanelSummary {
	if totalSeats <= 0 {
		totalSeats = DefaultTotalSeats
	}

	source := panel
	var records []CallRecord
	if panel == PanelDisplay {
		records = v.DisplayRecords
		if len(v.Sources) > 0 {
			source = v.Sources[0]
		}
	} else {
		for _, r := range v.Records {
			if r.IntegrationSource == panel {
				records = append(records, r)
			}
		}
	}

	hasData := v.Status == SyncSuccess && len(records) > 0
	ps := PanelSummary{
		Panel:             panel,
		HasData:           hasData,
		Agents:            agentStats(records, hasData, totalSeats),
		AgentStatusCounts: make(map[AgentStatus]int),
		LongRunning:       longRunningCalls(records, totalSeats),
	}
	for _, a := range ps.Agents {
		ps.AgentStatusCounts[a.Status]++
	}

	total := 0
	transferred := 0
	for _, r := range records {
		total += r.Duration
		if r.CallStatus == StatusTransferred {
			transferred++
		}
	}
	if len(records) > 0 {
		ps.AvgDuration = total / len(records)
	}

	summary, hasSummary := v.MonitorSummaries[source]
	if hasSummary {
		ps.ManualCalls = summary.ManualCalls
		ps.SegmentTotal = summary.SegmentCounts.Total()
		ps.VoicePackages = summary.VoiceCallCount
	} else {
		ps.ManualCalls = len(records)
		ps.SegmentTotal = len(records)
		ps.VoicePackages = len(records)
	}

	ps.ConnectRate = summary.ConnectRate
	ps.CallbackRate = summary.CallbackRate
	if n := len(records); n > 0 {
		if !ps.ConnectRate.Defined() {
			ps.ConnectRate = scrape.Rate{Value: math.Round(float64(n-transferred) / float64(n) * 100), Samples: n}
		}
		if !ps.CallbackRate.Defined() {
			ps.CallbackRate = scrape.Rate{Value: math.Round(float64(transferred) / float64(n) * 100), Samples: n}
		}
	}

	if grid := v.SeatStatuses[source]; len(grid) > 0 {
		ps.SeatStatusCounts = make(map[scrape.SeatStatus]int)
		for _, s := range scrape.FlattenSeats(grid) {
			ps.SeatStatusCounts[s.Status]++
		}
	}
	return ps
}

type agentAccumulator struct {
	answered      int
	hungUp        int
	totalDuration int
	maxDuration   int
	maxCallNumber string
	inCall        bool
	ringing       bool
}

func agentStats(records []CallRecord, hasData bool, totalSeats int) []AgentStats {
	byAgent := make(map[int]*agentAccumulator)
	maxSeat := totalSeats
	for _, r := range records {
		if r.Agent < 1 || r.Agent > maxValidSeat {
			continue
		}
		acc, ok := byAgent[r.Agent]
		if !ok {
			acc = &agentAccumulator{maxCallNumber: r.CalledNumber}
			byAgent[r.Agent] = acc
		}
		acc.answered++
		acc.totalDuration += r.Duration
		if r.CallStatus == StatusTransferred {
			acc.hungUp++
		}
		if r.CallStatus == StatusInCall {
			acc.inCall = true
		}
		if strings.Contains(r.CallStatus, "振鈴") {
			acc.ringing = true
		}
		if r.Duration > acc.maxDuration {
			acc.maxDuration = r.Duration
			acc.maxCallNumber = r.CalledNumber
		}
		if r.Agent > maxSeat {
			maxSeat = r.Agent
		}
	}

	out := make([]AgentStats, maxSeat)
	for i := range out {
		seat := i + 1
		acc, ok := byAgent[seat]
		if !ok {
			status := AgentOffline
			if !hasData {
				status = AgentNoData
			}
			out[i] = AgentStats{SeatNumber: seat, Status: status, MaxCallNumber: "-"}
			continue
		}
		status := AgentOnline
		switch {
		case acc.inCall:
			status = AgentInCall
		case acc.ringing:
			status = AgentRinging
		}
		onlineTime := acc.answered * 12
		if onlineTime < 60 {
			onlineTime = 60
		}
		out[i] = AgentStats{
			SeatNumber:    seat,
			Status:        status,
			Answered:      acc.answered,
			HungUp:        acc.hungUp,
			AvgDuration:   acc.totalDuration / acc.answered,
			MaxDuration:   acc.maxDuration,
			MaxCallNumber: acc.maxCallNumber,
			OnlineTime:    onlineTime,
		}
	}
	return out
}

// longRunningCalls returns up to three in-call records of at least 30 s, one
// per (agent, number), longest first with ties broken by id.
func longRunningCalls(records []CallRecord, totalSeats int) []CallRecord {
	limit := totalSeats
	if limit < maxValidSeat {
		limit = maxValidSeat
	}

	best := make(map[string]CallRecord)
	var keys []string
	for _, r := range records {
		if r.Duration < longCallMinSeconds || !strings.Contains(r.CallStatus, StatusInCall) {
			continue
		}
		if r.Agent < 1 || r.Agent > limit {
			continue
		}
		if strings.TrimSpace(r.CalledNumber) == "" || r.CalledNumber == "-" {
			continue
		}
		key := fmt.Sprintf("%d-%s", r.Agent, r.CalledNumber)
		existing, ok := best[key]
		if !ok {
			keys = append(keys, key)
		}
		if !ok || r.Duration > existing.Duration {
			best[key] = r
		}
	}

	out := make([]CallRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Duration != out[j].Duration {
			return out[i].Duration > out[j].Duration
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > longCallLimit {
		out = out[:longCallLimit]
	}
	return out
}
