package monitor

import (
	"fmt"
	"sort"
	"time"
)

// Live-duration states.
const (
	DurationActive = "一段座席"
	DurationEnded  = StatusEnded
)

// DurationSample is one entry of a live call-duration snapshot.
type DurationSample struct {
	CalledNumber string    `json:"calledNumber"`
	Agent        int       `json:"agent"`
	Duration     int       `json:"duration"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}

// LiveDuration is the tracked state of one (number, agent) pair.
type LiveDuration struct {
	CalledNumber  string    `json:"calledNumber"`
	Agent         int       `json:"agent"`
	Duration      int       `json:"duration"`
	Status        string    `json:"status"`
	LastChangedAt time.Time `json:"lastChangedAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DurationTracker decides which calls are still live from successive
// duration snapshots. A call ends when it drops out of a snapshot or its
// duration stops advancing for one poll interval.
type DurationTracker struct {
	interval time.Duration
	state    map[string]LiveDuration
}

// NewDurationTracker returns a tracker for snapshots polled every interval.
func NewDurationTracker(interval time.Duration) *DurationTracker {
	return &DurationTracker{interval: interval, state: make(map[string]LiveDuration)}
}

// Observe folds a snapshot taken at now into the tracked state and returns
// the sorted records. Samples without digits in the number or without an
// agent are ignored.
func (t *DurationTracker) Observe(snapshot []DurationSample, now time.Time) []LiveDuration {
	seen := make(map[string]bool, len(snapshot))

	for _, s := range snapshot {
		number := digitsOf(s.CalledNumber)
		if number == "" || s.Agent == 0 {
			continue
		}
		key := fmt.Sprintf("%s-%d", number, s.Agent)
		seen[key] = true

		duration := s.Duration
		if duration < 0 {
			duration = 0
		}
		prev, ok := t.state[key]
		changed := !ok || duration != prev.Duration

		next := LiveDuration{
			CalledNumber:  number,
			Agent:         s.Agent,
			Duration:      duration,
			Status:        DurationActive,
			LastChangedAt: now,
			CreatedAt:     now,
		}
		if ok {
			next.CreatedAt = prev.CreatedAt
			if !changed {
				next.Status = prev.Status
				next.LastChangedAt = prev.LastChangedAt
			}
		} else if !s.CreatedAt.IsZero() {
			next.CreatedAt = s.CreatedAt
		}
		t.state[key] = next
	}

	for key, v := range t.state {
		if v.Status == DurationEnded {
			continue
		}
		if !seen[key] || now.Sub(v.LastChangedAt) >= t.interval {
			v.Status = DurationEnded
			t.state[key] = v
		}
	}
	return t.Records()
}

// Records returns live calls first, longest first, then ended calls, most
// recently changed first.
func (t *DurationTracker) Records() []LiveDuration {
	out := make([]LiveDuration, 0, len(t.state))
	for _, v := range t.state {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Status != b.Status {
			return a.Status == DurationActive
		}
		if a.Status == DurationActive && a.Duration != b.Duration {
			return a.Duration > b.Duration
		}
		if !a.LastChangedAt.Equal(b.LastChangedAt) {
			return a.LastChangedAt.After(b.LastChangedAt)
		}
		if a.CalledNumber != b.CalledNumber {
			return a.CalledNumber < b.CalledNumber
		}
		return a.Agent < b.Agent
	})
	return out
}

// Active returns only the live calls.
func (t *DurationTracker) Active() []LiveDuration {
	var out []LiveDuration
	for _, r := range t.Records() {
		if r.Status == DurationActive {
			out = append(out, r)
		}
	}
	return out
}

func digitsOf(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}
