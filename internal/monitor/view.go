package monitor

import (
	"sync"
	"time"

	"github.com/zulandar/dialwatch/internal/scrape"
)

// SyncStatus is the state of the most recent synchronization.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncLoading SyncStatus = "loading"
	SyncSuccess SyncStatus = "success"
	SyncError   SyncStatus = "error"
)

// Derived is everything computed from one working set.
type Derived struct {
	Records          []CallRecord                         `json:"records"`
	Sources          []string                             `json:"sources"`
	MonitorSummaries map[string]scrape.Summary            `json:"monitorSummaries"`
	SeatStatuses     map[string][][]scrape.PeerSeatStatus `json:"seatStatuses"`
}

// Build runs the whole pipeline over pages. It is pure: the same pages and
// now always produce the same result.
func Build(pages []CapturedPage, now time.Time) Derived {
	entries := Aggregate(pages)
	d := Derived{
		Records:          Synthesize(entries, now),
		Sources:          make([]string, 0, len(entries)),
		MonitorSummaries: make(map[string]scrape.Summary, len(entries)),
		SeatStatuses:     make(map[string][][]scrape.PeerSeatStatus),
	}
	for _, e := range entries {
		d.Sources = append(d.Sources, e.Source)
		d.MonitorSummaries[e.Source] = e.Summary
		if e.SeatStatuses != nil {
			d.SeatStatuses[e.Source] = e.SeatStatuses
		}
	}
	return d
}

// View is the read-only model published to dashboard clients.
type View struct {
	Status           SyncStatus                           `json:"status"`
	Records          []CallRecord                         `json:"records"`
	DisplayRecords   []CallRecord                         `json:"displayRecords"`
	Sources          []string                             `json:"sources"`
	MonitorSummaries map[string]scrape.Summary            `json:"monitorSummaries"`
	SeatStatuses     map[string][][]scrape.PeerSeatStatus `json:"seatStatuses"`
	LastSyncedAt     time.Time                            `json:"lastSyncedAt,omitempty"`
	Error            string                               `json:"error,omitempty"`
}

// EmptyView is the idle view shown before the first synchronization.
func EmptyView() View {
	return View{
		Status:           SyncIdle,
		Records:          []CallRecord{},
		DisplayRecords:   []CallRecord{},
		Sources:          []string{},
		MonitorSummaries: map[string]scrape.Summary{},
		SeatStatuses:     map[string][][]scrape.PeerSeatStatus{},
	}
}

// Reconciler publishes derived passes. Records are the fresh synthesis of
// the latest pass; only the display panel goes through the store, so its
// calls end instead of vanishing.
type Reconciler struct {
	mu      sync.Mutex
	display *Store
	last    []CallRecord
}

// NewReconciler wires the display store. It may be shared with callers that
// want to inspect state directly.
func NewReconciler(display *Store) *Reconciler {
	return &Reconciler{display: display, last: []CallRecord{}}
}

// Apply reconciles one pass. The display panel follows the first source
// only. It returns the synthesized records (newest first, as Synthesize
// orders them) and the display records.
func (r *Reconciler) Apply(d Derived) (records, display []CallRecord) {
	if len(d.Records) == 0 || len(d.Sources) == 0 {
		r.display.EndSourcesExcept(nil)
	} else {
		primary := d.Sources[0]
		r.display.Reconcile(primary, d.Records)
		r.display.EndSourcesExcept([]string{primary})
	}

	r.mu.Lock()
	r.last = append([]CallRecord{}, d.Records...)
	r.mu.Unlock()

	return r.Records(), r.display.Records()
}

// Records returns a copy of the records of the latest pass.
func (r *Reconciler) Records() []CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallRecord{}, r.last...)
}

// Display returns the current display records without reconciling.
func (r *Reconciler) Display() []CallRecord {
	return r.display.Records()
}

// Prune evicts display records that ended before cutoff.
func (r *Reconciler) Prune(cutoff time.Time) int {
	return r.display.Prune(cutoff)
}
