package monitor

import (
	"sync"
	"time"
)

// RecordState is the lifecycle state of a tracked key.
type RecordState int

const (
	Active RecordState = iota
	Ended
)

func (s RecordState) String() string {
	if s == Ended {
		return "ended"
	}
	return "active"
}

type storeEntry struct {
	record  CallRecord
	state   RecordState
	endedAt time.Time
}

// Store keeps display-panel call records across passes, keyed by called
// number, so a record missing from one pass is shown as ended instead of
// disappearing. Ended records stay until their key is upserted again or
// Prune evicts them. Output order is first-insertion order of the key.
//
// A Store is safe for concurrent use, though the switchboard drives it from a
// single goroutine.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	order   []string
	entries map[string]*storeEntry
}

// NewDisplayStore returns a store keyed by called number whose records are
// all shown on the display panel.
func NewDisplayStore() *Store {
	return &Store{
		now:     time.Now,
		entries: make(map[string]*storeEntry),
	}
}

// SetClock replaces the clock used to stamp ended records.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Reconcile upserts every record of source and ends any key of that source
// not upserted in this call. Records of other sources are ignored.
func (s *Store) Reconcile(source string, records []CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make(map[string]bool, len(records))
	for _, r := range records {
		if r.IntegrationSource != source {
			continue
		}
		key := r.CalledNumber
		if key == "" {
			continue
		}
		s.upsert(key, r, source)
		updated[key] = true
	}

	now := s.now()
	for _, key := range s.order {
		e := s.entries[key]
		if !updated[key] && e.record.IntegrationSource == source {
			s.end(e, now)
		}
	}
}

func (s *Store) upsert(key string, r CallRecord, source string) {
	existing, ok := s.entries[key]
	if !ok {
		s.order = append(s.order, key)
		existing = &storeEntry{}
		s.entries[key] = existing
	}
	prev := existing.record

	r.Panel = PanelDisplay
	if r.ID == "" {
		r.ID = firstNonEmpty(prev.ID, "integration-"+key)
	}
	if r.Note == "" {
		r.Note = firstNonEmpty(r.CallStatus, prev.Note, StatusInCall)
	}
	if r.CallStatus == "" {
		r.CallStatus = firstNonEmpty(prev.CallStatus, StatusInCall)
	}
	if r.RecordingURL == "" {
		r.RecordingURL = prev.RecordingURL
	}
	if r.CallTime.IsZero() {
		r.CallTime = prev.CallTime
	}
	r.IntegrationSource = source

	existing.record = r
	existing.state = Active
	existing.endedAt = time.Time{}
}

func (s *Store) end(e *storeEntry, now time.Time) {
	if e.state == Ended {
		return
	}
	e.state = Ended
	e.endedAt = now
	e.record.CallStatus = StatusEnded
	e.record.Note = StatusEnded
}

// EndSourcesExcept ends every active record whose source is not listed. With
// no sources listed, every tracked record ends.
func (s *Store) EndSourcesExcept(sources []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]bool, len(sources))
	for _, src := range sources {
		keep[src] = true
	}
	now := s.now()
	for _, key := range s.order {
		e := s.entries[key]
		if !keep[e.record.IntegrationSource] {
			s.end(e, now)
		}
	}
}

// Prune evicts records that ended before cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	removed := 0
	for _, key := range s.order {
		e := s.entries[key]
		if e.state == Ended && e.endedAt.Before(cutoff) {
			delete(s.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	s.order = kept
	return removed
}

// Records returns a copy of every tracked record in first-insertion order.
func (s *Store) Records() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]CallRecord, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.entries[key].record)
	}
	return out
}

// State reports the state of key and whether it is tracked.
func (s *Store) State(key string) (RecordState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Active, false
	}
	return e.state, true
}

// Len returns the number of tracked keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
