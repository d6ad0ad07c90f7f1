// Package notify delivers synchronization alerts to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Severity levels and their sidebar colors.
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"

	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// DefaultDedupWindow suppresses identical alerts sent within one second.
const DefaultDedupWindow = time.Second

// Event is one alert.
type Event struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair shown under an alert.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Color returns the sidebar color for the event's severity.
func (e Event) Color() string {
	switch e.Severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Dedup decides whether an alert key was already sent recently.
type Dedup interface {
	// Seen reports whether key was recorded within the window ending at now,
	// and records it if not.
	Seen(key string, now time.Time) bool
}

// MemoryDedup is an in-process Dedup with a fixed window.
type MemoryDedup struct {
	window time.Duration
	mu     sync.Mutex
	last   map[string]time.Time
}

// NewMemoryDedup returns a dedup store. A non-positive window uses
// DefaultDedupWindow.
func NewMemoryDedup(window time.Duration) *MemoryDedup {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &MemoryDedup{window: window, last: make(map[string]time.Time)}
}

func (d *MemoryDedup) Seen(key string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.last[key]; ok && now.Sub(t) < d.window {
		return true
	}
	d.last[key] = now
	for k, t := range d.last {
		if now.Sub(t) >= d.window {
			delete(d.last, k)
		}
	}
	return false
}

// Notifier fans events out to its sinks.
type Notifier struct {
	sinks []Sink
	dedup Dedup
	now   func() time.Time
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDedup replaces the default in-memory dedup store.
func WithDedup(d Dedup) Option {
	return func(n *Notifier) { n.dedup = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

// New returns a Notifier for sinks.
func New(sinks []Sink, opts ...Option) *Notifier {
	n := &Notifier{
		sinks: sinks,
		dedup: NewMemoryDedup(DefaultDedupWindow),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Enabled reports whether any sink is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && len(n.sinks) > 0
}

// Notify sends ev to every sink. Events with a blank title, and events whose
// title and body match one sent within the dedup window, are dropped
// silently. Sink failures are joined into the returned error.
func (n *Notifier) Notify(ctx context.Context, ev Event) error {
	if !n.Enabled() {
		return nil
	}
	if !validText(ev.Title) {
		return nil
	}
	if n.dedup.Seen(ev.Title+"|"+ev.Body, n.now()) {
		log.Printf("notify: suppressed duplicate %q", ev.Title)
		return nil
	}

	var errs []error
	for _, s := range n.sinks {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("notify: %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func validText(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != "undefined" && s != "null"
}

// parseHexColor converts "#36a64f" to an int.
func parseHexColor(hex string) int {
	hex = strings.TrimPrefix(hex, "#")
	var color int
	for _, c := range hex {
		color <<= 4
		switch {
		case c >= '0' && c <= '9':
			color |= int(c - '0')
		case c >= 'a' && c <= 'f':
			color |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			color |= int(c-'A') + 10
		}
	}
	return color
}
