// Package switchboard owns the working set of captured pages. A single loop
// goroutine applies resync results and push events, rebuilds the derived
// view, and publishes immutable snapshots to readers.
package switchboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/dialwatch/internal/archive"
	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/notify"
	"github.com/zulandar/dialwatch/internal/push"
	"github.com/zulandar/dialwatch/internal/upstream"
)

// Resync triggers.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

const (
	pushBuffer    = 256
	resyncBuffer  = 4
	pruneInterval = time.Minute
)

// Fetcher loads a complete working set from upstream.
type Fetcher interface {
	FetchWorkingSet(ctx context.Context, p upstream.ListParams) ([]monitor.CapturedPage, error)
}

// DurationSource returns the live call-duration snapshot.
type DurationSource interface {
	DurationSnapshot(ctx context.Context) ([]monitor.DurationSample, error)
}

// Archiver persists observed pages and resync runs.
type Archiver interface {
	SavePages(pages []monitor.CapturedPage) (int, error)
	RecordSyncRun(run archive.SyncRun) (string, error)
}

// Alerter delivers sync alerts.
type Alerter interface {
	Notify(ctx context.Context, ev notify.Event) error
}

// Opts holds parameters for creating a Board.
type Opts struct {
	Fetcher   Fetcher             // required
	Params    upstream.ListParams // list page fetched on every resync
	Schedule  cron.Schedule       // optional; periodic resync
	Durations DurationSource      // optional; live-duration polling
	Poll      time.Duration       // duration poll interval
	Archive   Archiver            // optional
	Alerter   Alerter             // optional
	Retention time.Duration       // ended records older than this are evicted; 0 keeps all
	Now       func() time.Time    // defaults to time.Now
}

type fetchResult struct {
	trigger   string
	startedAt time.Time
	pages     []monitor.CapturedPage
	err       error
}

type pushEvent struct {
	event string
	data  json.RawMessage
}

// Board is the single owner of the working set and reconciliation stores.
type Board struct {
	opts Opts
	now  func() time.Time

	// Owned by the loop goroutine.
	ws         *monitor.WorkingSet
	reconciler *monitor.Reconciler
	tracker    *monitor.DurationTracker
	failing    bool

	resyncCh chan string
	pushCh   chan pushEvent
	resultCh chan fetchResult
	durCh    chan []monitor.DurationSample
	done     chan struct{}

	mu   sync.RWMutex
	view monitor.View
	live []monitor.LiveDuration

	subMu   sync.Mutex
	subs    map[int]chan monitor.View
	nextSub int
}

// New creates a Board. It does nothing until Run.
func New(opts Opts) (*Board, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("switchboard: fetcher is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	display := monitor.NewDisplayStore()
	display.SetClock(now)

	return &Board{
		opts:       opts,
		now:        now,
		ws:         monitor.NewWorkingSet(),
		reconciler: monitor.NewReconciler(display),
		tracker:    monitor.NewDurationTracker(opts.Poll),
		resyncCh:   make(chan string, resyncBuffer),
		pushCh:     make(chan pushEvent, pushBuffer),
		resultCh:   make(chan fetchResult),
		durCh:      make(chan []monitor.DurationSample),
		done:       make(chan struct{}),
		view:       monitor.EmptyView(),
		subs:       make(map[int]chan monitor.View),
	}, nil
}

// Run starts the loop and blocks until ctx is cancelled. A startup resync is
// queued immediately.
func (b *Board) Run(ctx context.Context) error {
	defer close(b.done)

	if b.opts.Schedule != nil {
		c := cron.New()
		c.Schedule(b.opts.Schedule, cron.FuncJob(func() { b.Resync(TriggerSchedule) }))
		c.Start()
		defer c.Stop()
	}

	var durTick <-chan time.Time
	if b.opts.Durations != nil && b.opts.Poll > 0 {
		t := time.NewTicker(b.opts.Poll)
		defer t.Stop()
		durTick = t.C
	}

	var pruneTick <-chan time.Time
	if b.opts.Retention > 0 {
		t := time.NewTicker(pruneInterval)
		defer t.Stop()
		pruneTick = t.C
	}

	b.startFetch(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			return nil
		case trigger := <-b.resyncCh:
			b.startFetch(ctx, trigger)
		case res := <-b.resultCh:
			b.applyFetch(ctx, res)
		case ev := <-b.pushCh:
			b.applyPush(ev)
		case <-durTick:
			go b.pollDurations(ctx)
		case snap := <-b.durCh:
			b.applyDurations(snap)
		case <-pruneTick:
			b.prune()
		}
	}
}

// Resync queues a full resynchronization. It reports false when the queue
// is full; a queued resync already covers the request.
func (b *Board) Resync(trigger string) bool {
	select {
	case b.resyncCh <- trigger:
		return true
	default:
		return false
	}
}

// HandlePush queues one push event for the loop. It implements push.Handler
// and returns without queuing once the loop has stopped.
func (b *Board) HandlePush(event string, data json.RawMessage) {
	select {
	case b.pushCh <- pushEvent{event: event, data: data}:
	case <-b.done:
	}
}

var _ push.Handler = (*Board)(nil)

// View returns the current snapshot.
func (b *Board) View() monitor.View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

// LiveDurations returns the current live-duration list.
func (b *Board) LiveDurations() []monitor.LiveDuration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Subscribe returns a channel that receives every published view. Slow
// readers only see the latest snapshot. Call cancel to unsubscribe.
func (b *Board) Subscribe() (<-chan monitor.View, func()) {
	ch := make(chan monitor.View, 1)
	b.subMu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
		})
	}
}

func (b *Board) publish(v monitor.View) {
	b.mu.Lock()
	b.view = v
	b.mu.Unlock()

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Drop the stale snapshot, then deliver the new one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (b *Board) startFetch(ctx context.Context, trigger string) {
	v := b.View()
	v.Status = monitor.SyncLoading
	v.Error = ""
	b.publish(v)

	started := b.now()
	go func() {
		pages, err := b.opts.Fetcher.FetchWorkingSet(ctx, b.opts.Params)
		select {
		case b.resultCh <- fetchResult{trigger: trigger, startedAt: started, pages: pages, err: err}:
		case <-ctx.Done():
		}
	}()
}

// applyFetch replaces the working set on success. A failure keeps the
// current data and only flips the status.
func (b *Board) applyFetch(ctx context.Context, res fetchResult) {
	run := archive.SyncRun{Trigger: res.trigger, StartedAt: res.startedAt, FinishedAt: b.now(), Err: res.err}

	if res.err != nil {
		log.Printf("switchboard: %s resync failed: %v", res.trigger, res.err)
		v := b.View()
		v.Status = monitor.SyncError
		v.Error = res.err.Error()
		b.publish(v)
		b.recordRun(run)
		if !b.failing {
			b.failing = true
			b.alert(ctx, notify.Event{
				Title:    "同步失敗",
				Body:     res.err.Error(),
				Severity: notify.SeverityError,
				Fields:   []notify.Field{{Name: "trigger", Value: res.trigger, Short: true}},
			})
		}
		return
	}

	b.ws.Replace(res.pages)
	v := b.rebuild(b.now())
	b.publish(v)

	run.Pages = len(res.pages)
	run.Records = len(v.Records)
	b.archivePages(res.pages)
	b.recordRun(run)

	if b.failing {
		b.failing = false
		b.alert(ctx, notify.Event{
			Title:    "同步恢復",
			Body:     fmt.Sprintf("%d pages, %d records", run.Pages, run.Records),
			Severity: notify.SeveritySuccess,
		})
	}
}

// applyPush upserts one pushed page, or records a status delta on an
// existing page, and rebuilds. Payloads without an id are dropped.
func (b *Board) applyPush(ev pushEvent) {
	entry, ok := upstream.NormalizePayload(ev.data)
	if !ok {
		return
	}

	var changed monitor.CapturedPage
	if ev.event == push.EventStatusChanged && entry.IsDelta() {
		key := string(entry.ID)
		if !b.ws.MarkStatus(key, deltaStatus(ev.data)) {
			return
		}
		changed, _ = b.ws.Get(key)
	} else {
		changed = entry.ToPage()
		if !b.ws.Upsert(changed) {
			return
		}
	}

	b.publish(b.rebuild(b.now()))
	b.archivePages([]monitor.CapturedPage{changed})
}

// deltaStatus reads status, else state, from a thin status delta.
func deltaStatus(data json.RawMessage) string {
	var d struct {
		Status string `json:"status"`
		State  string `json:"state"`
	}
	json.Unmarshal(data, &d)
	switch {
	case d.Status != "":
		return d.Status
	case d.State != "":
		return d.State
	default:
		return "ended"
	}
}

// rebuild derives a fresh view from the working set. An empty set yields
// the idle view and leaves the display records untouched.
func (b *Board) rebuild(now time.Time) monitor.View {
	prev := b.View()
	if b.ws.Len() == 0 {
		v := monitor.EmptyView()
		v.DisplayRecords = b.reconciler.Display()
		v.LastSyncedAt = now
		if v.LastSyncedAt.IsZero() {
			v.LastSyncedAt = prev.LastSyncedAt
		}
		return v
	}

	d := monitor.Build(b.ws.Pages(), now)
	records, display := b.reconciler.Apply(d)
	return monitor.View{
		Status:           monitor.SyncSuccess,
		Records:          records,
		DisplayRecords:   display,
		Sources:          d.Sources,
		MonitorSummaries: d.MonitorSummaries,
		SeatStatuses:     d.SeatStatuses,
		LastSyncedAt:     now,
	}
}

func (b *Board) pollDurations(ctx context.Context) {
	snap, err := b.opts.Durations.DurationSnapshot(ctx)
	if err != nil {
		log.Printf("switchboard: duration snapshot: %v", err)
		return
	}
	select {
	case b.durCh <- snap:
	case <-ctx.Done():
	}
}

func (b *Board) applyDurations(snap []monitor.DurationSample) {
	live := b.tracker.Observe(snap, b.now())
	b.mu.Lock()
	b.live = live
	b.mu.Unlock()
}

func (b *Board) prune() {
	cutoff := b.now().Add(-b.opts.Retention)
	if n := b.reconciler.Prune(cutoff); n > 0 {
		log.Printf("switchboard: pruned %d ended records", n)
		v := b.View()
		v.DisplayRecords = b.reconciler.Display()
		b.publish(v)
	}
}

func (b *Board) archivePages(pages []monitor.CapturedPage) {
	if b.opts.Archive == nil || len(pages) == 0 {
		return
	}
	if _, err := b.opts.Archive.SavePages(pages); err != nil {
		log.Printf("switchboard: archive pages: %v", err)
	}
}

func (b *Board) recordRun(run archive.SyncRun) {
	if b.opts.Archive == nil {
		return
	}
	if _, err := b.opts.Archive.RecordSyncRun(run); err != nil {
		log.Printf("switchboard: record sync run: %v", err)
	}
}

func (b *Board) alert(ctx context.Context, ev notify.Event) {
	if b.opts.Alerter == nil {
		return
	}
	if err := b.opts.Alerter.Notify(ctx, ev); err != nil {
		log.Printf("switchboard: notify: %v", err)
	}
}
