package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/dialwatch/internal/models"
	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/seats"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeBoard struct {
	mu      sync.Mutex
	view    monitor.View
	live    []monitor.LiveDuration
	resyncs []string
	subs    chan monitor.View
}

func newFakeBoard() *fakeBoard {
	v := monitor.EmptyView()
	v.Status = monitor.SyncSuccess
	v.Sources = []string{"pbx"}
	v.Records = []monitor.CallRecord{
		{ID: "1", CalledNumber: "111", Agent: 1, CallStatus: "通話中", Duration: 45, IntegrationSource: "pbx"},
		{ID: "2", CalledNumber: "222", Agent: 2, CallStatus: "振鈴中", IntegrationSource: "pbx"},
	}
	return &fakeBoard{view: v, subs: make(chan monitor.View, 1)}
}

func (b *fakeBoard) View() monitor.View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view
}

func (b *fakeBoard) LiveDurations() []monitor.LiveDuration { return b.live }

func (b *fakeBoard) Resync(trigger string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resyncs = append(b.resyncs, trigger)
	return true
}

func (b *fakeBoard) Subscribe() (<-chan monitor.View, func()) {
	return b.subs, func() {}
}

type fakeRuns struct {
	runs []models.SyncRun
	err  error
}

func (f fakeRuns) RecentSyncRuns(limit int) ([]models.SyncRun, error) {
	if len(f.runs) > limit {
		return f.runs[:limit], f.err
	}
	return f.runs, f.err
}

func testSeats(t *testing.T) *seats.Directory {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.AutoMigrate(&models.SeatName{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return seats.New(db, 20, nil)
}

func setupRouter(t *testing.T, opts StartOpts) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Board == nil {
		opts.Board = newFakeBoard()
	}
	return NewRouter(opts)
}

func doRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStart_NilBoard(t *testing.T) {
	err := Start(context.Background(), StartOpts{})
	if err == nil {
		t.Fatal("expected error for nil board")
	}
	if !strings.Contains(err.Error(), "board is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "board is required")
	}
}

func TestHealthz(t *testing.T) {
	r := setupRouter(t, StartOpts{})
	w := doRequest(r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"syncStatus":"success"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestView(t *testing.T) {
	r := setupRouter(t, StartOpts{})
	w := doRequest(r, http.MethodGet, "/api/view", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var v monitor.View
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(v.Records) != 2 || v.Sources[0] != "pbx" {
		t.Errorf("view = %+v", v)
	}
}

func TestPanel(t *testing.T) {
	r := setupRouter(t, StartOpts{TotalSeats: 24})

	tests := []struct {
		path       string
		wantStatus int
		wantAgents int
	}{
		{"/api/panels/pbx", http.StatusOK, 24},
		{"/api/panels/pbx?seats=30", http.StatusOK, 30},
		{"/api/panels/pbx?seats=0", http.StatusBadRequest, 0},
		{"/api/panels/pbx?seats=abc", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := doRequest(r, http.MethodGet, tt.path, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var ps monitor.PanelSummary
			if err := json.Unmarshal(w.Body.Bytes(), &ps); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(ps.Agents) != tt.wantAgents {
				t.Errorf("len(Agents) = %d, want %d", len(ps.Agents), tt.wantAgents)
			}
			if !ps.HasData {
				t.Error("HasData = false, want true")
			}
		})
	}
}

func TestLiveCalls_EmptyIsArray(t *testing.T) {
	r := setupRouter(t, StartOpts{})
	w := doRequest(r, http.MethodGet, "/api/calls/live", "")
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestResync(t *testing.T) {
	board := newFakeBoard()
	r := setupRouter(t, StartOpts{Board: board})
	w := doRequest(r, http.MethodPost, "/api/resync", "")
	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", w.Code)
	}
	if len(board.resyncs) != 1 || board.resyncs[0] != "manual" {
		t.Errorf("resyncs = %v, want [manual]", board.resyncs)
	}
}

func TestSeatNames(t *testing.T) {
	r := setupRouter(t, StartOpts{Seats: testSeats(t)})

	w := doRequest(r, http.MethodGet, "/api/seats/names", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []seats.Seat
	json.Unmarshal(w.Body.Bytes(), &list)
	if len(list) != 20 || list[6].Name != "座席07" {
		t.Fatalf("default list = %+v", list)
	}

	w = doRequest(r, http.MethodPut, "/api/seats/names/3", `{"name":"Alice"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("set status = %d: %s", w.Code, w.Body.String())
	}
	w = doRequest(r, http.MethodPut, "/api/seats/names/300", `{"name":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("out-of-range status = %d, want 400", w.Code)
	}

	w = doRequest(r, http.MethodGet, "/api/seats/names", "")
	json.Unmarshal(w.Body.Bytes(), &list)
	if list[2].Name != "Alice" || !list[2].Custom {
		t.Errorf("seat 3 = %+v, want custom Alice", list[2])
	}

	w = doRequest(r, http.MethodPut, "/api/seats/names", `{"names":["","Bob"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("replace status = %d: %s", w.Code, w.Body.String())
	}
	json.Unmarshal(w.Body.Bytes(), &list)
	if list[1].Name != "Bob" || list[2].Custom {
		t.Errorf("after replace = %+v / %+v", list[1], list[2])
	}

	w = doRequest(r, http.MethodDelete, "/api/seats/names/2", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}
	w = doRequest(r, http.MethodGet, "/api/seats/names", "")
	json.Unmarshal(w.Body.Bytes(), &list)
	if list[1].Name != "座席02" {
		t.Errorf("seat 2 = %q, want default after clear", list[1].Name)
	}

	w = doRequest(r, http.MethodPut, "/api/seats/names", `not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", w.Code)
	}
}

func TestSeatNames_NotConfigured(t *testing.T) {
	r := setupRouter(t, StartOpts{})
	w := doRequest(r, http.MethodGet, "/api/seats/names", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestSyncRuns(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(1500 * time.Millisecond)
	runs := fakeRuns{runs: []models.SyncRun{
		{ID: "b", Trigger: "manual", StartedAt: start, FinishedAt: &end, Pages: 3, Records: 7},
		{ID: "a", Trigger: "startup", StartedAt: start.Add(-time.Minute), ErrorMessage: "boom"},
	}}
	r := setupRouter(t, StartOpts{Runs: runs})

	w := doRequest(r, http.MethodGet, "/api/sync-runs?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var rows []SyncRunRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].ElapsedMS != 1500 || rows[0].Records != 7 {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Error != "boom" || rows[1].FinishedAt != nil {
		t.Errorf("rows[1] = %+v", rows[1])
	}

	r = setupRouter(t, StartOpts{Runs: fakeRuns{err: errors.New("db down")}})
	if w := doRequest(r, http.MethodGet, "/api/sync-runs", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("error status = %d, want 500", w.Code)
	}

	r = setupRouter(t, StartOpts{})
	if w := doRequest(r, http.MethodGet, "/api/sync-runs", ""); strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("no history body = %q, want []", w.Body.String())
	}
}

func TestSSE_StreamsViews(t *testing.T) {
	board := newFakeBoard()
	gin.SetMode(gin.TestMode)
	srv := httptest.NewServer(NewRouter(StartOpts{Board: board}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}

	next := monitor.EmptyView()
	next.Status = monitor.SyncError
	next.Error = "upstream down"

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var events []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			events = append(events, strings.TrimPrefix(line, "event: "))
			if len(events) == 2 {
				board.subs <- next
			}
		}
		if strings.HasPrefix(line, "data: ") && len(events) == 3 {
			if !strings.Contains(line, "upstream down") {
				t.Errorf("pushed view = %s", line)
			}
			break
		}
	}
	want := []string{"connected", "view", "view"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}
