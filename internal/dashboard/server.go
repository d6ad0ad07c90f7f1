// Package dashboard serves the call-monitor view model over HTTP: JSON
// snapshots, panel statistics, seat names, and a live SSE stream.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/dialwatch/internal/models"
	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/seats"
)

// Board is the live view source behind the dashboard.
type Board interface {
	View() monitor.View
	LiveDurations() []monitor.LiveDuration
	Resync(trigger string) bool
	Subscribe() (<-chan monitor.View, func())
}

// SeatDirectory reads and writes seat display names.
type SeatDirectory interface {
	List() ([]seats.Seat, error)
	Set(number int, name string) error
	Clear(number int) error
	Replace(names []string) error
}

// RunHistory lists recent resync runs.
type RunHistory interface {
	RecentSyncRuns(limit int) ([]models.SyncRun, error)
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	Board      Board
	Seats      SeatDirectory // optional
	Runs       RunHistory    // optional
	TotalSeats int
	Port       int
	Out        io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Board == nil {
		return fmt.Errorf("dashboard: board is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with every dashboard route registered.
func NewRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
