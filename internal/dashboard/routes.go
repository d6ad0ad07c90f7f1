package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/dialwatch/internal/monitor"
	"github.com/zulandar/dialwatch/internal/seats"
	"github.com/zulandar/dialwatch/internal/switchboard"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth(opts.Board))

	api := router.Group("/api")
	api.GET("/view", handleView(opts.Board))
	api.GET("/panels/:source", handlePanel(opts.Board, opts.TotalSeats))
	api.GET("/calls/live", handleLiveCalls(opts.Board))
	api.POST("/resync", handleResync(opts.Board))
	api.GET("/events", handleSSE(opts.Board))

	api.GET("/seats/names", handleSeatList(opts.Seats))
	api.PUT("/seats/names", handleSeatReplace(opts.Seats))
	api.PUT("/seats/names/:number", handleSeatSet(opts.Seats))
	api.DELETE("/seats/names/:number", handleSeatClear(opts.Seats))

	api.GET("/sync-runs", handleSyncRuns(opts.Runs))
}

func handleHealth(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := board.View()
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"syncStatus":   v.Status,
			"lastSyncedAt": v.LastSyncedAt,
		})
	}
}

func handleView(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, board.View())
	}
}

// handlePanel returns statistics for one panel. The display panel is
// addressed by its fixed letter, every other panel by source label.
func handlePanel(board Board, totalSeats int) gin.HandlerFunc {
	return func(c *gin.Context) {
		total := totalSeats
		if raw := c.Query("seats"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > seats.MaxSeatNumber {
				c.JSON(http.StatusBadRequest, gin.H{"error": "seats must be between 1 and 200"})
				return
			}
			total = n
		}
		c.JSON(http.StatusOK, monitor.PanelStats(board.View(), c.Param("source"), total))
	}
}

func handleLiveCalls(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		live := board.LiveDurations()
		if live == nil {
			live = []monitor.LiveDuration{}
		}
		c.JSON(http.StatusOK, live)
	}
}

func handleResync(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		queued := board.Resync(switchboard.TriggerManual)
		c.JSON(http.StatusAccepted, gin.H{"queued": queued})
	}
}

func handleSeatList(dir SeatDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "seat names are not configured"})
			return
		}
		list, err := dir.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

type seatNamesRequest struct {
	Names []string `json:"names"`
}

func handleSeatReplace(dir SeatDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "seat names are not configured"})
			return
		}
		var req seatNamesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := dir.Replace(req.Names); err != nil {
			c.JSON(seatErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		list, err := dir.List()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

type seatNameRequest struct {
	Name string `json:"name"`
}

func handleSeatSet(dir SeatDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "seat names are not configured"})
			return
		}
		number, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat number"})
			return
		}
		var req seatNameRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := dir.Set(number, req.Name); err != nil {
			c.JSON(seatErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleSeatClear(dir SeatDirectory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dir == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "seat names are not configured"})
			return
		}
		number, err := strconv.Atoi(c.Param("number"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat number"})
			return
		}
		if err := dir.Clear(number); err != nil {
			c.JSON(seatErrorStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func seatErrorStatus(err error) int {
	if errors.Is(err, seats.ErrSeatNumber) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func handleSyncRuns(runs RunHistory) gin.HandlerFunc {
	return func(c *gin.Context) {
		if runs == nil {
			c.JSON(http.StatusOK, []SyncRunRow{})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		rows, err := RecentRuns(runs, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
