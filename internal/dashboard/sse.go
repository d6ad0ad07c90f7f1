package dashboard

import (
	"time"

	"github.com/gin-gonic/gin"
)

const sseHeartbeat = 15 * time.Second

// handleSSE streams the current view on connect, then every new snapshot as
// a "view" event, with periodic heartbeats.
func handleSSE(board Board) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		views, cancel := board.Subscribe()
		defer cancel()

		writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
		writeSSE(c.Writer, "view", board.View())
		c.Writer.Flush()

		ctx := c.Request.Context()
		heartbeat := time.NewTicker(sseHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				writeSSE(c.Writer, "heartbeat", map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			case v, ok := <-views:
				if !ok {
					return
				}
				writeSSE(c.Writer, "view", v)
				c.Writer.Flush()
			}
		}
	}
}
