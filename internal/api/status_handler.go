package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/connectivity"
)

// StatusSource is the connectivity indicator. *connectivity.Reducer implements it.
type StatusSource interface {
	State() connectivity.State
	Subscribe(fn func(connectivity.State)) (unsubscribe func())
}

// StatusHandler exposes the connectivity indicator.
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// GetStatus handles GET /status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.State())
}

// StreamStatus handles GET /status/stream. The current state is sent first, then every
// transition as a "status" server-sent event.
func (h *StatusHandler) StreamStatus(c *gin.Context) {
	updates := make(chan connectivity.State, 8)
	unsubscribe := h.source.Subscribe(func(s connectivity.State) {
		// Listeners must not block the reducer; a stalled client loses events.
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	// Disable caching and proxy buffering so events reach the browser as they happen.
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("status", h.source.State())
	c.Writer.Flush()

	// Returning false ends the stream; gin flushes after every step.
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case s := <-updates:
			c.SSEvent("status", s)
			return true
		}
	})
}
