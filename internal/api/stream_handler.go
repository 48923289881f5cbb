package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"alcyxob/fitflow/internal/realtime"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const streamKeepAlive = 25 * time.Second

type StreamHandler struct {
	hub       *realtime.Hub
	keepAlive time.Duration
}

func NewStreamHandler(hub *realtime.Hub) *StreamHandler {
	return &StreamHandler{hub: hub, keepAlive: streamKeepAlive}
}

// Stream godoc
// @Summary Live calendar snapshots
// @Description Server-Sent Events; every "snapshot" event carries the full calendar keyed by date.
// @Tags Workouts
// @Produce text/event-stream
// @Security BearerAuth
// @Router /workouts/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}

	sub, err := h.hub.Subscribe(owner)
	if err != nil {
		if errors.Is(err, realtime.ErrHubClosed) {
			abortWithError(c, http.StatusServiceUnavailable, "Server is shutting down")
			return
		}
		respondError(c, err)
		return
	}
	defer sub.Close()

	log.WithField("owner", owner.Hex()).Debug("snapshot stream opened")
	defer log.WithField("owner", owner.Hex()).Debug("snapshot stream closed")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, open := <-sub.Updates():
			if !open {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}
