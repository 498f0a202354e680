package controllers

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

// StreamEvents handles GET /api/v1/events - a server-sent event stream
// of live order mutations. Delivery is best-effort: a client that
// disconnects misses events and recovers by re-querying orders and its
// notification feed.
func StreamEvents(c *gin.Context) {
	if _, ok := currentStaff(c); !ok {
		return
	}

	notifier := services.GetNotifier()
	id, events := notifier.Subscribe()
	defer notifier.Unsubscribe(id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Push the headers out immediately so clients see the stream open
	// before the first event arrives
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case event, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("order", event)
			return true
		}
	})
}
