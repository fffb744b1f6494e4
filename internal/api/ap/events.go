package ap

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	sseHeartbeatInterval = 30 * time.Second
	sseWriteDeadline     = 10 * time.Second
)

func setSSEHeaders(ctx echo.Context) {
	ctx.Response().Header().Set("Content-Type", "text/event-stream")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	ctx.Response().Header().Set("Connection", "keep-alive")
}

// events streams every playback event published on the engine's bus
// (§6.4) as an SSE feed, with a periodic heartbeat so idle proxies don't
// close the connection.
func (c *Controller) events(ctx echo.Context) error {
	setSSEHeaders(ctx)
	ctx.Response().WriteHeader(http.StatusOK)
	flusher, ok := ctx.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	sub := c.Bus.Subscribe()
	defer sub.Close()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	req := ctx.Request()
	for {
		select {
		case <-req.Context().Done():
			return nil
		case evt := <-sub.Events():
			if err := writeSSEEvent(ctx, evt.Kind, evt.Payload); err != nil {
				return nil
			}
			flusher.Flush()
		case notice := <-sub.Lag():
			if err := writeSSEEvent(ctx, "LagNotice", notice); err != nil {
				return nil
			}
			flusher.Flush()
		case <-heartbeat.C:
			if err := writeSSEComment(ctx, "heartbeat"); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(ctx echo.Context, event string, payload any) error {
	if setter, ok := ctx.Response().Writer.(interface{ SetWriteDeadline(time.Time) error }); ok {
		_ = setter.SetWriteDeadline(time.Now().Add(sseWriteDeadline))
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn("failed to marshal SSE payload", "event", event, "error", err)
		return nil
	}
	_, err = fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, data)
	return err
}

func writeSSEComment(ctx echo.Context, comment string) error {
	_, err := fmt.Fprintf(ctx.Response(), ": %s\n\n", comment)
	return err
}
