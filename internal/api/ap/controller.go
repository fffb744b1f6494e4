// Package ap implements wkmp-ap's HTTP/SSE control surface (§6.3): queue
// mutation, transport control, and a multiplexed playback event stream.
package ap

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mangocats/wkmp/internal/buildinfo"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/logging"
	"github.com/mangocats/wkmp/internal/playback/engine"
)

var log = logging.ForService("api.ap")

// Controller wires the playback Engine to an echo group.
type Controller struct {
	Engine  *engine.Engine
	Bus     *eventbus.Bus
	Runtime *buildinfo.Context
}

// New builds a Controller. Runtime may be nil (early boot / tests); health
// then reports an "unknown" version.
func New(eng *engine.Engine, bus *eventbus.Bus, runtime *buildinfo.Context) *Controller {
	return &Controller{Engine: eng, Bus: bus, Runtime: runtime}
}

// RegisterRoutes attaches every §6.3 playback endpoint to group.
func (c *Controller) RegisterRoutes(group *echo.Group) {
	group.GET("/health", c.health)
	group.POST("/enqueue", c.enqueue)
	group.POST("/play", c.play)
	group.POST("/pause", c.pause)
	group.POST("/stop", c.stop)
	group.POST("/remove/:queue_entry_id", c.remove)
	group.GET("/events", c.events)
}

func (c *Controller) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"module":  "wkmp-ap",
		"version": c.Runtime.GetVersion(),
	})
}

func (c *Controller) play(ctx echo.Context) error {
	c.Engine.Play()
	return ctx.NoContent(http.StatusOK)
}

func (c *Controller) pause(ctx echo.Context) error {
	c.Engine.Pause()
	return ctx.NoContent(http.StatusOK)
}

func (c *Controller) stop(ctx echo.Context) error {
	c.Engine.Stop()
	return ctx.NoContent(http.StatusOK)
}
