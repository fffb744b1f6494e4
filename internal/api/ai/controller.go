// Package ai implements wkmp-ai's HTTP/SSE control surface (§6.3): starting,
// inspecting, and cancelling import sessions, plus a multiplexed import
// event stream.
package ai

import (
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/mangocats/wkmp/internal/buildinfo"
	"github.com/mangocats/wkmp/internal/datastore"
	"github.com/mangocats/wkmp/internal/eventbus"
	"github.com/mangocats/wkmp/internal/importpipeline"
	"github.com/mangocats/wkmp/internal/logging"
)

var log = logging.ForService("api.ai")

// Controller wires the import WorkflowOrchestrator to an echo group.
type Controller struct {
	Orchestrator *importpipeline.WorkflowOrchestrator
	Store        *datastore.Store
	Bus          *eventbus.Bus
	Runtime      *buildinfo.Context
}

// New builds a Controller. Runtime may be nil (early boot / tests).
func New(orch *importpipeline.WorkflowOrchestrator, store *datastore.Store, bus *eventbus.Bus, runtime *buildinfo.Context) *Controller {
	return &Controller{Orchestrator: orch, Store: store, Bus: bus, Runtime: runtime}
}

// RegisterRoutes attaches every §6.3 import endpoint to group.
func (c *Controller) RegisterRoutes(group *echo.Group) {
	group.GET("/health", c.health)
	group.POST("/import/start", c.startImport)
	group.GET("/import/status/:session_id", c.importStatus)
	group.POST("/import/cancel/:session_id", c.cancelImport)
	group.GET("/import/events", c.events)
}

func (c *Controller) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"module":  "wkmp-ai",
		"version": c.Runtime.GetVersion(),
	})
}

type startImportRequest struct {
	RootFolder string         `json:"root_folder"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type sessionResponse struct {
	SessionID int64  `json:"session_id"`
	State     string `json:"state"`
	StartedAt string `json:"started_at"`
}

func (c *Controller) startImport(ctx echo.Context) error {
	var req startImportRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RootFolder == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "root_folder is required")
	}
	info, err := os.Stat(req.RootFolder)
	if err != nil || !info.IsDir() {
		return echo.NewHTTPError(http.StatusBadRequest, "root_folder does not exist")
	}

	running, err := c.Store.StaleSessions(ctx.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(running) > 0 {
		return echo.NewHTTPError(http.StatusConflict, "another import session is already running")
	}

	session, err := c.Orchestrator.StartAsync(ctx.Request().Context(), req.RootFolder)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(http.StatusOK, sessionResponse{
		SessionID: session.ID,
		State:     string(session.State),
		StartedAt: session.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (c *Controller) importStatus(ctx echo.Context) error {
	id, err := parseInt64(ctx.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session_id")
	}
	session, err := c.Store.LoadSession(ctx.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "import session not found")
	}
	return ctx.JSON(http.StatusOK, session)
}

func (c *Controller) cancelImport(ctx echo.Context) error {
	id, err := parseInt64(ctx.Param("session_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid session_id")
	}
	session, err := c.Store.LoadSession(ctx.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "import session not found")
	}
	if session.State == datastore.ImportCompleted || session.State == datastore.ImportFailed || session.State == datastore.ImportCancelled {
		return echo.NewHTTPError(http.StatusBadRequest, "import session is already terminal")
	}
	if !c.Orchestrator.Cancel(id) {
		return echo.NewHTTPError(http.StatusBadRequest, "import session is not running")
	}
	return ctx.JSON(http.StatusOK, map[string]string{"state": "CANCELLED"})
}
