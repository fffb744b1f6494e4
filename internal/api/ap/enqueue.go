package ap

import (
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"

	"github.com/mangocats/wkmp/internal/fader"
	"github.com/mangocats/wkmp/internal/playback/engine"
	"github.com/mangocats/wkmp/internal/ticks"
)

var nextQueueEntryID atomic.Int64

// enqueueRequest is the §6.3 POST /enqueue body. Every timing field is
// optional: a nil field defers to the passage's own defaults, which in
// turn defer to system defaults at resolve time.
type enqueueRequest struct {
	FilePath  string `json:"file_path"`
	PassageID *int64 `json:"passage_id"`

	Start        *int64  `json:"start"`
	End          *int64  `json:"end"`
	LeadIn       *int64  `json:"lead_in"`
	LeadOut      *int64  `json:"lead_out"`
	FadeIn       *int64  `json:"fade_in"`
	FadeOut      *int64  `json:"fade_out"`
	FadeInCurve  *string `json:"fade_in_curve"`
	FadeOutCurve *string `json:"fade_out_curve"`
}

type enqueueResponse struct {
	QueueEntryID int64 `json:"queue_entry_id"`
}

func tickPtr(v *int64) *ticks.Tick {
	if v == nil {
		return nil
	}
	t := ticks.Tick(*v)
	return &t
}

func curvePtr(v *string) *fader.Curve {
	if v == nil {
		return nil
	}
	c := fader.ParseCurve(*v)
	return &c
}

func (c *Controller) enqueue(ctx echo.Context) error {
	var req enqueueRequest
	if err := ctx.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.FilePath == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "file_path is required")
	}

	queue := c.Engine.Queue()
	playOrder := int64(1)
	for _, q := range queue {
		if q.PlayOrder >= playOrder {
			playOrder = q.PlayOrder + 1
		}
	}

	entry := engine.QueueEntry{
		ID:        nextQueueEntryID.Add(1),
		FilePath:  req.FilePath,
		PassageID: req.PassageID,
		PlayOrder: playOrder,
		Override: engine.TimingOverride{
			Start:        tickPtr(req.Start),
			End:          tickPtr(req.End),
			LeadIn:       tickPtr(req.LeadIn),
			LeadOut:      tickPtr(req.LeadOut),
			FadeIn:       tickPtr(req.FadeIn),
			FadeOut:      tickPtr(req.FadeOut),
			FadeInCurve:  curvePtr(req.FadeInCurve),
			FadeOutCurve: curvePtr(req.FadeOutCurve),
		},
	}

	if err := c.Engine.Enqueue(entry); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(http.StatusOK, enqueueResponse{QueueEntryID: entry.ID})
}

func (c *Controller) remove(ctx echo.Context) error {
	id, err := parseInt64(ctx.Param("queue_entry_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid queue_entry_id")
	}

	found := false
	for _, q := range c.Engine.Queue() {
		if q.ID == id {
			found = true
			break
		}
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "queue entry not found")
	}

	if err := c.Engine.Dequeue(id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return ctx.NoContent(http.StatusOK)
}
