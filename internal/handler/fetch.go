package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"
	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/scheduler"

	"github.com/gin-gonic/gin"
)

// FetchController is the scheduler surface the fetch endpoints need.
type FetchController interface {
	Trigger() bool
	Stop()
	State() scheduler.State
	NextRun() time.Time
	LastReport() *domain.IngestionReport
}

// ReportReader reads persisted run reports; used when the in-process
// scheduler has not completed a run yet.
type ReportReader interface {
	LastReport(ctx context.Context) (*domain.IngestionReport, error)
	LastUpdateTime(ctx context.Context) (time.Time, error)
}

// TriggerFetch godoc
// @Summary      Trigger an ingestion run
// @Description  Queues a fetch across all configured providers; coalesces with any pending run
// @Tags         fetch
// @Produce      json
// @Success      202  {object}  map[string]interface{}
// @Failure      409  {object}  map[string]string
// @Router       /api/fetch [post]
func (h *Handler) TriggerFetch(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.trigger-fetch")
	defer span.End()

	state := h.fetch.State()
	if state == scheduler.StateStopped {
		c.JSON(http.StatusConflict, gin.H{"error": "scheduler is stopped"})
		return
	}

	queued := h.fetch.Trigger()
	c.JSON(http.StatusAccepted, gin.H{
		"queued": queued,
		"state":  state,
	})
}

// GetFetchReport godoc
// @Summary      Get the latest ingestion report
// @Description  Returns the per-provider outcome of the most recent run plus scheduler state
// @Tags         fetch
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/fetch/report [get]
func (h *Handler) GetFetchReport(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-fetch-report")
	defer span.End()

	report := h.fetch.LastReport()
	if report == nil && h.reports != nil {
		// No run in this process yet; fall back to the persisted trail.
		persisted, err := h.reports.LastReport(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		report = persisted
	}
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no ingestion run has completed yet"})
		return
	}

	out := gin.H{
		"report": report,
		"state":  h.fetch.State(),
	}
	if next := h.fetch.NextRun(); !next.IsZero() {
		out["next_run"] = next
	}
	if h.reports != nil {
		if at, err := h.reports.LastUpdateTime(ctx); err == nil && !at.IsZero() {
			out["last_update"] = at
		}
	}

	c.JSON(http.StatusOK, out)
}

// StopScheduler godoc
// @Summary      Stop the auto-fetch scheduler
// @Description  Stops periodic ingestion permanently for this process and cancels any run in flight
// @Tags         fetch
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/scheduler/stop [post]
func (h *Handler) StopScheduler(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.stop-scheduler")
	defer span.End()

	h.fetch.Stop()
	c.JSON(http.StatusOK, gin.H{"state": string(scheduler.StateStopped)})
}
