package handler

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer       trace.Tracer
	signals      SignalReader
	observations ObservationReader
	fetch        FetchController
	reports      ReportReader
	advisor      BriefingWriter
}

func New(
	tracer trace.Tracer,
	signals SignalReader,
	observations ObservationReader,
	fetch FetchController,
	reports ReportReader,
	advisor BriefingWriter,
) *Handler {
	return &Handler{
		tracer:       tracer,
		signals:      signals,
		observations: observations,
		fetch:        fetch,
		reports:      reports,
		advisor:      advisor,
	}
}

// RegisterRoutes wires the API surface. Read endpoints are open; the
// mutating endpoints sit behind the API key check (a no-op when no key
// is configured).
func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)
	r.GET("/api/indicators", h.ListIndicators)
	r.GET("/api/indicators/:id/latest", h.GetLatest)
	r.GET("/api/indicators/:id/history", h.GetHistory)
	r.GET("/api/signals", h.ListSignals)
	r.GET("/api/fetch/report", h.GetFetchReport)
	r.GET("/api/briefing", h.GetBriefing)

	guarded := r.Group("/api", APIKeyAuth(apiKey))
	guarded.POST("/fetch", h.TriggerFetch)
	guarded.POST("/scheduler/stop", h.StopScheduler)
}
