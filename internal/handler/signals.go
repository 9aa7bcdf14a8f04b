package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/gin-gonic/gin"
)

// SignalReader evaluates the current signal set.
type SignalReader interface {
	ListSignals(ctx context.Context, now time.Time) ([]domain.Signal, error)
}

// ListSignals godoc
// @Summary      Get evaluated signals for all indicators
// @Description  Evaluates the latest stored observation of every indicator against its threshold rule
// @Tags         signals
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/signals [get]
func (h *Handler) ListSignals(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-signals")
	defer span.End()

	signals, err := h.signals.ListSignals(ctx, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signals": signals})
}
