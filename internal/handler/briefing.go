package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BriefingWriter produces the LLM market briefing.
type BriefingWriter interface {
	Enabled() bool
	Briefing(ctx context.Context) (string, error)
}

// GetBriefing godoc
// @Summary      Get an LLM-written market briefing
// @Description  Summarizes the current signal set in prose; requires an OpenAI key
// @Tags         briefing
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/briefing [get]
func (h *Handler) GetBriefing(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-briefing")
	defer span.End()

	if h.advisor == nil || !h.advisor.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "briefing disabled: no LLM configured"})
		return
	}

	briefing, err := h.advisor.Briefing(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"briefing": briefing})
}
