package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/WENHA0ZHANG/poor-trader-dashboard/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ObservationReader is the store slice the read endpoints need.
type ObservationReader interface {
	Latest(ctx context.Context, id domain.IndicatorID) (*domain.Observation, error)
	History(ctx context.Context, id domain.IndicatorID, from, to time.Time) ([]domain.Observation, error)
	ListLatest(ctx context.Context) ([]domain.Observation, error)
}

// ListIndicators godoc
// @Summary      List tracked indicators
// @Description  Returns the indicator catalog with each indicator's latest stored observation
// @Tags         indicators
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/indicators [get]
func (h *Handler) ListIndicators(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.list-indicators")
	defer span.End()

	// Latest readings are decoration here; a store error degrades the
	// listing to catalog-only instead of failing it.
	latestByID := map[domain.IndicatorID]domain.Observation{}
	if latest, err := h.observations.ListLatest(ctx); err == nil {
		for _, obs := range latest {
			latestByID[obs.IndicatorID] = obs
		}
	}

	indicators := domain.Indicators()
	out := make([]gin.H, 0, len(indicators))
	for _, ind := range indicators {
		entry := gin.H{
			"id":          ind.ID,
			"title":       ind.Title,
			"unit":        ind.Unit,
			"rule_kind":   ind.Rule.Kind,
			"top":         ind.Rule.Top,
			"bottom":      ind.Rule.Bottom,
			"inverted":    ind.Rule.Inverted,
			"stale_after": ind.StaleAfter.String(),
		}
		if ind.Rule.Kind == domain.RuleFixedOrPercentile {
			entry["top_percentile"] = ind.Rule.TopPercentile
			entry["bottom_percentile"] = ind.Rule.BottomPercentile
			entry["min_history"] = ind.Rule.MinHistory
		}
		if obs, ok := latestByID[ind.ID]; ok {
			entry["latest"] = obs
		}
		out = append(out, entry)
	}

	c.JSON(http.StatusOK, gin.H{"indicators": out})
}

// GetLatest godoc
// @Summary      Get the latest observation for an indicator
// @Description  Returns the most recent stored value for one indicator
// @Tags         indicators
// @Produce      json
// @Param        id  path  string  true  "Indicator id (e.g., vix)"
// @Success      200  {object}  domain.Observation
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/indicators/{id}/latest [get]
func (h *Handler) GetLatest(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-latest")
	defer span.End()

	id := domain.IndicatorID(strings.ToLower(c.Param("id")))
	span.SetAttributes(attribute.String("indicator", string(id)))

	if !domain.KnownIndicator(id) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "unknown indicator: " + string(id),
			"known_indicators": indicatorIDs(),
		})
		return
	}

	obs, err := h.observations.Latest(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if obs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no observations for " + string(id)})
		return
	}

	c.JSON(http.StatusOK, obs)
}

// GetHistory godoc
// @Summary      Get observation history for an indicator
// @Description  Returns observations in ascending date order for a trailing window
// @Tags         indicators
// @Produce      json
// @Param        id    path   string  true   "Indicator id (e.g., vix)"
// @Param        days  query  int     false  "Trailing window in days (default 90, max 3650)"  default(90)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/indicators/{id}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-history")
	defer span.End()

	id := domain.IndicatorID(strings.ToLower(c.Param("id")))
	span.SetAttributes(attribute.String("indicator", string(id)))

	if !domain.KnownIndicator(id) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":            "unknown indicator: " + string(id),
			"known_indicators": indicatorIDs(),
		})
		return
	}

	days := 90
	if d := c.Query("days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n > 0 && n <= 3650 {
			days = n
		}
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)
	history, err := h.observations.History(ctx, id, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"indicator":    id,
		"days":         days,
		"observations": history,
	})
}

func indicatorIDs() []string {
	out := make([]string, 0, len(domain.Indicators()))
	for _, ind := range domain.Indicators() {
		out = append(out, string(ind.ID))
	}
	return out
}
