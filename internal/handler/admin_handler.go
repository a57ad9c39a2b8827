package handler

import (
	"context"
	"net/http"
	"strconv"

	"bizportal/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OutboxReplayer interface {
	ReplayEvent(ctx context.Context, eventID int64) error
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type AnalyticsService interface {
	Summary(ctx context.Context) (*model.AnalyticsSummary, error)
}

type AdminHandler struct {
	replayService OutboxReplayer
	analytics     AnalyticsService
	logger        *zap.Logger
}

func NewAdminHandler(replayService OutboxReplayer, analytics AnalyticsService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		replayService: replayService,
		analytics:     analytics,
		logger:        logger,
	}
}

// Analytics handles GET /api/admin/analytics
func (h *AdminHandler) Analytics(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Analytics", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analytics": summary})
}

// ReplayOutboxEvent handles POST /api/admin/outbox/replay?id=
func (h *AdminHandler) ReplayOutboxEvent(c *gin.Context) {
	idStr := c.Query("id")
	if idStr == "" {
		badRequest(c, "missing id parameter")
		return
	}
	eventID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		badRequest(c, "invalid id parameter")
		return
	}

	if err := h.replayService.ReplayEvent(c.Request.Context(), eventID); err != nil {
		respondError(c, h.logger, "ReplayOutboxEvent", err)
		return
	}
	h.logger.Info("ReplayOutboxEvent: success", zap.Int64("event_id", eventID))
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "replayed", "event_id": eventID})
}

// ReplayFailedEvents handles POST /api/admin/outbox/replay-failed?limit=100
func (h *AdminHandler) ReplayFailedEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}

	successCount, err := h.replayService.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "ReplayFailedEvents", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"status":        "completed",
		"success_count": successCount,
		"limit":         limit,
	})
}
