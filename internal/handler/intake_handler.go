package handler

import (
	"context"
	"net/http"

	"bizportal/internal/model"
	"bizportal/internal/service"
	"bizportal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type IntakeService interface {
	SubmitLead(ctx context.Context, req service.LeadIntakeRequest) (*model.Lead, error)
	SubmitContact(ctx context.Context, req service.ContactRequest) (*model.ContactSubmission, error)
}

type IntakeHandler struct {
	svc    IntakeService
	logger *zap.Logger
}

func NewIntakeHandler(svc IntakeService, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{svc: svc, logger: logger}
}

// SubmitLead handles POST /api/intake
func (h *IntakeHandler) SubmitLead(c *gin.Context) {
	h.logger.Info("SubmitLead request received", zap.String("client_ip", c.ClientIP()))

	var req service.LeadIntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.IncrementIntake("intake", "rejected")
		h.logger.Warn("SubmitLead: invalid body", zap.Error(err))
		badRequest(c, "invalid request")
		return
	}

	lead, err := h.svc.SubmitLead(c.Request.Context(), req)
	if err != nil {
		metrics.IncrementIntake("intake", "rejected")
		respondError(c, h.logger, "SubmitLead", err)
		return
	}

	metrics.IncrementIntake("intake", "accepted")
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"lead_id": lead.ID,
	})
}

// SubmitContact handles POST /api/contact
func (h *IntakeHandler) SubmitContact(c *gin.Context) {
	h.logger.Info("SubmitContact request received", zap.String("client_ip", c.ClientIP()))

	var req service.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.IncrementIntake("contact", "rejected")
		h.logger.Warn("SubmitContact: invalid body", zap.Error(err))
		badRequest(c, "invalid request")
		return
	}

	contact, err := h.svc.SubmitContact(c.Request.Context(), req)
	if err != nil {
		metrics.IncrementIntake("contact", "rejected")
		respondError(c, h.logger, "SubmitContact", err)
		return
	}

	metrics.IncrementIntake("contact", "accepted")
	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"contact_id": contact.ID,
	})
}
