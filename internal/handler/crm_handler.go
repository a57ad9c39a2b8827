package handler

import (
	"context"
	"net/http"

	"bizportal/internal/model"
	"bizportal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CRMService interface {
	ListLeads(ctx context.Context, status string) ([]model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id int, status, notes string) error
	ActivateLead(ctx context.Context, leadID int) (*model.Project, error)
	ListContacts(ctx context.Context, status string) ([]model.ContactSubmission, error)
	UpdateContactStatus(ctx context.Context, id int, status string) error
	ConvertContact(ctx context.Context, id int) (*model.Lead, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	GetClient(ctx context.Context, id int) (*service.ClientDetail, error)
}

type CRMHandler struct {
	svc    CRMService
	logger *zap.Logger
}

func NewCRMHandler(svc CRMService, logger *zap.Logger) *CRMHandler {
	return &CRMHandler{svc: svc, logger: logger}
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// ListLeads handles GET /api/admin/leads?status=
func (h *CRMHandler) ListLeads(c *gin.Context) {
	leads, err := h.svc.ListLeads(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.logger, "ListLeads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "leads": leads})
}

// UpdateLeadStatus handles PUT /api/admin/leads/:id/status
func (h *CRMHandler) UpdateLeadStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.svc.UpdateLeadStatus(c.Request.Context(), id, req.Status, req.Notes); err != nil {
		respondError(c, h.logger, "UpdateLeadStatus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ActivateLead handles POST /api/admin/leads/:id/activate
func (h *CRMHandler) ActivateLead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	project, err := h.svc.ActivateLead(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "ActivateLead", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "project": project})
}

// ListContacts handles GET /api/admin/contacts?status=
func (h *CRMHandler) ListContacts(c *gin.Context) {
	contacts, err := h.svc.ListContacts(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, h.logger, "ListContacts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "contacts": contacts})
}

// UpdateContactStatus handles PUT /api/admin/contacts/:id/status
func (h *CRMHandler) UpdateContactStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.svc.UpdateContactStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, h.logger, "UpdateContactStatus", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ConvertContact handles POST /api/admin/contacts/:id/convert
func (h *CRMHandler) ConvertContact(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	lead, err := h.svc.ConvertContact(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "ConvertContact", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "lead": lead})
}

// ListClients handles GET /api/admin/clients
func (h *CRMHandler) ListClients(c *gin.Context) {
	clients, err := h.svc.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "ListClients", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "clients": clients})
}

// GetClient handles GET /api/admin/clients/:id
func (h *CRMHandler) GetClient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	detail, err := h.svc.GetClient(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetClient", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "client": detail.Client, "projects": detail.Projects})
}
