package handler

import (
	"context"
	"fmt"
	"net/http"

	"bizportal/internal/model"
	"bizportal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InvoiceService interface {
	List(ctx context.Context) ([]model.Invoice, error)
	ListByProject(ctx context.Context, actor service.Actor, projectID int) ([]model.Invoice, error)
	ListForClient(ctx context.Context, actor service.Actor) ([]model.Invoice, error)
	Get(ctx context.Context, actor service.Actor, id int) (*model.Invoice, error)
	Create(ctx context.Context, req service.InvoiceCreateRequest) (*model.Invoice, error)
	Send(ctx context.Context, id int) (*model.Invoice, error)
	MarkPaid(ctx context.Context, id int, amount float64) (*model.Invoice, error)
	ApplyCredit(ctx context.Context, id int, amount float64) (*model.Invoice, error)
	Duplicate(ctx context.Context, id int) (*model.Invoice, error)
	Void(ctx context.Context, id int) (*model.Invoice, error)
	SetStatus(ctx context.Context, id int, status string, force bool) (*model.Invoice, error)
	Receipt(ctx context.Context, actor service.Actor, id int) ([]byte, string, error)
}

type InvoiceHandler struct {
	svc    InvoiceService
	logger *zap.Logger
}

func NewInvoiceHandler(svc InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, logger: logger}
}

// List handles GET /api/invoices (admin) and GET /api/portal/invoices (client).
func (h *InvoiceHandler) List(c *gin.Context) {
	actor := actorFrom(c)
	var invoices []model.Invoice
	var err error
	if actor.IsAdmin() {
		invoices, err = h.svc.List(c.Request.Context())
	} else {
		invoices, err = h.svc.ListForClient(c.Request.Context(), actor)
	}
	if err != nil {
		respondError(c, h.logger, "ListInvoices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoices": invoices})
}

// ListByProject handles GET /api/invoices/project/:id
func (h *InvoiceHandler) ListByProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	invoices, err := h.svc.ListByProject(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "ListProjectInvoices", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoices": invoices})
}

// Get handles GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "GetInvoice", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "invoice": inv})
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.InvoiceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	inv, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "CreateInvoice", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "invoice": inv})
}

// action runs one of the single-invoice state changes.
func (h *InvoiceHandler) action(op string, fn func(ctx context.Context, c *gin.Context, id int) (*model.Invoice, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		inv, err := fn(c.Request.Context(), c, id)
		if err != nil {
			respondError(c, h.logger, op, err)
			return
		}
		h.logger.Info(op+": success", zap.Int("invoice_id", id), zap.String("status", inv.Status))
		c.JSON(http.StatusOK, gin.H{"success": true, "invoice": inv})
	}
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

// Send handles POST /api/invoices/:id/send
func (h *InvoiceHandler) Send() gin.HandlerFunc {
	return h.action("SendInvoice", func(ctx context.Context, _ *gin.Context, id int) (*model.Invoice, error) {
		return h.svc.Send(ctx, id)
	})
}

// MarkPaid handles POST /api/invoices/:id/mark-paid
func (h *InvoiceHandler) MarkPaid() gin.HandlerFunc {
	return h.action("MarkInvoicePaid", func(ctx context.Context, c *gin.Context, id int) (*model.Invoice, error) {
		var req amountRequest
		// an empty body pays the full balance
		_ = c.ShouldBindJSON(&req)
		return h.svc.MarkPaid(ctx, id, req.Amount)
	})
}

// ApplyCredit handles POST /api/invoices/:id/credit
func (h *InvoiceHandler) ApplyCredit() gin.HandlerFunc {
	return h.action("ApplyInvoiceCredit", func(ctx context.Context, c *gin.Context, id int) (*model.Invoice, error) {
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("%w: amount required", service.ErrInvalidInput)
		}
		return h.svc.ApplyCredit(ctx, id, req.Amount)
	})
}

// Duplicate handles POST /api/invoices/:id/duplicate
func (h *InvoiceHandler) Duplicate() gin.HandlerFunc {
	return h.action("DuplicateInvoice", func(ctx context.Context, _ *gin.Context, id int) (*model.Invoice, error) {
		return h.svc.Duplicate(ctx, id)
	})
}

// Void handles POST /api/invoices/:id/void
func (h *InvoiceHandler) Void() gin.HandlerFunc {
	return h.action("VoidInvoice", func(ctx context.Context, _ *gin.Context, id int) (*model.Invoice, error) {
		return h.svc.Void(ctx, id)
	})
}

// SetStatus handles PUT /api/invoices/:id/status
func (h *InvoiceHandler) SetStatus() gin.HandlerFunc {
	return h.action("SetInvoiceStatus", func(ctx context.Context, c *gin.Context, id int) (*model.Invoice, error) {
		var req struct {
			Status string `json:"status"`
			Force  bool   `json:"force"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("%w: status required", service.ErrInvalidInput)
		}
		return h.svc.SetStatus(ctx, id, req.Status, req.Force)
	})
}

// Download handles GET /api/invoices/:id/pdf
func (h *InvoiceHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	body, filename, err := h.svc.Receipt(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "DownloadInvoice", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}
