package handler

import (
	"context"
	"net/http"

	"bizportal/internal/model"
	"bizportal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MessageService interface {
	ListThreads(ctx context.Context, actor service.Actor, clientID, projectID int) ([]model.MessageThread, error)
	Messages(ctx context.Context, actor service.Actor, threadID int) ([]model.Message, error)
	CreateThread(ctx context.Context, actor service.Actor, req service.ThreadCreateRequest) (*model.MessageThread, error)
	Send(ctx context.Context, actor service.Actor, threadID int, req service.SendMessageRequest) (*model.Message, error)
	MarkRead(ctx context.Context, actor service.Actor, threadID int) (int64, error)
}

type MessageHandler struct {
	svc    MessageService
	logger *zap.Logger
}

func NewMessageHandler(svc MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{svc: svc, logger: logger}
}

// ListThreads handles GET /api/messages/threads?client_id=&project_id=
func (h *MessageHandler) ListThreads(c *gin.Context) {
	threads, err := h.svc.ListThreads(c.Request.Context(), actorFrom(c), queryInt(c, "client_id"), queryInt(c, "project_id"))
	if err != nil {
		respondError(c, h.logger, "ListThreads", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "threads": threads})
}

// CreateThread handles POST /api/messages/threads
func (h *MessageHandler) CreateThread(c *gin.Context) {
	var req service.ThreadCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	thread, err := h.svc.CreateThread(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, h.logger, "CreateThread", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "thread": thread})
}

// Messages handles GET /api/messages/threads/:id/messages
func (h *MessageHandler) Messages(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	messages, err := h.svc.Messages(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "ListMessages", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// Send handles POST /api/messages/threads/:id/messages
func (h *MessageHandler) Send(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), actorFrom(c), id, req)
	if err != nil {
		respondError(c, h.logger, "SendMessage", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

// MarkRead handles PUT /api/messages/threads/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "MarkThreadRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": n})
}
