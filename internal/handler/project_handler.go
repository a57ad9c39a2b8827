package handler

import (
	"context"
	"net/http"

	"bizportal/internal/model"
	"bizportal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProjectService interface {
	ListProjects(ctx context.Context, actor service.Actor) ([]model.Project, error)
	GetProject(ctx context.Context, actor service.Actor, id int) (*model.Project, error)
	UpdateProject(ctx context.Context, id int, req service.ProjectUpdateRequest) (*model.Project, error)
	SetProgress(ctx context.Context, id, progress int) error
	ListMilestones(ctx context.Context, actor service.Actor, projectID int) ([]model.Milestone, error)
	CreateMilestone(ctx context.Context, projectID int, req service.MilestoneRequest) (*model.Milestone, error)
	UpdateMilestone(ctx context.Context, id int, req service.MilestoneRequest) (*model.Milestone, error)
	DeleteMilestone(ctx context.Context, id int) error
	UpcomingMilestones(ctx context.Context, limit int) ([]model.Milestone, error)
}

type ProjectHandler struct {
	svc    ProjectService
	logger *zap.Logger
}

func NewProjectHandler(svc ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// ListProjects handles GET /api/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.svc.ListProjects(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, "ListProjects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects})
}

// GetProject handles GET /api/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	project, err := h.svc.GetProject(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "GetProject", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

// UpdateProject handles PUT /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.ProjectUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	project, err := h.svc.UpdateProject(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, "UpdateProject", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

// SetProgress handles PUT /api/projects/:id/progress
func (h *ProjectHandler) SetProgress(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Progress *int `json:"progress"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Progress == nil {
		badRequest(c, "progress required")
		return
	}
	if err := h.svc.SetProgress(c.Request.Context(), id, *req.Progress); err != nil {
		respondError(c, h.logger, "SetProgress", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "progress": *req.Progress})
}

// ListMilestones handles GET /api/projects/:id/milestones
func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	milestones, err := h.svc.ListMilestones(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "ListMilestones", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "milestones": milestones})
}

// CreateMilestone handles POST /api/projects/:id/milestones
func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	milestone, err := h.svc.CreateMilestone(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, "CreateMilestone", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "milestone": milestone})
}

// UpdateMilestone handles PUT /api/milestones/:id
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.MilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	milestone, err := h.svc.UpdateMilestone(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.logger, "UpdateMilestone", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "milestone": milestone})
}

// DeleteMilestone handles DELETE /api/milestones/:id
func (h *ProjectHandler) DeleteMilestone(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMilestone(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "DeleteMilestone", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UpcomingMilestones handles GET /api/milestones/upcoming?limit=
func (h *ProjectHandler) UpcomingMilestones(c *gin.Context) {
	milestones, err := h.svc.UpcomingMilestones(c.Request.Context(), queryInt(c, "limit"))
	if err != nil {
		respondError(c, h.logger, "UpcomingMilestones", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "milestones": milestones})
}
