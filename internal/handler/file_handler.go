package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"bizportal/internal/model"
	"bizportal/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FileService interface {
	Upload(ctx context.Context, actor service.Actor, projectID int, originalName, mimeType string, r io.Reader) (*model.ProjectFile, error)
	List(ctx context.Context, actor service.Actor, projectID int) ([]model.ProjectFile, error)
	SetShared(ctx context.Context, id int, shared bool) error
	Open(ctx context.Context, actor service.Actor, id int) (*model.ProjectFile, *os.File, error)
	Delete(ctx context.Context, id int) error
}

type FileHandler struct {
	svc    FileService
	logger *zap.Logger
}

func NewFileHandler(svc FileService, logger *zap.Logger) *FileHandler {
	return &FileHandler{svc: svc, logger: logger}
}

// Upload handles POST /api/uploads/project/:id (multipart field "file")
func (h *FileHandler) Upload(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file required")
		return
	}
	src, err := header.Open()
	if err != nil {
		respondError(c, h.logger, "UploadFile", err)
		return
	}
	defer src.Close()

	mimeType := header.Header.Get("Content-Type")
	f, err := h.svc.Upload(c.Request.Context(), actorFrom(c), projectID, header.Filename, mimeType, src)
	if err != nil {
		respondError(c, h.logger, "UploadFile", err)
		return
	}
	h.logger.Info("UploadFile: success",
		zap.Int("project_id", projectID),
		zap.Int("file_id", f.ID),
		zap.Int64("size", f.Size),
	)
	c.JSON(http.StatusCreated, gin.H{"success": true, "file": f})
}

// List handles GET /api/uploads/project/:id
func (h *FileHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id")
	if !ok {
		return
	}
	files, err := h.svc.List(c.Request.Context(), actorFrom(c), projectID)
	if err != nil {
		respondError(c, h.logger, "ListFiles", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

// SetShared handles PUT /api/uploads/:id/share
func (h *FileHandler) SetShared(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Shared bool `json:"shared"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if err := h.svc.SetShared(c.Request.Context(), id, req.Shared); err != nil {
		respondError(c, h.logger, "ShareFile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "shared": req.Shared})
}

// Download handles GET /api/uploads/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	f, fh, err := h.svc.Open(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, "DownloadFile", err)
		return
	}
	defer fh.Close()

	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, f.Size, mimeType, fh, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, f.OriginalName),
	})
}

// Delete handles DELETE /api/uploads/:id
func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, "DeleteFile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
