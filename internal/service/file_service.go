package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"bizportal/internal/model"
	"bizportal/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileService stores project uploads on local disk and their metadata in Postgres.
type FileService struct {
	fileRepo    *repository.FileRepository
	projectRepo *repository.ProjectRepository
	dir         string
	maxBytes    int64
	logger      *zap.Logger
}

func NewFileService(
	fileRepo *repository.FileRepository,
	projectRepo *repository.ProjectRepository,
	dir string,
	maxBytes int64,
	logger *zap.Logger,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		projectRepo: projectRepo,
		dir:         dir,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// StoredName returns a collision-free on-disk name that keeps the extension.
func StoredName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	return uuid.NewString() + ext
}

func (s *FileService) checkProject(ctx context.Context, actor Actor, projectID int) error {
	p, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return notFound(err, "project", projectID)
	}
	return actor.CanSee(derefInt(p.ClientID))
}

// Upload copies r to disk and records it. Files uploaded by a client are
// always shared.
func (s *FileService) Upload(ctx context.Context, actor Actor, projectID int, originalName, mimeType string, r io.Reader) (*model.ProjectFile, error) {
	if err := s.checkProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	originalName = filepath.Base(originalName)
	if originalName == "." || originalName == string(filepath.Separator) {
		return nil, invalid("missing file name")
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	stored := StoredName(originalName)
	path := filepath.Join(s.dir, stored)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	size, err := io.Copy(out, io.LimitReader(r, s.maxBytes+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && size > s.maxBytes {
		err = invalid("file exceeds %d bytes", s.maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(originalName))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	f := &model.ProjectFile{
		ProjectID:        projectID,
		OriginalName:     originalName,
		StoredName:       stored,
		MimeType:         mimeType,
		Size:             size,
		SharedWithClient: !actor.IsAdmin(),
		UploadedBy:       actor.SenderType(),
	}
	if err := s.fileRepo.Insert(ctx, f); err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.logger.Info("File uploaded",
		zap.Int("project_id", projectID),
		zap.Int("file_id", f.ID),
		zap.Int64("size", size),
	)
	return f, nil
}

func (s *FileService) List(ctx context.Context, actor Actor, projectID int) ([]model.ProjectFile, error) {
	if err := s.checkProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.fileRepo.ListByProject(ctx, projectID, !actor.IsAdmin())
}

func (s *FileService) SetShared(ctx context.Context, id int, shared bool) error {
	if err := s.fileRepo.SetShared(ctx, id, shared); err != nil {
		return notFound(err, "file", id)
	}
	return nil
}

// Open returns the record and an open handle; the caller closes it.
func (s *FileService) Open(ctx context.Context, actor Actor, id int) (*model.ProjectFile, *os.File, error) {
	f, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "file", id)
	}
	if err := s.checkProject(ctx, actor, f.ProjectID); err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin() && !f.SharedWithClient {
		return nil, nil, fmt.Errorf("%w: file %d", ErrNotFound, id)
	}

	fh, err := os.Open(filepath.Join(s.dir, f.StoredName))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, fh, nil
}

func (s *FileService) Delete(ctx context.Context, id int) error {
	f, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "file", id)
	}
	if err := s.fileRepo.Delete(ctx, id); err != nil {
		return notFound(err, "file", id)
	}
	if err := os.Remove(filepath.Join(s.dir, f.StoredName)); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove stored file", zap.String("stored_name", f.StoredName), zap.Error(err))
	}
	return nil
}
