package service

import (
	"context"
	"strings"
	"time"

	"bizportal/internal/features"
	"bizportal/internal/model"
	"bizportal/internal/repository"

	"go.uber.org/zap"
)

type ProjectUpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	ProjectType *string    `json:"project_type" validate:"omitempty,max=100"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Budget      *string    `json:"budget" validate:"omitempty,max=100"`
	Price       *float64   `json:"price" validate:"omitempty,gte=0"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	Features    []string   `json:"features"`
	RepoURL     *string    `json:"repo_url" validate:"omitempty,url"`
	PreviewURL  *string    `json:"preview_url" validate:"omitempty,url"`
	Notes       *string    `json:"notes"`
}

type MilestoneRequest struct {
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date"`
	Deliverables []string   `json:"deliverables" validate:"max=50,dive,max=300"`
	SortOrder    int        `json:"sort_order" validate:"gte=0"`
	IsCompleted  *bool      `json:"is_completed"`
}

type ProjectService struct {
	projectRepo   *repository.ProjectRepository
	milestoneRepo *repository.MilestoneRepository
	logger        *zap.Logger
}

func NewProjectService(
	projectRepo *repository.ProjectRepository,
	milestoneRepo *repository.MilestoneRepository,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		logger:        logger,
	}
}

// withFeatures fills Features from the legacy column for unmigrated rows.
func withFeatures(p *model.Project) {
	p.Features = features.Normalize(p.Features, p.FeaturesRaw)
}

// ListProjects returns the actor's visible projects.
func (s *ProjectService) ListProjects(ctx context.Context, actor Actor) ([]model.Project, error) {
	clientID := 0
	if !actor.IsAdmin() {
		clientID = actor.ClientID
		if clientID == 0 {
			return []model.Project{}, nil
		}
	}

	projects, err := s.projectRepo.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		withFeatures(&projects[i])
	}
	return projects, nil
}

func (s *ProjectService) GetProject(ctx context.Context, actor Actor, id int) (*model.Project, error) {
	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	if err := actor.CanSee(derefInt(p.ClientID)); err != nil {
		return nil, err
	}
	withFeatures(p)
	return p, nil
}

// ApplyProjectUpdate copies the non-nil fields of req onto p.
func ApplyProjectUpdate(p *model.Project, req ProjectUpdateRequest) error {
	if req.Status != nil {
		if !model.IsValidProjectStatus(*req.Status) {
			return invalid("unknown project status %q", *req.Status)
		}
		p.Status = *req.Status
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.ProjectType != nil {
		p.ProjectType = *req.ProjectType
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Budget != nil {
		p.Budget = *req.Budget
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.StartDate != nil {
		p.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		p.DueDate = req.DueDate
	}
	if req.Features != nil {
		p.Features = req.Features
	}
	if req.RepoURL != nil {
		p.RepoURL = *req.RepoURL
	}
	if req.PreviewURL != nil {
		p.PreviewURL = *req.PreviewURL
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	if p.StartDate != nil && p.DueDate != nil && p.DueDate.Before(*p.StartDate) {
		return invalid("due_date before start_date")
	}
	return nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, id int, req ProjectUpdateRequest) (*model.Project, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	p, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "project", id)
	}
	withFeatures(p)
	if err := ApplyProjectUpdate(p, req); err != nil {
		return nil, err
	}
	if err := s.projectRepo.Update(ctx, p); err != nil {
		return nil, notFound(err, "project", id)
	}

	s.logger.Info("Project updated", zap.Int("project_id", id), zap.String("status", p.Status))
	return p, nil
}

func (s *ProjectService) SetProgress(ctx context.Context, id, progress int) error {
	if progress < 0 || progress > 100 {
		return invalid("progress must be between 0 and 100")
	}
	if err := s.projectRepo.UpdateProgress(ctx, id, progress); err != nil {
		return notFound(err, "project", id)
	}
	s.logger.Info("Project progress updated", zap.Int("project_id", id), zap.Int("progress", progress))
	return nil
}

func (s *ProjectService) ListMilestones(ctx context.Context, actor Actor, projectID int) ([]model.Milestone, error) {
	if _, err := s.GetProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.milestoneRepo.FindByProjectID(ctx, projectID)
}

func (s *ProjectService) CreateMilestone(ctx context.Context, projectID int, req MilestoneRequest) (*model.Milestone, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.GetByID(ctx, projectID); err != nil {
		return nil, notFound(err, "project", projectID)
	}

	m := &model.Milestone{
		ProjectID:    projectID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		DueDate:      req.DueDate,
		Deliverables: req.Deliverables,
		SortOrder:    req.SortOrder,
	}
	if err := s.milestoneRepo.Insert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMilestone rewrites a milestone. A request carrying only is_completed
// toggles completion and leaves the other fields alone.
func (s *ProjectService) UpdateMilestone(ctx context.Context, id int, req MilestoneRequest) (*model.Milestone, error) {
	m, err := s.milestoneRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "milestone", id)
	}

	if req.Title == "" && req.IsCompleted != nil {
		m.IsCompleted = *req.IsCompleted
	} else {
		if err := Validate(req); err != nil {
			return nil, err
		}
		m.Title = strings.TrimSpace(req.Title)
		m.Description = req.Description
		m.DueDate = req.DueDate
		if req.Deliverables != nil {
			m.Deliverables = req.Deliverables
		}
		if req.SortOrder > 0 {
			m.SortOrder = req.SortOrder
		}
		if req.IsCompleted != nil {
			m.IsCompleted = *req.IsCompleted
		}
	}

	if err := s.milestoneRepo.Update(ctx, m); err != nil {
		return nil, notFound(err, "milestone", id)
	}
	s.logger.Info("Milestone updated", zap.Int("milestone_id", id), zap.Bool("is_completed", m.IsCompleted))
	return m, nil
}

func (s *ProjectService) DeleteMilestone(ctx context.Context, id int) error {
	if err := s.milestoneRepo.Delete(ctx, id); err != nil {
		return notFound(err, "milestone", id)
	}
	return nil
}

func (s *ProjectService) UpcomingMilestones(ctx context.Context, limit int) ([]model.Milestone, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.milestoneRepo.Upcoming(ctx, limit)
}
