package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	eventsmq "bizportal/contracts/mq"
	"bizportal/internal/model"
	"bizportal/internal/repository"
	"bizportal/pkg/outbox"
	"bizportal/pkg/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// CRMService manages leads, contact submissions and clients.
type CRMService struct {
	pool        *pgxpool.Pool
	leadRepo    *repository.LeadRepository
	contactRepo *repository.ContactRepository
	clientRepo  *repository.ClientRepository
	projectRepo *repository.ProjectRepository
	outboxRepo  *outbox.Repository
	logger      *zap.Logger
}

func NewCRMService(
	pool *pgxpool.Pool,
	leadRepo *repository.LeadRepository,
	contactRepo *repository.ContactRepository,
	clientRepo *repository.ClientRepository,
	projectRepo *repository.ProjectRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *CRMService {
	return &CRMService{
		pool:        pool,
		leadRepo:    leadRepo,
		contactRepo: contactRepo,
		clientRepo:  clientRepo,
		projectRepo: projectRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

func notFound(err error, what string, id int) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

func (s *CRMService) ListLeads(ctx context.Context, status string) ([]model.Lead, error) {
	if status != "" && !model.IsValidLeadStatus(status) {
		return nil, invalid("unknown lead status %q", status)
	}
	return s.leadRepo.List(ctx, status)
}

func (s *CRMService) UpdateLeadStatus(ctx context.Context, id int, status, notes string) error {
	if !model.IsValidLeadStatus(status) {
		return invalid("unknown lead status %q", status)
	}
	if err := s.leadRepo.UpdateStatus(ctx, id, status, notes); err != nil {
		return notFound(err, "lead", id)
	}
	s.logger.Info("Lead status updated", zap.Int("lead_id", id), zap.String("status", status))
	return nil
}

// ProjectFromLead builds the initial project for an activated lead.
func ProjectFromLead(lead *model.Lead, clientID int) *model.Project {
	name := lead.Company
	if name == "" {
		name = lead.Name
	}
	if lead.ProjectType != "" {
		name = fmt.Sprintf("%s - %s", name, lead.ProjectType)
	}
	leadID := lead.ID
	return &model.Project{
		ClientID:    &clientID,
		LeadID:      &leadID,
		Name:        name,
		ProjectType: lead.ProjectType,
		Description: lead.Description,
		Status:      model.ProjectStatusPending,
		Budget:      lead.BudgetRange,
		Features:    lead.Features,
		FeaturesRaw: lead.FeaturesRaw,
	}
}

// ActivateLead turns a lead into a client (reusing one with the same email)
// plus a pending project, and marks the lead converted.
func (s *CRMService) ActivateLead(ctx context.Context, leadID int) (*model.Project, error) {
	lead, err := s.leadRepo.GetByID(ctx, leadID)
	if err != nil {
		return nil, notFound(err, "lead", leadID)
	}
	if lead.Status == model.LeadStatusConverted {
		return nil, fmt.Errorf("%w: lead %d already converted", ErrConflict, leadID)
	}

	var project *model.Project
	var client *model.Client
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		clients := s.clientRepo.WithTx(tx)
		client, err = clients.FindByEmail(ctx, lead.Email)
		if errors.Is(err, pgx.ErrNoRows) {
			client = &model.Client{
				Name:    lead.Name,
				Email:   lead.Email,
				Company: lead.Company,
				Phone:   lead.Phone,
			}
			err = clients.Insert(ctx, client)
		}
		if err != nil {
			return err
		}

		project = ProjectFromLead(lead, client.ID)
		if err := s.projectRepo.WithTx(tx).Insert(ctx, project); err != nil {
			return err
		}
		if err := s.leadRepo.WithTx(tx).UpdateStatus(ctx, lead.ID, model.LeadStatusConverted, ""); err != nil {
			return err
		}

		id := int64(project.ID)
		return outbox.InsertEventInTx(ctx, tx, s.outboxRepo, eventsmq.AggregateProject, &id, eventsmq.RoutingProjectCreated,
			eventsmq.ProjectCreatedPayload{
				ProjectID:   project.ID,
				ClientID:    client.ID,
				LeadID:      lead.ID,
				Name:        project.Name,
				ClientEmail: client.Email,
				ClientName:  client.Name,
				TraceID:     trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to activate lead: %w", err)
	}

	project.ClientName = client.Name
	project.ClientCompany = client.Company
	s.logger.Info("Lead activated",
		zap.Int("lead_id", lead.ID),
		zap.Int("client_id", client.ID),
		zap.Int("project_id", project.ID),
	)
	return project, nil
}

func (s *CRMService) ListContacts(ctx context.Context, status string) ([]model.ContactSubmission, error) {
	if status != "" && !model.IsValidContactStatus(status) {
		return nil, invalid("unknown contact status %q", status)
	}
	return s.contactRepo.List(ctx, status)
}

func (s *CRMService) UpdateContactStatus(ctx context.Context, id int, status string) error {
	if !model.IsValidContactStatus(status) {
		return invalid("unknown contact status %q", status)
	}
	if err := s.contactRepo.UpdateStatus(ctx, id, status); err != nil {
		return notFound(err, "contact", id)
	}
	return nil
}

// ConvertContact creates a lead from a contact submission.
func (s *CRMService) ConvertContact(ctx context.Context, id int) (*model.Lead, error) {
	contact, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "contact", id)
	}
	if contact.ConvertedLeadID != nil {
		return nil, fmt.Errorf("%w: contact %d already converted to lead %d", ErrConflict, id, *contact.ConvertedLeadID)
	}

	lead := &model.Lead{
		Name:        contact.Name,
		Email:       contact.Email,
		Description: strings.TrimSpace(contact.Subject + "\n\n" + contact.Message),
		Source:      "contact_form",
		Status:      model.LeadStatusNew,
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.leadRepo.WithTx(tx).Insert(ctx, lead); err != nil {
			return err
		}
		return s.contactRepo.WithTx(tx).MarkConverted(ctx, contact.ID, lead.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to convert contact: %w", err)
	}

	s.logger.Info("Contact converted", zap.Int("contact_id", id), zap.Int("lead_id", lead.ID))
	return lead, nil
}

func (s *CRMService) ListClients(ctx context.Context) ([]model.Client, error) {
	return s.clientRepo.List(ctx)
}

// ClientDetail is a client with its projects.
type ClientDetail struct {
	Client   *model.Client   `json:"client"`
	Projects []model.Project `json:"projects"`
}

func (s *CRMService) GetClient(ctx context.Context, id int) (*ClientDetail, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	projects, err := s.projectRepo.List(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ClientDetail{Client: client, Projects: projects}, nil
}
