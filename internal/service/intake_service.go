package service

import (
	"context"
	"fmt"
	"strings"

	eventsmq "bizportal/contracts/mq"
	"bizportal/internal/features"
	"bizportal/internal/model"
	"bizportal/internal/repository"
	"bizportal/pkg/outbox"
	"bizportal/pkg/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LeadIntakeRequest is the body of the public project intake form.
type LeadIntakeRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       string   `json:"phone" validate:"max=50"`
	Company     string   `json:"company" validate:"max=200"`
	ProjectType string   `json:"project_type" validate:"required,max=100"`
	BudgetRange string   `json:"budget_range" validate:"max=100"`
	Timeline    string   `json:"timeline" validate:"max=100"`
	Description string   `json:"description" validate:"max=5000"`
	Features    []string `json:"features" validate:"max=50,dive,max=100"`
	// FeaturesText is accepted from older form versions that post a single string.
	FeaturesText string `json:"features_text" validate:"max=2000"`
	Source       string `json:"source" validate:"max=50"`
}

// ContactRequest is the body of the public contact form.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"max=300"`
	Message string `json:"message" validate:"required,max=10000"`
}

type IntakeService struct {
	pool        *pgxpool.Pool
	leadRepo    *repository.LeadRepository
	contactRepo *repository.ContactRepository
	outboxRepo  *outbox.Repository
	logger      *zap.Logger
}

func NewIntakeService(
	pool *pgxpool.Pool,
	leadRepo *repository.LeadRepository,
	contactRepo *repository.ContactRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *IntakeService {
	return &IntakeService{
		pool:        pool,
		leadRepo:    leadRepo,
		contactRepo: contactRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// LeadFromRequest normalizes an intake request into a new lead.
func LeadFromRequest(req LeadIntakeRequest) *model.Lead {
	feats := make([]string, 0, len(req.Features))
	for _, f := range req.Features {
		if f = strings.TrimSpace(f); f != "" {
			feats = append(feats, f)
		}
	}
	if len(feats) == 0 && req.FeaturesText != "" {
		feats = features.ParseFeatures(req.FeaturesText)
	}

	source := req.Source
	if source == "" {
		source = "intake_form"
	}

	return &model.Lead{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:       req.Phone,
		Company:     req.Company,
		ProjectType: req.ProjectType,
		BudgetRange: req.BudgetRange,
		Timeline:    req.Timeline,
		Description: req.Description,
		Features:    feats,
		Source:      source,
		Status:      model.LeadStatusNew,
	}
}

// SubmitLead stores the lead and its lead.created event in one transaction.
func (s *IntakeService) SubmitLead(ctx context.Context, req LeadIntakeRequest) (*model.Lead, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	lead := LeadFromRequest(req)

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.leadRepo.WithTx(tx).Insert(ctx, lead); err != nil {
			return err
		}
		id := int64(lead.ID)
		return outbox.InsertEventInTx(ctx, tx, s.outboxRepo, eventsmq.AggregateLead, &id, eventsmq.RoutingLeadCreated,
			eventsmq.LeadCreatedPayload{
				LeadID:      lead.ID,
				Name:        lead.Name,
				Email:       lead.Email,
				Company:     lead.Company,
				ProjectType: lead.ProjectType,
				BudgetRange: lead.BudgetRange,
				Features:    lead.Features,
				CreatedAt:   lead.CreatedAt,
				TraceID:     trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit lead: %w", err)
	}

	s.logger.Info("Lead submitted",
		zap.Int("lead_id", lead.ID),
		zap.String("project_type", lead.ProjectType),
		zap.Int("feature_count", len(lead.Features)),
	)
	return lead, nil
}

// SubmitContact stores the contact message and its contact.created event.
func (s *IntakeService) SubmitContact(ctx context.Context, req ContactRequest) (*model.ContactSubmission, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	contact := &model.ContactSubmission{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Subject: req.Subject,
		Message: req.Message,
		Status:  model.ContactStatusNew,
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.contactRepo.WithTx(tx).Insert(ctx, contact); err != nil {
			return err
		}
		id := int64(contact.ID)
		return outbox.InsertEventInTx(ctx, tx, s.outboxRepo, eventsmq.AggregateContact, &id, eventsmq.RoutingContactCreated,
			eventsmq.ContactCreatedPayload{
				ContactID: contact.ID,
				Name:      contact.Name,
				Email:     contact.Email,
				Subject:   contact.Subject,
				Message:   contact.Message,
				CreatedAt: contact.CreatedAt,
				TraceID:   trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit contact: %w", err)
	}

	s.logger.Info("Contact submitted", zap.Int("contact_id", contact.ID))
	return contact, nil
}
