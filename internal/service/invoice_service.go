package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	eventsmq "bizportal/contracts/mq"
	"bizportal/internal/billing"
	"bizportal/internal/model"
	"bizportal/internal/repository"
	"bizportal/pkg/outbox"
	"bizportal/pkg/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type InvoiceCreateRequest struct {
	ProjectID int              `json:"project_id" validate:"required,gt=0"`
	LineItems []model.LineItem `json:"line_items" validate:"required,min=1,dive"`
	DueDate   *time.Time       `json:"due_date"`
	Notes     string           `json:"notes" validate:"max=5000"`
}

type InvoiceService struct {
	pool        *pgxpool.Pool
	invoiceRepo *repository.InvoiceRepository
	projectRepo *repository.ProjectRepository
	clientRepo  *repository.ClientRepository
	outboxRepo  *outbox.Repository
	logger      *zap.Logger
	now         func() time.Time
}

func NewInvoiceService(
	pool *pgxpool.Pool,
	invoiceRepo *repository.InvoiceRepository,
	projectRepo *repository.ProjectRepository,
	clientRepo *repository.ClientRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		pool:        pool,
		invoiceRepo: invoiceRepo,
		projectRepo: projectRepo,
		clientRepo:  clientRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *InvoiceService) List(ctx context.Context) ([]model.Invoice, error) {
	return s.invoiceRepo.List(ctx)
}

func (s *InvoiceService) ListByProject(ctx context.Context, actor Actor, projectID int) ([]model.Invoice, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	if err := actor.CanSee(derefInt(project.ClientID)); err != nil {
		return nil, err
	}
	return s.invoiceRepo.ListByProject(ctx, projectID)
}

func (s *InvoiceService) ListForClient(ctx context.Context, actor Actor) ([]model.Invoice, error) {
	if actor.ClientID == 0 {
		return []model.Invoice{}, nil
	}
	return s.invoiceRepo.ListByClient(ctx, actor.ClientID)
}

func (s *InvoiceService) Get(ctx context.Context, actor Actor, id int) (*model.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	if err := actor.CanSee(derefInt(inv.ClientID)); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && inv.Status == model.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, id)
	}
	return inv, nil
}

// insertNumbered assigns the next yearly number and inserts inv inside a transaction.
func (s *InvoiceService) insertNumbered(ctx context.Context, inv *model.Invoice) error {
	now := s.now()
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		repo := s.invoiceRepo.WithTx(tx)
		// serialize numbering across concurrent creates
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('invoice_number'))`); err != nil {
			return err
		}
		n, err := repo.CountForYear(ctx, now.Year())
		if err != nil {
			return err
		}
		inv.InvoiceNumber = billing.NextInvoiceNumber(now, n+1)
		return repo.Insert(ctx, inv)
	})
}

func (s *InvoiceService) Create(ctx context.Context, req InvoiceCreateRequest) (*model.Invoice, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	project, err := s.projectRepo.GetByID(ctx, req.ProjectID)
	if err != nil {
		return nil, notFound(err, "project", req.ProjectID)
	}

	projectID := project.ID
	inv := &model.Invoice{
		ProjectID: &projectID,
		ClientID:  project.ClientID,
		LineItems: req.LineItems,
		Status:    model.InvoiceStatusDraft,
		DueDate:   req.DueDate,
		Notes:     req.Notes,
	}
	inv.AmountTotal = model.LineItemsTotal(inv.LineItems)

	if err := s.insertNumbered(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	inv.ProjectName = project.Name
	inv.ClientName = project.ClientName

	s.logger.Info("Invoice created",
		zap.Int("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Float64("amount_total", inv.AmountTotal),
	)
	return inv, nil
}

func (s *InvoiceService) load(ctx context.Context, id int) (*model.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return inv, nil
}

// Send moves a draft to sent, stamps the issue date and emits invoice.sent.
func (s *InvoiceService) Send(ctx context.Context, id int) (*model.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := billing.CheckTransition(inv.Status, model.InvoiceStatusSent, false); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.GetByID(ctx, derefInt(inv.ClientID))
	if err != nil {
		return nil, notFound(err, "client", derefInt(inv.ClientID))
	}

	today := s.today()
	inv.Status = model.InvoiceStatusSent
	if inv.IssuedDate == nil {
		inv.IssuedDate = &today
	}
	if inv.DueDate == nil {
		due := today.AddDate(0, 0, 30)
		inv.DueDate = &due
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.invoiceRepo.WithTx(tx).Update(ctx, inv); err != nil {
			return err
		}
		aggID := int64(inv.ID)
		return outbox.InsertEventInTx(ctx, tx, s.outboxRepo, eventsmq.AggregateInvoice, &aggID, eventsmq.RoutingInvoiceSent,
			eventsmq.InvoiceSentPayload{
				InvoiceID:     inv.ID,
				InvoiceNumber: inv.InvoiceNumber,
				ClientEmail:   client.Email,
				ClientName:    client.Name,
				AmountTotal:   inv.AmountTotal,
				DueDate:       inv.DueDate,
				TraceID:       trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	s.logger.Info("Invoice sent", zap.Int("invoice_id", id), zap.String("client_email", client.Email))
	return inv, nil
}

func (s *InvoiceService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MarkPaid records a payment; amount <= 0 pays the full outstanding balance.
func (s *InvoiceService) MarkPaid(ctx context.Context, id int, amount float64) (*model.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceStatusCancelled || inv.Status == model.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: cannot record payment on %s invoice", billing.ErrInvalidTransition, inv.Status)
	}
	if amount <= 0 {
		amount = inv.Outstanding()
	}
	billing.ApplyPayment(inv, amount, s.now())
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	s.logger.Info("Invoice payment recorded",
		zap.Int("invoice_id", id),
		zap.Float64("amount", amount),
		zap.String("status", inv.Status),
	)
	return inv, nil
}

func (s *InvoiceService) ApplyCredit(ctx context.Context, id int, amount float64) (*model.Invoice, error) {
	if amount <= 0 {
		return nil, invalid("credit amount must be positive")
	}
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status == model.InvoiceStatusCancelled || inv.Status == model.InvoiceStatusPaid {
		return nil, fmt.Errorf("%w: cannot credit %s invoice", billing.ErrInvalidTransition, inv.Status)
	}
	billing.ApplyCredit(inv, amount, s.now())
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Duplicate copies the line items of an invoice into a new draft.
func (s *InvoiceService) Duplicate(ctx context.Context, id int) (*model.Invoice, error) {
	src, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items := make([]model.LineItem, len(src.LineItems))
	copy(items, src.LineItems)

	dup := &model.Invoice{
		ProjectID:   src.ProjectID,
		ClientID:    src.ClientID,
		LineItems:   items,
		AmountTotal: model.LineItemsTotal(items),
		Status:      model.InvoiceStatusDraft,
		Notes:       src.Notes,
	}
	if err := s.insertNumbered(ctx, dup); err != nil {
		return nil, fmt.Errorf("failed to duplicate invoice: %w", err)
	}
	s.logger.Info("Invoice duplicated", zap.Int("source_id", id), zap.Int("invoice_id", dup.ID))
	return dup, nil
}

func (s *InvoiceService) Void(ctx context.Context, id int) (*model.Invoice, error) {
	return s.SetStatus(ctx, id, model.InvoiceStatusCancelled, false)
}

// SetStatus changes the status directly; force skips the transition table.
func (s *InvoiceService) SetStatus(ctx context.Context, id int, status string, force bool) (*model.Invoice, error) {
	inv, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := billing.CheckTransition(inv.Status, status, force); err != nil {
		return nil, err
	}
	inv.Status = status
	if status == model.InvoiceStatusPaid && inv.PaidDate == nil {
		today := s.today()
		inv.PaidDate = &today
	}
	if err := s.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Receipt renders the plain-text document served by the download endpoint.
func (s *InvoiceService) Receipt(ctx context.Context, actor Actor, id int) ([]byte, string, error) {
	inv, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	return RenderReceipt(inv, s.now()), inv.InvoiceNumber + ".txt", nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

// RenderReceipt formats inv as a fixed-width text document.
func RenderReceipt(inv *model.Invoice, now time.Time) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "INVOICE %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&buf, "Client:  %s\n", inv.ClientName)
	fmt.Fprintf(&buf, "Project: %s\n", inv.ProjectName)
	fmt.Fprintf(&buf, "Issued:  %s\n", formatDate(inv.IssuedDate))
	fmt.Fprintf(&buf, "Due:     %s\n", formatDate(inv.DueDate))
	fmt.Fprintf(&buf, "Status:  %s\n\n", billing.EffectiveStatus(*inv, now))

	tw := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Description\tQty\tRate\tAmount\t")
	for _, item := range inv.LineItems {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", item.Description, item.Quantity, item.Rate, item.Amount)
	}
	_ = tw.Flush()

	fmt.Fprintf(&buf, "\nTotal:       %10.2f\n", inv.AmountTotal)
	fmt.Fprintf(&buf, "Paid:        %10.2f\n", inv.AmountPaid)
	if inv.CreditApplied > 0 {
		fmt.Fprintf(&buf, "Credit:      %10.2f\n", inv.CreditApplied)
	}
	fmt.Fprintf(&buf, "Outstanding: %10.2f\n", inv.Outstanding())
	if inv.Notes != "" {
		fmt.Fprintf(&buf, "\n%s\n", inv.Notes)
	}
	return buf.Bytes()
}

// InvoiceOverdueMarker is the part of InvoiceRepository the sweep needs.
type InvoiceOverdueMarker interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

var _ InvoiceOverdueMarker = (*repository.InvoiceRepository)(nil)

// IsNotFound reports whether err came from a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
