package repository

import (
	"context"
	"fmt"
	"time"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type InvoiceRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewInvoiceRepository(db *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

func (r *InvoiceRepository) WithTx(tx pgx.Tx) *InvoiceRepository {
	return &InvoiceRepository{db: tx, logger: r.logger}
}

func lineItems(items []model.LineItem) []model.LineItem {
	if items == nil {
		return []model.LineItem{}
	}
	return items
}

func (r *InvoiceRepository) Insert(ctx context.Context, inv *model.Invoice) error {
	query := `
        INSERT INTO invoices (invoice_number, project_id, client_id, line_items, amount_total, amount_paid,
                              credit_applied, status, issued_date, due_date, paid_date, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		inv.InvoiceNumber, inv.ProjectID, inv.ClientID, lineItems(inv.LineItems), inv.AmountTotal, inv.AmountPaid,
		inv.CreditApplied, inv.Status, inv.IssuedDate, inv.DueDate, inv.PaidDate, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert invoice", zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		return err
	}
	return nil
}

const invoiceSelect = `
        SELECT i.id, i.invoice_number, i.project_id, i.client_id, i.line_items, i.amount_total::float8,
               i.amount_paid::float8, i.credit_applied::float8, i.status, i.issued_date, i.due_date,
               i.paid_date, i.notes, i.created_at, i.updated_at,
               COALESCE(c.name, ''), COALESCE(p.name, '')
        FROM invoices i
        LEFT JOIN clients c ON c.id = i.client_id
        LEFT JOIN projects p ON p.id = i.project_id
`

func scanInvoice(row pgx.Row) (model.Invoice, error) {
	var inv model.Invoice
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.ProjectID, &inv.ClientID, &inv.LineItems, &inv.AmountTotal,
		&inv.AmountPaid, &inv.CreditApplied, &inv.Status, &inv.IssuedDate, &inv.DueDate,
		&inv.PaidDate, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
		&inv.ClientName, &inv.ProjectName,
	)
	return inv, err
}

func (r *InvoiceRepository) query(ctx context.Context, where string, args ...any) ([]model.Invoice, error) {
	rows, err := r.db.Query(ctx, invoiceSelect+where+` ORDER BY i.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	out := []model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *InvoiceRepository) List(ctx context.Context) ([]model.Invoice, error) {
	return r.query(ctx, "")
}

func (r *InvoiceRepository) ListByProject(ctx context.Context, projectID int) ([]model.Invoice, error) {
	return r.query(ctx, ` WHERE i.project_id = $1`, projectID)
}

// ListByClient hides drafts; clients never see unsent invoices.
func (r *InvoiceRepository) ListByClient(ctx context.Context, clientID int) ([]model.Invoice, error) {
	return r.query(ctx, ` WHERE i.client_id = $1 AND i.status <> 'draft'`, clientID)
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id int) (*model.Invoice, error) {
	inv, err := scanInvoice(r.db.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Update writes amounts, status, dates and notes.
func (r *InvoiceRepository) Update(ctx context.Context, inv *model.Invoice) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE invoices
        SET line_items = $2, amount_total = $3, amount_paid = $4, credit_applied = $5, status = $6,
            issued_date = $7, due_date = $8, paid_date = $9, notes = $10, updated_at = NOW()
        WHERE id = $1
    `, inv.ID, lineItems(inv.LineItems), inv.AmountTotal, inv.AmountPaid, inv.CreditApplied, inv.Status,
		inv.IssuedDate, inv.DueDate, inv.PaidDate, inv.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// CountForYear returns how many invoices were numbered in year.
func (r *InvoiceRepository) CountForYear(ctx context.Context, year int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE invoice_number LIKE $1`,
		fmt.Sprintf("INV-%d-%%", year),
	).Scan(&n)
	return n, err
}

// MarkOverdue persists overdue for every unpaid invoice due before asOf.
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE invoices
        SET status = 'overdue', updated_at = NOW()
        WHERE status IN ('sent', 'viewed', 'partial')
          AND due_date IS NOT NULL
          AND due_date < $1::date
    `, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
