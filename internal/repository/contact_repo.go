package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepository struct {
	db DBTX
}

func NewContactRepository(db *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) WithTx(tx pgx.Tx) *ContactRepository {
	return &ContactRepository{db: tx}
}

func (r *ContactRepository) Insert(ctx context.Context, c *model.ContactSubmission) error {
	query := `
        INSERT INTO contact_submissions (name, email, subject, message, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, c.Name, c.Email, c.Subject, c.Message, c.Status).Scan(&c.ID, &c.CreatedAt)
}

const contactColumns = `id, name, email, subject, message, status, converted_lead_id, created_at`

func scanContact(row pgx.Row) (model.ContactSubmission, error) {
	var c model.ContactSubmission
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Status, &c.ConvertedLeadID, &c.CreatedAt)
	return c, err
}

func (r *ContactRepository) List(ctx context.Context, status string) ([]model.ContactSubmission, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_submissions`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	out := []model.ContactSubmission{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ContactRepository) GetByID(ctx context.Context, id int) (*model.ContactSubmission, error) {
	c, err := scanContact(r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM contact_submissions WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	tag, err := r.db.Exec(ctx, `UPDATE contact_submissions SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ContactRepository) MarkConverted(ctx context.Context, id, leadID int) error {
	_, err := r.db.Exec(ctx, `
        UPDATE contact_submissions
        SET converted_lead_id = $2, status = 'replied', updated_at = NOW()
        WHERE id = $1
    `, id, leadID)
	return err
}
