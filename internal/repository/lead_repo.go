package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type LeadRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewLeadRepository(db *pgxpool.Pool, logger *zap.Logger) *LeadRepository {
	return &LeadRepository{db: db, logger: logger}
}

func (r *LeadRepository) WithTx(tx pgx.Tx) *LeadRepository {
	return &LeadRepository{db: tx, logger: r.logger}
}

func (r *LeadRepository) Insert(ctx context.Context, l *model.Lead) error {
	query := `
        INSERT INTO leads (name, email, phone, company, project_type, budget_range, timeline,
                           description, features, features_raw, source, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		l.Name, l.Email, l.Phone, l.Company, l.ProjectType, l.BudgetRange, l.Timeline,
		l.Description, nonNil(l.Features), l.FeaturesRaw, l.Source, l.Status, l.Notes,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert lead", zap.String("email", l.Email), zap.Error(err))
		return err
	}

	r.logger.Info("Lead inserted", zap.Int("id", l.ID), zap.String("source", l.Source))
	return nil
}

const leadColumns = `id, name, email, phone, company, project_type, budget_range, timeline,
        description, features, features_raw, source, status, notes, created_at, updated_at`

func scanLead(row pgx.Row) (model.Lead, error) {
	var l model.Lead
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &l.ProjectType, &l.BudgetRange, &l.Timeline,
		&l.Description, &l.Features, &l.FeaturesRaw, &l.Source, &l.Status, &l.Notes, &l.CreatedAt, &l.UpdatedAt,
	)
	return l, err
}

// List returns leads newest first, optionally filtered by status.
func (r *LeadRepository) List(ctx context.Context, status string) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	leads := []model.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) GetByID(ctx context.Context, id int) (*model.Lead, error) {
	l, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) UpdateStatus(ctx context.Context, id int, status, notes string) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE leads
        SET status = $2, notes = CASE WHEN $3 = '' THEN notes ELSE $3 END, updated_at = NOW()
        WHERE id = $1
    `, id, status, notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListUnmigratedFeatures returns id → features_raw for rows still holding a legacy string.
func (r *LeadRepository) ListUnmigratedFeatures(ctx context.Context) (map[int]string, error) {
	return listUnmigrated(ctx, r.db, "leads")
}

func (r *LeadRepository) UpdateFeatures(ctx context.Context, id int, features []string) error {
	return updateFeatures(ctx, r.db, "leads", id, features)
}

func listUnmigrated(ctx context.Context, db DBTX, table string) (map[int]string, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT id, features_raw FROM %s WHERE features_raw <> '' AND cardinality(features) = 0`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s features: %w", table, err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var id int
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		out[id] = raw
	}
	return out, rows.Err()
}

// updateFeatures stores the parsed array and clears the legacy column.
func updateFeatures(ctx context.Context, db DBTX, table string, id int, features []string) error {
	_, err := db.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET features = $2, features_raw = '', updated_at = NOW() WHERE id = $1`, table),
		id, nonNil(features))
	return err
}
