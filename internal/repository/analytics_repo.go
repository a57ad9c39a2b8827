package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepository struct {
	db DBTX
}

func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) groupCount(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *AnalyticsRepository) LeadsByStatus(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
}

func (r *AnalyticsRepository) LeadsBySource(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT source, COUNT(*) FROM leads GROUP BY source`)
}

func (r *AnalyticsRepository) ProjectsByStatus(ctx context.Context) (map[string]int, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status`)
}

// Counters fills the scalar fields of s.
func (r *AnalyticsRepository) Counters(ctx context.Context, s *model.AnalyticsSummary) error {
	err := r.db.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM leads WHERE created_at > NOW() - INTERVAL '30 days'),
            (SELECT COALESCE(SUM(amount_paid), 0)::float8 FROM invoices WHERE status <> 'cancelled'),
            (SELECT COALESCE(SUM(GREATEST(amount_total - amount_paid - credit_applied, 0)), 0)::float8
               FROM invoices WHERE status NOT IN ('draft', 'cancelled', 'paid')),
            (SELECT COUNT(*) FROM messages WHERE sender_type = 'client' AND read_at IS NULL),
            (SELECT COUNT(*) FROM contact_submissions WHERE status = 'new')
    `).Scan(&s.NewLeads30d, &s.Revenue, &s.Outstanding, &s.UnreadMessages, &s.NewContacts)
	if err != nil {
		return fmt.Errorf("failed to query analytics counters: %w", err)
	}
	return nil
}
