package repository

import (
	"context"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationLogRepository struct {
	db DBTX
}

func NewNotificationLogRepository(db *pgxpool.Pool) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) Insert(ctx context.Context, log *model.NotificationLog) error {
	query := `
        INSERT INTO notification_log (routing_key, recipient, status, error)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, log.RoutingKey, log.Recipient, log.Status, log.Error).
		Scan(&log.ID, &log.CreatedAt)
}
