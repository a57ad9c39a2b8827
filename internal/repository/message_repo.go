package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) WithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

// threadSelect counts messages unread by $1's side, i.e. sent by the other party.
const threadSelect = `
        SELECT t.id, t.client_id, t.project_id, t.subject, t.last_message_at, t.created_at,
               COALESCE(c.name, ''),
               (SELECT COUNT(*) FROM messages m
                 WHERE m.thread_id = t.id AND m.read_at IS NULL AND m.sender_type <> $1)
        FROM message_threads t
        LEFT JOIN clients c ON c.id = t.client_id
`

func scanThread(row pgx.Row) (model.MessageThread, error) {
	var t model.MessageThread
	err := row.Scan(&t.ID, &t.ClientID, &t.ProjectID, &t.Subject, &t.LastMessageAt, &t.CreatedAt,
		&t.ClientName, &t.UnreadCount)
	return t, err
}

func (r *MessageRepository) queryThreads(ctx context.Context, where string, args ...any) ([]model.MessageThread, error) {
	rows, err := r.db.Query(ctx, threadSelect+where+` ORDER BY t.last_message_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	out := []model.MessageThread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListThreads returns threads as seen by viewer (admin or client).
// clientID and projectID narrow the list when non-zero.
func (r *MessageRepository) ListThreads(ctx context.Context, viewer string, clientID, projectID int) ([]model.MessageThread, error) {
	where := ` WHERE ($2 = 0 OR t.client_id = $2) AND ($3 = 0 OR t.project_id = $3)`
	return r.queryThreads(ctx, where, viewer, clientID, projectID)
}

func (r *MessageRepository) GetThread(ctx context.Context, viewer string, id int) (*model.MessageThread, error) {
	t, err := scanThread(r.db.QueryRow(ctx, threadSelect+` WHERE t.id = $2`, viewer, id))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *MessageRepository) CreateThread(ctx context.Context, t *model.MessageThread) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO message_threads (client_id, project_id, subject)
        VALUES ($1, $2, $3)
        RETURNING id, last_message_at, created_at
    `, t.ClientID, t.ProjectID, t.Subject).Scan(&t.ID, &t.LastMessageAt, &t.CreatedAt)
}

func (r *MessageRepository) ListMessages(ctx context.Context, threadID int) ([]model.Message, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, thread_id, sender_type, sender_name, body, read_at, created_at
        FROM messages
        WHERE thread_id = $1
        ORDER BY created_at ASC, id ASC
    `, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderType, &m.SenderName, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// InsertMessage stores m and bumps the thread's last_message_at.
func (r *MessageRepository) InsertMessage(ctx context.Context, m *model.Message) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO messages (thread_id, sender_type, sender_name, body)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `, m.ThreadID, m.SenderType, m.SenderName, m.Body).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE message_threads SET last_message_at = $2 WHERE id = $1`, m.ThreadID, m.CreatedAt)
	return err
}

// MarkRead marks messages sent by the other side as read for reader.
func (r *MessageRepository) MarkRead(ctx context.Context, threadID int, reader string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
        UPDATE messages SET read_at = NOW()
        WHERE thread_id = $1 AND read_at IS NULL AND sender_type <> $2
    `, threadID, reader)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
