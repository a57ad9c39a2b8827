package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) WithTx(tx pgx.Tx) *ClientRepository {
	return &ClientRepository{db: tx}
}

func (r *ClientRepository) Insert(ctx context.Context, c *model.Client) error {
	query := `
        INSERT INTO clients (name, email, company, phone, user_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, c.Name, c.Email, c.Company, c.Phone, c.UserID).Scan(&c.ID, &c.CreatedAt)
}

const clientSelect = `
        SELECT c.id, c.name, c.email, c.company, c.phone, c.user_id, c.created_at,
               (SELECT COUNT(*) FROM projects p WHERE p.client_id = c.id)
        FROM clients c
`

func scanClient(row pgx.Row) (model.Client, error) {
	var c model.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Phone, &c.UserID, &c.CreatedAt, &c.ProjectCount)
	return c, err
}

func (r *ClientRepository) List(ctx context.Context) ([]model.Client, error) {
	rows, err := r.db.Query(ctx, clientSelect+` ORDER BY c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	out := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ClientRepository) GetByID(ctx context.Context, id int) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, clientSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByEmail returns pgx.ErrNoRows when no client uses email.
func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx, clientSelect+` WHERE lower(c.email) = lower($1)`, email))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) SetUserID(ctx context.Context, clientID, userID int) error {
	_, err := r.db.Exec(ctx, `UPDATE clients SET user_id = $2 WHERE id = $1`, clientID, userID)
	return err
}
