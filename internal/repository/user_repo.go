package repository

import (
	"context"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, u *model.User) error {
	query := `
        INSERT INTO users (email, password_hash, name, role)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at
    `
	return r.db.QueryRow(ctx, query, u.Email, u.PasswordHash, u.Name, u.Role).Scan(&u.ID, &u.CreatedAt)
}

const userSelect = `
        SELECT u.id, u.email, u.password_hash, u.name, u.role, c.id, u.created_at
        FROM users u
        LEFT JOIN clients c ON c.user_id = u.id
`

// FindByEmail returns user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, userSelect+` WHERE u.email = $1`, email))
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	return r.scanOne(r.db.QueryRow(ctx, userSelect+` WHERE u.id = $1`, id))
}

func (r *UserRepository) scanOne(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.ClientID, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
