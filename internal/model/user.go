package model

import "time"

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // admin / client
	ClientID     *int      `json:"client_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
