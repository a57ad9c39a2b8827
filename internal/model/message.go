package model

import "time"

const (
	SenderAdmin  = "admin"
	SenderClient = "client"
)

type MessageThread struct {
	ID            int        `json:"id"`
	ClientID      int        `json:"client_id"`
	ProjectID     *int       `json:"project_id,omitempty"`
	Subject       string     `json:"subject"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
	CreatedAt     time.Time  `json:"created_at"`

	ClientName string `json:"client_name,omitempty"`
}

type Message struct {
	ID         int        `json:"id"`
	ThreadID   int        `json:"thread_id"`
	SenderType string     `json:"sender_type"`
	SenderName string     `json:"sender_name"`
	Body       string     `json:"body"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
