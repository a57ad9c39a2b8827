package model

import "time"

// NotificationLog records one outbound notification attempt by the worker.
type NotificationLog struct {
	ID         int       `json:"id"`
	RoutingKey string    `json:"routing_key"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"` // sent / failed / skipped
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
