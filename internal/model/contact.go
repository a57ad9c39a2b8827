package model

import (
	"slices"
	"time"
)

const (
	ContactStatusNew      = "new"
	ContactStatusRead     = "read"
	ContactStatusReplied  = "replied"
	ContactStatusArchived = "archived"
)

var ContactStatuses = []string{
	ContactStatusNew,
	ContactStatusRead,
	ContactStatusReplied,
	ContactStatusArchived,
}

func IsValidContactStatus(s string) bool {
	return slices.Contains(ContactStatuses, s)
}

type ContactSubmission struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Subject         string    `json:"subject"`
	Message         string    `json:"message"`
	Status          string    `json:"status"`
	ConvertedLeadID *int      `json:"converted_lead_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
