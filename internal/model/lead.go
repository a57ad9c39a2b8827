package model

import (
	"slices"
	"time"
)

const (
	LeadStatusNew        = "new"
	LeadStatusContacted  = "contacted"
	LeadStatusQualified  = "qualified"
	LeadStatusInProgress = "in-progress"
	LeadStatusConverted  = "converted"
	LeadStatusLost       = "lost"
)

var LeadStatuses = []string{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusInProgress,
	LeadStatusConverted,
	LeadStatusLost,
}

func IsValidLeadStatus(s string) bool {
	return slices.Contains(LeadStatuses, s)
}

// Lead is an intake-form submission. Leads are never deleted, only moved to
// converted or lost.
type Lead struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Company     string   `json:"company"`
	ProjectType string   `json:"project_type"`
	BudgetRange string   `json:"budget_range"`
	Timeline    string   `json:"timeline"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	// FeaturesRaw keeps the legacy single-string value until it is migrated.
	FeaturesRaw string    `json:"features_raw,omitempty"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
