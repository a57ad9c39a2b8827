package model

import (
	"math"
	"slices"
	"time"
)

const (
	ProjectStatusPending   = "pending"
	ProjectStatusActive    = "active"
	ProjectStatusOnHold    = "on_hold"
	ProjectStatusCompleted = "completed"
	ProjectStatusCancelled = "cancelled"
)

var ProjectStatuses = []string{
	ProjectStatusPending,
	ProjectStatusActive,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
	ProjectStatusCancelled,
}

func IsValidProjectStatus(s string) bool {
	return slices.Contains(ProjectStatuses, s)
}

type Project struct {
	ID          int        `json:"id"`
	ClientID    *int       `json:"client_id,omitempty"`
	LeadID      *int       `json:"lead_id,omitempty"`
	Name        string     `json:"name"`
	ProjectType string     `json:"project_type"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Budget      string     `json:"budget"`
	Price       float64    `json:"price"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Progress    int        `json:"progress"`
	Features    []string   `json:"features"`
	FeaturesRaw string     `json:"features_raw,omitempty"`
	RepoURL     string     `json:"repo_url"`
	PreviewURL  string     `json:"preview_url"`
	Notes       string     `json:"notes"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// joined from clients
	ClientName    string `json:"client_name,omitempty"`
	ClientCompany string `json:"client_company,omitempty"`
}

type Milestone struct {
	ID           int        `json:"id"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	IsCompleted  bool       `json:"is_completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Deliverables []string   `json:"deliverables"`
	SortOrder    int        `json:"sort_order"`
	CreatedAt    time.Time  `json:"created_at"`

	// joined for the upcoming-milestones view
	ProjectName string `json:"project_name,omitempty"`
}

// MilestoneProgress returns round(completed/total*100), or 0 with no milestones.
func MilestoneProgress(milestones []Milestone) int {
	if len(milestones) == 0 {
		return 0
	}
	completed := 0
	for _, m := range milestones {
		if m.IsCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) / float64(len(milestones)) * 100))
}
