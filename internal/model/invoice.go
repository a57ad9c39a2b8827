package model

import (
	"slices"
	"time"
)

const (
	InvoiceStatusDraft     = "draft"
	InvoiceStatusSent      = "sent"
	InvoiceStatusViewed    = "viewed"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusPartial   = "partial"
	InvoiceStatusCancelled = "cancelled"
)

var InvoiceStatuses = []string{
	InvoiceStatusDraft,
	InvoiceStatusSent,
	InvoiceStatusViewed,
	InvoiceStatusPaid,
	InvoiceStatusOverdue,
	InvoiceStatusPartial,
	InvoiceStatusCancelled,
}

func IsValidInvoiceStatus(s string) bool {
	return slices.Contains(InvoiceStatuses, s)
}

type LineItem struct {
	Description string  `json:"description" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount"`
}

type Invoice struct {
	ID            int        `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	ProjectID     *int       `json:"project_id,omitempty"`
	ClientID      *int       `json:"client_id,omitempty"`
	LineItems     []LineItem `json:"line_items"`
	AmountTotal   float64    `json:"amount_total"`
	AmountPaid    float64    `json:"amount_paid"`
	CreditApplied float64    `json:"credit_applied"`
	Status        string     `json:"status"`
	IssuedDate    *time.Time `json:"issued_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	PaidDate      *time.Time `json:"paid_date,omitempty"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	ClientName  string `json:"client_name,omitempty"`
	ProjectName string `json:"project_name,omitempty"`
}

// Outstanding is what the client still owes.
func (i Invoice) Outstanding() float64 {
	out := i.AmountTotal - i.AmountPaid - i.CreditApplied
	if out < 0 {
		return 0
	}
	return out
}

// LineItemsTotal recomputes each item's amount and returns the sum.
func LineItemsTotal(items []LineItem) float64 {
	total := 0.0
	for i := range items {
		items[i].Amount = items[i].Quantity * items[i].Rate
		total += items[i].Amount
	}
	return total
}
