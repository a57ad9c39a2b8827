// Package mq defines the routing keys and payloads exchanged over the
// portal.events exchange.
package mq

import "time"

const (
	RoutingLeadCreated    = "lead.created"
	RoutingContactCreated = "contact.created"
	RoutingMessageSent    = "message.sent"
	RoutingInvoiceSent    = "invoice.sent"
	RoutingProjectCreated = "project.created"
)

// Aggregate types stored on outbox rows.
const (
	AggregateLead    = "lead"
	AggregateContact = "contact"
	AggregateMessage = "message"
	AggregateInvoice = "invoice"
	AggregateProject = "project"
)

type LeadCreatedPayload struct {
	LeadID      int       `json:"lead_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Company     string    `json:"company"`
	ProjectType string    `json:"project_type"`
	BudgetRange string    `json:"budget_range"`
	Features    []string  `json:"features"`
	CreatedAt   time.Time `json:"created_at"`
	TraceID     string    `json:"trace_id,omitempty"`
}

type ContactCreatedPayload struct {
	ContactID int       `json:"contact_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	TraceID   string    `json:"trace_id,omitempty"`
}

type MessageSentPayload struct {
	MessageID   int    `json:"message_id"`
	ThreadID    int    `json:"thread_id"`
	Subject     string `json:"subject"`
	SenderType  string `json:"sender_type"`
	SenderName  string `json:"sender_name"`
	Body        string `json:"body"`
	ClientEmail string `json:"client_email"`
	ClientName  string `json:"client_name"`
	TraceID     string `json:"trace_id,omitempty"`
}

type InvoiceSentPayload struct {
	InvoiceID     int        `json:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number"`
	ClientEmail   string     `json:"client_email"`
	ClientName    string     `json:"client_name"`
	AmountTotal   float64    `json:"amount_total"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	TraceID       string     `json:"trace_id,omitempty"`
}

type ProjectCreatedPayload struct {
	ProjectID   int    `json:"project_id"`
	ClientID    int    `json:"client_id"`
	LeadID      int    `json:"lead_id"`
	Name        string `json:"name"`
	ClientEmail string `json:"client_email"`
	ClientName  string `json:"client_name"`
	TraceID     string `json:"trace_id,omitempty"`
}
