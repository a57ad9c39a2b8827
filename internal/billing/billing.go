// Package billing holds the invoice rules shared by the API and the dashboard.
package billing

import (
	"errors"
	"fmt"
	"time"

	"bizportal/internal/model"
)

// Filter values accepted by the invoice list.
const (
	FilterAll     = "all"
	FilterDraft   = "draft"
	FilterSent    = "sent"
	FilterPaid    = "paid"
	FilterOverdue = "overdue"
	FilterPartial = "partial"
)

var Filters = []string{FilterAll, FilterDraft, FilterSent, FilterPaid, FilterOverdue, FilterPartial}

var ErrInvalidTransition = errors.New("invalid invoice status transition")

// EffectiveStatus is the status to display on day now: a non-paid,
// non-cancelled invoice whose due date has passed is overdue.
func EffectiveStatus(inv model.Invoice, now time.Time) string {
	if inv.Status == model.InvoiceStatusPaid || inv.Status == model.InvoiceStatusCancelled {
		return inv.Status
	}
	if inv.DueDate != nil && calendarDay(*inv.DueDate).Before(calendarDay(now)) {
		return model.InvoiceStatusOverdue
	}
	return inv.Status
}

// calendarDay maps t to UTC midnight of its own calendar date, the form
// DATE columns decode to.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Matches reports whether inv belongs under filter on day now.
func Matches(inv model.Invoice, filter string, now time.Time) bool {
	if filter == "" || filter == FilterAll {
		return true
	}
	return EffectiveStatus(inv, now) == filter
}

// FilterInvoices returns the invoices whose effective status matches filter.
func FilterInvoices(invoices []model.Invoice, filter string, now time.Time) []model.Invoice {
	out := make([]model.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if Matches(inv, filter, now) {
			out = append(out, inv)
		}
	}
	return out
}

type Totals struct {
	Outstanding float64 `json:"outstanding"`
	Paid        float64 `json:"paid"`
	Count       int     `json:"count"`
}

// ComputeTotals sums paid and outstanding amounts in one pass.
// Cancelled invoices count towards neither.
func ComputeTotals(invoices []model.Invoice) Totals {
	var t Totals
	for _, inv := range invoices {
		t.Count++
		if inv.Status == model.InvoiceStatusCancelled {
			continue
		}
		t.Paid += inv.AmountPaid
		if inv.Status != model.InvoiceStatusDraft {
			t.Outstanding += inv.Outstanding()
		}
	}
	return t
}

var transitions = map[string][]string{
	model.InvoiceStatusDraft:   {model.InvoiceStatusSent, model.InvoiceStatusCancelled},
	model.InvoiceStatusSent:    {model.InvoiceStatusViewed, model.InvoiceStatusPaid, model.InvoiceStatusPartial, model.InvoiceStatusOverdue, model.InvoiceStatusCancelled},
	model.InvoiceStatusViewed:  {model.InvoiceStatusPaid, model.InvoiceStatusPartial, model.InvoiceStatusOverdue, model.InvoiceStatusCancelled},
	model.InvoiceStatusPartial: {model.InvoiceStatusPaid, model.InvoiceStatusOverdue, model.InvoiceStatusCancelled},
	model.InvoiceStatusOverdue: {model.InvoiceStatusPaid, model.InvoiceStatusPartial, model.InvoiceStatusCancelled},
}

// CheckTransition validates a status change. force lets an admin set any
// known status.
func CheckTransition(from, to string, force bool) error {
	if !model.IsValidInvoiceStatus(to) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if force || from == to {
		return nil
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// ApplyPayment records amount against inv and returns the resulting status.
func ApplyPayment(inv *model.Invoice, amount float64, now time.Time) string {
	inv.AmountPaid += amount
	if inv.Outstanding() <= 0.005 {
		inv.Status = model.InvoiceStatusPaid
		paid := calendarDay(now)
		inv.PaidDate = &paid
	} else {
		inv.Status = model.InvoiceStatusPartial
	}
	return inv.Status
}

// ApplyCredit reduces what the client owes without recording a payment.
func ApplyCredit(inv *model.Invoice, amount float64, now time.Time) {
	inv.CreditApplied += amount
	if inv.Outstanding() <= 0.005 {
		inv.Status = model.InvoiceStatusPaid
		paid := calendarDay(now)
		inv.PaidDate = &paid
	}
}

// NextInvoiceNumber formats the number for the seq-th invoice of a year.
func NextInvoiceNumber(now time.Time, seq int) string {
	return fmt.Sprintf("INV-%d-%04d", now.Year(), seq)
}

// IsPastDue is used by the overdue sweep to decide which rows to persist.
func IsPastDue(inv model.Invoice, now time.Time) bool {
	switch inv.Status {
	case model.InvoiceStatusSent, model.InvoiceStatusViewed, model.InvoiceStatusPartial:
		return EffectiveStatus(inv, now) == model.InvoiceStatusOverdue
	}
	return false
}
