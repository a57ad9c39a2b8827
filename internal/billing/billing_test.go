package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizportal/internal/model"
)

var today = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func day(offset int) *time.Time {
	d := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	return &d
}

func TestEffectiveStatus(t *testing.T) {
	cases := []struct {
		name string
		inv  model.Invoice
		want string
	}{
		{"sent past due", model.Invoice{Status: "sent", DueDate: day(-1)}, "overdue"},
		{"partial past due", model.Invoice{Status: "partial", DueDate: day(-10)}, "overdue"},
		{"draft past due", model.Invoice{Status: "draft", DueDate: day(-3)}, "overdue"},
		{"due today", model.Invoice{Status: "sent", DueDate: day(0)}, "sent"},
		{"future", model.Invoice{Status: "sent", DueDate: day(5)}, "sent"},
		{"paid past due", model.Invoice{Status: "paid", DueDate: day(-30)}, "paid"},
		{"cancelled past due", model.Invoice{Status: "cancelled", DueDate: day(-30)}, "cancelled"},
		{"no due date", model.Invoice{Status: "sent"}, "sent"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, EffectiveStatus(tc.inv, today))
		})
	}
}

func TestEffectiveStatus_ComparesCalendarDays(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	inv := model.Invoice{ID: 1, Status: "sent", DueDate: &due}

	// 23:00 on Jan 10 in UTC-5 is already Jan 11 in UTC.
	eveningWest := time.Date(2024, 1, 10, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "sent", EffectiveStatus(inv, eveningWest))
	assert.Empty(t, FilterInvoices([]model.Invoice{inv}, FilterOverdue, eveningWest))

	// 01:00 on Jan 10 in UTC+9 is still Jan 9 in UTC.
	morningEast := time.Date(2024, 1, 10, 1, 0, 0, 0, time.FixedZone("JST", 9*3600))
	assert.Equal(t, "sent", EffectiveStatus(inv, morningEast))

	nextDay := time.Date(2024, 1, 11, 0, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "overdue", EffectiveStatus(inv, nextDay))
	assert.Len(t, FilterInvoices([]model.Invoice{inv}, FilterOverdue, nextDay), 1)
}

func TestFilterInvoices_OverdueSelectsOnlyPastDue(t *testing.T) {
	invoices := []model.Invoice{
		{ID: 1, Status: "sent", DueDate: day(-1)},
		{ID: 2, Status: "sent", DueDate: day(7)},
		{ID: 3, Status: "paid", DueDate: day(-1)},
	}

	got := FilterInvoices(invoices, FilterOverdue, today)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)

	assert.Len(t, FilterInvoices(invoices, FilterAll, today), 3)
	assert.Len(t, FilterInvoices(invoices, "", today), 3)

	sent := FilterInvoices(invoices, FilterSent, today)
	require.Len(t, sent, 1)
	assert.Equal(t, 2, sent[0].ID)
}

func TestComputeTotals(t *testing.T) {
	totals := ComputeTotals([]model.Invoice{
		{Status: "paid", AmountTotal: 500, AmountPaid: 500},
		{Status: "partial", AmountTotal: 1000, AmountPaid: 250},
		{Status: "sent", AmountTotal: 300, CreditApplied: 100},
		{Status: "draft", AmountTotal: 900},
		{Status: "cancelled", AmountTotal: 400, AmountPaid: 50},
	})
	assert.Equal(t, 5, totals.Count)
	assert.InDelta(t, 750, totals.Paid, 0.001)
	assert.InDelta(t, 950, totals.Outstanding, 0.001)
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition("draft", "sent", false))
	assert.NoError(t, CheckTransition("sent", "paid", false))
	assert.ErrorIs(t, CheckTransition("paid", "draft", false), ErrInvalidTransition)
	assert.NoError(t, CheckTransition("paid", "draft", true))
	assert.ErrorIs(t, CheckTransition("draft", "bogus", true), ErrInvalidTransition)
}

func TestApplyPayment(t *testing.T) {
	inv := model.Invoice{Status: "sent", AmountTotal: 1000}
	assert.Equal(t, "partial", ApplyPayment(&inv, 400, today))
	assert.Nil(t, inv.PaidDate)
	assert.Equal(t, "paid", ApplyPayment(&inv, 600, today))
	require.NotNil(t, inv.PaidDate)
	assert.Equal(t, 15, inv.PaidDate.Day())
}

func TestApplyCredit(t *testing.T) {
	inv := model.Invoice{Status: "sent", AmountTotal: 100}
	ApplyCredit(&inv, 40, today)
	assert.Equal(t, "sent", inv.Status)
	ApplyCredit(&inv, 60, today)
	assert.Equal(t, "paid", inv.Status)
}

func TestIsPastDue(t *testing.T) {
	assert.True(t, IsPastDue(model.Invoice{Status: "viewed", DueDate: day(-2)}, today))
	assert.False(t, IsPastDue(model.Invoice{Status: "draft", DueDate: day(-2)}, today))
	assert.False(t, IsPastDue(model.Invoice{Status: "overdue", DueDate: day(-2)}, today))
}

func TestNextInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-2024-0042", NextInvoiceNumber(today, 42))
}
