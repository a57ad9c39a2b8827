package dashboard

import (
	"context"
	"testing"
	"time"

	"bizportal/internal/billing"
	"bizportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invoiceFixtures(now time.Time) []model.Invoice {
	project := 1
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 10)
	return []model.Invoice{
		{ID: 1, ProjectID: &project, Status: model.InvoiceStatusSent, DueDate: &past, AmountTotal: 500},
		{ID: 2, ProjectID: &project, Status: model.InvoiceStatusSent, DueDate: &future, AmountTotal: 300},
		{ID: 3, ProjectID: &project, Status: model.InvoiceStatusPaid, DueDate: &past, AmountTotal: 200, AmountPaid: 200},
		{ID: 4, ProjectID: &project, Status: model.InvoiceStatusCancelled, DueDate: &past, AmountTotal: 900},
		{ID: 5, ProjectID: &project, Status: model.InvoiceStatusDraft, AmountTotal: 100},
	}
}

func TestInvoiceList_OverdueFilter(t *testing.T) {
	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.invoices = invoiceFixtures(now)

	list := NewInvoiceList(api, "test")
	list.now = func() time.Time { return now }
	require.NoError(t, list.LoadProjectInvoices(context.Background(), 1))

	require.NoError(t, list.SetFilter(billing.FilterOverdue))
	table := list.Table()
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 1, table.Rows[0].Invoice.ID)
	assert.Equal(t, model.InvoiceStatusOverdue, table.Rows[0].EffectiveStatus)
	assert.Equal(t, 1, table.ProjectID)

	require.NoError(t, list.SetFilter(billing.FilterAll))
	assert.Len(t, list.Table().Rows, 5)
	assert.Equal(t, 1, api.callCount("ProjectInvoices"), "filtering does not refetch")
}

func TestInvoiceList_Totals(t *testing.T) {
	now := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	api := newFakeAPI()
	api.invoices = invoiceFixtures(now)

	list := NewInvoiceList(api, "test")
	require.NoError(t, list.LoadProjectInvoices(context.Background(), 1))

	totals := list.Table().Totals
	assert.InDelta(t, 800, totals.Outstanding, 0.001)
	assert.InDelta(t, 200, totals.Paid, 0.001)
	assert.Equal(t, 5, totals.Count)
}

func TestInvoiceList_RejectsUnknownFilter(t *testing.T) {
	list := NewInvoiceList(newFakeAPI(), "test")
	assert.Error(t, list.SetFilter("viewed"))
	require.NoError(t, list.SetFilter(""))
	assert.Equal(t, billing.FilterAll, list.Table().Filter)
}

func TestInvoiceList_InvalidateResetsTotals(t *testing.T) {
	api := newFakeAPI()
	api.invoices = invoiceFixtures(time.Now())

	list := NewInvoiceList(api, "test")
	require.NoError(t, list.LoadProjectInvoices(context.Background(), 1))
	require.NotZero(t, list.Table().Totals)

	list.Invalidate()
	table := list.Table()
	assert.Zero(t, table.ProjectID)
	assert.Zero(t, table.Totals)
	assert.Empty(t, table.Rows)
}
