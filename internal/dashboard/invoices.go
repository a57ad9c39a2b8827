package dashboard

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bizportal/internal/billing"
	"bizportal/internal/model"
)

type InvoiceRow struct {
	Invoice         model.Invoice
	EffectiveStatus string
	Outstanding     float64
}

// InvoiceTable is the rendered state of an invoice list.
type InvoiceTable struct {
	ProjectID int
	Filter    string
	Filters   []string
	Rows      []InvoiceRow
	Totals    billing.Totals
}

// InvoiceList caches one list of invoices and filters it by effective status.
type InvoiceList struct {
	api   API
	store *Store[[]model.Invoice]
	now   func() time.Time

	mu        sync.Mutex
	filter    string
	projectID int
	totals    billing.Totals
}

func NewInvoiceList(api API, name string) *InvoiceList {
	return &InvoiceList{
		api:    api,
		store:  NewStore[[]model.Invoice](name),
		now:    time.Now,
		filter: billing.FilterAll,
	}
}

// LoadProjectInvoices fetches a project's invoices and recomputes the totals.
func (l *InvoiceList) LoadProjectInvoices(ctx context.Context, projectID int) error {
	invoices, err := l.store.Load(ctx, func(ctx context.Context) ([]model.Invoice, error) {
		return l.api.ProjectInvoices(ctx, projectID)
	})
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.projectID = projectID
	l.totals = billing.ComputeTotals(invoices)
	l.mu.Unlock()
	return nil
}

// LoadAll fetches every invoice.
func (l *InvoiceList) LoadAll(ctx context.Context) error {
	invoices, err := l.store.Load(ctx, l.api.Invoices)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.projectID = 0
	l.totals = billing.ComputeTotals(invoices)
	l.mu.Unlock()
	return nil
}

// SetFilter changes the filter applied to the cached list. It does not refetch.
func (l *InvoiceList) SetFilter(filter string) error {
	if filter == "" {
		filter = billing.FilterAll
	}
	if !slices.Contains(billing.Filters, filter) {
		return fmt.Errorf("unknown invoice filter %q", filter)
	}
	l.mu.Lock()
	l.filter = filter
	l.mu.Unlock()
	return nil
}

// Table renders the cached list under the current filter.
func (l *InvoiceList) Table() InvoiceTable {
	invoices, _ := l.store.Get()

	l.mu.Lock()
	filter, projectID, totals := l.filter, l.projectID, l.totals
	l.mu.Unlock()

	now := l.now()
	filtered := billing.FilterInvoices(invoices, filter, now)
	rows := make([]InvoiceRow, 0, len(filtered))
	for _, inv := range filtered {
		rows = append(rows, InvoiceRow{
			Invoice:         inv,
			EffectiveStatus: billing.EffectiveStatus(inv, now),
			Outstanding:     inv.Outstanding(),
		})
	}
	return InvoiceTable{
		ProjectID: projectID,
		Filter:    filter,
		Filters:   billing.Filters,
		Rows:      rows,
		Totals:    totals,
	}
}

// Invalidate drops the cached rows along with the totals and project they belong to.
func (l *InvoiceList) Invalidate() {
	l.store.Invalidate()
	l.mu.Lock()
	l.projectID = 0
	l.totals = billing.Totals{}
	l.mu.Unlock()
}
