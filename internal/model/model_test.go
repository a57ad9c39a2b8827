package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMilestoneProgress(t *testing.T) {
	assert.Equal(t, 0, MilestoneProgress(nil))
	assert.Equal(t, 33, MilestoneProgress([]Milestone{{IsCompleted: true}, {}, {}}))
	assert.Equal(t, 67, MilestoneProgress([]Milestone{{IsCompleted: true}, {IsCompleted: true}, {}}))
	assert.Equal(t, 100, MilestoneProgress([]Milestone{{IsCompleted: true}}))
}

func TestInvoiceOutstanding(t *testing.T) {
	inv := Invoice{AmountTotal: 1000, AmountPaid: 400, CreditApplied: 100}
	assert.InDelta(t, 500, inv.Outstanding(), 0.001)

	inv.AmountPaid = 1200
	assert.Zero(t, inv.Outstanding())
}

func TestLineItemsTotal(t *testing.T) {
	items := []LineItem{{Quantity: 2, Rate: 50}, {Quantity: 1.5, Rate: 100}}
	assert.InDelta(t, 250, LineItemsTotal(items), 0.001)
	assert.InDelta(t, 100, items[0].Amount, 0.001)
}

func TestStatusValidation(t *testing.T) {
	assert.True(t, IsValidLeadStatus("in-progress"))
	assert.False(t, IsValidLeadStatus("in_progress"))
	assert.True(t, IsValidProjectStatus("on_hold"))
	assert.True(t, IsValidInvoiceStatus("partial"))
	assert.False(t, IsValidContactStatus("deleted"))
}
