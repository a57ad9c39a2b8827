package dashboard

import (
	"context"
	"net/url"
	"testing"
	"time"

	"bizportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(t *testing.T) (*Controller, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	return NewController(api, &model.User{ID: 1, Name: "Admin", Role: "admin"}, newTestViews(t), zap.NewNop()), api
}

func TestController_SwitchTab(t *testing.T) {
	c, _ := newTestController(t)

	page, err := c.SwitchTab(context.Background(), TabProjects, nil)
	require.NoError(t, err)
	assert.Equal(t, TabProjects, page.Tab)
	assert.Equal(t, GroupWork, page.Group)
	assert.Contains(t, string(page.Content), "Bakery site")
	assert.Empty(t, page.Error)
}

func TestController_UnknownTabKeepsContent(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjects, nil)
	require.NoError(t, err)
	calls := len(api.callLog())

	var page Page
	assert.NotPanics(t, func() {
		page, err = c.SwitchTab(context.Background(), "does-not-exist", nil)
	})
	require.NoError(t, err)
	assert.Equal(t, TabProjects, page.Tab)
	assert.Contains(t, string(page.Content), "Bakery site")
	assert.Contains(t, page.Notice, "does-not-exist")
	assert.Len(t, api.callLog(), calls, "no load for an unknown tab")
}

func TestController_FailedLoadKeepsPreviousContent(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjects, nil)
	require.NoError(t, err)

	api.setFail("Leads", errBoom)
	page, err := c.SwitchTab(context.Background(), TabLeads, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, TabLeads, page.Tab)
	assert.Equal(t, "Error loading Leads", page.Error)
	assert.Contains(t, string(page.Content), "Bakery site")
}

func TestController_FirstLoadFailureShowsError(t *testing.T) {
	c, api := newTestController(t)
	api.setFail("Clients", errBoom)

	page, err := c.SwitchTab(context.Background(), TabClients, nil)
	assert.Error(t, err)
	assert.Contains(t, string(page.Content), "Error loading Clients")
}

func TestController_NewerLoadWins(t *testing.T) {
	c, api := newTestController(t)
	api.block = make(chan struct{})
	defer close(api.block)

	slow := make(chan error, 1)
	go func() {
		_, err := c.SwitchTab(context.Background(), TabProjects, nil)
		slow <- err
	}()
	require.Eventually(t, func() bool { return api.callCount("Projects") == 1 }, time.Second, 5*time.Millisecond)

	page, err := c.SwitchTab(context.Background(), TabLeads, nil)
	require.NoError(t, err)

	select {
	case err := <-slow:
		assert.NoError(t, err, "an overtaken load is dropped quietly")
	case <-time.After(time.Second):
		t.Fatal("the overtaken load was not cancelled")
	}

	page = c.Page()
	assert.Equal(t, TabLeads, page.Tab)
	assert.Contains(t, string(page.Content), "No leads")
	assert.NotContains(t, string(page.Content), "Bakery site")
}

func TestController_ProjectDetail(t *testing.T) {
	c, _ := newTestController(t)

	page, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)
	assert.Equal(t, "Bakery site", page.Title)
	assert.Equal(t, "Bakery site", page.Breadcrumbs[len(page.Breadcrumbs)-1].Label)
	assert.Contains(t, string(page.Content), "Launch")
}

func TestController_ToggleAction(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)

	page, err := c.Dispatch(context.Background(), Action{
		Name:   ActionMilestoneToggle,
		Params: url.Values{"project_id": {"1"}, "id": {"12"}, "completed": {"true"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Progress 67%", page.Notice)
	assert.Equal(t, 67, api.progress[1])
	assert.Contains(t, string(page.Content), "width: 67%")
}

func TestController_CreateMilestoneThenList(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)

	page, err := c.Dispatch(context.Background(), ParseAction(url.Values{
		"action":       {ActionMilestoneCreate},
		"project_id":   {"1"},
		"title":        {"Handover"},
		"due_date":     {"2026-06-01"},
		"deliverables": {"docs\n\ntraining"},
	}))
	require.NoError(t, err)
	assert.Contains(t, string(page.Content), "Handover")
	assert.Contains(t, string(page.Content), "docs, training")

	ms := c.Details().Milestones()
	require.Len(t, ms, 4)
	assert.Equal(t, "2026-06-01", ms[3].DueDate.Format(time.DateOnly))
}

func TestController_DestructiveActionNeedsConfirm(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)

	_, err = c.Dispatch(context.Background(), Action{Name: ActionMilestoneDelete, Params: url.Values{"project_id": {"1"}, "id": {"13"}}})
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Zero(t, api.callCount("DeleteMilestone"))

	_, err = c.Dispatch(context.Background(), Action{Name: ActionMilestoneDelete, Params: url.Values{"project_id": {"1"}, "id": {"13"}}, Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("DeleteMilestone"))
	assert.Len(t, c.Details().Milestones(), 2)
}

func TestController_VoidInvoiceNeedsConfirm(t *testing.T) {
	c, api := newTestController(t)
	api.invoices = invoiceFixtures(time.Now())
	_, err := c.SwitchTab(context.Background(), TabInvoices, nil)
	require.NoError(t, err)

	form := url.Values{"action": {ActionInvoiceVoid}, "id": {"2"}}
	_, err = c.Dispatch(context.Background(), ParseAction(form))
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	form.Set("confirm", "true")
	_, err = c.Dispatch(context.Background(), ParseAction(form))
	require.NoError(t, err)
	assert.Equal(t, 1, api.callCount("InvoiceAction:void"))
	assert.Equal(t, 2, api.callCount("Invoices"), "the list is reloaded after the action")
}

func TestController_UnknownAndInvalidActions(t *testing.T) {
	c, _ := newTestController(t)

	_, err := c.Dispatch(context.Background(), Action{Name: "explode"})
	assert.ErrorIs(t, err, ErrUnknownAction)

	page, err := c.Dispatch(context.Background(), Action{Name: ActionLeadStatus, Params: url.Values{"id": {"x"}}})
	assert.Error(t, err)
	assert.NotEmpty(t, page.Error)
}

func TestController_SendMessageReloadsThread(t *testing.T) {
	c, api := newTestController(t)
	api.threads = []model.MessageThread{{ID: 5, ClientID: 3, Subject: "Launch"}}
	_, err := c.SwitchTab(context.Background(), TabMessages, url.Values{"thread": {"5"}})
	require.NoError(t, err)

	page, err := c.Dispatch(context.Background(), Action{
		Name:   ActionMessageSend,
		Params: url.Values{"thread_id": {"5"}, "body": {"We are live"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Message sent", page.Notice)
	assert.Contains(t, string(page.Content), "We are live")
}

func TestController_RefreshSkippedWhileDirty(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjects, nil)
	require.NoError(t, err)
	require.Equal(t, 1, api.callCount("Projects"))

	c.SetDirty(true)
	refreshed, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, 1, api.callCount("Projects"))

	c.SetDirty(false)
	refreshed, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, 2, api.callCount("Projects"))
}

func TestController_SwitchTabClearsDirty(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)
	c.SetDirty(true)

	_, err = c.SwitchTab(context.Background(), TabLeads, nil)
	require.NoError(t, err)
	assert.False(t, c.Dirty())

	before := api.callCount("Leads")
	refreshed, err := c.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, before+1, api.callCount("Leads"))
}

func TestController_UnknownTabKeepsDirty(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjects, nil)
	require.NoError(t, err)
	c.SetDirty(true)

	_, err = c.SwitchTab(context.Background(), "does-not-exist", nil)
	require.NoError(t, err)
	assert.True(t, c.Dirty())
}

func TestController_RefreshUsesCurrentParams(t *testing.T) {
	c, api := newTestController(t)
	api.leads = []model.Lead{{ID: 1, Name: "Ana", Status: "new"}, {ID: 2, Name: "Bo", Status: "lost"}}
	_, err := c.SwitchTab(context.Background(), TabLeads, url.Values{"status": {"lost"}})
	require.NoError(t, err)

	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	content := string(c.Content())
	assert.Contains(t, content, "Bo")
	assert.NotContains(t, content, "Ana")
}

func TestController_ActionClearsDirty(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)
	c.SetDirty(true)

	_, err = c.Dispatch(context.Background(), Action{Name: ActionProjectUpdate, Params: url.Values{"notes": {"call Friday"}}})
	require.NoError(t, err)
	assert.False(t, c.Dirty())
	assert.Equal(t, "call Friday", c.Details().View().Notes)
}

func TestController_InvoiceCredit(t *testing.T) {
	c, api := newTestController(t)
	api.invoices = invoiceFixtures(time.Now())
	_, err := c.SwitchTab(context.Background(), TabInvoices, nil)
	require.NoError(t, err)
	assert.Contains(t, string(c.Content()), `data-action="invoice-credit"`)

	page, err := c.Dispatch(context.Background(), ParseAction(url.Values{
		"action": {ActionInvoiceCredit},
		"id":     {"2"},
		"amount": {"50"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Invoice updated", page.Notice)
	assert.Equal(t, 50.0, api.credits[2])
	assert.Equal(t, 2, api.callCount("Invoices"), "the list is reloaded after the action")
}

func TestController_InvoiceCreditNeedsAmount(t *testing.T) {
	c, api := newTestController(t)
	api.invoices = invoiceFixtures(time.Now())
	_, err := c.SwitchTab(context.Background(), TabInvoices, nil)
	require.NoError(t, err)

	for _, amount := range []string{"", "0", "-5", "abc"} {
		_, err := c.Dispatch(context.Background(), ParseAction(url.Values{
			"action": {ActionInvoiceCredit},
			"id":     {"2"},
			"amount": {amount},
		}))
		assert.Error(t, err, "amount %q", amount)
	}
	assert.Zero(t, api.callCount("InvoiceAction:credit"))
	assert.Empty(t, api.credits)
}

func TestController_MilestoneActionsUseFormProject(t *testing.T) {
	c, api := newTestController(t)
	_, err := c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"1"}})
	require.NoError(t, err)
	// a second browser tab on the same session shows project 2
	_, err = c.SwitchTab(context.Background(), TabProjectDetail, url.Values{"id": {"2"}})
	require.NoError(t, err)

	_, err = c.Dispatch(context.Background(), ParseAction(url.Values{
		"action":     {ActionMilestoneCreate},
		"project_id": {"1"},
		"title":      {"Handover"},
	}))
	require.NoError(t, err)
	require.Len(t, api.milestones[1], 4)
	assert.Equal(t, "Handover", api.milestones[1][3].Title)
	assert.Empty(t, api.milestones[2])
	assert.Equal(t, 25, api.progress[1])
	_, touched := api.progress[2]
	assert.False(t, touched)

	_, err = c.Dispatch(context.Background(), Action{
		Name:    ActionMilestoneDelete,
		Params:  url.Values{"project_id": {"1"}, "id": {"12"}},
		Confirm: true,
	})
	require.NoError(t, err)
	assert.Len(t, api.milestones[1], 3)
	assert.Equal(t, 33, api.progress[1])

	_, err = c.Dispatch(context.Background(), ParseAction(url.Values{"action": {ActionMilestoneCreate}, "title": {"x"}}))
	assert.Error(t, err, "project_id is required")
}
