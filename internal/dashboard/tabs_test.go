package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTabRouter_Switch(t *testing.T) {
	r := NewTabRouter()
	assert.Equal(t, TabOverview, r.Current().Tab)
	assert.Equal(t, []Breadcrumb{{Label: "Dashboard"}}, r.Current().Breadcrumbs)

	res, ok := r.Switch(TabContacts)
	assert.True(t, ok)
	assert.Equal(t, GroupCRM, res.Group)
	assert.Equal(t, "Contact Submissions", res.Title)
	assert.Equal(t, []Breadcrumb{
		{Label: "Dashboard", Href: "/admin/tab/overview"},
		{Label: "CRM", Href: "/admin/tab/crm"},
		{Label: "Contact Submissions"},
	}, res.Breadcrumbs)
}

func TestTabRouter_GroupResolvesToDefault(t *testing.T) {
	r := NewTabRouter()
	for group, tab := range map[string]string{
		GroupWork:      TabProjects,
		GroupCRM:       TabLeads,
		GroupDocuments: TabInvoices,
		GroupSupport:   TabMessages,
	} {
		res, ok := r.Switch(group)
		assert.True(t, ok, group)
		assert.Equal(t, tab, res.Tab, group)
		assert.Equal(t, group, res.Group)
	}
}

func TestTabRouter_UnknownTabKeepsState(t *testing.T) {
	r := NewTabRouter()
	r.Switch(TabInvoices)

	assert.NotPanics(t, func() {
		res, ok := r.Switch("nonexistent")
		assert.False(t, ok)
		assert.Equal(t, TabInvoices, res.Tab)
	})
	assert.Equal(t, TabInvoices, r.Current().Tab)
	assert.Equal(t, GroupDocuments, r.Current().Group)
}

func TestTabRouter_DetailLabel(t *testing.T) {
	r := NewTabRouter()
	res, ok := r.Switch(TabProjectDetail)
	assert.True(t, ok)
	assert.Equal(t, GroupWork, res.Group)
	assert.Equal(t, "Project Details", res.Breadcrumbs[len(res.Breadcrumbs)-1].Label)

	r.SetDetailLabel(TabProjectDetail, "Bakery site")
	cur := r.Current()
	assert.Equal(t, "Bakery site", cur.Title)
	assert.Equal(t, []Breadcrumb{
		{Label: "Dashboard", Href: "/admin/tab/overview"},
		{Label: "Work", Href: "/admin/tab/work"},
		{Label: "Projects", Href: "/admin/tab/projects"},
		{Label: "Bakery site"},
	}, cur.Breadcrumbs)

	// a late label for a tab that is no longer shown is ignored
	r.Switch(TabLeads)
	r.SetDetailLabel(TabProjectDetail, "Other")
	assert.Equal(t, "Leads", r.Current().Title)
}

func TestTabRouter_StandaloneTabs(t *testing.T) {
	r := NewTabRouter()
	res, ok := r.Switch(TabAnalytics)
	assert.True(t, ok)
	assert.Empty(t, res.Group)
	assert.Equal(t, []Breadcrumb{
		{Label: "Dashboard", Href: "/admin/tab/overview"},
		{Label: "Analytics"},
	}, res.Breadcrumbs)
}
