package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bizportal/internal/billing"
	"bizportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestViews(t *testing.T) *ViewCache {
	t.Helper()
	views, err := NewViewCache("", zap.NewNop())
	require.NoError(t, err)
	return views
}

func TestViewCache_RendersEveryView(t *testing.T) {
	views := newTestViews(t)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	projectID := 1

	cases := map[string]any{
		"overview": OverviewData{
			Summary:    &model.AnalyticsSummary{Revenue: 10},
			Upcoming:   []model.Milestone{{ID: 1, ProjectID: 1, Title: "Build", DueDate: &due, ProjectName: "Bakery"}},
			ProjectsBy: map[string]int{"active": 2},
		},
		"analytics": &model.AnalyticsSummary{LeadsByStatus: map[string]int{"new": 3}},
		"projects":  ProjectListData{Statuses: model.ProjectStatuses, Projects: []model.Project{{ID: 1, Name: "Bakery", Status: "on_hold"}}},
		"tasks":     []model.Milestone{{ID: 1, ProjectID: 1, Title: "Build"}},
		"leads":     LeadListData{Statuses: model.LeadStatuses, Leads: []model.Lead{{ID: 1, Name: "Ana", Status: "new", Features: []string{"blog"}}}},
		"contacts":  ContactListData{Statuses: model.ContactStatuses, Contacts: []model.ContactSubmission{{ID: 1, Name: "Bo", Status: "new"}}},
		"clients":   []model.Client{{ID: 3, Name: "Ana"}},
		"client-detail": ClientDetailData{
			Client:   &model.Client{ID: 3, Name: "Ana"},
			Projects: []model.Project{{ID: 1, Name: "Bakery"}},
		},
		"invoices": InvoiceTable{
			Filter:  billing.FilterAll,
			Filters: billing.Filters,
			Rows:    []InvoiceRow{{Invoice: model.Invoice{ID: 9, InvoiceNumber: "INV-1", Status: "sent", DueDate: &due}, EffectiveStatus: "overdue"}},
		},
		"files": FilesData{
			Projects:  []model.Project{{ID: 1, Name: "Bakery"}},
			ProjectID: 1,
			Files:     []model.ProjectFile{{ID: 4, OriginalName: "logo.png"}},
		},
		"messages": MessagesData{
			Threads:  []model.MessageThread{{ID: 5, Subject: "Hello", ProjectID: &projectID}},
			Selected: 5,
			Conversation: Conversation{ThreadID: 5, Bubbles: []Bubble{
				{Message: model.Message{Body: "hi", SenderType: model.SenderAdmin}, Align: "right"},
			}},
		},
		"project-detail": ProjectDetailData{
			Project:         newProjectView(model.Project{ID: 1, Name: "Bakery", Progress: 67, Status: "active"}),
			ProjectStatuses: model.ProjectStatuses,
			Sub:             SubTabMilestones,
			SubTabs:         subTabs,
			Milestones:      []model.Milestone{{ID: 11, Title: "Design", IsCompleted: true, Deliverables: []string{"mockups"}}},
		},
		"login": loginData{Error: "Invalid email or password"},
		"layout": Page{
			Resolution: NewTabRouter().Current(),
			Groups:     Groups(),
			User:       &model.User{Name: "Admin"},
			Content:    "<p>hello</p>",
		},
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, views.Render(&sb, name, data))
			assert.NotEmpty(t, sb.String())
			assert.True(t, views.Cached(name))
		})
	}
}

func TestViewCache_Escapes(t *testing.T) {
	views := newTestViews(t)
	out, err := views.RenderHTML("clients", []model.Client{{ID: 1, Name: "<script>x</script>"}})
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>x")
	assert.Contains(t, string(out), "&lt;script&gt;")
}

func TestViewCache_ProjectDetailShowsProgressAndFeatures(t *testing.T) {
	views := newTestViews(t)
	out, err := views.RenderHTML("project-detail", ProjectDetailData{
		Project: newProjectView(model.Project{ID: 1, Name: "Bakery", Progress: 67, FeaturesRaw: "contact-formblogseo"}),
		Sub:     SubTabFiles,
		SubTabs: subTabs,
	})
	require.NoError(t, err)
	assert.Contains(t, string(out), "width: 67%")
	assert.Contains(t, string(out), "Contact Form")
	assert.Contains(t, string(out), "/admin/projects/1/files")
}

func TestViewCache_DirectoryAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("partials.html", `{{define "x"}}{{end}}`)
	write("clients.html", `v1 {{len .}}`)

	views, err := NewViewCache(dir, zap.NewNop())
	require.NoError(t, err)

	out, err := views.RenderHTML("clients", []model.Client{{}, {}})
	require.NoError(t, err)
	assert.Equal(t, "v1 2", string(out))

	write("clients.html", `v2`)
	out, err = views.RenderHTML("clients", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1 0", string(out), "cached until invalidated")

	views.Invalidate()
	assert.False(t, views.Cached("clients"))
	out, err = views.RenderHTML("clients", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(out))
}

func TestViewCache_MissingDir(t *testing.T) {
	_, err := NewViewCache(filepath.Join(t.TempDir(), "missing"), zap.NewNop())
	assert.Error(t, err)
}
