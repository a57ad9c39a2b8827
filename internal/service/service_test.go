package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bizportal/internal/model"
	"bizportal/pkg/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	err := Validate(LeadIntakeRequest{Name: "Ada", Email: "not-an-email"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields["email"])
	assert.Equal(t, "required", verr.Fields["projecttype"])
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.NoError(t, Validate(ContactRequest{Name: "Ada", Email: "ada@example.com", Message: "hi"}))
}

func TestLeadFromRequest(t *testing.T) {
	lead := LeadFromRequest(LeadIntakeRequest{
		Name:         "  Ada ",
		Email:        "Ada@Example.COM",
		ProjectType:  "website",
		FeaturesText: "contact-formblogseo",
	})
	assert.Equal(t, "Ada", lead.Name)
	assert.Equal(t, "ada@example.com", lead.Email)
	assert.Equal(t, []string{"contact-form", "blog", "seo"}, lead.Features)
	assert.Equal(t, "intake_form", lead.Source)
	assert.Equal(t, model.LeadStatusNew, lead.Status)

	lead = LeadFromRequest(LeadIntakeRequest{Features: []string{"cms", " ", "blog"}, FeaturesText: "seo"})
	assert.Equal(t, []string{"cms", "blog"}, lead.Features)
}

func TestProjectFromLead(t *testing.T) {
	p := ProjectFromLead(&model.Lead{
		ID:          4,
		Name:        "Ada",
		Company:     "Acme",
		ProjectType: "ecommerce",
		BudgetRange: "5k-10k",
		Features:    []string{"payments"},
	}, 9)

	assert.Equal(t, "Acme - ecommerce", p.Name)
	assert.Equal(t, 9, *p.ClientID)
	assert.Equal(t, 4, *p.LeadID)
	assert.Equal(t, model.ProjectStatusPending, p.Status)
	assert.Equal(t, "5k-10k", p.Budget)

	p = ProjectFromLead(&model.Lead{Name: "Bob"}, 1)
	assert.Equal(t, "Bob", p.Name)
}

func TestApplyProjectUpdate(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, -1, 0)
	status := "on_hold"
	name := " Redesign "

	p := &model.Project{Name: "Old", Status: "active", StartDate: &start}
	require.NoError(t, ApplyProjectUpdate(p, ProjectUpdateRequest{Name: &name, Status: &status}))
	assert.Equal(t, "Redesign", p.Name)
	assert.Equal(t, "on_hold", p.Status)

	bad := "paused"
	assert.ErrorIs(t, ApplyProjectUpdate(p, ProjectUpdateRequest{Status: &bad}), ErrInvalidInput)
	assert.ErrorIs(t, ApplyProjectUpdate(p, ProjectUpdateRequest{DueDate: &due}), ErrInvalidInput)
}

func TestRenderReceipt(t *testing.T) {
	due := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	inv := &model.Invoice{
		InvoiceNumber: "INV-2024-0001",
		ClientName:    "Acme",
		ProjectName:   "Site",
		Status:        "sent",
		DueDate:       &due,
		LineItems:     []model.LineItem{{Description: "Design", Quantity: 2, Rate: 100, Amount: 200}},
		AmountTotal:   200,
		AmountPaid:    50,
	}

	out := string(RenderReceipt(inv, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)))
	assert.True(t, strings.HasPrefix(out, "INVOICE INV-2024-0001\n"))
	assert.Contains(t, out, "Status:  overdue")
	assert.Contains(t, out, "Design")
	assert.Contains(t, out, "Outstanding:     150.00")
}

func TestConversionRate(t *testing.T) {
	assert.Zero(t, ConversionRate(nil))
	assert.InDelta(t, 33.3, ConversionRate(map[string]int{"new": 2, "converted": 1}), 0.001)
}

func TestStoredName(t *testing.T) {
	name := StoredName("Brief.PDF")
	assert.Equal(t, ".pdf", filepath.Ext(name))
	assert.NotEqual(t, name, StoredName("Brief.PDF"))
}

func TestActor(t *testing.T) {
	admin := Actor{Role: rbac.RoleAdmin}
	client := Actor{Role: rbac.RoleClient, ClientID: 3}

	assert.Equal(t, "admin", admin.SenderType())
	assert.Equal(t, "client", client.SenderType())
	assert.NoError(t, admin.CanSee(8))
	assert.NoError(t, client.CanSee(3))
	assert.Error(t, client.CanSee(8))
}

type fakeMarker struct {
	asOf time.Time
	err  error
}

func (f *fakeMarker) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	f.asOf = asOf
	return 3, f.err
}

func TestOverdueSweeper_Sweep(t *testing.T) {
	marker := &fakeMarker{}
	sweeper := NewOverdueSweeper(marker, zap.NewNop())
	fixed := time.Date(2024, 7, 1, 2, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return fixed }

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, fixed, marker.asOf)

	marker.err = errors.New("db down")
	_, err = sweeper.Sweep(context.Background())
	assert.Error(t, err)
}

func TestOverdueSweeper_RejectsBadSpec(t *testing.T) {
	sweeper := NewOverdueSweeper(&fakeMarker{}, zap.NewNop())
	assert.Error(t, sweeper.Start(context.Background(), "not a cron spec"))
}
