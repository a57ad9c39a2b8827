package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bizportal/internal/billing"
	"bizportal/internal/model"
	"bizportal/internal/service"
	"bizportal/pkg/outbox"
	"bizportal/pkg/rbac"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProjects struct {
	ProjectService
	projects   []model.Project
	milestones map[int][]model.Milestone
	progress   map[int]int
	lastActor  service.Actor
}

func (f *fakeProjects) ListProjects(_ context.Context, actor service.Actor) ([]model.Project, error) {
	f.lastActor = actor
	return f.projects, nil
}

func (f *fakeProjects) GetProject(_ context.Context, actor service.Actor, id int) (*model.Project, error) {
	for i := range f.projects {
		if f.projects[i].ID == id {
			p := f.projects[i]
			if err := actor.CanSee(*p.ClientID); err != nil {
				return nil, err
			}
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: project %d", service.ErrNotFound, id)
}

func (f *fakeProjects) SetProgress(_ context.Context, id, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress out of range", service.ErrInvalidInput)
	}
	f.progress[id] = progress
	return nil
}

func (f *fakeProjects) CreateMilestone(_ context.Context, projectID int, req service.MilestoneRequest) (*model.Milestone, error) {
	if err := service.Validate(req); err != nil {
		return nil, err
	}
	m := model.Milestone{ID: len(f.milestones[projectID]) + 1, ProjectID: projectID, Title: req.Title}
	f.milestones[projectID] = append(f.milestones[projectID], m)
	return &m, nil
}

func (f *fakeProjects) ListMilestones(_ context.Context, _ service.Actor, projectID int) ([]model.Milestone, error) {
	return f.milestones[projectID], nil
}

func newFakeProjects() *fakeProjects {
	clientID := 3
	return &fakeProjects{
		projects:   []model.Project{{ID: 1, ClientID: &clientID, Name: "Bakery site"}},
		milestones: map[int][]model.Milestone{},
		progress:   map[int]int{},
	}
}

// withActor stands in for the auth middleware.
func withActor(userID int, role string, clientID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetClaims(c, &util.Claims{UserID: userID, Role: role, ClientID: clientID})
		c.Next()
	}
}

func perform(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Fields: map[string]string{"email": "email"}}, http.StatusBadRequest},
		{fmt.Errorf("%w: bad", service.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", pgx.ErrNoRows), http.StatusNotFound},
		{fmt.Errorf("%w: 9", outbox.ErrEventNotFound), http.StatusNotFound},
		{rbac.CheckClientScope(rbac.RoleClient, 1, 2), http.StatusForbidden},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("%w: paid -> draft", billing.ErrInvalidTransition), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, classify(tc.err).Status, tc.err.Error())
	}
}

func TestProjectHandler_ScopesByActor(t *testing.T) {
	svc := newFakeProjects()
	h := NewProjectHandler(svc, zap.NewNop())

	r := gin.New()
	r.GET("/projects", withActor(5, rbac.RoleClient, 3), h.ListProjects)
	r.GET("/projects/:id", withActor(5, rbac.RoleClient, 4), h.GetProject)

	w := perform(r, http.MethodGet, "/projects", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.lastActor.ClientID)
	assert.Equal(t, rbac.RoleClient, svc.lastActor.Role)

	// client 4 may not see client 3's project
	w = perform(r, http.MethodGet, "/projects/1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestProjectHandler_BadIDAndNotFound(t *testing.T) {
	h := NewProjectHandler(newFakeProjects(), zap.NewNop())
	r := gin.New()
	r.GET("/projects/:id", withActor(1, rbac.RoleAdmin, 0), h.GetProject)

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodGet, "/projects/abc", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodGet, "/projects/99", nil).Code)
}

func TestProjectHandler_SetProgress(t *testing.T) {
	svc := newFakeProjects()
	h := NewProjectHandler(svc, zap.NewNop())
	r := gin.New()
	r.PUT("/projects/:id/progress", h.SetProgress)

	assert.Equal(t, http.StatusOK, perform(r, http.MethodPut, "/projects/1/progress", gin.H{"progress": 67}).Code)
	assert.Equal(t, 67, svc.progress[1])

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPut, "/projects/1/progress", gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPut, "/projects/1/progress", gin.H{"progress": 140}).Code)
}

func TestProjectHandler_CreateThenListMilestones(t *testing.T) {
	svc := newFakeProjects()
	h := NewProjectHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/projects/:id/milestones", h.CreateMilestone)
	r.GET("/projects/:id/milestones", withActor(1, rbac.RoleAdmin, 0), h.ListMilestones)

	w := perform(r, http.MethodPost, "/projects/1/milestones", gin.H{"title": "Design mockups"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = perform(r, http.MethodGet, "/projects/1/milestones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Design mockups")

	w = perform(r, http.MethodPost, "/projects/1/milestones", gin.H{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decode(t, w)["code"])
}

type fakeInvoices struct {
	InvoiceService
	paidAmount float64
}

func (f *fakeInvoices) List(context.Context) ([]model.Invoice, error) {
	return []model.Invoice{{ID: 1, InvoiceNumber: "INV-2024-0001"}}, nil
}

func (f *fakeInvoices) ListForClient(_ context.Context, actor service.Actor) ([]model.Invoice, error) {
	return []model.Invoice{{ID: 2, InvoiceNumber: fmt.Sprintf("client-%d", actor.ClientID)}}, nil
}

func (f *fakeInvoices) MarkPaid(_ context.Context, id int, amount float64) (*model.Invoice, error) {
	f.paidAmount = amount
	return &model.Invoice{ID: id, Status: model.InvoiceStatusPaid}, nil
}

func (f *fakeInvoices) Void(_ context.Context, id int) (*model.Invoice, error) {
	return nil, fmt.Errorf("%w: paid -> cancelled", billing.ErrInvalidTransition)
}

func (f *fakeInvoices) Receipt(_ context.Context, _ service.Actor, id int) ([]byte, string, error) {
	return []byte("RECEIPT"), fmt.Sprintf("invoice-%d.txt", id), nil
}

func TestInvoiceHandler_ListByRole(t *testing.T) {
	h := NewInvoiceHandler(&fakeInvoices{}, zap.NewNop())
	r := gin.New()
	r.GET("/admin", withActor(1, rbac.RoleAdmin, 0), h.List)
	r.GET("/portal", withActor(2, rbac.RoleClient, 8), h.List)

	assert.Contains(t, perform(r, http.MethodGet, "/admin", nil).Body.String(), "INV-2024-0001")
	assert.Contains(t, perform(r, http.MethodGet, "/portal", nil).Body.String(), "client-8")
}

func TestInvoiceHandler_Actions(t *testing.T) {
	svc := &fakeInvoices{}
	h := NewInvoiceHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/invoices/:id/mark-paid", h.MarkPaid())
	r.POST("/invoices/:id/void", h.Void())

	w := perform(r, http.MethodPost, "/invoices/4/mark-paid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.paidAmount)

	perform(r, http.MethodPost, "/invoices/4/mark-paid", gin.H{"amount": 120.5})
	assert.Equal(t, 120.5, svc.paidAmount)

	assert.Equal(t, http.StatusConflict, perform(r, http.MethodPost, "/invoices/4/void", nil).Code)
}

func TestInvoiceHandler_Download(t *testing.T) {
	h := NewInvoiceHandler(&fakeInvoices{}, zap.NewNop())
	r := gin.New()
	r.GET("/invoices/:id/pdf", withActor(1, rbac.RoleAdmin, 0), h.Download)

	w := perform(r, http.MethodGet, "/invoices/12/pdf", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="invoice-12.txt"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "RECEIPT", w.Body.String())
}

type fakeReplayer struct {
	replayed []int64
}

func (f *fakeReplayer) ReplayEvent(_ context.Context, id int64) error {
	if id == 404 {
		return fmt.Errorf("%w: %d", outbox.ErrEventNotFound, id)
	}
	f.replayed = append(f.replayed, id)
	return nil
}

func (f *fakeReplayer) ReplayFailedEvents(_ context.Context, limit int) (int, error) {
	return limit / 2, nil
}

func TestAdminHandler_Replay(t *testing.T) {
	rep := &fakeReplayer{}
	h := NewAdminHandler(rep, nil, zap.NewNop())
	r := gin.New()
	r.POST("/replay", h.ReplayOutboxEvent)
	r.POST("/replay-failed", h.ReplayFailedEvents)

	assert.Equal(t, http.StatusBadRequest, perform(r, http.MethodPost, "/replay", nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(r, http.MethodPost, "/replay?id=404", nil).Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodPost, "/replay?id=7", nil).Code)
	assert.Equal(t, []int64{7}, rep.replayed)

	w := perform(r, http.MethodPost, "/replay-failed?limit=-3", nil)
	assert.Equal(t, float64(50), decode(t, w)["success_count"])
}
