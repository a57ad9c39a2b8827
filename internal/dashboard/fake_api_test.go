package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/internal/model"
)

var errBoom = errors.New("boom")

// fakeAPI is an in-memory backend. Methods a test does not need fall through
// to the embedded nil interface.
type fakeAPI struct {
	API

	mu         sync.Mutex
	nextID     int
	calls      []string
	fail       map[string]error
	projects   []model.Project
	milestones map[int][]model.Milestone
	invoices   []model.Invoice
	threads    []model.MessageThread
	messages   map[int][]model.Message
	files      map[int][]model.ProjectFile
	leads      []model.Lead
	progress   map[int]int
	readThread []int
	credits    map[int]float64
	// block, when set, holds Projects until it is closed or ctx ends.
	block chan struct{}
}

func newFakeAPI() *fakeAPI {
	client := 3
	return &fakeAPI{
		nextID: 100,
		fail:   make(map[string]error),
		projects: []model.Project{
			{ID: 1, ClientID: &client, Name: "Bakery site", Status: model.ProjectStatusActive, ClientName: "Ana", FeaturesRaw: "contact-formblogseo"},
			{ID: 2, ClientID: &client, Name: "Shop", Status: model.ProjectStatusPending, Features: []string{"ecommerce"}},
		},
		milestones: map[int][]model.Milestone{
			1: {
				{ID: 11, ProjectID: 1, Title: "Design", IsCompleted: true},
				{ID: 12, ProjectID: 1, Title: "Build"},
				{ID: 13, ProjectID: 1, Title: "Launch"},
			},
		},
		messages: make(map[int][]model.Message),
		files:    make(map[int][]model.ProjectFile),
		progress: make(map[int]int),
	}
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeAPI) setFail(name string, err error) {
	f.mu.Lock()
	f.fail[name] = err
	f.mu.Unlock()
}

func (f *fakeAPI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeAPI) Analytics(context.Context) (*model.AnalyticsSummary, error) {
	if err := f.record("Analytics"); err != nil {
		return nil, err
	}
	return &model.AnalyticsSummary{
		ProjectsByStatus: map[string]int{"active": 1, "pending": 1},
		Revenue:          1200,
	}, nil
}

func (f *fakeAPI) Leads(_ context.Context, status string) ([]model.Lead, error) {
	if err := f.record("Leads"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Lead
	for _, l := range f.leads {
		if status == "" || l.Status == status {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeAPI) UpdateLeadStatus(_ context.Context, id int, status, _ string) error {
	if err := f.record("UpdateLeadStatus"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Status = status
			return nil
		}
	}
	return &apiclient.StatusError{StatusCode: 404, Message: "lead not found"}
}

func (f *fakeAPI) Clients(context.Context) ([]model.Client, error) {
	if err := f.record("Clients"); err != nil {
		return nil, err
	}
	return []model.Client{{ID: 3, Name: "Ana", Company: "Ana's Bakery"}}, nil
}

func (f *fakeAPI) ClientDetail(_ context.Context, id int) (*model.Client, []model.Project, error) {
	if err := f.record("ClientDetail"); err != nil {
		return nil, nil, err
	}
	return &model.Client{ID: id, Name: "Ana"}, f.projects, nil
}

func (f *fakeAPI) Projects(ctx context.Context) ([]model.Project, error) {
	if err := f.record("Projects"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.projects), nil
}

func (f *fakeAPI) UpdateProject(_ context.Context, id int, fields map[string]any) (*model.Project, error) {
	if err := f.record("UpdateProject"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.projects {
		if f.projects[i].ID == id {
			if v, ok := fields["notes"].(string); ok {
				f.projects[i].Notes = v
			}
			if v, ok := fields["status"].(string); ok {
				f.projects[i].Status = v
			}
			p := f.projects[i]
			return &p, nil
		}
	}
	return nil, &apiclient.StatusError{StatusCode: 404, Message: "project not found"}
}

func (f *fakeAPI) SetProjectProgress(_ context.Context, id, progress int) error {
	if err := f.record("SetProjectProgress"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = progress
	for i := range f.projects {
		if f.projects[i].ID == id {
			f.projects[i].Progress = progress
		}
	}
	return nil
}

func (f *fakeAPI) Milestones(_ context.Context, projectID int) ([]model.Milestone, error) {
	if err := f.record("Milestones"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.milestones[projectID]), nil
}

func (f *fakeAPI) UpcomingMilestones(_ context.Context, limit int) ([]model.Milestone, error) {
	if err := f.record("UpcomingMilestones"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Milestone
	for _, ms := range f.milestones {
		for _, m := range ms {
			if !m.IsCompleted && len(out) < limit {
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateMilestone(_ context.Context, projectID int, in apiclient.MilestoneInput) (*model.Milestone, error) {
	if err := f.record("CreateMilestone"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := model.Milestone{ID: f.nextID, ProjectID: projectID, Title: in.Title, DueDate: in.DueDate, Deliverables: in.Deliverables}
	f.milestones[projectID] = append(f.milestones[projectID], m)
	return &m, nil
}

func (f *fakeAPI) SetMilestoneCompleted(_ context.Context, id int, completed bool) error {
	if err := f.record("SetMilestoneCompleted"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, ms := range f.milestones {
		for i := range ms {
			if ms[i].ID == id {
				f.milestones[pid][i].IsCompleted = completed
				return nil
			}
		}
	}
	return &apiclient.StatusError{StatusCode: 404, Message: "milestone not found"}
}

func (f *fakeAPI) DeleteMilestone(_ context.Context, id int) error {
	if err := f.record("DeleteMilestone"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, ms := range f.milestones {
		f.milestones[pid] = slices.DeleteFunc(ms, func(m model.Milestone) bool { return m.ID == id })
	}
	return nil
}

func (f *fakeAPI) Invoices(context.Context) ([]model.Invoice, error) {
	if err := f.record("Invoices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.invoices), nil
}

func (f *fakeAPI) ProjectInvoices(_ context.Context, projectID int) ([]model.Invoice, error) {
	if err := f.record("ProjectInvoices"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Invoice
	for _, inv := range f.invoices {
		if inv.ProjectID != nil && *inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeAPI) InvoiceAction(_ context.Context, id int, action string, amount float64) (*model.Invoice, error) {
	if err := f.record("InvoiceAction:" + action); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invoices {
		if f.invoices[i].ID == id {
			switch action {
			case "void":
				f.invoices[i].Status = model.InvoiceStatusCancelled
			case "credit":
				if f.credits == nil {
					f.credits = make(map[int]float64)
				}
				f.credits[id] += amount
				f.invoices[i].CreditApplied += amount
			}
			inv := f.invoices[i]
			return &inv, nil
		}
	}
	return nil, &apiclient.StatusError{StatusCode: 404, Message: "invoice not found"}
}

func (f *fakeAPI) Threads(_ context.Context, clientID, projectID int) ([]model.MessageThread, error) {
	if err := f.record("Threads"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.MessageThread
	for _, t := range f.threads {
		if clientID > 0 && t.ClientID != clientID {
			continue
		}
		if projectID > 0 && (t.ProjectID == nil || *t.ProjectID != projectID) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeAPI) ThreadMessages(_ context.Context, threadID int) ([]model.Message, error) {
	if err := f.record("ThreadMessages"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.messages[threadID]), nil
}

func (f *fakeAPI) SendMessage(_ context.Context, threadID int, body string) error {
	if err := f.record("SendMessage"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages[threadID] = append(f.messages[threadID], model.Message{
		ID: f.nextID, ThreadID: threadID, SenderType: model.SenderAdmin, SenderName: "Admin", Body: body, CreatedAt: time.Now(),
	})
	return nil
}

func (f *fakeAPI) MarkThreadRead(_ context.Context, threadID int) error {
	if err := f.record("MarkThreadRead"); err != nil {
		return err
	}
	f.mu.Lock()
	f.readThread = append(f.readThread, threadID)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ProjectFiles(_ context.Context, projectID int) ([]model.ProjectFile, error) {
	if err := f.record("ProjectFiles"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.files[projectID]), nil
}

func (f *fakeAPI) ShareFile(_ context.Context, id int, shared bool) error {
	if err := f.record("ShareFile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, fs := range f.files {
		for i := range fs {
			if fs[i].ID == id {
				f.files[pid][i].SharedWithClient = shared
			}
		}
	}
	return nil
}

func (f *fakeAPI) DeleteFile(_ context.Context, id int) error {
	if err := f.record("DeleteFile"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for pid, fs := range f.files {
		f.files[pid] = slices.DeleteFunc(fs, func(pf model.ProjectFile) bool { return pf.ID == id })
	}
	return nil
}

func (f *fakeAPI) UploadFile(_ context.Context, projectID int, filename string, r io.Reader) (*model.ProjectFile, error) {
	if err := f.record("UploadFile"); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	pf := model.ProjectFile{ID: f.nextID, ProjectID: projectID, OriginalName: filename, Size: int64(len(data))}
	f.files[projectID] = append(f.files[projectID], pf)
	return &pf, nil
}

// DownloadInvoice returns a small text receipt.
func (f *fakeAPI) DownloadInvoice(_ context.Context, id int) (*apiclient.Blob, error) {
	if err := f.record("DownloadInvoice"); err != nil {
		return nil, err
	}
	body := fmt.Sprintf("receipt %d", id)
	return &apiclient.Blob{
		Body:               io.NopCloser(strings.NewReader(body)),
		ContentType:        "text/plain",
		ContentLength:      int64(len(body)),
		ContentDisposition: fmt.Sprintf(`attachment; filename="INV-%d.txt"`, id),
	}, nil
}
