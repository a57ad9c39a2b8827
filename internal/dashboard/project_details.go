package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/internal/features"
	"bizportal/internal/model"
)

var ErrProjectNotFound = errors.New("project not found")

// Project detail sub-tabs.
const (
	SubTabMilestones = "milestones"
	SubTabFiles      = "files"
	SubTabMessages   = "messages"
	SubTabInvoices   = "invoices"
)

var subTabs = []string{SubTabMilestones, SubTabFiles, SubTabMessages, SubTabInvoices}

// ProjectView is the header card of the project detail tab.
type ProjectView struct {
	ID            int
	Name          string
	ClientID      int
	ClientName    string
	ClientCompany string
	ProjectType   string
	Status        string
	Description   string
	Budget        string
	Price         float64
	StartDate     *time.Time
	DueDate       *time.Time
	Progress      int
	ProgressWidth string
	Features      []string
	RepoURL       string
	PreviewURL    string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	MilestoneCount int
	CompletedCount int
	FileCount      int
	InvoiceCount   int
}

func newProjectView(p model.Project) ProjectView {
	v := ProjectView{
		ID:            p.ID,
		Name:          p.Name,
		ClientName:    p.ClientName,
		ClientCompany: p.ClientCompany,
		ProjectType:   p.ProjectType,
		Status:        p.Status,
		Description:   p.Description,
		Budget:        p.Budget,
		Price:         p.Price,
		StartDate:     p.StartDate,
		DueDate:       p.DueDate,
		Features:      features.Normalize(p.Features, p.FeaturesRaw),
		RepoURL:       p.RepoURL,
		PreviewURL:    p.PreviewURL,
		Notes:         p.Notes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.ClientID != nil {
		v.ClientID = *p.ClientID
	}
	v.setProgress(p.Progress)
	return v
}

func (v *ProjectView) setProgress(progress int) {
	progress = max(0, min(100, progress))
	v.Progress = progress
	v.ProgressWidth = strconv.Itoa(progress) + "%"
}

// ProjectDetails drives the project detail tab. Sub-tabs load on first view
// and are cached until the project changes or a mutation reloads them.
type ProjectDetails struct {
	api    API
	router *TabRouter

	milestones *Store[[]model.Milestone]
	files      *Store[[]model.ProjectFile]
	threads    *Store[[]model.MessageThread]
	invoices   *InvoiceList

	mu     sync.Mutex
	view   ProjectView
	loaded map[string]bool
}

func NewProjectDetails(api API, router *TabRouter) *ProjectDetails {
	return &ProjectDetails{
		api:        api,
		router:     router,
		milestones: NewStore[[]model.Milestone]("milestones"),
		files:      NewStore[[]model.ProjectFile]("files"),
		threads:    NewStore[[]model.MessageThread]("project_threads"),
		invoices:   NewInvoiceList(api, "project_invoices"),
		loaded:     make(map[string]bool),
	}
}

// Show finds projectID in projects, switches to the detail tab and resets the
// sub-tab caches when the project differs from the one on screen.
func (d *ProjectDetails) Show(ctx context.Context, projectID int, projects []model.Project) (ProjectView, error) {
	var project *model.Project
	for i := range projects {
		if projects[i].ID == projectID {
			project = &projects[i]
			break
		}
	}
	if project == nil {
		return ProjectView{}, fmt.Errorf("%w: %d", ErrProjectNotFound, projectID)
	}

	d.router.Switch(TabProjectDetail)

	d.mu.Lock()
	if d.view.ID != projectID {
		d.loaded = make(map[string]bool)
		d.milestones.Invalidate()
		d.files.Invalidate()
		d.threads.Invalidate()
		d.invoices.Invalidate()
	}
	counts := d.view
	d.view = newProjectView(*project)
	if counts.ID == projectID {
		d.view.MilestoneCount = counts.MilestoneCount
		d.view.CompletedCount = counts.CompletedCount
		d.view.FileCount = counts.FileCount
		d.view.InvoiceCount = counts.InvoiceCount
	}
	view := d.view
	d.mu.Unlock()

	d.router.SetDetailLabel(TabProjectDetail, project.Name)
	return view, nil
}

func (d *ProjectDetails) View() ProjectView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

func (d *ProjectDetails) projectID() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.view.ID == 0 {
		return 0, ErrProjectNotFound
	}
	return d.view.ID, nil
}

func (d *ProjectDetails) isLoaded(sub string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loaded[sub]
}

func (d *ProjectDetails) markLoaded(sub string) {
	d.mu.Lock()
	d.loaded[sub] = true
	d.mu.Unlock()
}

// Forget marks every sub-tab for reload on its next view.
func (d *ProjectDetails) Forget() {
	d.mu.Lock()
	d.loaded = make(map[string]bool)
	d.mu.Unlock()
}

// LoadSubTab loads sub once per project.
func (d *ProjectDetails) LoadSubTab(ctx context.Context, sub string) error {
	if d.isLoaded(sub) {
		return nil
	}
	switch sub {
	case SubTabMilestones:
		_, err := d.LoadMilestones(ctx)
		return err
	case SubTabFiles:
		_, err := d.LoadFiles(ctx)
		return err
	case SubTabMessages:
		_, err := d.LoadMessages(ctx)
		return err
	case SubTabInvoices:
		_, err := d.LoadInvoices(ctx)
		return err
	}
	return fmt.Errorf("unknown project sub-tab %q", sub)
}

func (d *ProjectDetails) LoadMilestones(ctx context.Context) ([]model.Milestone, error) {
	id, err := d.projectID()
	if err != nil {
		return nil, err
	}
	milestones, err := d.milestones.Load(ctx, func(ctx context.Context) ([]model.Milestone, error) {
		return d.api.Milestones(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.view.MilestoneCount = len(milestones)
	d.view.CompletedCount = 0
	for _, m := range milestones {
		if m.IsCompleted {
			d.view.CompletedCount++
		}
	}
	d.mu.Unlock()
	d.markLoaded(SubTabMilestones)
	return milestones, nil
}

func (d *ProjectDetails) LoadFiles(ctx context.Context) ([]model.ProjectFile, error) {
	id, err := d.projectID()
	if err != nil {
		return nil, err
	}
	files, err := d.files.Load(ctx, func(ctx context.Context) ([]model.ProjectFile, error) {
		return d.api.ProjectFiles(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.view.FileCount = len(files)
	d.mu.Unlock()
	d.markLoaded(SubTabFiles)
	return files, nil
}

func (d *ProjectDetails) LoadMessages(ctx context.Context) ([]model.MessageThread, error) {
	id, err := d.projectID()
	if err != nil {
		return nil, err
	}
	threads, err := d.threads.Load(ctx, func(ctx context.Context) ([]model.MessageThread, error) {
		return d.api.Threads(ctx, 0, id)
	})
	if err != nil {
		return nil, err
	}
	d.markLoaded(SubTabMessages)
	return threads, nil
}

func (d *ProjectDetails) LoadInvoices(ctx context.Context) (InvoiceTable, error) {
	id, err := d.projectID()
	if err != nil {
		return InvoiceTable{}, err
	}
	if err := d.invoices.LoadProjectInvoices(ctx, id); err != nil {
		return InvoiceTable{}, err
	}
	table := d.invoices.Table()
	d.mu.Lock()
	d.view.InvoiceCount = table.Totals.Count
	d.mu.Unlock()
	d.markLoaded(SubTabInvoices)
	return table, nil
}

func (d *ProjectDetails) Milestones() []model.Milestone {
	v, _ := d.milestones.Get()
	return v
}

func (d *ProjectDetails) Files() []model.ProjectFile {
	v, _ := d.files.Get()
	return v
}

func (d *ProjectDetails) Threads() []model.MessageThread {
	v, _ := d.threads.Get()
	return v
}

func (d *ProjectDetails) Invoices() *InvoiceList {
	return d.invoices
}

// ToggleMilestone stores the new completion state, reloads the milestones and
// writes the recomputed progress back to the project.
func (d *ProjectDetails) ToggleMilestone(ctx context.Context, projectID, milestoneID int, completed bool) (int, error) {
	if err := d.api.SetMilestoneCompleted(ctx, milestoneID, completed); err != nil {
		return 0, err
	}
	return d.syncProgress(ctx, projectID)
}

// syncProgress recomputes progress from the project's milestones and PUTs it.
func (d *ProjectDetails) syncProgress(ctx context.Context, projectID int) (int, error) {
	var milestones []model.Milestone
	var err error
	if current, _ := d.projectID(); current == projectID {
		milestones, err = d.LoadMilestones(ctx)
	} else {
		milestones, err = d.api.Milestones(ctx, projectID)
	}
	if err != nil {
		return 0, err
	}

	progress := model.MilestoneProgress(milestones)
	if err := d.api.SetProjectProgress(ctx, projectID, progress); err != nil {
		return 0, err
	}

	d.mu.Lock()
	if d.view.ID == projectID {
		d.view.setProgress(progress)
	}
	d.mu.Unlock()
	return progress, nil
}

// CreateMilestone adds a milestone to projectID and recomputes its progress.
func (d *ProjectDetails) CreateMilestone(ctx context.Context, projectID int, in apiclient.MilestoneInput) (*model.Milestone, error) {
	m, err := d.api.CreateMilestone(ctx, projectID, in)
	if err != nil {
		return nil, err
	}
	if _, err := d.syncProgress(ctx, projectID); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *ProjectDetails) DeleteMilestone(ctx context.Context, projectID, milestoneID int) error {
	if err := d.api.DeleteMilestone(ctx, milestoneID); err != nil {
		return err
	}
	_, err := d.syncProgress(ctx, projectID)
	return err
}

func (d *ProjectDetails) ShareFile(ctx context.Context, fileID int, shared bool) error {
	if err := d.api.ShareFile(ctx, fileID, shared); err != nil {
		return err
	}
	return d.reloadFiles(ctx)
}

func (d *ProjectDetails) DeleteFile(ctx context.Context, fileID int) error {
	if err := d.api.DeleteFile(ctx, fileID); err != nil {
		return err
	}
	return d.reloadFiles(ctx)
}

// reloadFiles refreshes the files sub-tab when a project is shown.
func (d *ProjectDetails) reloadFiles(ctx context.Context) error {
	if _, err := d.projectID(); err != nil {
		return nil
	}
	_, err := d.LoadFiles(ctx)
	return err
}

// UpdateProject saves edited fields and refreshes the header card.
func (d *ProjectDetails) UpdateProject(ctx context.Context, fields map[string]any) error {
	id, err := d.projectID()
	if err != nil {
		return err
	}
	p, err := d.api.UpdateProject(ctx, id, fields)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	d.mu.Lock()
	counts := d.view
	d.view = newProjectView(*p)
	d.view.MilestoneCount = counts.MilestoneCount
	d.view.CompletedCount = counts.CompletedCount
	d.view.FileCount = counts.FileCount
	d.view.InvoiceCount = counts.InvoiceCount
	d.mu.Unlock()
	return nil
}
