package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"bizportal/internal/model"

	"golang.org/x/sync/errgroup"
)

// TabContext is the input of one tab load.
type TabContext struct {
	Tab    string
	Params url.Values
	// Force bypasses per-session caches; set by auto-refresh.
	Force bool
}

func (tc *TabContext) Int(key string) int {
	n, _ := strconv.Atoi(tc.Params.Get(key))
	return n
}

// Section is a loaded tab: the view to render, its data, and the display
// label of the entity a detail tab shows.
type Section struct {
	View  string
	Data  any
	Label string
}

// Module loads the data of one tab.
type Module interface {
	Load(ctx context.Context, tc *TabContext) (Section, error)
}

type ModuleFunc func(ctx context.Context, tc *TabContext) (Section, error)

func (f ModuleFunc) Load(ctx context.Context, tc *TabContext) (Section, error) {
	return f(ctx, tc)
}

func static(m Module) ModuleFactory {
	return func() (Module, error) { return m, nil }
}

// domain holds the per-session state the modules share.
type domain struct {
	api       API
	projects  *Store[[]model.Project]
	invoices  *InvoiceList
	details   *ProjectDetails
	messaging *Messaging
}

func (d *domain) factories() map[string]ModuleFactory {
	return map[string]ModuleFactory{
		TabOverview:      static(ModuleFunc(d.overview)),
		TabAnalytics:     static(ModuleFunc(d.analytics)),
		TabProjects:      static(ModuleFunc(d.projectList)),
		TabTasks:         static(ModuleFunc(d.tasks)),
		TabLeads:         static(ModuleFunc(d.leads)),
		TabContacts:      static(ModuleFunc(d.contacts)),
		TabClients:       static(ModuleFunc(d.clients)),
		TabInvoices:      static(ModuleFunc(d.invoiceList)),
		TabFiles:         static(ModuleFunc(d.files)),
		TabMessages:      static(ModuleFunc(d.messages)),
		TabProjectDetail: static(ModuleFunc(d.projectDetail)),
		TabClientDetail:  static(ModuleFunc(d.clientDetail)),
	}
}

type OverviewData struct {
	Summary    *model.AnalyticsSummary
	Upcoming   []model.Milestone
	NewLeads   []model.Lead
	ProjectsBy map[string]int
}

func (d *domain) overview(ctx context.Context, _ *TabContext) (Section, error) {
	var data OverviewData
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := d.api.Analytics(ctx)
		data.Summary = s
		return err
	})
	g.Go(func() error {
		m, err := d.api.UpcomingMilestones(ctx, 5)
		data.Upcoming = m
		return err
	})
	g.Go(func() error {
		l, err := d.api.Leads(ctx, model.LeadStatusNew)
		data.NewLeads = l
		return err
	})
	if err := g.Wait(); err != nil {
		return Section{}, err
	}
	if data.Summary != nil {
		data.ProjectsBy = data.Summary.ProjectsByStatus
	}
	return Section{View: "overview", Data: data}, nil
}

func (d *domain) analytics(ctx context.Context, _ *TabContext) (Section, error) {
	s, err := d.api.Analytics(ctx)
	if err != nil {
		return Section{}, err
	}
	return Section{View: "analytics", Data: s}, nil
}

func (d *domain) loadProjects(ctx context.Context) ([]model.Project, error) {
	return d.projects.Load(ctx, d.api.Projects)
}

// cachedProjects returns the last project list, fetching it when there is none.
func (d *domain) cachedProjects(ctx context.Context) ([]model.Project, error) {
	if projects, ok := d.projects.Get(); ok {
		return projects, nil
	}
	return d.loadProjects(ctx)
}

type ProjectListData struct {
	Status   string
	Statuses []string
	Projects []model.Project
}

func (d *domain) projectList(ctx context.Context, tc *TabContext) (Section, error) {
	projects, err := d.loadProjects(ctx)
	if err != nil {
		return Section{}, err
	}
	status := tc.Params.Get("status")
	if status != "" {
		projects = slices.DeleteFunc(slices.Clone(projects), func(p model.Project) bool {
			return p.Status != status
		})
	}
	return Section{View: "projects", Data: ProjectListData{
		Status:   status,
		Statuses: model.ProjectStatuses,
		Projects: projects,
	}}, nil
}

func (d *domain) tasks(ctx context.Context, _ *TabContext) (Section, error) {
	milestones, err := d.api.UpcomingMilestones(ctx, 50)
	if err != nil {
		return Section{}, err
	}
	return Section{View: "tasks", Data: milestones}, nil
}

type LeadListData struct {
	Status   string
	Statuses []string
	Leads    []model.Lead
}

func (d *domain) leads(ctx context.Context, tc *TabContext) (Section, error) {
	status := tc.Params.Get("status")
	leads, err := d.api.Leads(ctx, status)
	if err != nil {
		return Section{}, err
	}
	return Section{View: "leads", Data: LeadListData{
		Status:   status,
		Statuses: model.LeadStatuses,
		Leads:    leads,
	}}, nil
}

type ContactListData struct {
	Status   string
	Statuses []string
	Contacts []model.ContactSubmission
}

func (d *domain) contacts(ctx context.Context, tc *TabContext) (Section, error) {
	status := tc.Params.Get("status")
	contacts, err := d.api.Contacts(ctx, status)
	if err != nil {
		return Section{}, err
	}
	return Section{View: "contacts", Data: ContactListData{
		Status:   status,
		Statuses: model.ContactStatuses,
		Contacts: contacts,
	}}, nil
}

func (d *domain) clients(ctx context.Context, _ *TabContext) (Section, error) {
	clients, err := d.api.Clients(ctx)
	if err != nil {
		return Section{}, err
	}
	return Section{View: "clients", Data: clients}, nil
}

type ClientDetailData struct {
	Client   *model.Client
	Projects []model.Project
}

func (d *domain) clientDetail(ctx context.Context, tc *TabContext) (Section, error) {
	id := tc.Int("id")
	if id <= 0 {
		return Section{}, errors.New("client id is required")
	}
	client, projects, err := d.api.ClientDetail(ctx, id)
	if err != nil {
		return Section{}, err
	}
	return Section{
		View:  "client-detail",
		Data:  ClientDetailData{Client: client, Projects: projects},
		Label: client.Name,
	}, nil
}

func (d *domain) invoiceList(ctx context.Context, tc *TabContext) (Section, error) {
	if err := d.invoices.SetFilter(tc.Params.Get("filter")); err != nil {
		return Section{}, err
	}
	if err := d.invoices.LoadAll(ctx); err != nil {
		return Section{}, err
	}
	return Section{View: "invoices", Data: d.invoices.Table()}, nil
}

type FilesData struct {
	Projects  []model.Project
	ProjectID int
	Files     []model.ProjectFile
}

func (d *domain) files(ctx context.Context, tc *TabContext) (Section, error) {
	projects, err := d.cachedProjects(ctx)
	if err != nil {
		return Section{}, err
	}
	data := FilesData{Projects: projects, ProjectID: tc.Int("project")}
	if data.ProjectID > 0 {
		data.Files, err = d.api.ProjectFiles(ctx, data.ProjectID)
		if err != nil {
			return Section{}, err
		}
	}
	return Section{View: "files", Data: data}, nil
}

type MessagesData struct {
	Threads      []model.MessageThread
	Selected     int
	Conversation Conversation
}

func (d *domain) messages(ctx context.Context, tc *TabContext) (Section, error) {
	threads, err := d.api.Threads(ctx, tc.Int("client"), 0)
	if err != nil {
		return Section{}, err
	}
	data := MessagesData{Threads: threads, Selected: tc.Int("thread")}
	if data.Selected > 0 {
		data.Conversation, err = d.messaging.SelectThread(ctx, data.Selected)
		if err != nil {
			return Section{}, err
		}
	}
	return Section{View: "messages", Data: data}, nil
}

type ProjectDetailData struct {
	Project         ProjectView
	ProjectStatuses []string
	Sub             string
	SubTabs         []string
	Milestones      []model.Milestone
	Files           []model.ProjectFile
	Threads         []model.MessageThread
	Selected        int
	Conversation    Conversation
	Invoices        InvoiceTable
}

func (d *domain) projectDetail(ctx context.Context, tc *TabContext) (Section, error) {
	id := tc.Int("id")
	if id <= 0 {
		return Section{}, errors.New("project id is required")
	}
	sub := tc.Params.Get("sub")
	if sub == "" {
		sub = SubTabMilestones
	}
	if !slices.Contains(subTabs, sub) {
		return Section{}, fmt.Errorf("unknown project sub-tab %q", sub)
	}

	fetch := d.cachedProjects
	if tc.Force {
		fetch = d.loadProjects
		d.details.Forget()
	}
	projects, err := fetch(ctx)
	if err != nil {
		return Section{}, err
	}
	if !slices.ContainsFunc(projects, func(p model.Project) bool { return p.ID == id }) {
		// created since the list was cached
		if projects, err = d.loadProjects(ctx); err != nil {
			return Section{}, err
		}
	}
	if err := ctx.Err(); err != nil {
		return Section{}, err
	}
	view, err := d.details.Show(ctx, id, projects)
	if err != nil {
		return Section{}, err
	}

	if sub == SubTabInvoices {
		if err := d.details.Invoices().SetFilter(tc.Params.Get("filter")); err != nil {
			return Section{}, err
		}
	}
	if err := d.details.LoadSubTab(ctx, sub); err != nil {
		return Section{}, err
	}

	data := ProjectDetailData{
		Project:         d.details.View(),
		ProjectStatuses: model.ProjectStatuses,
		Sub:             sub,
		SubTabs:         subTabs,
		Milestones:      d.details.Milestones(),
		Files:           d.details.Files(),
		Threads:         d.details.Threads(),
		Invoices:        d.details.Invoices().Table(),
	}
	if sub == SubTabMessages {
		if data.Selected = tc.Int("thread"); data.Selected > 0 {
			data.Conversation, err = d.messaging.SelectThread(ctx, data.Selected)
			if err != nil {
				return Section{}, err
			}
		}
	}
	return Section{View: "project-detail", Data: data, Label: view.Name}, nil
}
