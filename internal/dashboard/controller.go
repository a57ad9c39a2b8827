package dashboard

import (
	"context"
	"errors"
	"html/template"
	"net/url"
	"sync"
	"time"

	"bizportal/internal/model"
	"bizportal/pkg/metrics"

	"go.uber.org/zap"
)

// Page is everything the layout needs to render one dashboard response.
type Page struct {
	Resolution
	Groups  []Group
	User    *model.User
	Params  url.Values
	Content template.HTML
	Error   string
	Notice  string
	Dirty   bool
}

type renderedSection struct {
	Tab     string
	Content template.HTML
}

// Controller is the dashboard state of one admin session.
type Controller struct {
	router   *TabRouter
	loader   *ModuleLoader
	views    *ViewCache
	domain   *domain
	actions  map[string]actionSpec
	sections *Store[renderedSection]
	logger   *zap.Logger

	mu      sync.Mutex
	user    *model.User
	params  url.Values
	dirty   bool
	loadErr string
	cancel  context.CancelFunc
}

func NewController(api API, user *model.User, views *ViewCache, logger *zap.Logger) *Controller {
	router := NewTabRouter()
	d := &domain{
		api:       api,
		projects:  NewStore[[]model.Project]("projects"),
		invoices:  NewInvoiceList(api, "invoices"),
		details:   NewProjectDetails(api, router),
		messaging: NewMessaging(api),
	}
	return &Controller{
		router:   router,
		loader:   NewModuleLoader(d.factories()),
		views:    views,
		domain:   d,
		actions:  d.actions(),
		sections: NewStore[renderedSection]("section"),
		logger:   logger,
		user:     user,
		params:   url.Values{},
	}
}

func (c *Controller) Router() *TabRouter {
	return c.router
}

func (c *Controller) Details() *ProjectDetails {
	return c.domain.details
}

// SwitchTab activates name and loads its data. An unknown name keeps the
// current tab and content.
func (c *Controller) SwitchTab(ctx context.Context, name string, params url.Values) (Page, error) {
	res, ok := c.router.Switch(name)
	if !ok {
		c.logger.Warn("Unknown tab requested", zap.String("tab", name))
		page := c.Page()
		page.Notice = "Unknown section: " + name
		return page, nil
	}
	// a full page navigation discards any open edit form
	c.SetDirty(false)

	err := c.loadTabData(ctx, res.Tab, params, false)
	if errors.Is(err, ErrStale) {
		err = nil
	}
	return c.Page(), err
}

// loadTabData loads tab and renders it. It cancels any load still in flight;
// a load that is overtaken returns ErrStale and leaves the newer result.
func (c *Controller) loadTabData(ctx context.Context, tab string, params url.Values, force bool) error {
	if params == nil {
		params = url.Values{}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.params = params
	c.mu.Unlock()

	seq := c.sections.Begin()
	start := time.Now()

	section, err := c.render(ctx, tab, params, force)
	if err != nil {
		if errors.Is(err, context.Canceled) || !c.sections.Latest(seq) {
			metrics.RecordTabLoad(tab, "stale", time.Since(start))
			return ErrStale
		}
		metrics.RecordTabLoad(tab, "error", time.Since(start))
		c.logger.Error("Failed to load tab", zap.String("tab", tab), zap.Error(err))

		c.mu.Lock()
		c.loadErr = "Error loading " + tabTitles[tab]
		c.mu.Unlock()
		return err
	}

	if err := c.sections.Commit(seq, renderedSection{Tab: tab, Content: section.content}); err != nil {
		metrics.RecordTabLoad(tab, "stale", time.Since(start))
		return err
	}
	metrics.RecordTabLoad(tab, "ok", time.Since(start))

	c.mu.Lock()
	c.loadErr = ""
	c.mu.Unlock()

	if section.label != "" {
		c.router.SetDetailLabel(tab, section.label)
	}
	return nil
}

type renderedTab struct {
	content template.HTML
	label   string
}

func (c *Controller) render(ctx context.Context, tab string, params url.Values, force bool) (renderedTab, error) {
	module, err := c.loader.Get(ctx, tab)
	if err != nil {
		return renderedTab{}, err
	}
	section, err := module.Load(ctx, &TabContext{Tab: tab, Params: params, Force: force})
	if err != nil {
		return renderedTab{}, err
	}
	content, err := c.views.RenderHTML(section.View, section.Data)
	if err != nil {
		return renderedTab{}, err
	}
	return renderedTab{content: content, label: section.Label}, nil
}

// Dispatch runs a data-action and reloads the affected tab.
func (c *Controller) Dispatch(ctx context.Context, a Action) (Page, error) {
	spec, ok := c.actions[a.Name]
	if !ok {
		return c.Page(), ErrUnknownAction
	}
	if spec.destructive && !a.Confirm {
		return c.Page(), ErrConfirmationRequired
	}

	result, err := spec.run(ctx, a)
	if err != nil {
		c.logger.Warn("Action failed", zap.String("action", a.Name), zap.Error(err))
		page := c.Page()
		page.Error = err.Error()
		return page, err
	}
	c.SetDirty(false)

	tab, params := result.Tab, result.Params
	if tab == "" {
		tab = c.router.Current().Tab
		params = c.Params()
	} else if _, ok := c.router.Switch(tab); !ok {
		tab = c.router.Current().Tab
	}

	err = c.loadTabData(ctx, tab, params, true)
	if errors.Is(err, ErrStale) {
		err = nil
	}
	page := c.Page()
	page.Notice = result.Notice
	return page, err
}

// Refresh reloads whatever tab is current. It is skipped while an edit form
// is open so unsaved input is not replaced.
func (c *Controller) Refresh(ctx context.Context) (bool, error) {
	if c.Dirty() {
		metrics.IncrementRefresh("skipped_dirty")
		return false, nil
	}
	tab := c.router.Current().Tab
	err := c.loadTabData(ctx, tab, c.Params(), true)
	switch {
	case errors.Is(err, ErrStale):
		return false, nil
	case err != nil:
		metrics.IncrementRefresh("failed")
		return false, err
	}
	metrics.IncrementRefresh("refreshed")
	return true, nil
}

func (c *Controller) SetDirty(dirty bool) {
	c.mu.Lock()
	c.dirty = dirty
	c.mu.Unlock()
}

func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Params are the parameters of the current tab.
func (c *Controller) Params() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(url.Values, len(c.params))
	for k, v := range c.params {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Page snapshots the current navigation state and section content.
func (c *Controller) Page() Page {
	res := c.router.Current()
	section, ok := c.sections.Get()

	c.mu.Lock()
	loadErr, dirty, user := c.loadErr, c.dirty, c.user
	c.mu.Unlock()

	content := section.Content
	if !ok && loadErr != "" {
		content = template.HTML(`<p class="section-error">` + template.HTMLEscapeString(loadErr) + `</p>`)
	}
	return Page{
		Resolution: res,
		Groups:     Groups(),
		User:       user,
		Params:     c.Params(),
		Content:    content,
		Error:      loadErr,
		Dirty:      dirty,
	}
}

// Content returns the current section body for live refresh.
func (c *Controller) Content() template.HTML {
	return c.Page().Content
}

// Close cancels any load still running.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
