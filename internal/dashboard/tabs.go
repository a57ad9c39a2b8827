// Package dashboard is the server-rendered admin dashboard: tab routing,
// lazily built domain modules, per-session state and live refresh.
package dashboard

import "sync"

// Tab names.
const (
	TabOverview      = "overview"
	TabAnalytics     = "analytics"
	TabProjects      = "projects"
	TabTasks         = "tasks"
	TabLeads         = "leads"
	TabContacts      = "contacts"
	TabClients       = "clients"
	TabInvoices      = "invoices"
	TabFiles         = "files"
	TabMessages      = "messages"
	TabProjectDetail = "project-detail"
	TabClientDetail  = "client-detail"
)

// Group names.
const (
	GroupWork      = "work"
	GroupCRM       = "crm"
	GroupDocuments = "documents"
	GroupSupport   = "support"
)

type Group struct {
	Name    string
	Label   string
	Default string
	Tabs    []string
	// Hidden tabs belong to the group but have no sidebar entry.
	Hidden []string
}

var groups = []Group{
	{Name: GroupWork, Label: "Work", Default: TabProjects, Tabs: []string{TabProjects, TabTasks}, Hidden: []string{TabProjectDetail}},
	{Name: GroupCRM, Label: "CRM", Default: TabLeads, Tabs: []string{TabLeads, TabContacts, TabClients}, Hidden: []string{TabClientDetail}},
	{Name: GroupDocuments, Label: "Documents", Default: TabInvoices, Tabs: []string{TabInvoices, TabFiles}},
	{Name: GroupSupport, Label: "Support", Default: TabMessages, Tabs: []string{TabMessages}},
}

var standaloneTabs = []string{TabOverview, TabAnalytics}

var tabTitles = map[string]string{
	TabOverview:      "Dashboard",
	TabAnalytics:     "Analytics",
	TabProjects:      "Projects",
	TabTasks:         "Tasks",
	TabLeads:         "Leads",
	TabContacts:      "Contact Submissions",
	TabClients:       "Clients",
	TabInvoices:      "Invoices",
	TabFiles:         "Files",
	TabMessages:      "Messages",
	TabProjectDetail: "Project Details",
	TabClientDetail:  "Client Details",
}

// detailParents is the list tab a detail view returns to.
var detailParents = map[string]string{
	TabProjectDetail: TabProjects,
	TabClientDetail:  TabClients,
}

// Groups returns the sidebar table.
func Groups() []Group {
	return groups
}

type Breadcrumb struct {
	Label string
	// Href is empty for the last, non-clickable crumb.
	Href string
}

func tabHref(tab string) string {
	return "/admin/tab/" + tab
}

// Resolution is the navigation state after a successful switch.
type Resolution struct {
	Group       string
	Tab         string
	Title       string
	Breadcrumbs []Breadcrumb
}

// resolve maps a tab or group name onto (group, tab).
func resolve(name string) (group, tab string, ok bool) {
	for _, t := range standaloneTabs {
		if t == name {
			return "", t, true
		}
	}
	for _, g := range groups {
		if g.Name == name {
			return g.Name, g.Default, true
		}
		for _, t := range g.Tabs {
			if t == name {
				return g.Name, t, true
			}
		}
		for _, t := range g.Hidden {
			if t == name {
				return g.Name, t, true
			}
		}
	}
	return "", "", false
}

func groupLabel(name string) string {
	for _, g := range groups {
		if g.Name == name {
			return g.Label
		}
	}
	return ""
}

func breadcrumbsFor(group, tab, detailLabel string) []Breadcrumb {
	crumbs := []Breadcrumb{{Label: "Dashboard", Href: tabHref(TabOverview)}}
	if tab == TabOverview {
		return []Breadcrumb{{Label: "Dashboard"}}
	}
	if group != "" {
		crumbs = append(crumbs, Breadcrumb{Label: groupLabel(group), Href: tabHref(group)})
	}
	if parent, ok := detailParents[tab]; ok {
		crumbs = append(crumbs, Breadcrumb{Label: tabTitles[parent], Href: tabHref(parent)})
		label := detailLabel
		if label == "" {
			label = tabTitles[tab]
		}
		return append(crumbs, Breadcrumb{Label: label})
	}
	return append(crumbs, Breadcrumb{Label: tabTitles[tab]})
}

// TabRouter holds the active group and tab of one dashboard session.
type TabRouter struct {
	mu      sync.Mutex
	current Resolution
}

func NewTabRouter() *TabRouter {
	r := &TabRouter{}
	r.current, _ = r.build(TabOverview, "")
	return r
}

func (r *TabRouter) build(name, detailLabel string) (Resolution, bool) {
	group, tab, ok := resolve(name)
	if !ok {
		return Resolution{}, false
	}
	return Resolution{
		Group:       group,
		Tab:         tab,
		Title:       tabTitles[tab],
		Breadcrumbs: breadcrumbsFor(group, tab, detailLabel),
	}, true
}

// Switch activates name, which may be a tab or a group. Unknown names leave
// the current state untouched and return it with false.
func (r *TabRouter) Switch(name string) (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.build(name, "")
	if !ok {
		return r.current, false
	}
	r.current = res
	return res, true
}

func (r *TabRouter) Current() Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SetDetailLabel names the entity shown by a detail tab once it has loaded.
// It is a no-op when tab is no longer active.
func (r *TabRouter) SetDetailLabel(tab, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current.Tab != tab {
		return
	}
	if _, ok := detailParents[tab]; !ok {
		return
	}
	r.current.Breadcrumbs = breadcrumbsFor(r.current.Group, tab, label)
	r.current.Title = label
}
