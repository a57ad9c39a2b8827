package model

// AnalyticsSummary is the aggregate shown on the overview and analytics tabs.
type AnalyticsSummary struct {
	LeadsByStatus    map[string]int `json:"leads_by_status"`
	LeadsBySource    map[string]int `json:"leads_by_source"`
	ProjectsByStatus map[string]int `json:"projects_by_status"`
	NewLeads30d      int            `json:"new_leads_30d"`
	ConversionRate   float64        `json:"conversion_rate"`
	Revenue          float64        `json:"revenue"`
	Outstanding      float64        `json:"outstanding"`
	UnreadMessages   int            `json:"unread_messages"`
	NewContacts      int            `json:"new_contacts"`
}
