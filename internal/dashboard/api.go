package dashboard

import (
	"context"
	"io"

	"bizportal/internal/apiclient"
	"bizportal/internal/model"
)

// API is the subset of *apiclient.Client the dashboard calls.
type API interface {
	Me(ctx context.Context) (*model.User, error)

	Leads(ctx context.Context, status string) ([]model.Lead, error)
	UpdateLeadStatus(ctx context.Context, id int, status, notes string) error
	ActivateLead(ctx context.Context, id int) (*model.Project, error)
	Contacts(ctx context.Context, status string) ([]model.ContactSubmission, error)
	UpdateContactStatus(ctx context.Context, id int, status string) error
	ConvertContact(ctx context.Context, id int) (*model.Lead, error)
	Clients(ctx context.Context) ([]model.Client, error)
	ClientDetail(ctx context.Context, id int) (*model.Client, []model.Project, error)

	Projects(ctx context.Context) ([]model.Project, error)
	UpdateProject(ctx context.Context, id int, fields map[string]any) (*model.Project, error)
	SetProjectProgress(ctx context.Context, id, progress int) error
	Milestones(ctx context.Context, projectID int) ([]model.Milestone, error)
	UpcomingMilestones(ctx context.Context, limit int) ([]model.Milestone, error)
	CreateMilestone(ctx context.Context, projectID int, in apiclient.MilestoneInput) (*model.Milestone, error)
	SetMilestoneCompleted(ctx context.Context, id int, completed bool) error
	DeleteMilestone(ctx context.Context, id int) error

	Invoices(ctx context.Context) ([]model.Invoice, error)
	ProjectInvoices(ctx context.Context, projectID int) ([]model.Invoice, error)
	InvoiceAction(ctx context.Context, id int, action string, amount float64) (*model.Invoice, error)
	DownloadInvoice(ctx context.Context, id int) (*apiclient.Blob, error)

	Threads(ctx context.Context, clientID, projectID int) ([]model.MessageThread, error)
	ThreadMessages(ctx context.Context, threadID int) ([]model.Message, error)
	SendMessage(ctx context.Context, threadID int, body string) error
	MarkThreadRead(ctx context.Context, threadID int) error

	ProjectFiles(ctx context.Context, projectID int) ([]model.ProjectFile, error)
	ShareFile(ctx context.Context, id int, shared bool) error
	DeleteFile(ctx context.Context, id int) error
	DownloadFile(ctx context.Context, id int) (*apiclient.Blob, error)
	UploadFile(ctx context.Context, projectID int, filename string, r io.Reader) (*model.ProjectFile, error)

	Analytics(ctx context.Context) (*model.AnalyticsSummary, error)
}

var _ API = (*apiclient.Client)(nil)
