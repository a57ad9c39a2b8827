package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bizportal/internal/model"

	"go.uber.org/zap"
)

// Login exchanges credentials for a token. It does not need an authenticated client.
func Login(ctx context.Context, baseURL, email, password string, logger *zap.Logger) (string, *model.User, error) {
	c := New(baseURL, "", logger)
	var out struct {
		Token string      `json:"token"`
		User  *model.User `json:"user"`
	}
	err := c.PostJSON(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return "", nil, err
	}
	return out.Token, out.User, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var out struct {
		User *model.User `json:"user"`
	}
	if err := c.GetJSON(ctx, "/api/auth/me", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.PostJSON(ctx, "/api/auth/logout", nil, nil)
}

func withStatus(path, status string) string {
	if status == "" {
		return path
	}
	return path + "?status=" + url.QueryEscape(status)
}

func (c *Client) Leads(ctx context.Context, status string) ([]model.Lead, error) {
	var out struct {
		Leads []model.Lead `json:"leads"`
	}
	err := c.GetJSON(ctx, withStatus("/api/admin/leads", status), &out)
	return out.Leads, err
}

func (c *Client) UpdateLeadStatus(ctx context.Context, id int, status, notes string) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/admin/leads/%d/status", id), map[string]string{"status": status, "notes": notes}, nil)
}

func (c *Client) ActivateLead(ctx context.Context, id int) (*model.Project, error) {
	var out struct {
		Project *model.Project `json:"project"`
	}
	err := c.PostJSON(ctx, fmt.Sprintf("/api/admin/leads/%d/activate", id), nil, &out)
	return out.Project, err
}

func (c *Client) Contacts(ctx context.Context, status string) ([]model.ContactSubmission, error) {
	var out struct {
		Contacts []model.ContactSubmission `json:"contacts"`
	}
	err := c.GetJSON(ctx, withStatus("/api/admin/contacts", status), &out)
	return out.Contacts, err
}

func (c *Client) UpdateContactStatus(ctx context.Context, id int, status string) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/admin/contacts/%d/status", id), map[string]string{"status": status}, nil)
}

func (c *Client) ConvertContact(ctx context.Context, id int) (*model.Lead, error) {
	var out struct {
		Lead *model.Lead `json:"lead"`
	}
	err := c.PostJSON(ctx, fmt.Sprintf("/api/admin/contacts/%d/convert", id), nil, &out)
	return out.Lead, err
}

func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	var out struct {
		Clients []model.Client `json:"clients"`
	}
	err := c.GetJSON(ctx, "/api/admin/clients", &out)
	return out.Clients, err
}

func (c *Client) ClientDetail(ctx context.Context, id int) (*model.Client, []model.Project, error) {
	var out struct {
		Client   *model.Client   `json:"client"`
		Projects []model.Project `json:"projects"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/admin/clients/%d", id), &out)
	return out.Client, out.Projects, err
}

func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	var out struct {
		Projects []model.Project `json:"projects"`
	}
	err := c.GetJSON(ctx, "/api/projects", &out)
	return out.Projects, err
}

func (c *Client) Project(ctx context.Context, id int) (*model.Project, error) {
	var out struct {
		Project *model.Project `json:"project"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/projects/%d", id), &out)
	return out.Project, err
}

// UpdateProject sends a partial update; only the keys present change.
func (c *Client) UpdateProject(ctx context.Context, id int, fields map[string]any) (*model.Project, error) {
	var out struct {
		Project *model.Project `json:"project"`
	}
	err := c.PutJSON(ctx, fmt.Sprintf("/api/projects/%d", id), fields, &out)
	return out.Project, err
}

func (c *Client) SetProjectProgress(ctx context.Context, id, progress int) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/projects/%d/progress", id), map[string]int{"progress": progress}, nil)
}

func (c *Client) Milestones(ctx context.Context, projectID int) ([]model.Milestone, error) {
	var out struct {
		Milestones []model.Milestone `json:"milestones"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/projects/%d/milestones", projectID), &out)
	return out.Milestones, err
}

func (c *Client) UpcomingMilestones(ctx context.Context, limit int) ([]model.Milestone, error) {
	var out struct {
		Milestones []model.Milestone `json:"milestones"`
	}
	err := c.GetJSON(ctx, "/api/milestones/upcoming?limit="+strconv.Itoa(limit), &out)
	return out.Milestones, err
}

type MilestoneInput struct {
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Deliverables []string   `json:"deliverables,omitempty"`
	IsCompleted  *bool      `json:"is_completed,omitempty"`
}

func (c *Client) CreateMilestone(ctx context.Context, projectID int, in MilestoneInput) (*model.Milestone, error) {
	var out struct {
		Milestone *model.Milestone `json:"milestone"`
	}
	err := c.PostJSON(ctx, fmt.Sprintf("/api/projects/%d/milestones", projectID), in, &out)
	return out.Milestone, err
}

// SetMilestoneCompleted sends only is_completed, which the API treats as a toggle.
func (c *Client) SetMilestoneCompleted(ctx context.Context, id int, completed bool) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/milestones/%d", id), map[string]bool{"is_completed": completed}, nil)
}

func (c *Client) DeleteMilestone(ctx context.Context, id int) error {
	return c.Delete(ctx, fmt.Sprintf("/api/milestones/%d", id))
}

func (c *Client) Invoices(ctx context.Context) ([]model.Invoice, error) {
	var out struct {
		Invoices []model.Invoice `json:"invoices"`
	}
	err := c.GetJSON(ctx, "/api/invoices", &out)
	return out.Invoices, err
}

func (c *Client) ProjectInvoices(ctx context.Context, projectID int) ([]model.Invoice, error) {
	var out struct {
		Invoices []model.Invoice `json:"invoices"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/invoices/project/%d", projectID), &out)
	return out.Invoices, err
}

// InvoiceAction posts one of send, mark-paid, credit, duplicate or void.
func (c *Client) InvoiceAction(ctx context.Context, id int, action string, amount float64) (*model.Invoice, error) {
	var body any
	if amount > 0 {
		body = map[string]float64{"amount": amount}
	}
	var out struct {
		Invoice *model.Invoice `json:"invoice"`
	}
	err := c.PostJSON(ctx, fmt.Sprintf("/api/invoices/%d/%s", id, url.PathEscape(action)), body, &out)
	return out.Invoice, err
}

func (c *Client) DownloadInvoice(ctx context.Context, id int) (*Blob, error) {
	return c.Download(ctx, fmt.Sprintf("/api/invoices/%d/pdf", id))
}

func (c *Client) Threads(ctx context.Context, clientID, projectID int) ([]model.MessageThread, error) {
	q := url.Values{}
	if clientID > 0 {
		q.Set("client_id", strconv.Itoa(clientID))
	}
	if projectID > 0 {
		q.Set("project_id", strconv.Itoa(projectID))
	}
	path := "/api/messages/threads"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Threads []model.MessageThread `json:"threads"`
	}
	err := c.GetJSON(ctx, path, &out)
	return out.Threads, err
}

func (c *Client) ThreadMessages(ctx context.Context, threadID int) ([]model.Message, error) {
	var out struct {
		Messages []model.Message `json:"messages"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/messages/threads/%d/messages", threadID), &out)
	return out.Messages, err
}

func (c *Client) SendMessage(ctx context.Context, threadID int, body string) error {
	return c.PostJSON(ctx, fmt.Sprintf("/api/messages/threads/%d/messages", threadID), map[string]string{"body": body}, nil)
}

func (c *Client) MarkThreadRead(ctx context.Context, threadID int) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/messages/threads/%d/read", threadID), nil, nil)
}

func (c *Client) ProjectFiles(ctx context.Context, projectID int) ([]model.ProjectFile, error) {
	var out struct {
		Files []model.ProjectFile `json:"files"`
	}
	err := c.GetJSON(ctx, fmt.Sprintf("/api/uploads/project/%d", projectID), &out)
	return out.Files, err
}

func (c *Client) ShareFile(ctx context.Context, id int, shared bool) error {
	return c.PutJSON(ctx, fmt.Sprintf("/api/uploads/%d/share", id), map[string]bool{"shared": shared}, nil)
}

func (c *Client) DeleteFile(ctx context.Context, id int) error {
	return c.Delete(ctx, fmt.Sprintf("/api/uploads/%d", id))
}

func (c *Client) DownloadFile(ctx context.Context, id int) (*Blob, error) {
	return c.Download(ctx, fmt.Sprintf("/api/uploads/%d/download", id))
}

// UploadFile streams r as the multipart "file" field.
func (c *Client) UploadFile(ctx context.Context, projectID int, filename string, r io.Reader) (*model.ProjectFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var out struct {
		File *model.ProjectFile `json:"file"`
	}
	err = c.Upload(ctx, fmt.Sprintf("/api/uploads/project/%d", projectID), mw.FormDataContentType(), &buf, &out)
	return out.File, err
}

func (c *Client) Analytics(ctx context.Context) (*model.AnalyticsSummary, error) {
	var out struct {
		Analytics *model.AnalyticsSummary `json:"analytics"`
	}
	err := c.GetJSON(ctx, "/api/admin/analytics", &out)
	return out.Analytics, err
}

// Healthy reports whether the API answers /healthz.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil, "")
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
