package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/internal/model"
)

var (
	ErrUnknownAction        = errors.New("unknown action")
	ErrConfirmationRequired = errors.New("action needs confirmation")
)

// Action is one data-action click posted by the browser.
type Action struct {
	Name    string
	Params  url.Values
	Confirm bool
}

// ParseAction reads an action from a submitted form. The action name is in
// "action" and "confirm=true" acknowledges destructive actions.
func ParseAction(form url.Values) Action {
	params := url.Values{}
	for k, v := range form {
		if k == "action" || k == "confirm" {
			continue
		}
		params[k] = v
	}
	confirm, _ := strconv.ParseBool(form.Get("confirm"))
	return Action{Name: form.Get("action"), Params: params, Confirm: confirm}
}

func (a Action) Int(key string) (int, error) {
	v := a.Params.Get(key)
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func (a Action) Bool(key string) bool {
	b, _ := strconv.ParseBool(a.Params.Get(key))
	return b
}

func (a Action) Amount() (float64, error) {
	v := strings.TrimSpace(a.Params.Get("amount"))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid amount %q", v)
	}
	return f, nil
}

// ActionResult says what to show after an action. An empty Tab reloads the
// current tab with its current parameters.
type ActionResult struct {
	Notice string
	Tab    string
	Params url.Values
}

type ActionFunc func(ctx context.Context, a Action) (ActionResult, error)

type actionSpec struct {
	run         ActionFunc
	destructive bool
}

// Action names.
const (
	ActionLeadStatus      = "lead-status"
	ActionLeadActivate    = "lead-activate"
	ActionContactStatus   = "contact-status"
	ActionContactConvert  = "contact-convert"
	ActionProjectUpdate   = "project-update"
	ActionMilestoneToggle = "milestone-toggle"
	ActionMilestoneCreate = "milestone-create"
	ActionMilestoneDelete = "milestone-delete"
	ActionFileShare       = "file-share"
	ActionFileDelete      = "file-delete"
	ActionInvoiceSend     = "invoice-send"
	ActionInvoicePaid     = "invoice-mark-paid"
	ActionInvoiceCredit   = "invoice-credit"
	ActionInvoiceCopy     = "invoice-duplicate"
	ActionInvoiceVoid     = "invoice-void"
	ActionMessageSend     = "message-send"
)

func (d *domain) actions() map[string]actionSpec {
	return map[string]actionSpec{
		ActionLeadStatus:      {run: d.leadStatus},
		ActionLeadActivate:    {run: d.leadActivate},
		ActionContactStatus:   {run: d.contactStatus},
		ActionContactConvert:  {run: d.contactConvert},
		ActionProjectUpdate:   {run: d.projectUpdate},
		ActionMilestoneToggle: {run: d.milestoneToggle},
		ActionMilestoneCreate: {run: d.milestoneCreate},
		ActionMilestoneDelete: {run: d.milestoneDelete, destructive: true},
		ActionFileShare:       {run: d.fileShare},
		ActionFileDelete:      {run: d.fileDelete, destructive: true},
		ActionInvoiceSend:     {run: d.invoiceAction("send")},
		ActionInvoicePaid:     {run: d.invoiceAction("mark-paid")},
		ActionInvoiceCredit:   {run: d.invoiceAction("credit")},
		ActionInvoiceCopy:     {run: d.invoiceAction("duplicate")},
		ActionInvoiceVoid:     {run: d.invoiceAction("void"), destructive: true},
		ActionMessageSend:     {run: d.messageSend},
	}
}

func (d *domain) leadStatus(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	status := a.Params.Get("status")
	if !model.IsValidLeadStatus(status) {
		return ActionResult{}, fmt.Errorf("invalid lead status %q", status)
	}
	if err := d.api.UpdateLeadStatus(ctx, id, status, a.Params.Get("notes")); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "Lead updated"}, nil
}

func (d *domain) leadActivate(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	project, err := d.api.ActivateLead(ctx, id)
	if err != nil {
		return ActionResult{}, err
	}
	d.projects.Invalidate()
	if project == nil {
		return ActionResult{Notice: "Lead activated"}, nil
	}
	return ActionResult{
		Notice: "Project created",
		Tab:    TabProjectDetail,
		Params: url.Values{"id": {strconv.Itoa(project.ID)}},
	}, nil
}

func (d *domain) contactStatus(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	status := a.Params.Get("status")
	if !model.IsValidContactStatus(status) {
		return ActionResult{}, fmt.Errorf("invalid contact status %q", status)
	}
	if err := d.api.UpdateContactStatus(ctx, id, status); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "Contact updated"}, nil
}

func (d *domain) contactConvert(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	if _, err := d.api.ConvertContact(ctx, id); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "Converted to lead"}, nil
}

var editableProjectFields = []string{"name", "status", "description", "budget", "repo_url", "preview_url", "notes"}

func (d *domain) projectUpdate(ctx context.Context, a Action) (ActionResult, error) {
	fields := make(map[string]any)
	for _, f := range editableProjectFields {
		if _, ok := a.Params[f]; ok {
			fields[f] = a.Params.Get(f)
		}
	}
	if status, ok := fields["status"].(string); ok && !model.IsValidProjectStatus(status) {
		return ActionResult{}, fmt.Errorf("invalid project status %q", status)
	}
	if v := a.Params.Get("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return ActionResult{}, fmt.Errorf("invalid price %q", v)
		}
		fields["price"] = price
	}
	if len(fields) == 0 {
		return ActionResult{}, errors.New("nothing to update")
	}
	if err := d.details.UpdateProject(ctx, fields); err != nil {
		return ActionResult{}, err
	}
	d.projects.Invalidate()
	return ActionResult{Notice: "Project saved"}, nil
}

func (d *domain) milestoneToggle(ctx context.Context, a Action) (ActionResult, error) {
	projectID, err := a.Int("project_id")
	if err != nil {
		return ActionResult{}, err
	}
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	progress, err := d.details.ToggleMilestone(ctx, projectID, id, a.Bool("completed"))
	if err != nil {
		return ActionResult{}, err
	}
	d.projects.Invalidate()
	return ActionResult{Notice: fmt.Sprintf("Progress %d%%", progress)}, nil
}

func (d *domain) milestoneCreate(ctx context.Context, a Action) (ActionResult, error) {
	projectID, err := a.Int("project_id")
	if err != nil {
		return ActionResult{}, err
	}
	title := strings.TrimSpace(a.Params.Get("title"))
	if title == "" {
		return ActionResult{}, errors.New("milestone title is required")
	}
	in := apiclient.MilestoneInput{
		Title:       title,
		Description: a.Params.Get("description"),
	}
	if v := a.Params.Get("due_date"); v != "" {
		due, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return ActionResult{}, fmt.Errorf("invalid due date %q", v)
		}
		in.DueDate = &due
	}
	for _, line := range strings.Split(a.Params.Get("deliverables"), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			in.Deliverables = append(in.Deliverables, line)
		}
	}
	if _, err := d.details.CreateMilestone(ctx, projectID, in); err != nil {
		return ActionResult{}, err
	}
	d.projects.Invalidate()
	return ActionResult{Notice: "Milestone added"}, nil
}

func (d *domain) milestoneDelete(ctx context.Context, a Action) (ActionResult, error) {
	projectID, err := a.Int("project_id")
	if err != nil {
		return ActionResult{}, err
	}
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	if err := d.details.DeleteMilestone(ctx, projectID, id); err != nil {
		return ActionResult{}, err
	}
	d.projects.Invalidate()
	return ActionResult{Notice: "Milestone deleted"}, nil
}

func (d *domain) fileShare(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	if err := d.details.ShareFile(ctx, id, a.Bool("shared")); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "File updated"}, nil
}

func (d *domain) fileDelete(ctx context.Context, a Action) (ActionResult, error) {
	id, err := a.Int("id")
	if err != nil {
		return ActionResult{}, err
	}
	if err := d.details.DeleteFile(ctx, id); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "File deleted"}, nil
}

func (d *domain) invoiceAction(op string) ActionFunc {
	return func(ctx context.Context, a Action) (ActionResult, error) {
		id, err := a.Int("id")
		if err != nil {
			return ActionResult{}, err
		}
		amount, err := a.Amount()
		if err != nil {
			return ActionResult{}, err
		}
		if op == "credit" && amount <= 0 {
			return ActionResult{}, errors.New("credit amount is required")
		}
		if _, err := d.api.InvoiceAction(ctx, id, op, amount); err != nil {
			return ActionResult{}, err
		}
		d.invoices.Invalidate()
		d.details.Invoices().Invalidate()
		d.details.Forget()
		return ActionResult{Notice: "Invoice updated"}, nil
	}
}

func (d *domain) messageSend(ctx context.Context, a Action) (ActionResult, error) {
	threadID, err := a.Int("thread_id")
	if err != nil {
		return ActionResult{}, err
	}
	if _, err := d.messaging.Send(ctx, threadID, a.Params.Get("body")); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Notice: "Message sent"}, nil
}
