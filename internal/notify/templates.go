package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"
	"time"

	eventsmq "bizportal/contracts/mq"
)

var funcs = template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"date": func(t *time.Time) string {
		if t == nil {
			return "on receipt"
		}
		return t.Format("Jan 2, 2006")
	},
	"join": strings.Join,
}

var textTemplates = template.Must(template.New("notify").Funcs(funcs).Parse(`
{{define "lead.created"}}New project inquiry from {{.Lead.Name}}{{with .Lead.Company}} ({{.}}){{end}}.

Email: {{.Lead.Email}}
Project type: {{.Lead.ProjectType}}
Budget: {{.Lead.BudgetRange}}
{{- if .Lead.Features}}
Features: {{join .Lead.Features ", "}}{{end}}

Review it in the dashboard: {{.PortalURL}}/admin/tab/leads
{{end}}
{{define "lead.ack"}}Hi {{.Lead.Name}},

Thanks for reaching out about your {{.Lead.ProjectType}} project. We review every inquiry personally and will get back to you within two business days.
{{end}}
{{define "contact.created"}}New contact message from {{.Contact.Name}} <{{.Contact.Email}}>

Subject: {{.Contact.Subject}}

{{.Contact.Message}}
{{end}}
{{define "message.sent"}}Hi {{.Message.ClientName}},

{{.Message.SenderName}} replied in "{{.Message.Subject}}":

{{.Message.Body}}

Reply from your portal: {{.PortalURL}}/portal/messages
{{end}}
{{define "message.admin"}}{{.Message.SenderName}} wrote in "{{.Message.Subject}}":

{{.Message.Body}}

Open the thread: {{.PortalURL}}/admin/tab/messages
{{end}}
{{define "invoice.sent"}}Hi {{.Invoice.ClientName}},

Invoice {{.Invoice.InvoiceNumber}} for {{money .Invoice.AmountTotal}} is ready. Payment is due {{date .Invoice.DueDate}}.

View it in your portal: {{.PortalURL}}/portal/invoices
{{end}}
{{define "project.created"}}Hi {{.Project.ClientName}},

Your project "{{.Project.Name}}" is now set up. You can follow milestones, files and invoices in your portal: {{.PortalURL}}/portal
{{end}}
`))

var htmlLayout = htmltemplate.Must(htmltemplate.New("layout").Parse(
	`<div style="font-family:Arial,sans-serif;line-height:1.6;color:#333">{{range .}}<p>{{.}}</p>{{end}}</div>`,
))

// Data is the union of fields the notification templates read.
type Data struct {
	PortalURL string
	Lead      *eventsmq.LeadCreatedPayload
	Contact   *eventsmq.ContactCreatedPayload
	Message   *eventsmq.MessageSentPayload
	Invoice   *eventsmq.InvoiceSentPayload
	Project   *eventsmq.ProjectCreatedPayload
}

// Compose renders the named template into an email for the recipient.
func Compose(name, toName, toEmail, subject string, data Data) (Email, error) {
	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, name, data); err != nil {
		return Email{}, fmt.Errorf("failed to render %s: %w", name, err)
	}
	body := strings.TrimSpace(text.String())

	var html bytes.Buffer
	if err := htmlLayout.Execute(&html, strings.Split(body, "\n\n")); err != nil {
		return Email{}, fmt.Errorf("failed to render %s html: %w", name, err)
	}

	return Email{
		ToName:  toName,
		ToEmail: toEmail,
		Subject: subject,
		Text:    body,
		HTML:    html.String(),
	}, nil
}
