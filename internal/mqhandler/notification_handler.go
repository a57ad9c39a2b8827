package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	eventsmq "bizportal/contracts/mq"
	"bizportal/internal/model"
	"bizportal/internal/notify"
	"bizportal/pkg/logger"
	"bizportal/pkg/metrics"
	"bizportal/pkg/util"

	"go.uber.org/zap"
)

// Deduper is satisfied by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
	Release(ctx context.Context, key string)
}

// NotificationLog is satisfied by *repository.NotificationLogRepository.
type NotificationLog interface {
	Insert(ctx context.Context, log *model.NotificationLog) error
}

type Options struct {
	NotifyEmail string
	PortalURL   string
}

// NotificationHandler turns domain events into emails. Each email is sent at
// most once per event; a failed send releases its dedup key so redelivery retries it.
type NotificationHandler struct {
	sender  notify.Sender
	deduper Deduper
	logs    NotificationLog
	opts    Options
	logger  *zap.Logger
}

func NewNotificationHandler(sender notify.Sender, deduper Deduper, logs NotificationLog, opts Options, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		sender:  sender,
		deduper: deduper,
		logs:    logs,
		opts:    opts,
		logger:  logger,
	}
}

// Handlers maps each routing key the worker consumes to its handler.
func (h *NotificationHandler) Handlers() map[string]func(context.Context, json.RawMessage) error {
	return map[string]func(context.Context, json.RawMessage) error{
		eventsmq.RoutingLeadCreated:    h.HandleLeadCreated,
		eventsmq.RoutingContactCreated: h.HandleContactCreated,
		eventsmq.RoutingMessageSent:    h.HandleMessageSent,
		eventsmq.RoutingInvoiceSent:    h.HandleInvoiceSent,
		eventsmq.RoutingProjectCreated: h.HandleProjectCreated,
	}
}

func decode(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w", util.ErrPermanent, err)
	}
	return nil
}

func (h *NotificationHandler) HandleLeadCreated(ctx context.Context, raw json.RawMessage) error {
	var p eventsmq.LeadCreatedPayload
	if err := decode(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal lead created payload", zap.Error(err))
		return err
	}
	logger.WithTrace(ctx, h.logger).Info("Handling lead.created", zap.Int("lead_id", p.LeadID))

	data := notify.Data{PortalURL: h.opts.PortalURL, Lead: &p}
	if err := h.deliver(ctx, eventsmq.RoutingLeadCreated, "lead.created", p.LeadID,
		"", h.opts.NotifyEmail, fmt.Sprintf("New inquiry: %s", p.Name), data); err != nil {
		return err
	}
	return h.deliver(ctx, eventsmq.RoutingLeadCreated, "lead.ack", p.LeadID,
		p.Name, p.Email, "We received your project inquiry", data)
}

func (h *NotificationHandler) HandleContactCreated(ctx context.Context, raw json.RawMessage) error {
	var p eventsmq.ContactCreatedPayload
	if err := decode(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal contact created payload", zap.Error(err))
		return err
	}
	logger.WithTrace(ctx, h.logger).Info("Handling contact.created", zap.Int("contact_id", p.ContactID))

	return h.deliver(ctx, eventsmq.RoutingContactCreated, "contact.created", p.ContactID,
		"", h.opts.NotifyEmail, fmt.Sprintf("Contact form: %s", p.Subject),
		notify.Data{PortalURL: h.opts.PortalURL, Contact: &p})
}

// HandleMessageSent notifies the other side of the thread.
func (h *NotificationHandler) HandleMessageSent(ctx context.Context, raw json.RawMessage) error {
	var p eventsmq.MessageSentPayload
	if err := decode(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal message sent payload", zap.Error(err))
		return err
	}
	logger.WithTrace(ctx, h.logger).Info("Handling message.sent",
		zap.Int("message_id", p.MessageID),
		zap.String("sender_type", p.SenderType),
	)

	data := notify.Data{PortalURL: h.opts.PortalURL, Message: &p}
	subject := "Re: " + p.Subject
	if p.SenderType == model.SenderClient {
		return h.deliver(ctx, eventsmq.RoutingMessageSent, "message.admin", p.MessageID,
			"", h.opts.NotifyEmail, subject, data)
	}
	return h.deliver(ctx, eventsmq.RoutingMessageSent, "message.sent", p.MessageID,
		p.ClientName, p.ClientEmail, subject, data)
}

func (h *NotificationHandler) HandleInvoiceSent(ctx context.Context, raw json.RawMessage) error {
	var p eventsmq.InvoiceSentPayload
	if err := decode(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal invoice sent payload", zap.Error(err))
		return err
	}
	logger.WithTrace(ctx, h.logger).Info("Handling invoice.sent",
		zap.Int("invoice_id", p.InvoiceID),
		zap.String("invoice_number", p.InvoiceNumber),
	)

	return h.deliver(ctx, eventsmq.RoutingInvoiceSent, "invoice.sent", p.InvoiceID,
		p.ClientName, p.ClientEmail, fmt.Sprintf("Invoice %s", p.InvoiceNumber),
		notify.Data{PortalURL: h.opts.PortalURL, Invoice: &p})
}

func (h *NotificationHandler) HandleProjectCreated(ctx context.Context, raw json.RawMessage) error {
	var p eventsmq.ProjectCreatedPayload
	if err := decode(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal project created payload", zap.Error(err))
		return err
	}
	logger.WithTrace(ctx, h.logger).Info("Handling project.created", zap.Int("project_id", p.ProjectID))

	return h.deliver(ctx, eventsmq.RoutingProjectCreated, "project.created", p.ProjectID,
		p.ClientName, p.ClientEmail, fmt.Sprintf("Your project %s is set up", p.Name),
		notify.Data{PortalURL: h.opts.PortalURL, Project: &p})
}

func (h *NotificationHandler) deliver(ctx context.Context, routingKey, tmpl string, id int, toName, toEmail, subject string, data notify.Data) error {
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("routing_key", routingKey),
		zap.String("template", tmpl),
		zap.Int("aggregate_id", id),
	)

	if toEmail == "" {
		log.Warn("No recipient, notification skipped")
		h.record(ctx, routingKey, toEmail, "skipped", "")
		metrics.IncrementNotification(routingKey, "skipped")
		return nil
	}

	key := util.DedupKey("worker:"+tmpl, strconv.Itoa(id))
	if !h.deduper.AcquireOnce(ctx, key) {
		return nil
	}

	email, err := notify.Compose(tmpl, toName, toEmail, subject, data)
	if err != nil {
		log.Error("Failed to compose notification", zap.Error(err))
		h.record(ctx, routingKey, toEmail, "failed", err.Error())
		metrics.IncrementNotification(routingKey, "failed")
		return fmt.Errorf("%w: %w", util.ErrPermanent, err)
	}

	if err := h.sender.Send(ctx, email); err != nil {
		h.deduper.Release(context.WithoutCancel(ctx), key)
		log.Error("Failed to send notification", zap.String("to", toEmail), zap.Error(err))
		h.record(ctx, routingKey, toEmail, "failed", err.Error())
		metrics.IncrementNotification(routingKey, "failed")
		return err
	}

	h.record(ctx, routingKey, toEmail, "sent", "")
	metrics.IncrementNotification(routingKey, "sent")
	log.Info("Notification sent", zap.String("to", toEmail))
	return nil
}

// record writes the audit row; a failure here never fails the delivery.
func (h *NotificationHandler) record(ctx context.Context, routingKey, recipient, status, errMsg string) {
	if h.logs == nil {
		return
	}
	entry := &model.NotificationLog{
		RoutingKey: routingKey,
		Recipient:  recipient,
		Status:     status,
		Error:      errMsg,
	}
	if err := h.logs.Insert(ctx, entry); err != nil {
		h.logger.Warn("Failed to write notification log", zap.String("routing_key", routingKey), zap.Error(err))
	}
}
