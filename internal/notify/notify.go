// Package notify composes and delivers the worker's notification emails.
package notify

import (
	"context"

	"go.uber.org/zap"
)

type Email struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single email.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// LogSender only logs emails. Used when no SendGrid key is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, email Email) error {
	s.logger.Info("Email not sent (no provider configured)",
		zap.String("to", email.ToEmail),
		zap.String("subject", email.Subject),
	)
	return nil
}
