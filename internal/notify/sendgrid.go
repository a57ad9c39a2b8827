package notify

import (
	"context"
	"fmt"
	"net/http"

	"bizportal/pkg/circuitbreaker"
	"bizportal/pkg/util"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridSender sends through the SendGrid v3 API behind a circuit breaker.
// 4xx responses are permanent and do not count against the breaker.
type SendGridSender struct {
	client   mailClient
	fromName string
	from     string
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewSendGridSender(apiKey, fromName, fromEmail string, logger *zap.Logger) *SendGridSender {
	return newSendGridSender(sendgrid.NewSendClient(apiKey), fromName, fromEmail, logger)
}

func newSendGridSender(client mailClient, fromName, fromEmail string, logger *zap.Logger) *SendGridSender {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig())
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("SendGrid circuit breaker state changed",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	})
	return &SendGridSender{
		client:   client,
		fromName: fromName,
		from:     fromEmail,
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, email Email) error {
	if email.ToEmail == "" {
		return fmt.Errorf("%w: empty recipient", util.ErrPermanent)
	}

	msg := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.from),
		email.Subject,
		mail.NewEmail(email.ToName, email.ToEmail),
		email.Text,
		email.HTML,
	)

	var rejected error
	err := s.breaker.Execute(func() error {
		resp, err := s.client.SendWithContext(ctx, msg)
		if err != nil {
			return fmt.Errorf("sendgrid request failed: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			rejected = fmt.Errorf("%w: sendgrid returned status %d: %s", util.ErrPermanent, resp.StatusCode, resp.Body)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if rejected != nil {
		return rejected
	}

	s.logger.Info("Email sent", zap.String("to", email.ToEmail), zap.String("subject", email.Subject))
	return nil
}
