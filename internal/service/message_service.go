package service

import (
	"context"
	"fmt"
	"strings"

	eventsmq "bizportal/contracts/mq"
	"bizportal/internal/model"
	"bizportal/internal/repository"
	"bizportal/pkg/outbox"
	"bizportal/pkg/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ThreadCreateRequest struct {
	ClientID  int    `json:"client_id" validate:"required,gt=0"`
	ProjectID *int   `json:"project_id"`
	Subject   string `json:"subject" validate:"required,max=300"`
	Body      string `json:"body" validate:"max=20000"`
}

type SendMessageRequest struct {
	Body string `json:"body" validate:"required,max=20000"`
}

type MessageService struct {
	pool        *pgxpool.Pool
	messageRepo *repository.MessageRepository
	clientRepo  *repository.ClientRepository
	outboxRepo  *outbox.Repository
	logger      *zap.Logger
}

func NewMessageService(
	pool *pgxpool.Pool,
	messageRepo *repository.MessageRepository,
	clientRepo *repository.ClientRepository,
	outboxRepo *outbox.Repository,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		pool:        pool,
		messageRepo: messageRepo,
		clientRepo:  clientRepo,
		outboxRepo:  outboxRepo,
		logger:      logger,
	}
}

// ListThreads returns the threads visible to actor, optionally for one project.
func (s *MessageService) ListThreads(ctx context.Context, actor Actor, clientID, projectID int) ([]model.MessageThread, error) {
	if !actor.IsAdmin() {
		clientID = actor.ClientID
		if clientID == 0 {
			return []model.MessageThread{}, nil
		}
	}
	return s.messageRepo.ListThreads(ctx, actor.SenderType(), clientID, projectID)
}

func (s *MessageService) thread(ctx context.Context, actor Actor, threadID int) (*model.MessageThread, error) {
	t, err := s.messageRepo.GetThread(ctx, actor.SenderType(), threadID)
	if err != nil {
		return nil, notFound(err, "thread", threadID)
	}
	if err := actor.CanSee(t.ClientID); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *MessageService) Messages(ctx context.Context, actor Actor, threadID int) ([]model.Message, error) {
	if _, err := s.thread(ctx, actor, threadID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListMessages(ctx, threadID)
}

// CreateThread opens a thread and posts the first message when a body is given.
func (s *MessageService) CreateThread(ctx context.Context, actor Actor, req ThreadCreateRequest) (*model.MessageThread, error) {
	if !actor.IsAdmin() {
		req.ClientID = actor.ClientID
	}
	if err := Validate(req); err != nil {
		return nil, err
	}

	t := &model.MessageThread{
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		Subject:   strings.TrimSpace(req.Subject),
	}
	if err := s.messageRepo.CreateThread(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	if strings.TrimSpace(req.Body) != "" {
		if _, err := s.Send(ctx, actor, t.ID, SendMessageRequest{Body: req.Body}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Send stores a message and emits message.sent so the other side is notified.
func (s *MessageService) Send(ctx context.Context, actor Actor, threadID int, req SendMessageRequest) (*model.Message, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	t, err := s.thread(ctx, actor, threadID)
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.GetByID(ctx, t.ClientID)
	if err != nil {
		return nil, notFound(err, "client", t.ClientID)
	}

	senderName := actor.Name
	if senderName == "" && !actor.IsAdmin() {
		senderName = client.Name
	}

	msg := &model.Message{
		ThreadID:   threadID,
		SenderType: actor.SenderType(),
		SenderName: senderName,
		Body:       strings.TrimSpace(req.Body),
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := s.messageRepo.WithTx(tx).InsertMessage(ctx, msg); err != nil {
			return err
		}
		id := int64(msg.ID)
		return outbox.InsertEventInTx(ctx, tx, s.outboxRepo, eventsmq.AggregateMessage, &id, eventsmq.RoutingMessageSent,
			eventsmq.MessageSentPayload{
				MessageID:   msg.ID,
				ThreadID:    threadID,
				Subject:     t.Subject,
				SenderType:  msg.SenderType,
				SenderName:  msg.SenderName,
				Body:        msg.Body,
				ClientEmail: client.Email,
				ClientName:  client.Name,
				TraceID:     trace.FromContext(ctx),
			})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.logger.Info("Message sent",
		zap.Int("thread_id", threadID),
		zap.Int("message_id", msg.ID),
		zap.String("sender_type", msg.SenderType),
	)
	return msg, nil
}

// MarkRead marks the other side's messages in the thread as read by actor.
func (s *MessageService) MarkRead(ctx context.Context, actor Actor, threadID int) (int64, error) {
	if _, err := s.thread(ctx, actor, threadID); err != nil {
		return 0, err
	}
	return s.messageRepo.MarkRead(ctx, threadID, actor.SenderType())
}
