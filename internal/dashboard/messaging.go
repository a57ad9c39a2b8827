package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"bizportal/internal/model"
)

var ErrEmptyMessage = errors.New("message body is empty")

// Bubble is one rendered message; admin messages sit on the right.
type Bubble struct {
	Message model.Message
	Align   string
}

type Conversation struct {
	ThreadID int
	Bubbles  []Bubble
}

// Messaging shows one thread at a time. Sending waits for the API and then
// reloads the whole thread.
type Messaging struct {
	api      API
	messages *Store[[]model.Message]

	mu       sync.Mutex
	threadID int
}

func NewMessaging(api API) *Messaging {
	return &Messaging{
		api:      api,
		messages: NewStore[[]model.Message]("messages"),
	}
}

// SelectThread loads the thread history and marks it read.
func (m *Messaging) SelectThread(ctx context.Context, threadID int) (Conversation, error) {
	m.mu.Lock()
	m.threadID = threadID
	m.mu.Unlock()

	if err := m.reload(ctx, threadID); err != nil {
		return Conversation{}, err
	}
	if err := m.api.MarkThreadRead(ctx, threadID); err != nil {
		return Conversation{}, err
	}
	return m.Conversation(), nil
}

func (m *Messaging) reload(ctx context.Context, threadID int) error {
	_, err := m.messages.Load(ctx, func(ctx context.Context) ([]model.Message, error) {
		return m.api.ThreadMessages(ctx, threadID)
	})
	return err
}

// Send posts body to the thread and reloads it once the API has accepted it.
func (m *Messaging) Send(ctx context.Context, threadID int, body string) (Conversation, error) {
	if strings.TrimSpace(body) == "" {
		return Conversation{}, ErrEmptyMessage
	}
	if err := m.api.SendMessage(ctx, threadID, body); err != nil {
		return Conversation{}, err
	}

	m.mu.Lock()
	m.threadID = threadID
	m.mu.Unlock()
	if err := m.reload(ctx, threadID); err != nil {
		return Conversation{}, err
	}
	return m.Conversation(), nil
}

// Conversation renders the cached thread.
func (m *Messaging) Conversation() Conversation {
	m.mu.Lock()
	threadID := m.threadID
	m.mu.Unlock()

	msgs, _ := m.messages.Get()
	bubbles := make([]Bubble, 0, len(msgs))
	for _, msg := range msgs {
		align := "left"
		if msg.SenderType == model.SenderAdmin {
			align = "right"
		}
		bubbles = append(bubbles, Bubble{Message: msg, Align: align})
	}
	return Conversation{ThreadID: threadID, Bubbles: bubbles}
}

// ThreadID is the selected thread, or 0.
func (m *Messaging) ThreadID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threadID
}
