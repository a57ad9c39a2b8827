package dashboard

import (
	"context"
	"testing"

	"bizportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessaging_SelectThreadMarksRead(t *testing.T) {
	api := newFakeAPI()
	api.messages[5] = []model.Message{
		{ID: 1, ThreadID: 5, SenderType: model.SenderClient, Body: "hello"},
		{ID: 2, ThreadID: 5, SenderType: model.SenderAdmin, Body: "hi"},
	}
	m := NewMessaging(api)

	conv, err := m.SelectThread(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, conv.ThreadID)
	require.Len(t, conv.Bubbles, 2)
	assert.Equal(t, "left", conv.Bubbles[0].Align)
	assert.Equal(t, "right", conv.Bubbles[1].Align)
	assert.Equal(t, []int{5}, api.readThread)
}

func TestMessaging_SendThenReload(t *testing.T) {
	api := newFakeAPI()
	m := NewMessaging(api)

	conv, err := m.Send(context.Background(), 5, "Your site is live")
	require.NoError(t, err)
	require.Len(t, conv.Bubbles, 1)
	assert.Equal(t, "Your site is live", conv.Bubbles[0].Message.Body)
	assert.Equal(t, []string{"SendMessage", "ThreadMessages"}, api.callLog())
}

func TestMessaging_SendFailureDoesNotAppend(t *testing.T) {
	api := newFakeAPI()
	api.setFail("SendMessage", errBoom)
	m := NewMessaging(api)

	_, err := m.Send(context.Background(), 5, "hello")
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, m.Conversation().Bubbles)
	assert.Zero(t, api.callCount("ThreadMessages"))
}

func TestMessaging_EmptyBody(t *testing.T) {
	m := NewMessaging(newFakeAPI())
	_, err := m.Send(context.Background(), 5, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
