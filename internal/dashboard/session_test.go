package dashboard

import (
	"testing"
	"time"

	"bizportal/internal/model"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func testSession(t *testing.T, m *SessionManager) *Session {
	t.Helper()
	c, _ := newTestController(t)
	s := &Session{ID: m.NewID(), User: &model.User{ID: 1}, Controller: c}
	m.Put(s)
	return s
}

func TestSessionManager_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager(time.Hour, zap.NewNop())
	m.now = func() time.Time { return now }

	var deleted []string
	m.OnDelete(func(id string) { deleted = append(deleted, id) })

	s := testSession(t, m)
	_, ok := m.Get(s.ID)
	assert.True(t, ok)

	// Get slides the expiry forward
	now = now.Add(50 * time.Minute)
	_, ok = m.Get(s.ID)
	assert.True(t, ok)
	now = now.Add(50 * time.Minute)
	_, ok = m.Get(s.ID)
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = m.Get(s.ID)
	assert.False(t, ok)
	assert.Equal(t, []string{s.ID}, deleted)
}

func TestSessionManager_Sweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := NewSessionManager(time.Hour, zap.NewNop())
	m.now = func() time.Time { return now }

	old := testSession(t, m)
	now = now.Add(30 * time.Minute)
	fresh := testSession(t, m)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, ok := m.Get(old.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)
	assert.Len(t, m.List(), 1)
}

func TestSessionManager_DeleteUnknownIsNoop(t *testing.T) {
	m := NewSessionManager(time.Hour, zap.NewNop())
	called := false
	m.OnDelete(func(string) { called = true })
	m.Delete("missing")
	assert.False(t, called)
}
