package dashboard

import (
	"sync"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const SessionCookieName = "portal_dashboard"

// Session is one logged-in admin.
type Session struct {
	ID         string
	User       *model.User
	Client     *apiclient.Client
	Controller *Controller
	ExpiresAt  time.Time
}

// SessionManager keeps admin sessions in memory with a sliding expiry.
type SessionManager struct {
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	onDelete []func(id string)
}

func NewSessionManager(ttl time.Duration, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// NewID returns a fresh session id.
func (m *SessionManager) NewID() string {
	return uuid.NewString()
}

// OnDelete registers fn to run after a session is removed.
func (m *SessionManager) OnDelete(fn func(id string)) {
	m.mu.Lock()
	m.onDelete = append(m.onDelete, fn)
	m.mu.Unlock()
}

func (m *SessionManager) Put(s *Session) {
	s.ExpiresAt = m.now().Add(m.ttl)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("Dashboard session created", zap.String("session_id", s.ID), zap.Int("user_id", s.User.ID))
}

// Get returns a live session and extends its expiry.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && m.now().After(s.ExpiresAt) {
		m.mu.Unlock()
		m.Delete(id)
		return nil, false
	}
	if ok {
		s.ExpiresAt = m.now().Add(m.ttl)
	}
	m.mu.Unlock()
	return s, ok
}

func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	hooks := m.onDelete
	m.mu.Unlock()
	if !ok {
		return
	}

	s.Controller.Close()
	for _, fn := range hooks {
		fn(id)
	}
	m.logger.Info("Dashboard session ended", zap.String("session_id", id))
}

// List returns the sessions that are still live.
func (m *SessionManager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if now.Before(s.ExpiresAt) {
			out = append(out, s)
		}
	}
	return out
}

// Sweep removes expired sessions and returns how many were removed.
func (m *SessionManager) Sweep() int {
	m.mu.RLock()
	now := m.now()
	var expired []string
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range expired {
		m.Delete(id)
	}
	return len(expired)
}
