package dashboard

import (
	"context"
	"errors"
	"time"

	"bizportal/internal/apiclient"
	"bizportal/pkg/metrics"

	"go.uber.org/zap"
)

// Refresher reloads the current tab of every connected session on a fixed
// interval and tells the browsers to re-fetch.
type Refresher struct {
	sessions *SessionManager
	hub      *Hub
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

func NewRefresher(sessions *SessionManager, hub *Hub, interval time.Duration, logger *zap.Logger) *Refresher {
	return &Refresher{
		sessions: sessions,
		hub:      hub,
		interval: interval,
		timeout:  30 * time.Second,
		logger:   logger,
	}
}

// Run blocks until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Dashboard refresher started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Dashboard refresher stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick refreshes every session once.
func (r *Refresher) Tick(ctx context.Context) {
	if n := r.sessions.Sweep(); n > 0 {
		r.logger.Info("Expired dashboard sessions removed", zap.Int("count", n))
	}

	for _, s := range r.sessions.List() {
		if r.hub.Count(s.ID) == 0 {
			metrics.IncrementRefresh("skipped_idle")
			continue
		}

		refreshCtx, cancel := context.WithTimeout(ctx, r.timeout)
		refreshed, err := s.Controller.Refresh(refreshCtx)
		cancel()
		if err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				r.sessions.Delete(s.ID)
				continue
			}
			r.logger.Warn("Auto-refresh failed", zap.String("session_id", s.ID), zap.Error(err))
			continue
		}
		if refreshed {
			r.hub.Notify(s.ID, Notification{Type: "refresh", Tab: s.Controller.Router().Current().Tab})
		}
	}
}
