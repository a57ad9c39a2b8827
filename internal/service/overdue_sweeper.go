package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OverdueSweeper persists the overdue status for past-due invoices on a cron schedule.
type OverdueSweeper struct {
	repo   InvoiceOverdueMarker
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

func NewOverdueSweeper(repo InvoiceOverdueMarker, logger *zap.Logger) *OverdueSweeper {
	return &OverdueSweeper{
		repo:   repo,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start schedules the sweep with a standard five-field cron spec.
func (s *OverdueSweeper) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Overdue sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Overdue sweeper scheduled", zap.String("spec", spec))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *OverdueSweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *OverdueSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}
	s.logger.Info("Overdue sweep finished", zap.Int64("marked_overdue", n))
	return n, nil
}
