package service

import (
	"context"

	"bizportal/internal/model"
	"bizportal/internal/repository"

	"golang.org/x/sync/errgroup"
)

type AnalyticsService struct {
	repo *repository.AnalyticsRepository
}

func NewAnalyticsService(repo *repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// Summary runs the aggregate queries concurrently.
func (s *AnalyticsService) Summary(ctx context.Context) (*model.AnalyticsSummary, error) {
	var summary model.AnalyticsSummary
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		summary.LeadsByStatus, err = s.repo.LeadsByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary.LeadsBySource, err = s.repo.LeadsBySource(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary.ProjectsByStatus, err = s.repo.ProjectsByStatus(gctx)
		return err
	})
	g.Go(func() error {
		return s.repo.Counters(gctx, &summary)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.ConversionRate = ConversionRate(summary.LeadsByStatus)
	return &summary, nil
}

// ConversionRate is converted / all leads, as a percentage with one decimal.
func ConversionRate(byStatus map[string]int) float64 {
	total := 0
	for _, n := range byStatus {
		total += n
	}
	if total == 0 {
		return 0
	}
	rate := float64(byStatus[model.LeadStatusConverted]) / float64(total) * 100
	return float64(int(rate*10+0.5)) / 10
}
