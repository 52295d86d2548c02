package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

const statsRecentLimit = 10

// Stats summarises the last 24 hours of orchestration activity.
func (s *Usecase) Stats(ctx context.Context) (_ *entity.Stats, err error) {
	ctx, span := s.startSpan(ctx, "Stats")
	defer span.End()

	since := s.clock.Now().Add(-24 * time.Hour)

	counts, err := s.repoDB.CountStats(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo count stats", "since", since, "error", err)
		return nil, goerror.NewServer(err)
	}

	recent, err := s.repoDB.ListExecutions(ctx, entity.ExecutionFilter{Limit: statsRecentLimit})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list recent executions", "error", err)
		return nil, goerror.NewServer(err)
	}

	failed, err := s.repoDB.ListExecutions(ctx, entity.ExecutionFilter{Status: entity.ExecutionStatusFailed, Limit: statsRecentLimit})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list failed executions", "error", err)
		return nil, goerror.NewServer(err)
	}

	var rate float64
	if counts.CompletedExecutions > 0 {
		rate = float64(counts.SucceededExecutions) / float64(counts.CompletedExecutions)
	}

	return &entity.Stats{
		ActiveRules:          counts.ActiveRules,
		EventsLast24h:        counts.Events,
		ExecutionsLast24h:    counts.Executions,
		NotificationsLast24h: counts.NotificationsCreated,
		SuccessRate:          rate,
		RecentExecutions:     recent,
		FailedExecutions:     failed,
		Since:                since,
	}, nil
}
