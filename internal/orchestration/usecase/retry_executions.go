package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

type RetryExecutionsInput struct {
	Secret string
}

type RetryReport struct {
	Scanned   int
	Retried   int
	Succeeded int
	Failed    int
	Skipped   int
}

// RetryFailedExecutions re-drives failed executions under the retry budget and
// pending ones left behind by a crashed tick. Only (channel, recipient) pairs
// not already sent are dispatched again.
func (s *Usecase) RetryFailedExecutions(ctx context.Context, in RetryExecutionsInput) (_ *RetryReport, err error) {
	ctx, span := s.startSpan(ctx, "RetryFailedExecutions")
	defer span.End()

	if !s.verifySecret(in.Secret) {
		return nil, goerror.NewBusiness("invalid cron secret", goerror.CodeUnauthorized)
	}

	candidates, err := s.repoDB.ListRetryCandidates(ctx, entity.RetryCandidates{
		MaxRetryCount: s.conf.RetryMaxCount,
		StaleBefore:   s.clock.Now().Add(-s.conf.RetryStaleAfter),
		Limit:         s.conf.RetryBatchSize,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list retry candidates", "error", err)
		return nil, goerror.NewServer(err)
	}

	report := &RetryReport{Scanned: len(candidates)}
	for _, exec := range candidates {
		switch s.retryExecution(ctx, exec) {
		case ruleSucceeded:
			report.Retried++
			report.Succeeded++
		case ruleFailed:
			report.Retried++
			report.Failed++
		case ruleSkipped:
			report.Skipped++
		}
	}

	slog.InfoContext(ctx, "orchestration retry pass finished",
		"scanned", report.Scanned,
		"retried", report.Retried,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)

	return report, nil
}

// retryExecution takes the retry claim before any dispatch so that two
// overlapping passes never send the same pair twice. Reads happen first since
// they have no side effects; a claim left pending by a crash is picked up again
// once it goes stale.
func (s *Usecase) retryExecution(ctx context.Context, exec entity.Execution) ruleResult {
	ev, err := s.repoDB.GetEvent(ctx, exec.EventID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get event for retry", "execution_id", exec.ID, "event_id", exec.EventID, "error", err)
		return ruleSkipped
	}

	rule, err := s.repoDB.GetRule(ctx, exec.RuleID)
	ruleGone := errors.Is(err, goerror.ErrNotFound)
	if err != nil && !ruleGone {
		slog.ErrorContext(ctx, "failed to repo get rule for retry", "execution_id", exec.ID, "rule_id", exec.RuleID, "error", err)
		return ruleSkipped
	}

	claimed, err := s.repoDB.RetryExecution(ctx, entity.RetryExecution{
		ID:                 exec.ID,
		ExpectedRetryCount: exec.RetryCount,
		ClaimedAt:          s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo claim execution for retry", "execution_id", exec.ID, "error", err)
		return ruleFailed
	}
	if !claimed {
		slog.WarnContext(ctx, "execution retried concurrently", "execution_id", exec.ID)
		return ruleSkipped
	}

	var (
		outcomes = exec.Outcomes
		errMsg   *string
	)
	if ruleGone {
		msg := "rule no longer exists"
		errMsg = &msg
	} else {
		outcomes, errMsg = s.deliver(ctx, *ev, *rule, exec.Outcomes)
	}

	if err := s.repoDB.CompleteExecution(ctx, entity.CompleteExecution{
		ID:           exec.ID,
		Success:      errMsg == nil,
		ErrorMessage: errMsg,
		Outcomes:     outcomes,
		UpdatedAt:    s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo complete retried execution", "execution_id", exec.ID, "error", err)
		return ruleFailed
	}

	if errMsg != nil {
		return ruleFailed
	}
	return ruleSucceeded
}
