package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

func (s *DB) UpdateRule(ctx context.Context, r entity.UpdateRule) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateRule")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryUpdateRule,
		r.ID,
		r.EventType,
		r.TemplateCode,
		channelsToText(r.Channels),
		r.IsActive,
		r.Priority,
		nullableJSON(r.Conditions),
		r.Description,
		r.UpdatedAt,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

func (s *DB) CompleteExecution(ctx context.Context, in entity.CompleteExecution) (err error) {
	ctx, span := s.startSpan(ctx, "CompleteExecution")
	defer func() { s.endSpan(span, err) }()

	outcomes, err := json.Marshal(nonNilOutcomes(in.Outcomes))
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx, queryCompleteExecution,
		in.ID,
		executionStatus(in.Success).String(),
		in.Success,
		in.ErrorMessage,
		string(outcomes),
		in.UpdatedAt,
	)

	return s.mapError(err)
}

// RetryExecution moves an execution back to pending and bumps retry_count,
// only when retry_count still equals in.ExpectedRetryCount. It reports false
// when a concurrent retry already holds the row.
func (s *DB) RetryExecution(ctx context.Context, in entity.RetryExecution) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "RetryExecution")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryRetryExecution, in.ID, in.ExpectedRetryCount, in.ClaimedAt)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *DB) MarkNotificationRead(ctx context.Context, userID string, id int64, at time.Time) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkNotificationRead")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryMarkNotificationRead, id, userID, at)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
