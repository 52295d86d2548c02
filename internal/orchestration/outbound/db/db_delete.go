package db

import (
	"context"

	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

// DeleteRule removes the rule. Past executions keep their rule_id.
func (s *DB) DeleteRule(ctx context.Context, id int64) (err error) {
	ctx, span := s.startSpan(ctx, "DeleteRule")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, queryDeleteRule, id)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}
