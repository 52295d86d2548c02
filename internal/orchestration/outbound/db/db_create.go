package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

func (s *DB) CreateEvent(ctx context.Context, data entity.CreateEvent) (err error) {
	ctx, span := s.startSpan(ctx, "CreateEvent")
	defer func() { s.endSpan(span, err) }()

	if data.Payload == nil {
		data.Payload = valueobject.JSONMap{}
	}

	_, err = s.conn.Exec(ctx, queryInsertEvent,
		data.ID,
		data.EntityType,
		data.EntityID,
		data.EventType,
		data.ActorType,
		data.ActorID,
		data.Payload,
		data.CreatedAt,
	)

	return s.mapError(err)
}

func (s *DB) CreateRule(ctx context.Context, r entity.Rule) (err error) {
	ctx, span := s.startSpan(ctx, "CreateRule")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, queryInsertRule,
		r.ID,
		r.EventType,
		r.TemplateCode,
		channelsToText(r.Channels),
		r.IsActive,
		r.Priority,
		nullableJSON(r.Conditions),
		r.Description,
		r.CreatedAt,
		r.UpdatedAt,
	)

	return s.mapError(err)
}

// ClaimExecution inserts a pending row for (event, rule). The second return is
// false when another worker already holds the pair.
func (s *DB) ClaimExecution(ctx context.Context, in entity.ClaimExecution) (_ *entity.Execution, _ bool, err error) {
	ctx, span := s.startSpan(ctx, "ClaimExecution")
	defer func() { s.endSpan(span, err) }()

	row := s.conn.QueryRow(ctx, queryClaimExecution, in.ID, in.RuleID, in.EventID, in.ExecutedAt)

	exec, err := scanExecution(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.mapError(err)
	}

	return exec, true, nil
}

func (s *DB) CreateNotification(ctx context.Context, n entity.Notification) (err error) {
	ctx, span := s.startSpan(ctx, "CreateNotification")
	defer func() { s.endSpan(span, err) }()

	if n.Payload == nil {
		n.Payload = valueobject.JSONMap{}
	}

	_, err = s.conn.Exec(ctx, queryInsertNotification,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Payload,
		n.DossierID,
		n.CreatedAt,
	)

	return s.mapError(err)
}
