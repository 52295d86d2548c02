package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

type IngestEventInput struct {
	IdempotencyKey string              `validate:"omitempty,max=128"`
	EntityType     string              `validate:"required,max=64"`
	EntityID       string              `validate:"required,max=128"`
	EventType      string              `validate:"required,upper_snake,max=64"`
	ActorType      string              `validate:"required,oneof=SYSTEM ADMIN AGENT CLIENT"`
	ActorID        *string             `validate:"omitempty,max=128"`
	Payload        valueobject.JSONMap `validate:"-"`
}

// IngestEvent appends an event to the log. With an idempotency key the
// append runs at most once per key for the configured TTL.
func (s *Usecase) IngestEvent(ctx context.Context, in IngestEventInput) (_ *entity.Event, err error) {
	ctx, span := s.startSpan(ctx, "IngestEvent")
	defer span.End()

	in.EntityType = strings.TrimSpace(in.EntityType)
	in.EntityID = strings.TrimSpace(in.EntityID)
	in.EventType = strings.ToUpper(strings.TrimSpace(in.EventType))
	in.ActorType = strings.ToUpper(strings.TrimSpace(in.ActorType))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Payload == nil {
		in.Payload = valueobject.JSONMap{}
	}

	ev := entity.CreateEvent{
		ID:         s.uid.Generate(),
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		EventType:  entity.EventType(in.EventType),
		ActorType:  entity.ActorType(in.ActorType),
		ActorID:    in.ActorID,
		Payload:    in.Payload,
		CreatedAt:  s.clock.Now(),
	}

	insert := func(ctx context.Context) error {
		if err := s.repoDB.CreateEvent(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "failed to repo create event", "event_type", ev.EventType, "entity_id", ev.EntityID, "error", err)
			return goerror.NewServer(err)
		}
		return nil
	}

	if in.IdempotencyKey == "" || s.idempotency == nil {
		if err := insert(ctx); err != nil {
			return nil, err
		}
	} else {
		err := s.idempotency.Exec(ctx, "event:"+in.IdempotencyKey, insert,
			idempotency.WithLockDuration(time.Minute),
			idempotency.WithStateTTL(s.conf.IdempotencyTTL),
			idempotency.WithReleaseOnError(isServerError),
		)
		switch {
		case errors.Is(err, idempotency.ErrAlreadyCompleted):
			return nil, goerror.NewBusiness("event with this idempotency key was already ingested", goerror.CodeConflict)
		case errors.Is(err, idempotency.ErrAlreadyInProgress):
			// still wraps the sentinel: a broker consumer redelivers instead of dropping
			return nil, errors.Join(
				goerror.NewBusiness("event with this idempotency key is being ingested", goerror.CodeConflict),
				idempotency.ErrAlreadyInProgress,
			)
		case errors.Is(err, idempotency.ErrAlreadyFailed):
			return nil, goerror.NewBusiness("a previous attempt with this idempotency key failed, use a new key", goerror.CodeConflict)
		case err != nil:
			var gerr *goerror.Error
			if errors.As(err, &gerr) {
				return nil, err
			}
			slog.ErrorContext(ctx, "failed to acquire idempotency key", "key", in.IdempotencyKey, "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return &entity.Event{
		ID:         ev.ID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		EventType:  ev.EventType,
		ActorType:  ev.ActorType,
		ActorID:    ev.ActorID,
		Payload:    ev.Payload,
		CreatedAt:  ev.CreatedAt,
	}, nil
}

// isServerError reports storage failures; their idempotency key is released so
// a redelivery inserts the event again.
func isServerError(err error) bool {
	var gerr *goerror.Error
	return errors.As(err, &gerr) && gerr.Type() == goerror.TypeServer
}

type GetEventInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) GetEvent(ctx context.Context, in GetEventInput) (_ *entity.Event, err error) {
	ctx, span := s.startSpan(ctx, "GetEvent")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	ev, err := s.repoDB.GetEvent(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("event not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get event", "event_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return ev, nil
}
