package inbound

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
	"github.com/shandysiswandi/notifyflow/internal/shared/event"
)

const (
	keyOfCorrelationID   string = "cID"
	keyOfIdempotencyKey  string = "idempotency_key"
	tracerInboundMessage string = "orchestration.inbound.mq"
)

type MQHandler struct {
	uc   ucEvent
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID := messaging.HeaderValue(headers, keyOfCorrelationID); cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// IngestDomainEvent appends a published domain event to the event log.
// Malformed and rejected messages are acked. Server errors and keys still in
// progress are returned so the broker redelivers them.
func (h *MQHandler) IngestDomainEvent(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer(tracerInboundMessage).Start(ctx, "IngestDomainEvent")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: domain event", "msg_body", string(body))

	var payload event.DomainEventMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of domain event", "msg_body", string(body), "error", err)
		return nil
	}

	var data valueobject.JSONMap
	if len(payload.Payload) > 0 {
		if err := json.Unmarshal(payload.Payload, &data); err != nil {
			slog.ErrorContext(ctx, "failed to parse payload of domain event", "msg_body", string(body), "error", err)
			return nil
		}
	}

	// the broker key is a partition key shared by unrelated events, never a dedupe key
	key := payload.IdempotencyKey
	if key == "" {
		key = messaging.HeaderValue(msg.Headers(), keyOfIdempotencyKey)
	}

	_, err := h.uc.IngestEvent(ctx, usecase.IngestEventInput{
		IdempotencyKey: key,
		EntityType:     payload.EntityType,
		EntityID:       payload.EntityID,
		EventType:      payload.EventType,
		ActorType:      payload.ActorType,
		ActorID:        payload.ActorID,
		Payload:        data,
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, idempotency.ErrAlreadyInProgress) {
		slog.WarnContext(ctx, "domain event still being ingested, redelivering", "idempotency_key", key)
		return err
	}

	var gerr *goerror.Error
	if errors.As(err, &gerr) && gerr.Type() != goerror.TypeServer {
		slog.WarnContext(ctx, "domain event rejected", "msg_body", string(body), "error", err)
		return nil
	}

	slog.ErrorContext(ctx, "failed to ingest domain event", "msg_body", string(body), "error", err)
	return err
}
