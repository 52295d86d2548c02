package inbound

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	body    []byte
	key     []byte
	headers []messaging.Header
}

func (m fakeMessage) Body() []byte                { return m.body }
func (m fakeMessage) Key() []byte                 { return m.key }
func (m fakeMessage) Headers() []messaging.Header { return m.headers }
func (m fakeMessage) Topic() string               { return "domain_event" }

// eventUC records ingestions; keys it has seen conflict like the real guard.
type eventUC struct {
	in     usecase.IngestEventInput
	cID    string
	err    error
	stored []usecase.IngestEventInput
	seen   map[string]bool
}

func (u *eventUC) IngestEvent(ctx context.Context, in usecase.IngestEventInput) (*entity.Event, error) {
	u.in = in
	u.cID = instrument.GetCorrelationID(ctx)
	if u.err != nil {
		return nil, u.err
	}
	if in.IdempotencyKey != "" {
		if u.seen[in.IdempotencyKey] {
			return nil, goerror.NewBusiness("event with this idempotency key was already ingested", goerror.CodeConflict)
		}
		if u.seen == nil {
			u.seen = make(map[string]bool)
		}
		u.seen[in.IdempotencyKey] = true
	}
	u.stored = append(u.stored, in)
	return &entity.Event{ID: int64(len(u.stored))}, nil
}

func (u *eventUC) GetEvent(context.Context, usecase.GetEventInput) (*entity.Event, error) {
	return nil, nil
}

func TestMQHandler_IngestDomainEvent(t *testing.T) {
	const body = `{"entity_type":"dossier","entity_id":"d-1","event_type":"STEP_COMPLETED","actor_type":"ADMIN","payload":{"dossier_id":"d-1"}}`

	t.Run("ingests with payload key and correlation id", func(t *testing.T) {
		uc := &eventUC{}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		err := h.IngestDomainEvent(context.Background(), fakeMessage{
			body:    []byte(`{"idempotency_key":"evt-9",` + body[1:]),
			key:     []byte("d-1"),
			headers: []messaging.Header{{Key: "cID", Value: []byte("corr-1")}},
		})
		require.NoError(t, err)
		assert.Equal(t, "evt-9", uc.in.IdempotencyKey)
		assert.Equal(t, "STEP_COMPLETED", uc.in.EventType)
		assert.Equal(t, "d-1", uc.in.Payload["dossier_id"])
		assert.Equal(t, "corr-1", uc.cID)
	})

	t.Run("partition key is not a dedupe key", func(t *testing.T) {
		uc := &eventUC{}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		first := `{"entity_type":"dossier","entity_id":"d-42","event_type":"STEP_COMPLETED","actor_type":"ADMIN"}`
		second := `{"entity_type":"dossier","entity_id":"d-42","event_type":"DOCUMENT_APPROVED","actor_type":"ADMIN"}`

		require.NoError(t, h.IngestDomainEvent(context.Background(), fakeMessage{body: []byte(first), key: []byte("d-42")}))
		require.NoError(t, h.IngestDomainEvent(context.Background(), fakeMessage{body: []byte(second), key: []byte("d-42")}))

		require.Len(t, uc.stored, 2)
		assert.Empty(t, uc.stored[0].IdempotencyKey)
		assert.Equal(t, "STEP_COMPLETED", uc.stored[0].EventType)
		assert.Equal(t, "DOCUMENT_APPROVED", uc.stored[1].EventType)
	})

	t.Run("header key used when payload has none", func(t *testing.T) {
		uc := &eventUC{}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		require.NoError(t, h.IngestDomainEvent(context.Background(), fakeMessage{
			body:    []byte(body),
			key:     []byte("msg-key"),
			headers: []messaging.Header{{Key: "idempotency_key", Value: []byte("hdr-key")}},
		}))
		assert.Equal(t, "hdr-key", uc.in.IdempotencyKey)
		assert.Equal(t, fixedUUID{}.Generate(), uc.cID)
	})

	t.Run("malformed body is dropped", func(t *testing.T) {
		uc := &eventUC{}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		assert.NoError(t, h.IngestDomainEvent(context.Background(), fakeMessage{body: []byte("{")}))
		assert.Empty(t, uc.in.EventType)
	})

	t.Run("business rejection is acked", func(t *testing.T) {
		uc := &eventUC{err: goerror.NewBusiness("event with this idempotency key was already ingested", goerror.CodeConflict)}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		assert.NoError(t, h.IngestDomainEvent(context.Background(), fakeMessage{body: []byte(body)}))
	})

	t.Run("server error is returned for redelivery", func(t *testing.T) {
		boom := goerror.NewServer(errors.New("db down"))
		uc := &eventUC{err: boom}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		assert.ErrorIs(t, h.IngestDomainEvent(context.Background(), fakeMessage{body: []byte(body)}), boom)
	})

	t.Run("key still in progress is redelivered", func(t *testing.T) {
		uc := &eventUC{err: errors.Join(
			goerror.NewBusiness("event with this idempotency key is being ingested", goerror.CodeConflict),
			idempotency.ErrAlreadyInProgress,
		)}
		h := &MQHandler{uc: uc, uuid: fixedUUID{}, ins: instrument.NewNoop()}

		err := h.IngestDomainEvent(context.Background(), fakeMessage{
			body:    []byte(body),
			headers: []messaging.Header{{Key: "idempotency_key", Value: []byte("hdr-key")}},
		})
		assert.ErrorIs(t, err, idempotency.ErrAlreadyInProgress)
	})
}
