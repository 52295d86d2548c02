package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/shared/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	destination string
	msg         messaging.OutgoingMessage
}

type fakePublisher struct {
	out []published
	err error
}

func (f *fakePublisher) Publish(_ context.Context, destination string, msg messaging.OutgoingMessage) error {
	if f.err != nil {
		return f.err
	}
	f.out = append(f.out, published{destination: destination, msg: msg})
	return nil
}

func delivery(phone string) entity.Delivery {
	return entity.Delivery{
		Channel:   entity.ChannelWhatsApp,
		Recipient: entity.Recipient{UserID: "u1", Phone: phone},
		Content:   entity.Content{Title: "Paiement confirmé", Message: "Merci !", ActionURL: "https://app.example.com/dashboard"},
		Event:     entity.Event{ID: 7},
		Rule:      entity.Rule{ID: 10, TemplateCode: "PAYMENT_CONFIRMATION"},
	}
}

func TestGateway_Send(t *testing.T) {
	t.Run("publishes normalised number", func(t *testing.T) {
		pub := &fakePublisher{}
		g := New(pub, "", instrument.NewNoop())

		require.NoError(t, g.Send(context.Background(), delivery("+33 6 12-34.56.78")))
		require.Len(t, pub.out, 1)
		assert.Equal(t, event.WhatsAppDestination, pub.out[0].destination)
		assert.Equal(t, "7:10:u1", string(pub.out[0].msg.Key))
		assert.Equal(t, "cID", pub.out[0].msg.Headers[0].Key)

		var msg event.WhatsAppMessage
		require.NoError(t, json.Unmarshal(pub.out[0].msg.Body, &msg))
		assert.Equal(t, "+33612345678", msg.To)
		assert.Equal(t, "PAYMENT_CONFIRMATION", msg.TemplateCode)
		assert.Equal(t, "Merci !\nhttps://app.example.com/dashboard", msg.Body)
	})

	t.Run("invalid numbers are skipped", func(t *testing.T) {
		pub := &fakePublisher{}
		g := New(pub, "wa", instrument.NewNoop())

		for _, phone := range []string{"", "0612345678", "+0123456789", "+331", "+33612345678901234"} {
			assert.ErrorIs(t, g.Send(context.Background(), delivery(phone)), entity.ErrChannelSkipped, phone)
		}
		assert.Empty(t, pub.out)
	})

	t.Run("no publisher", func(t *testing.T) {
		g := New(nil, "", instrument.NewNoop())
		assert.ErrorIs(t, g.Send(context.Background(), delivery("+33612345678")), entity.ErrChannelNotConfigured)
	})

	t.Run("publish error", func(t *testing.T) {
		boom := errors.New("nats: timeout")
		g := New(&fakePublisher{err: boom}, "", instrument.NewNoop())
		assert.ErrorIs(t, g.Send(context.Background(), delivery("+33612345678")), boom)
	})
}

func TestGateway_Preview(t *testing.T) {
	g := New(nil, "", instrument.NewNoop())

	p, err := g.Preview(delivery("+33612345678"))
	require.NoError(t, err)
	assert.Equal(t, "+33612345678", p.To)

	_, err = g.Preview(delivery("n/a"))
	assert.ErrorIs(t, err, entity.ErrChannelSkipped)
}
