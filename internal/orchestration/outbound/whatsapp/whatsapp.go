package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/shared/event"
	"go.opentelemetry.io/otel/codes"
)

const keyOfCorrelationID string = "cID"

var e164 = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// Gateway hands WHATSAPP notifications to the messaging gateway through the
// broker. A nil publisher reports entity.ErrChannelNotConfigured.
type Gateway struct {
	client      messaging.Publisher
	destination string
	ins         instrument.Instrumentation
}

func New(client messaging.Publisher, destination string, ins instrument.Instrumentation) *Gateway {
	if destination == "" {
		destination = event.WhatsAppDestination
	}
	return &Gateway{client: client, destination: destination, ins: ins}
}

func (g *Gateway) Send(ctx context.Context, d entity.Delivery) error {
	ctx, span := g.ins.Tracer("orchestration.outbound.whatsapp").Start(ctx, "Send")
	defer span.End()

	msg, err := build(d)
	if err != nil {
		return err
	}
	if g.client == nil {
		return entity.ErrChannelNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if err := g.client.Publish(ctx, g.destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(fmt.Sprintf("%d:%d:%s", msg.EventID, msg.RuleID, msg.UserID)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (g *Gateway) Preview(d entity.Delivery) (entity.Preview, error) {
	msg, err := build(d)
	if err != nil {
		return entity.Preview{}, err
	}

	return entity.Preview{Channel: entity.ChannelWhatsApp, To: msg.To}, nil
}

func build(d entity.Delivery) (event.WhatsAppMessage, error) {
	phone := normalizePhone(d.Recipient.Phone)
	if !e164.MatchString(phone) {
		return event.WhatsAppMessage{}, entity.ErrChannelSkipped
	}

	body := d.Content.Message
	if d.Content.ActionURL != "" {
		body += "\n" + d.Content.ActionURL
	}

	return event.WhatsAppMessage{
		To:           phone,
		UserID:       d.Recipient.UserID,
		TemplateCode: d.Rule.TemplateCode,
		Title:        d.Content.Title,
		Body:         body,
		ActionURL:    d.Content.ActionURL,
		EventID:      d.Event.ID,
		RuleID:       d.Rule.ID,
	}, nil
}

// normalizePhone drops the spaces, dots and dashes people type in numbers.
func normalizePhone(raw string) string {
	return strings.NewReplacer(" ", "", ".", "", "-", "").Replace(strings.TrimSpace(raw))
}
