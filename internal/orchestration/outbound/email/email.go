package email

import (
	"bytes"
	"context"
	"html/template"
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const layout = `<!DOCTYPE html>
<html lang="fr">
<body style="font-family:Arial,sans-serif;color:#1f2937;">
  <h2 style="margin:0 0 16px;">{{.Title}}</h2>
  <p>{{if .FullName}}Bonjour {{.FullName}},{{else}}Bonjour,{{end}}</p>
  <p>{{.Message}}</p>
  {{- if .ActionURL}}
  <p><a href="{{.ActionURL}}" style="background:#2563eb;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none;">Voir le détail</a></p>
  {{- end}}
  <p style="font-size:12px;color:#6b7280;">{{.AppName}}</p>
</body>
</html>`

var tpl = template.Must(template.New("notification").Option("missingkey=zero").Parse(layout))

type Config struct {
	From    string
	AppName string
}

// Mail delivers EMAIL notifications. A nil client means no provider is
// configured and every send fails with entity.ErrChannelNotConfigured.
type Mail struct {
	client mail.Mail
	conf   Config
	ins    instrument.Instrumentation
}

func New(client mail.Mail, conf Config, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, conf: conf, ins: ins}
}

func (m *Mail) Send(ctx context.Context, d entity.Delivery) error {
	ctx, span := m.ins.Tracer("orchestration.outbound.email").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("recipient.user_id", d.Recipient.UserID),
		attribute.Int64("rule.id", d.Rule.ID),
	)

	msg, err := m.build(d)
	if err != nil {
		return err
	}
	if m.client == nil {
		return entity.ErrChannelNotConfigured
	}

	if err := m.client.Send(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (m *Mail) Preview(d entity.Delivery) (entity.Preview, error) {
	msg, err := m.build(d)
	if err != nil {
		return entity.Preview{}, err
	}

	return entity.Preview{
		Channel: entity.ChannelEmail,
		Subject: msg.Subject,
		HTML:    msg.HTMLBody,
		To:      strings.Join(msg.To, ", "),
	}, nil
}

func (m *Mail) build(d entity.Delivery) (mail.Message, error) {
	to := strings.TrimSpace(d.Recipient.Email)
	if to == "" {
		return mail.Message{}, entity.ErrChannelSkipped
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, map[string]any{
		"Title":     d.Content.Title,
		"Message":   d.Content.Message,
		"ActionURL": d.Content.ActionURL,
		"FullName":  strings.TrimSpace(d.Recipient.FullName),
		"AppName":   m.conf.AppName,
	}); err != nil {
		return mail.Message{}, err
	}

	return mail.Message{
		From:     m.conf.From,
		To:       []string{to},
		Subject:  d.Content.Title,
		TextBody: d.Content.Message,
		HTMLBody: buf.String(),
	}, nil
}
