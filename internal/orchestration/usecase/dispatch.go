package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type senderFunc func(ctx context.Context, d entity.Delivery) error

func (f senderFunc) Send(ctx context.Context, d entity.Delivery) error {
	return f(ctx, d)
}

func (s *Usecase) sender(ch entity.Channel) ChannelSender {
	if ch == entity.ChannelInApp {
		return senderFunc(s.sendInApp)
	}
	return s.senders[ch]
}

// dispatch sends one delivery and classifies the result. It never returns an
// error: every failure becomes a failed outcome on the ledger.
func (s *Usecase) dispatch(ctx context.Context, d entity.Delivery) entity.ChannelOutcome {
	out := entity.ChannelOutcome{
		Channel: d.Channel,
		UserID:  d.Recipient.UserID,
	}

	var err error
	if snd := s.sender(d.Channel); snd == nil {
		err = entity.ErrChannelNotConfigured
	} else {
		out.Attempts, err = s.sendWithRetry(ctx, snd, d)
	}
	out.At = s.clock.Now()

	switch {
	case err == nil:
		out.Status = entity.OutcomeStatusSent
	case errors.Is(err, entity.ErrChannelSkipped):
		out.Status = entity.OutcomeStatusSkipped
		out.Error = err.Error()
	case errors.Is(err, entity.ErrChannelUnsupported):
		out.Status = entity.OutcomeStatusUnsupported
		out.Error = err.Error()
	default:
		out.Status = entity.OutcomeStatusFailed
		out.Error = err.Error()
		slog.WarnContext(ctx, "channel dispatch failed",
			"channel", d.Channel,
			"user_id", d.Recipient.UserID,
			"event_id", d.Event.ID,
			"rule_id", d.Rule.ID,
			"attempts", out.Attempts,
			"error", err,
		)
	}

	s.dispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", d.Channel.String()),
		attribute.String("status", out.Status.String()),
	))

	return out
}

// sendWithRetry retries transient sender errors with exponential backoff.
// Each attempt gets its own timeout. Skips, unsupported channels and missing
// configuration are returned at once.
func (s *Usecase) sendWithRetry(ctx context.Context, snd ChannelSender, d entity.Delivery) (int, error) {
	attempts := 0

	backoff := retry.WithMaxRetries(s.conf.DispatchMaxRetries, retry.NewExponential(s.conf.DispatchBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		actx, cancel := context.WithTimeout(ctx, s.conf.DispatchTimeout)
		defer cancel()

		err := snd.Send(actx, d)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, entity.ErrChannelSkipped),
			errors.Is(err, entity.ErrChannelUnsupported),
			errors.Is(err, entity.ErrChannelNotConfigured):
			return err
		default:
			return retry.RetryableError(err)
		}
	})

	return attempts, err
}

func (s *Usecase) sendInApp(ctx context.Context, d entity.Delivery) error {
	n := entity.Notification{
		ID:      s.uid.Generate(),
		UserID:  d.Recipient.UserID,
		Type:    d.Rule.TemplateCode,
		Title:   d.Content.Title,
		Message: d.Content.Message,
		Payload: valueobject.JSONMap{
			"action_url":  d.Content.ActionURL,
			"event_id":    strconv.FormatInt(d.Event.ID, 10),
			"rule_id":     strconv.FormatInt(d.Rule.ID, 10),
			"event_type":  d.Event.EventType.String(),
			"entity_type": d.Event.EntityType,
			"entity_id":   d.Event.EntityID,
		},
		DossierID: dossierOf(d.Event),
		CreatedAt: s.clock.Now(),
	}

	if err := s.repoDB.CreateNotification(ctx, n); err != nil {
		slog.ErrorContext(ctx, "failed to repo create notification", "user_id", n.UserID, "event_id", d.Event.ID, "error", err)
		return err
	}

	s.publishNotification(n)

	return nil
}

func dossierOf(ev entity.Event) *string {
	if id := ev.Payload.LookupString("dossier_id"); id != "" {
		return &id
	}
	if ev.EntityType == "dossier" && ev.EntityID != "" {
		id := ev.EntityID
		return &id
	}
	return nil
}
