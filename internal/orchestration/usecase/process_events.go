package usecase

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type ProcessEventsInput struct {
	Secret string
}

type ProcessReport struct {
	EventsScanned  int
	EventsFailed   int
	RulesProcessed int
	Succeeded      int
	Failed         int
	Skipped        int
}

type ruleResult int

const (
	ruleSucceeded ruleResult = iota
	ruleFailed
	ruleSkipped
)

func (r ruleResult) String() string {
	switch r {
	case ruleSucceeded:
		return "succeeded"
	case ruleFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// ProcessEvents scans the trailing window for events with no ledger row and
// runs every matching active rule once per (event, rule).
func (s *Usecase) ProcessEvents(ctx context.Context, in ProcessEventsInput) (_ *ProcessReport, err error) {
	ctx, span := s.startSpan(ctx, "ProcessEvents")
	defer span.End()

	if !s.verifySecret(in.Secret) {
		return nil, goerror.NewBusiness("invalid cron secret", goerror.CodeUnauthorized)
	}

	since := s.clock.Now().Add(-s.conf.Window)
	events, err := s.repoDB.ListUnprocessedEvents(ctx, entity.ScanEvents{Since: since, Limit: s.conf.BatchSize})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list unprocessed events", "since", since, "error", err)
		return nil, goerror.NewServer(err)
	}

	report := &ProcessReport{EventsScanned: len(events)}
	for _, ev := range events {
		if err := s.processEvent(ctx, ev, report); err != nil {
			report.EventsFailed++
			slog.ErrorContext(ctx, "failed to process event", "event_id", ev.ID, "event_type", ev.EventType, "error", err)
		}
	}

	slog.InfoContext(ctx, "orchestration tick finished",
		"events_scanned", report.EventsScanned,
		"events_failed", report.EventsFailed,
		"rules_processed", report.RulesProcessed,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)

	return report, nil
}

func (s *Usecase) processEvent(ctx context.Context, ev entity.Event, report *ProcessReport) error {
	rules, err := s.matchRules(ctx, ev)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		report.RulesProcessed++

		res := s.executeRule(ctx, ev, rule)
		switch res {
		case ruleSucceeded:
			report.Succeeded++
		case ruleFailed:
			report.Failed++
		case ruleSkipped:
			report.Skipped++
		}

		s.rulesProcessed.Add(ctx, 1, metric.WithAttributes(
			attribute.String("event_type", ev.EventType.String()),
			attribute.String("result", res.String()),
		))
	}

	return nil
}

// executeRule claims the (event, rule) ledger row before any dispatch so that
// overlapping ticks never deliver twice, then records the outcome.
func (s *Usecase) executeRule(ctx context.Context, ev entity.Event, rule entity.Rule) ruleResult {
	exec, claimed, err := s.repoDB.ClaimExecution(ctx, entity.ClaimExecution{
		ID:         s.uid.Generate(),
		RuleID:     rule.ID,
		EventID:    ev.ID,
		ExecutedAt: s.clock.Now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo claim execution", "event_id", ev.ID, "rule_id", rule.ID, "error", err)
		return ruleFailed
	}
	if !claimed {
		slog.WarnContext(ctx, "execution already recorded", "event_id", ev.ID, "rule_id", rule.ID)
		return ruleSkipped
	}

	outcomes, errMsg := s.deliver(ctx, ev, rule, nil)

	if err := s.repoDB.CompleteExecution(ctx, entity.CompleteExecution{
		ID:           exec.ID,
		Success:      errMsg == nil,
		ErrorMessage: errMsg,
		Outcomes:     outcomes,
		UpdatedAt:    s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo complete execution", "execution_id", exec.ID, "error", err)
		return ruleFailed
	}

	if errMsg != nil {
		slog.WarnContext(ctx, "rule execution failed", "event_id", ev.ID, "rule_id", rule.ID, "reason", *errMsg)
		return ruleFailed
	}

	return ruleSucceeded
}

// deliver resolves recipients, renders the content and dispatches every
// (channel, recipient) pair not already sent in previous. It returns the
// merged outcomes and a non-nil error message when the execution failed.
func (s *Usecase) deliver(ctx context.Context, ev entity.Event, rule entity.Rule, previous entity.Outcomes) (entity.Outcomes, *string) {
	recipients, err := s.resolveRecipients(ctx, ev)
	if err != nil {
		msg := "recipient resolution failed: " + err.Error()
		return previous, &msg
	}

	// channels removed from the rule since the last attempt no longer count
	previous = lo.Filter(previous, func(o entity.ChannelOutcome, _ int) bool {
		return rule.HasChannel(o.Channel)
	})

	content := RenderContent(rule.TemplateCode, ev.EntityType, ev.EntityID, ev.Payload, s.conf.AppBaseURL)

	fresh := make(entity.Outcomes, 0, len(rule.Channels)*len(recipients))
	for _, ch := range rule.Channels {
		for _, rcpt := range recipients {
			if previous.Delivered(ch, rcpt.UserID) {
				continue
			}

			fresh = append(fresh, s.dispatch(ctx, entity.Delivery{
				Channel:   ch,
				Recipient: rcpt,
				Content:   content,
				Event:     ev,
				Rule:      rule,
			}))
		}
	}

	merged := previous.Merge(fresh)
	if merged.HasFailure() {
		msg := merged.ErrorSummary()
		return merged, &msg
	}

	return merged, nil
}
