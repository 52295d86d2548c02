package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

type TestRuleInput struct {
	RuleID     int64               `validate:"required,gt=0"`
	EventType  string              `validate:"omitempty,upper_snake,max=64"`
	EntityType string              `validate:"max=64"`
	EntityID   string              `validate:"max=128"`
	Payload    valueobject.JSONMap `validate:"-"`
}

// TestRule evaluates a rule against a sample event and previews every channel.
// Nothing is persisted and nothing is dispatched.
func (s *Usecase) TestRule(ctx context.Context, in TestRuleInput) (_ *entity.DryRunResult, err error) {
	ctx, span := s.startSpan(ctx, "TestRule")
	defer span.End()

	in.EventType = strings.ToUpper(strings.TrimSpace(in.EventType))
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rule, err := s.findRule(ctx, in.RuleID)
	if err != nil {
		return nil, err
	}

	eventType := entity.EventType(in.EventType)
	if eventType == "" {
		eventType = rule.EventType
	}

	res := &entity.DryRunResult{
		IsActive:         rule.IsActive,
		EventTypeMatches: eventType == rule.EventType,
	}

	condMatched, condErr := evaluateRule(*rule, in.Payload)
	res.Matched = condErr == nil && res.EventTypeMatches && condMatched
	res.WouldFire = res.Matched && rule.IsActive

	switch {
	case condErr != nil:
		res.Reason = "conditions are invalid: " + condErr.Error()
	case !res.EventTypeMatches:
		res.Reason = "event type " + eventType.String() + " does not match rule event type " + rule.EventType.String()
	case !condMatched:
		res.Reason = "conditions do not match the sample payload"
	case !rule.IsActive:
		res.Reason = "rule matches but is inactive"
	default:
		res.Reason = "rule matches and would fire"
	}

	ev := entity.Event{
		EventType:  eventType,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
		ActorType:  entity.ActorTypeSystem,
		Payload:    in.Payload,
		CreatedAt:  s.clock.Now(),
	}
	content := RenderContent(rule.TemplateCode, ev.EntityType, ev.EntityID, ev.Payload, s.conf.AppBaseURL)

	sample := entity.Recipient{
		UserID:   in.Payload.LookupString("user_id"),
		Email:    in.Payload.LookupString("email"),
		Phone:    in.Payload.LookupString("phone"),
		FullName: in.Payload.LookupString("full_name"),
	}

	for _, ch := range rule.Channels {
		preview := entity.Preview{
			Channel:   ch,
			Title:     content.Title,
			Message:   content.Message,
			ActionURL: content.ActionURL,
		}

		if pv, ok := s.senders[ch].(channelPreviewer); ok {
			p, err := pv.Preview(entity.Delivery{Channel: ch, Recipient: sample, Content: content, Event: ev, Rule: *rule})
			if err != nil {
				slog.WarnContext(ctx, "failed to build channel preview", "rule_id", rule.ID, "channel", ch, "error", err)
			} else {
				preview.Subject = p.Subject
				preview.HTML = p.HTML
				preview.To = p.To
			}
		}

		res.Previews = append(res.Previews, preview)
	}

	return res, nil
}
