package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

// matchRules returns the active rules for the event type whose condition holds,
// highest priority first. Every returned rule fires.
func (s *Usecase) matchRules(ctx context.Context, ev entity.Event) ([]entity.Rule, error) {
	rules, err := s.repoDB.ListRulesByEventType(ctx, ev.EventType)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list rules by event type", "event_type", ev.EventType, "error", err)
		return nil, err
	}

	matched := make([]entity.Rule, 0, len(rules))
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}

		ok, err := evaluateRule(rule, ev.Payload)
		if err != nil {
			slog.WarnContext(ctx, "rule condition is invalid, treated as non-matching", "rule_id", rule.ID, "error", err)
			continue
		}
		if ok {
			matched = append(matched, rule)
		}
	}

	entity.SortRules(matched)

	return matched, nil
}

func evaluateRule(rule entity.Rule, payload valueobject.JSONMap) (bool, error) {
	cond, err := entity.ParseCondition(rule.Conditions)
	if err != nil {
		return false, err
	}
	return cond.Match(payload), nil
}
