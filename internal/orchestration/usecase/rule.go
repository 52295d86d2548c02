package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

// ruleDefinition is the validated shape shared by create and update.
type ruleDefinition struct {
	EventType    string          `validate:"required,upper_snake,max=64"`
	TemplateCode string          `validate:"required,upper_snake,max=64"`
	Channels     []string        `validate:"required,min=1,dive,oneof=EMAIL WHATSAPP IN_APP SMS"`
	IsActive     bool            `validate:"-"`
	Priority     int32           `validate:"gte=0"`
	Conditions   json.RawMessage `validate:"-"`
	Description  string          `validate:"required,max=500"`
}

func (s *Usecase) validateRule(def *ruleDefinition) error {
	def.EventType = strings.ToUpper(strings.TrimSpace(def.EventType))
	def.TemplateCode = strings.ToUpper(strings.TrimSpace(def.TemplateCode))
	def.Description = strings.TrimSpace(def.Description)
	def.Channels = lo.Uniq(lo.Map(def.Channels, func(c string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(c))
	}))

	if err := s.validator.Validate(def); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if _, err := entity.ParseCondition(def.Conditions); err != nil {
		return goerror.NewInvalidInput(nil, "conditions", err.Error())
	}
	if isJSONNull(def.Conditions) {
		def.Conditions = nil
	}

	return nil
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func toChannels(raw []string) []entity.Channel {
	return lo.Map(raw, func(c string, _ int) entity.Channel { return entity.Channel(c) })
}

type CreateRuleInput struct {
	EventType    string
	TemplateCode string
	Channels     []string
	IsActive     *bool
	Priority     *int32
	Conditions   json.RawMessage
	Description  string
}

func (s *Usecase) CreateRule(ctx context.Context, in CreateRuleInput) (_ *entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "CreateRule")
	defer span.End()

	def := ruleDefinition{
		EventType:    in.EventType,
		TemplateCode: in.TemplateCode,
		Channels:     in.Channels,
		IsActive:     lo.FromPtrOr(in.IsActive, true),
		Priority:     lo.FromPtr(in.Priority),
		Conditions:   in.Conditions,
		Description:  in.Description,
	}
	if err := s.validateRule(&def); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rule := entity.Rule{
		ID:           s.uid.Generate(),
		EventType:    entity.EventType(def.EventType),
		TemplateCode: def.TemplateCode,
		Channels:     toChannels(def.Channels),
		IsActive:     def.IsActive,
		Priority:     def.Priority,
		Conditions:   def.Conditions,
		Description:  def.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repoDB.CreateRule(ctx, rule); err != nil {
		slog.ErrorContext(ctx, "failed to repo create rule", "event_type", rule.EventType, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &rule, nil
}

type GetRuleInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) GetRule(ctx context.Context, in GetRuleInput) (_ *entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "GetRule")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	return s.findRule(ctx, in.ID)
}

func (s *Usecase) findRule(ctx context.Context, id int64) (*entity.Rule, error) {
	rule, err := s.repoDB.GetRule(ctx, id)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("rule not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get rule", "rule_id", id, "error", err)
		return nil, goerror.NewServer(err)
	}

	return rule, nil
}

type ListRulesInput struct {
	EventType string `validate:"omitempty,upper_snake,max=64"`
	IsActive  *bool  `validate:"-"`
	Channel   string `validate:"omitempty,oneof=EMAIL WHATSAPP IN_APP SMS"`
}

func (s *Usecase) ListRules(ctx context.Context, in ListRulesInput) (_ []entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "ListRules")
	defer span.End()

	in.EventType = strings.ToUpper(strings.TrimSpace(in.EventType))
	in.Channel = strings.ToUpper(strings.TrimSpace(in.Channel))

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	rules, err := s.repoDB.ListRules(ctx, entity.RuleFilter{
		EventType: entity.EventType(in.EventType),
		IsActive:  in.IsActive,
		Channel:   entity.Channel(in.Channel),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list rules", "error", err)
		return nil, goerror.NewServer(err)
	}

	return rules, nil
}

type UpdateRuleInput struct {
	ID           int64
	EventType    *string
	TemplateCode *string
	Channels     []string
	IsActive     *bool
	Priority     *int32
	Conditions   *json.RawMessage
	Description  *string
}

// UpdateRule applies only the fields present and re-validates the merged rule.
func (s *Usecase) UpdateRule(ctx context.Context, in UpdateRuleInput) (_ *entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "UpdateRule")
	defer span.End()

	if in.ID <= 0 {
		return nil, goerror.NewInvalidInput(nil, "id", "id must be greater than 0")
	}

	current, err := s.findRule(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	def := ruleDefinition{
		EventType:    lo.FromPtrOr(in.EventType, current.EventType.String()),
		TemplateCode: lo.FromPtrOr(in.TemplateCode, current.TemplateCode),
		Channels:     lo.Map(current.Channels, func(c entity.Channel, _ int) string { return c.String() }),
		IsActive:     lo.FromPtrOr(in.IsActive, current.IsActive),
		Priority:     lo.FromPtrOr(in.Priority, current.Priority),
		Conditions:   lo.FromPtrOr(in.Conditions, current.Conditions),
		Description:  lo.FromPtrOr(in.Description, current.Description),
	}
	if in.Channels != nil {
		def.Channels = in.Channels
	}

	if err := s.validateRule(&def); err != nil {
		return nil, err
	}

	up := entity.UpdateRule{
		ID:           current.ID,
		EventType:    entity.EventType(def.EventType),
		TemplateCode: def.TemplateCode,
		Channels:     toChannels(def.Channels),
		IsActive:     def.IsActive,
		Priority:     def.Priority,
		Conditions:   def.Conditions,
		Description:  def.Description,
		UpdatedAt:    s.clock.Now(),
	}

	err = s.repoDB.UpdateRule(ctx, up)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.NewBusiness("rule not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo update rule", "rule_id", in.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &entity.Rule{
		ID:           up.ID,
		EventType:    up.EventType,
		TemplateCode: up.TemplateCode,
		Channels:     up.Channels,
		IsActive:     up.IsActive,
		Priority:     up.Priority,
		Conditions:   up.Conditions,
		Description:  up.Description,
		CreatedAt:    current.CreatedAt,
		UpdatedAt:    up.UpdatedAt,
	}, nil
}

type DeleteRuleInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) DeleteRule(ctx context.Context, in DeleteRuleInput) error {
	ctx, span := s.startSpan(ctx, "DeleteRule")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	err := s.repoDB.DeleteRule(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("rule not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo delete rule", "rule_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}
