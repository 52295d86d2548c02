package inbound

import (
	"context"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
)

type ucTrigger interface {
	ProcessEvents(ctx context.Context, in usecase.ProcessEventsInput) (*usecase.ProcessReport, error)
	RetryFailedExecutions(ctx context.Context, in usecase.RetryExecutionsInput) (*usecase.RetryReport, error)
}

type ucEvent interface {
	IngestEvent(ctx context.Context, in usecase.IngestEventInput) (*entity.Event, error)
	GetEvent(ctx context.Context, in usecase.GetEventInput) (*entity.Event, error)
}

type ucStream interface {
	StreamNotifications(ctx context.Context, userID string) <-chan usecase.StreamEvent
}

type uc interface {
	ucTrigger
	ucEvent
	ucStream

	CreateRule(ctx context.Context, in usecase.CreateRuleInput) (*entity.Rule, error)
	GetRule(ctx context.Context, in usecase.GetRuleInput) (*entity.Rule, error)
	ListRules(ctx context.Context, in usecase.ListRulesInput) ([]entity.Rule, error)
	UpdateRule(ctx context.Context, in usecase.UpdateRuleInput) (*entity.Rule, error)
	DeleteRule(ctx context.Context, in usecase.DeleteRuleInput) error
	TestRule(ctx context.Context, in usecase.TestRuleInput) (*entity.DryRunResult, error)

	ListExecutions(ctx context.Context, in usecase.ListExecutionsInput) ([]entity.Execution, error)
	Stats(ctx context.Context) (*entity.Stats, error)

	ListInbox(ctx context.Context, in usecase.ListInboxInput) ([]entity.Notification, error)
	MarkInboxRead(ctx context.Context, in usecase.MarkInboxReadInput) error
}
