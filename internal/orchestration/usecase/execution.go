package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
)

type ListExecutionsInput struct {
	Status  string `validate:"omitempty,oneof=pending succeeded failed"`
	RuleID  int64  `validate:"gte=0"`
	EventID int64  `validate:"gte=0"`
	Limit   int32  `validate:"omitempty,gte=1,lte=100"`
	Offset  int32  `validate:"gte=0"`
}

func (s *Usecase) ListExecutions(ctx context.Context, in ListExecutionsInput) (_ []entity.Execution, err error) {
	ctx, span := s.startSpan(ctx, "ListExecutions")
	defer span.End()

	if in.Limit == 0 {
		in.Limit = 20
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	items, err := s.repoDB.ListExecutions(ctx, entity.ExecutionFilter{
		Status:  entity.ExecutionStatus(in.Status),
		RuleID:  in.RuleID,
		EventID: in.EventID,
		Limit:   in.Limit,
		Offset:  in.Offset,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list executions", "error", err)
		return nil, goerror.NewServer(err)
	}

	return items, nil
}
