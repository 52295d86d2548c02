package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{
		conn: conn,
		ins:  ins,
	}
}

// - 23505 unique violation → goerror.ErrConflict
// - no rows → goerror.ErrNotFound
func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("orchestration.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func executionStatus(success bool) entity.ExecutionStatus {
	if success {
		return entity.ExecutionStatusSucceeded
	}
	return entity.ExecutionStatusFailed
}

func channelsToText(chs []entity.Channel) []string {
	out := make([]string, 0, len(chs))
	for _, ch := range chs {
		out = append(out, ch.String())
	}
	return out
}

func channelsFromText(raw []string) []entity.Channel {
	out := make([]entity.Channel, 0, len(raw))
	for _, r := range raw {
		out = append(out, entity.Channel(r))
	}
	return out
}

// nullableJSON keeps absent conditions as SQL NULL instead of a JSON null.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nonNilOutcomes(o entity.Outcomes) entity.Outcomes {
	if o == nil {
		return entity.Outcomes{}
	}
	return o
}
