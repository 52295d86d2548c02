package db

import (
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
)

func scanEvent(row pgx.Row) (*entity.Event, error) {
	var ev entity.Event
	if err := row.Scan(
		&ev.ID,
		&ev.EntityType,
		&ev.EntityID,
		&ev.EventType,
		&ev.ActorType,
		&ev.ActorID,
		&ev.Payload,
		&ev.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ev, nil
}

func scanRule(row pgx.Row) (*entity.Rule, error) {
	var (
		r          entity.Rule
		channels   []string
		conditions []byte
	)
	if err := row.Scan(
		&r.ID,
		&r.EventType,
		&r.TemplateCode,
		&channels,
		&r.IsActive,
		&r.Priority,
		&conditions,
		&r.Description,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	r.Channels = channelsFromText(channels)
	if len(conditions) > 0 {
		r.Conditions = json.RawMessage(conditions)
	}

	return &r, nil
}

func scanExecution(row pgx.Row) (*entity.Execution, error) {
	var (
		e        entity.Execution
		outcomes []byte
	)
	if err := row.Scan(
		&e.ID,
		&e.RuleID,
		&e.EventID,
		&e.Status,
		&e.Success,
		&e.ErrorMessage,
		&e.RetryCount,
		&outcomes,
		&e.ExecutedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	e.Outcomes = entity.Outcomes{}
	if len(outcomes) > 0 {
		if err := json.Unmarshal(outcomes, &e.Outcomes); err != nil {
			return nil, err
		}
	}

	return &e, nil
}

func scanNotification(row pgx.Row) (*entity.Notification, error) {
	var n entity.Notification
	if err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Payload,
		&n.DossierID,
		&n.ReadAt,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

// collect drains rows with scan, closing rows on every path.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}

	return out, rows.Err()
}
