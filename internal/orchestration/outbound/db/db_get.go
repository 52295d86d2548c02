package db

import (
	"context"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
)

func (s *DB) GetEvent(ctx context.Context, id int64) (_ *entity.Event, err error) {
	ctx, span := s.startSpan(ctx, "GetEvent")
	defer func() { s.endSpan(span, err) }()

	ev, err := scanEvent(s.conn.QueryRow(ctx, queryGetEvent, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return ev, nil
}

// ListUnprocessedEvents returns events created since in.Since that no rule
// execution references yet, oldest first.
func (s *DB) ListUnprocessedEvents(ctx context.Context, in entity.ScanEvents) (_ []entity.Event, err error) {
	ctx, span := s.startSpan(ctx, "ListUnprocessedEvents")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListUnprocessedEvents, in.Since, in.Limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	events, err := collect(rows, scanEvent)
	if err != nil {
		return nil, s.mapError(err)
	}

	return events, nil
}

func (s *DB) ListRulesByEventType(ctx context.Context, et entity.EventType) (_ []entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "ListRulesByEventType")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListRulesByEventType, et)
	if err != nil {
		return nil, s.mapError(err)
	}

	rules, err := collect(rows, scanRule)
	if err != nil {
		return nil, s.mapError(err)
	}

	return rules, nil
}

func (s *DB) ListRules(ctx context.Context, f entity.RuleFilter) (_ []entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "ListRules")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListRules, f.EventType.String(), f.IsActive, f.Channel.String())
	if err != nil {
		return nil, s.mapError(err)
	}

	rules, err := collect(rows, scanRule)
	if err != nil {
		return nil, s.mapError(err)
	}

	return rules, nil
}

func (s *DB) GetRule(ctx context.Context, id int64) (_ *entity.Rule, err error) {
	ctx, span := s.startSpan(ctx, "GetRule")
	defer func() { s.endSpan(span, err) }()

	r, err := scanRule(s.conn.QueryRow(ctx, queryGetRule, id))
	if err != nil {
		return nil, s.mapError(err)
	}

	return r, nil
}

// ListRetryCandidates returns failed executions still under the retry budget
// together with pending ones abandoned before in.StaleBefore.
func (s *DB) ListRetryCandidates(ctx context.Context, in entity.RetryCandidates) (_ []entity.Execution, err error) {
	ctx, span := s.startSpan(ctx, "ListRetryCandidates")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListRetryCandidates, in.MaxRetryCount, in.StaleBefore, in.Limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	execs, err := collect(rows, scanExecution)
	if err != nil {
		return nil, s.mapError(err)
	}

	return execs, nil
}

func (s *DB) ListExecutions(ctx context.Context, f entity.ExecutionFilter) (_ []entity.Execution, err error) {
	ctx, span := s.startSpan(ctx, "ListExecutions")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListExecutions, f.Status.String(), f.RuleID, f.EventID, f.Limit, f.Offset)
	if err != nil {
		return nil, s.mapError(err)
	}

	execs, err := collect(rows, scanExecution)
	if err != nil {
		return nil, s.mapError(err)
	}

	return execs, nil
}

func (s *DB) CountStats(ctx context.Context, since time.Time) (_ entity.StatsCounts, err error) {
	ctx, span := s.startSpan(ctx, "CountStats")
	defer func() { s.endSpan(span, err) }()

	var c entity.StatsCounts
	err = s.conn.QueryRow(ctx, queryCountStats, since).Scan(
		&c.ActiveRules,
		&c.Events,
		&c.Executions,
		&c.SucceededExecutions,
		&c.CompletedExecutions,
		&c.NotificationsCreated,
	)
	if err != nil {
		return entity.StatsCounts{}, s.mapError(err)
	}

	return c, nil
}

func (s *DB) ListNotifications(ctx context.Context, f entity.InboxFilter) (_ []entity.Notification, err error) {
	ctx, span := s.startSpan(ctx, "ListNotifications")
	defer func() { s.endSpan(span, err) }()

	status := f.Status
	if status == "" {
		status = entity.NotificationStatusAll
	}

	rows, err := s.conn.Query(ctx, queryListNotifications, f.UserID, string(status), f.Limit, f.Offset)
	if err != nil {
		return nil, s.mapError(err)
	}

	items, err := collect(rows, scanNotification)
	if err != nil {
		return nil, s.mapError(err)
	}

	return items, nil
}

func (s *DB) FindDossierOwner(ctx context.Context, dossierID string) (_ string, err error) {
	ctx, span := s.startSpan(ctx, "FindDossierOwner")
	defer func() { s.endSpan(span, err) }()

	var userID string
	if err = s.conn.QueryRow(ctx, queryFindDossierOwner, dossierID).Scan(&userID); err != nil {
		return "", s.mapError(err)
	}

	return userID, nil
}

func (s *DB) ListAgentUsers(ctx context.Context, agentID string) (_ []string, err error) {
	ctx, span := s.startSpan(ctx, "ListAgentUsers")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, queryListAgentUsers, agentID)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	users := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, s.mapError(err)
		}
		users = append(users, id)
	}
	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return users, nil
}

// ListRecipients loads contact details for userIDs. Unknown ids are absent
// from the result rather than an error.
func (s *DB) ListRecipients(ctx context.Context, userIDs []string) (_ []entity.Recipient, err error) {
	ctx, span := s.startSpan(ctx, "ListRecipients")
	defer func() { s.endSpan(span, err) }()

	if len(userIDs) == 0 {
		return []entity.Recipient{}, nil
	}

	rows, err := s.conn.Query(ctx, queryListRecipients, userIDs)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	out := make([]entity.Recipient, 0, len(userIDs))
	for rows.Next() {
		var r entity.Recipient
		if err = rows.Scan(&r.UserID, &r.Email, &r.Phone, &r.FullName); err != nil {
			return nil, s.mapError(err)
		}
		out = append(out, r)
	}
	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return out, nil
}
