package db

const (
	eventColumns     = `id, entity_type, entity_id, event_type, actor_type, actor_id, payload, created_at`
	ruleColumns      = `id, event_type, template_code, channels, is_active, priority, conditions, description, created_at, updated_at`
	executionColumns = `id, rule_id, event_id, status, success, error_message, retry_count, outcomes, executed_at, updated_at`

	queryInsertEvent = `
INSERT INTO events (` + eventColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryGetEvent = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	queryListUnprocessedEvents = `
SELECT ` + eventColumns + `
FROM events e
WHERE e.created_at >= $1
  AND NOT EXISTS (SELECT 1 FROM rule_executions re WHERE re.event_id = e.id)
ORDER BY e.created_at, e.id
LIMIT $2`

	queryInsertRule = `
INSERT INTO notification_rules (` + ruleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)`

	queryGetRule = `SELECT ` + ruleColumns + ` FROM notification_rules WHERE id = $1`

	queryListRulesByEventType = `
SELECT ` + ruleColumns + `
FROM notification_rules
WHERE event_type = $1
ORDER BY priority DESC, id`

	queryListRules = `
SELECT ` + ruleColumns + `
FROM notification_rules
WHERE ($1::text = '' OR event_type = $1)
  AND ($2::boolean IS NULL OR is_active = $2)
  AND ($3::text = '' OR $3 = ANY (channels))
ORDER BY priority DESC, id`

	queryUpdateRule = `
UPDATE notification_rules
SET event_type = $2, template_code = $3, channels = $4, is_active = $5, priority = $6,
    conditions = $7::jsonb, description = $8, updated_at = $9
WHERE id = $1`

	queryDeleteRule = `DELETE FROM notification_rules WHERE id = $1`

	queryClaimExecution = `
INSERT INTO rule_executions (id, rule_id, event_id, status, executed_at, updated_at)
VALUES ($1, $2, $3, 'pending', $4, $4)
ON CONFLICT (event_id, rule_id) DO NOTHING
RETURNING ` + executionColumns

	queryCompleteExecution = `
UPDATE rule_executions
SET status = $2, success = $3, error_message = $4, outcomes = $5, updated_at = $6
WHERE id = $1`

	queryRetryExecution = `
UPDATE rule_executions
SET status = 'pending', retry_count = retry_count + 1, updated_at = $3
WHERE id = $1 AND retry_count = $2 AND status <> 'succeeded'`

	queryListRetryCandidates = `
SELECT ` + executionColumns + `
FROM rule_executions
WHERE retry_count < $1
  AND (status = 'failed' OR (status = 'pending' AND updated_at < $2))
ORDER BY executed_at, id
LIMIT $3`

	queryListExecutions = `
SELECT ` + executionColumns + `
FROM rule_executions
WHERE ($1::text = '' OR status = $1)
  AND ($2::bigint = 0 OR rule_id = $2)
  AND ($3::bigint = 0 OR event_id = $3)
ORDER BY executed_at DESC, id DESC
LIMIT $4 OFFSET $5`

	queryCountStats = `
SELECT
    (SELECT count(*) FROM notification_rules WHERE is_active),
    (SELECT count(*) FROM events WHERE created_at >= $1),
    (SELECT count(*) FROM rule_executions WHERE executed_at >= $1),
    (SELECT count(*) FROM rule_executions WHERE executed_at >= $1 AND status = 'succeeded'),
    (SELECT count(*) FROM rule_executions WHERE executed_at >= $1 AND status <> 'pending'),
    (SELECT count(*) FROM notifications WHERE created_at >= $1)`

	queryInsertNotification = `
INSERT INTO notifications (id, user_id, type, title, message, payload, dossier_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	queryListNotifications = `
SELECT id, user_id, type, title, message, payload, dossier_id, read_at, created_at
FROM notifications
WHERE user_id = $1
  AND ($2::text = 'all'
       OR ($2 = 'unread' AND read_at IS NULL)
       OR ($2 = 'read' AND read_at IS NOT NULL))
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`

	queryMarkNotificationRead = `
UPDATE notifications
SET read_at = COALESCE(read_at, $3)
WHERE id = $1 AND user_id = $2`

	queryFindDossierOwner = `SELECT user_id FROM dossiers WHERE id = $1`

	queryListAgentUsers = `SELECT user_id FROM agent_users WHERE agent_id = $1 ORDER BY user_id`

	queryListRecipients = `
SELECT id, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(full_name, '')
FROM users
WHERE id = ANY ($1)`
)
