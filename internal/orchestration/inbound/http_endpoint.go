package inbound

import (
	"strings"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
	"github.com/shandysiswandi/notifyflow/internal/pkg/router"
)

const (
	headerCronSecret     = "X-Cron-Secret"
	headerIdempotencyKey = "Idempotency-Key"
)

type HTTPEndpoint struct {
	uc          uc
	serviceName string
}

// triggerSecret reads the shared secret from X-Cron-Secret, falling back to
// a bearer Authorization header.
func triggerSecret(r *router.Request) string {
	if v := strings.TrimSpace(r.Header.Get(headerCronSecret)); v != "" {
		return v
	}

	p := strings.Fields(r.Header.Get("Authorization"))
	if len(p) == 2 && strings.EqualFold(p[0], "Bearer") {
		return p[1]
	}

	return ""
}

// CronStatus reports that the trigger endpoint is reachable.
// @Summary Trigger liveness
// @Tags Orchestration
// @Produce json
// @Success 200 {object} router.successResponse{data=CronStatusResponse} "Trigger status"
// @Router /api/v1/orchestration/cron [get]
func (h *HTTPEndpoint) CronStatus(*router.Request) (any, error) {
	return CronStatusResponse{Service: h.serviceName, Trigger: "orchestration", Status: "ok"}, nil
}

// ProcessEvents runs one orchestration tick.
// @Summary Run orchestration tick
// @Description Scans recent unprocessed events and fires every matching rule. Requires the shared trigger secret.
// @Tags Orchestration
// @Produce json
// @Param X-Cron-Secret header string false "Shared trigger secret"
// @Success 200 {object} router.successResponse{data=ProcessReportResponse} "Tick report"
// @Failure 401 {object} router.errorResponse "Invalid secret"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/orchestration/cron [post]
func (h *HTTPEndpoint) ProcessEvents(r *router.Request) (any, error) {
	report, err := h.uc.ProcessEvents(r.Context(), usecase.ProcessEventsInput{Secret: triggerSecret(r)})
	if err != nil {
		return nil, err
	}

	return toProcessReportResponse(report), nil
}

// RetryExecutions re-drives failed executions.
// @Summary Retry failed executions
// @Tags Orchestration
// @Produce json
// @Param X-Cron-Secret header string false "Shared trigger secret"
// @Success 200 {object} router.successResponse{data=RetryReportResponse} "Retry report"
// @Failure 401 {object} router.errorResponse "Invalid secret"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/orchestration/executions/retry [post]
func (h *HTTPEndpoint) RetryExecutions(r *router.Request) (any, error) {
	report, err := h.uc.RetryFailedExecutions(r.Context(), usecase.RetryExecutionsInput{Secret: triggerSecret(r)})
	if err != nil {
		return nil, err
	}

	return RetryReportResponse{
		Scanned:   report.Scanned,
		Retried:   report.Retried,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
	}, nil
}

// IngestEvent appends a domain event.
// @Summary Ingest event
// @Tags Orchestration
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Deduplicates retried submissions"
// @Param request body IngestEventRequest true "Event payload"
// @Success 201 {object} router.successResponse{data=EventResponse} "Created event"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 409 {object} router.errorResponse "Idempotency key already used"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/orchestration/events [post]
func (h *HTTPEndpoint) IngestEvent(r *router.Request) (any, error) {
	var req IngestEventRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	ev, err := h.uc.IngestEvent(r.Context(), usecase.IngestEventInput{
		IdempotencyKey: strings.TrimSpace(r.Header.Get(headerIdempotencyKey)),
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		EventType:      req.EventType,
		ActorType:      req.ActorType,
		ActorID:        req.ActorID,
		Payload:        req.Payload,
	})
	if err != nil {
		return nil, err
	}

	return IngestEventResponse{toEventResponse(ev)}, nil
}

// GetEvent returns one event.
// @Summary Get event
// @Tags Orchestration
// @Security BearerAuth
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} router.successResponse{data=EventResponse} "Event"
// @Failure 400 {object} router.errorResponse "Invalid id"
// @Failure 404 {object} router.errorResponse "Event not found"
// @Router /api/v1/orchestration/events/{id} [get]
func (h *HTTPEndpoint) GetEvent(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	ev, err := h.uc.GetEvent(r.Context(), usecase.GetEventInput{ID: id})
	if err != nil {
		return nil, err
	}

	return toEventResponse(ev), nil
}

// ListRules returns notification rules.
// @Summary List rules
// @Tags Orchestration
// @Security BearerAuth
// @Produce json
// @Param event_type query string false "Event type"
// @Param is_active query bool false "Active flag"
// @Param channel query string false "Channel"
// @Success 200 {object} router.successResponse{data=RulesResponse} "Rules"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/orchestration/rules [get]
func (h *HTTPEndpoint) ListRules(r *router.Request) (any, error) {
	isActive, err := r.GetQueryBool("is_active")
	if err != nil {
		return nil, err
	}

	rules, err := h.uc.ListRules(r.Context(), usecase.ListRulesInput{
		EventType: r.GetQuery("event_type"),
		IsActive:  isActive,
		Channel:   r.GetQuery("channel"),
	})
	if err != nil {
		return nil, err
	}

	resp := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		resp = append(resp, toRuleResponse(rule))
	}

	return RulesResponse{Rules: resp}, nil
}

// CreateRule creates a notification rule.
// @Summary Create rule
// @Tags Orchestration
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body CreateRuleRequest true "Rule payload"
// @Success 201 {object} router.successResponse{data=RuleResponse} "Created rule"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/orchestration/rules [post]
func (h *HTTPEndpoint) CreateRule(r *router.Request) (any, error) {
	var req CreateRuleRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	rule, err := h.uc.CreateRule(r.Context(), usecase.CreateRuleInput{
		EventType:    req.EventType,
		TemplateCode: req.TemplateCode,
		Channels:     req.Channels,
		IsActive:     req.IsActive,
		Priority:     req.Priority,
		Conditions:   req.Conditions,
		Description:  req.Description,
	})
	if err != nil {
		return nil, err
	}

	return CreateRuleResponse{toRuleResponse(*rule)}, nil
}

// GetRule returns one rule.
// @Summary Get rule
// @Tags Orchestration
// @Security BearerAuth
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} router.successResponse{data=RuleResponse} "Rule"
// @Failure 404 {object} router.errorResponse "Rule not found"
// @Router /api/v1/orchestration/rules/{id} [get]
func (h *HTTPEndpoint) GetRule(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	rule, err := h.uc.GetRule(r.Context(), usecase.GetRuleInput{ID: id})
	if err != nil {
		return nil, err
	}

	return toRuleResponse(*rule), nil
}

// UpdateRule partially updates a rule.
// @Summary Update rule
// @Tags Orchestration
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param request body UpdateRuleRequest true "Fields to change"
// @Success 200 {object} router.successResponse{data=RuleResponse} "Updated rule"
// @Failure 404 {object} router.errorResponse "Rule not found"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/orchestration/rules/{id} [patch]
func (h *HTTPEndpoint) UpdateRule(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req UpdateRuleRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	rule, err := h.uc.UpdateRule(r.Context(), usecase.UpdateRuleInput{
		ID:           id,
		EventType:    req.EventType,
		TemplateCode: req.TemplateCode,
		Channels:     req.Channels,
		IsActive:     req.IsActive,
		Priority:     req.Priority,
		Conditions:   req.Conditions,
		Description:  req.Description,
	})
	if err != nil {
		return nil, err
	}

	return toRuleResponse(*rule), nil
}

// DeleteRule deletes a rule.
// @Summary Delete rule
// @Tags Orchestration
// @Security BearerAuth
// @Param id path int true "Rule ID"
// @Success 204 "No Content"
// @Failure 404 {object} router.errorResponse "Rule not found"
// @Router /api/v1/orchestration/rules/{id} [delete]
func (h *HTTPEndpoint) DeleteRule(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.DeleteRule(r.Context(), usecase.DeleteRuleInput{ID: id})
}

// TestRule dry-runs a rule against a sample event.
// @Summary Dry-run rule
// @Description Evaluates the rule and renders a preview per channel. Nothing is sent or stored.
// @Tags Orchestration
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param request body TestRuleRequest true "Sample event"
// @Success 200 {object} router.successResponse{data=TestRuleResponse} "Dry-run result"
// @Failure 404 {object} router.errorResponse "Rule not found"
// @Router /api/v1/orchestration/rules/{id}/test [post]
func (h *HTTPEndpoint) TestRule(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	var req TestRuleRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.TestRule(r.Context(), usecase.TestRuleInput{
		RuleID:     id,
		EventType:  req.EventType,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Payload:    req.Payload,
	})
	if err != nil {
		return nil, err
	}

	previews := make([]PreviewResponse, 0, len(res.Previews))
	for _, p := range res.Previews {
		previews = append(previews, PreviewResponse{
			Channel:   p.Channel.String(),
			Title:     p.Title,
			Message:   p.Message,
			ActionURL: p.ActionURL,
			Subject:   p.Subject,
			HTML:      p.HTML,
			To:        p.To,
		})
	}

	return TestRuleResponse{
		Matched:          res.Matched,
		WouldFire:        res.WouldFire,
		Reason:           res.Reason,
		IsActive:         res.IsActive,
		EventTypeMatches: res.EventTypeMatches,
		Previews:         previews,
	}, nil
}

// ListExecutions returns the execution ledger.
// @Summary List executions
// @Tags Orchestration
// @Security BearerAuth
// @Produce json
// @Param status query string false "pending, succeeded or failed"
// @Param rule_id query int false "Rule ID"
// @Param event_id query int false "Event ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} router.successResponse{data=ExecutionsResponse} "Executions"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/orchestration/executions [get]
func (h *HTTPEndpoint) ListExecutions(r *router.Request) (any, error) {
	ruleID, err := r.GetQueryInt64("rule_id")
	if err != nil {
		return nil, err
	}
	eventID, err := r.GetQueryInt64("event_id")
	if err != nil {
		return nil, err
	}
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListExecutions(r.Context(), usecase.ListExecutionsInput{
		Status:  r.GetQuery("status"),
		RuleID:  ruleID,
		EventID: eventID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, err
	}

	return ExecutionsResponse{Executions: toExecutionResponses(items), Offset: offset}, nil
}

// Stats returns the dashboard counters for the last 24 hours.
// @Summary Orchestration stats
// @Tags Orchestration
// @Security BearerAuth
// @Produce json
// @Success 200 {object} router.successResponse{data=StatsResponse} "Stats"
// @Router /api/v1/orchestration/stats [get]
func (h *HTTPEndpoint) Stats(r *router.Request) (any, error) {
	st, err := h.uc.Stats(r.Context())
	if err != nil {
		return nil, err
	}

	return StatsResponse{
		ActiveRules:          st.ActiveRules,
		EventsLast24h:        st.EventsLast24h,
		ExecutionsLast24h:    st.ExecutionsLast24h,
		NotificationsLast24h: st.NotificationsLast24h,
		SuccessRate:          st.SuccessRate,
		RecentExecutions:     toExecutionResponses(st.RecentExecutions),
		FailedExecutions:     toExecutionResponses(st.FailedExecutions),
		Since:                st.Since,
	}, nil
}

// ListInbox returns the authenticated user's in-app notifications.
// @Summary List inbox
// @Tags Notification
// @Security BearerAuth
// @Produce json
// @Param status query string false "all, unread or read"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} router.successResponse{data=NotificationsResponse} "Notifications"
// @Failure 401 {object} router.errorResponse "Unauthorized"
// @Router /api/v1/notifications [get]
func (h *HTTPEndpoint) ListInbox(r *router.Request) (any, error) {
	limit, err := r.GetQueryInt32("limit")
	if err != nil {
		return nil, err
	}
	offset, err := r.GetQueryInt32("offset")
	if err != nil {
		return nil, err
	}

	items, err := h.uc.ListInbox(r.Context(), usecase.ListInboxInput{
		Status: r.GetQuery("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		resp = append(resp, NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			Payload:   n.Payload,
			DossierID: n.DossierID,
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	}

	return NotificationsResponse{Notifications: resp, Offset: offset}, nil
}

// MarkInboxRead marks one notification as read.
// @Summary Mark notification read
// @Tags Notification
// @Security BearerAuth
// @Param id path int true "Notification ID"
// @Success 204 "No Content"
// @Failure 404 {object} router.errorResponse "Notification not found"
// @Router /api/v1/notifications/{id}/read [patch]
func (h *HTTPEndpoint) MarkInboxRead(r *router.Request) (any, error) {
	id, err := r.GetParamInt64("id")
	if err != nil {
		return nil, err
	}

	return nil, h.uc.MarkInboxRead(r.Context(), usecase.MarkInboxReadInput{ID: id})
}
