package inbound

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

type CronStatusResponse struct {
	Service string `json:"service"`
	Trigger string `json:"trigger"`
	Status  string `json:"status"`
}

type ProcessReportResponse struct {
	EventsScanned  int `json:"events_scanned"`
	EventsFailed   int `json:"events_failed"`
	RulesProcessed int `json:"rules_processed"`
	Succeeded      int `json:"succeeded"`
	Failed         int `json:"failed"`
	Skipped        int `json:"skipped"`
}

type RetryReportResponse struct {
	Scanned   int `json:"scanned"`
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

type IngestEventRequest struct {
	EntityType string              `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	EventType  string              `json:"event_type"`
	ActorType  string              `json:"actor_type"`
	ActorID    *string             `json:"actor_id"`
	Payload    valueobject.JSONMap `json:"payload" swaggertype:"object"`
}

type EventResponse struct {
	ID         int64               `json:"id,string"`
	EntityType string              `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	EventType  string              `json:"event_type"`
	ActorType  string              `json:"actor_type"`
	ActorID    *string             `json:"actor_id,omitempty"`
	Payload    valueobject.JSONMap `json:"payload" swaggertype:"object"`
	CreatedAt  time.Time           `json:"created_at"`
}

// IngestEventResponse is the created event.
type IngestEventResponse struct {
	EventResponse
}

func (IngestEventResponse) StatusCode() int { return http.StatusCreated }

func (IngestEventResponse) Message() string { return "event has been accepted" }

type CreateRuleRequest struct {
	EventType    string          `json:"event_type"`
	TemplateCode string          `json:"template_code"`
	Channels     []string        `json:"channels"`
	IsActive     *bool           `json:"is_active"`
	Priority     *int32          `json:"priority"`
	Conditions   json.RawMessage `json:"conditions" swaggertype:"object"`
	Description  string          `json:"description"`
}

// UpdateRuleRequest only applies the fields present in the body.
type UpdateRuleRequest struct {
	EventType    *string          `json:"event_type"`
	TemplateCode *string          `json:"template_code"`
	Channels     []string         `json:"channels"`
	IsActive     *bool            `json:"is_active"`
	Priority     *int32           `json:"priority"`
	Conditions   *json.RawMessage `json:"conditions" swaggertype:"object"`
	Description  *string          `json:"description"`
}

type RuleResponse struct {
	ID           int64           `json:"id,string"`
	EventType    string          `json:"event_type"`
	TemplateCode string          `json:"template_code"`
	Channels     []string        `json:"channels"`
	IsActive     bool            `json:"is_active"`
	Priority     int32           `json:"priority"`
	Conditions   json.RawMessage `json:"conditions,omitempty" swaggertype:"object"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateRuleResponse struct {
	RuleResponse
}

func (CreateRuleResponse) StatusCode() int { return http.StatusCreated }

type RulesResponse struct {
	Rules []RuleResponse `json:"rules"`
}

type TestRuleRequest struct {
	EventType  string              `json:"event_type"`
	EntityType string              `json:"entity_type"`
	EntityID   string              `json:"entity_id"`
	Payload    valueobject.JSONMap `json:"payload" swaggertype:"object"`
}

type PreviewResponse struct {
	Channel   string `json:"channel"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"action_url"`
	Subject   string `json:"subject,omitempty"`
	HTML      string `json:"html,omitempty"`
	To        string `json:"to,omitempty"`
}

type TestRuleResponse struct {
	Matched          bool              `json:"matched"`
	WouldFire        bool              `json:"would_fire"`
	Reason           string            `json:"reason"`
	IsActive         bool              `json:"is_active"`
	EventTypeMatches bool              `json:"event_type_matches"`
	Previews         []PreviewResponse `json:"previews"`
}

type OutcomeResponse struct {
	Channel  string    `json:"channel"`
	UserID   string    `json:"user_id"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Attempts int       `json:"attempts"`
	At       time.Time `json:"at"`
}

type ExecutionResponse struct {
	ID           int64             `json:"id,string"`
	RuleID       int64             `json:"rule_id,string"`
	EventID      int64             `json:"event_id,string"`
	Status       string            `json:"status"`
	Success      bool              `json:"success"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	RetryCount   int32             `json:"retry_count"`
	Outcomes     []OutcomeResponse `json:"outcomes"`
	ExecutedAt   time.Time         `json:"executed_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type ExecutionsResponse struct {
	Executions []ExecutionResponse `json:"executions"`
	Offset     int32               `json:"-"`
}

func (r ExecutionsResponse) Meta() map[string]any {
	return map[string]any{"offset": r.Offset, "count": len(r.Executions)}
}

type StatsResponse struct {
	ActiveRules          int64               `json:"active_rules"`
	EventsLast24h        int64               `json:"events_last_24h"`
	ExecutionsLast24h    int64               `json:"executions_last_24h"`
	NotificationsLast24h int64               `json:"notifications_last_24h"`
	SuccessRate          float64             `json:"success_rate"`
	RecentExecutions     []ExecutionResponse `json:"recent_executions"`
	FailedExecutions     []ExecutionResponse `json:"failed_executions"`
	Since                time.Time           `json:"since"`
}

type NotificationResponse struct {
	ID        int64               `json:"id,string"`
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   valueobject.JSONMap `json:"payload" swaggertype:"object"`
	DossierID *string             `json:"dossier_id,omitempty"`
	ReadAt    *time.Time          `json:"read_at,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Offset        int32                  `json:"-"`
}

func (r NotificationsResponse) Meta() map[string]any {
	return map[string]any{"offset": r.Offset, "count": len(r.Notifications)}
}

func toProcessReportResponse(r *usecase.ProcessReport) ProcessReportResponse {
	return ProcessReportResponse{
		EventsScanned:  r.EventsScanned,
		EventsFailed:   r.EventsFailed,
		RulesProcessed: r.RulesProcessed,
		Succeeded:      r.Succeeded,
		Failed:         r.Failed,
		Skipped:        r.Skipped,
	}
}

func toEventResponse(ev *entity.Event) EventResponse {
	return EventResponse{
		ID:         ev.ID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		EventType:  ev.EventType.String(),
		ActorType:  ev.ActorType.String(),
		ActorID:    ev.ActorID,
		Payload:    ev.Payload,
		CreatedAt:  ev.CreatedAt,
	}
}

func toRuleResponse(r entity.Rule) RuleResponse {
	channels := make([]string, 0, len(r.Channels))
	for _, ch := range r.Channels {
		channels = append(channels, ch.String())
	}

	return RuleResponse{
		ID:           r.ID,
		EventType:    r.EventType.String(),
		TemplateCode: r.TemplateCode,
		Channels:     channels,
		IsActive:     r.IsActive,
		Priority:     r.Priority,
		Conditions:   r.Conditions,
		Description:  r.Description,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toExecutionResponses(items []entity.Execution) []ExecutionResponse {
	resp := make([]ExecutionResponse, 0, len(items))
	for _, e := range items {
		outcomes := make([]OutcomeResponse, 0, len(e.Outcomes))
		for _, o := range e.Outcomes {
			outcomes = append(outcomes, OutcomeResponse{
				Channel:  o.Channel.String(),
				UserID:   o.UserID,
				Status:   o.Status.String(),
				Error:    o.Error,
				Attempts: o.Attempts,
				At:       o.At,
			})
		}

		resp = append(resp, ExecutionResponse{
			ID:           e.ID,
			RuleID:       e.RuleID,
			EventID:      e.EventID,
			Status:       e.Status.String(),
			Success:      e.Success,
			ErrorMessage: e.ErrorMessage,
			RetryCount:   e.RetryCount,
			Outcomes:     outcomes,
			ExecutedAt:   e.ExecutedAt,
			UpdatedAt:    e.UpdatedAt,
		})
	}
	return resp
}
