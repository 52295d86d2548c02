package event

import "encoding/json"

const DomainEventDestination string = "domain_event"
const DomainEventConsumerOrchestration string = "domain_event_orchestration"

// DomainEventMessage is a business fact published by other services.
type DomainEventMessage struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	EventType      string          `json:"event_type"`
	ActorType      string          `json:"actor_type"`
	ActorID        *string         `json:"actor_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}
