package entity

import (
	"time"

	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

type Event struct {
	ID         int64
	EntityType string
	EntityID   string
	EventType  EventType
	ActorType  ActorType
	ActorID    *string
	Payload    valueobject.JSONMap
	CreatedAt  time.Time
}

type CreateEvent struct {
	ID         int64
	EntityType string
	EntityID   string
	EventType  EventType
	ActorType  ActorType
	ActorID    *string
	Payload    valueobject.JSONMap
	CreatedAt  time.Time
}

type ScanEvents struct {
	Since time.Time
	Limit int32
}
