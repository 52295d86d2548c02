package entity

import (
	"time"

	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

type Notification struct {
	ID        int64
	UserID    string
	Type      string
	Title     string
	Message   string
	Payload   valueobject.JSONMap
	DossierID *string
	ReadAt    *time.Time
	CreatedAt time.Time
}

type InboxFilter struct {
	UserID string
	Status NotificationStatus
	Limit  int32
	Offset int32
}
