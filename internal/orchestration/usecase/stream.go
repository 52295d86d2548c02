package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
)

// StreamEvent is an in-app notification pushed over SSE.
type StreamEvent struct {
	ID        int64               `json:"id,string"`
	UserID    string              `json:"user_id"`
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Payload   valueobject.JSONMap `json:"payload"`
	DossierID *string             `json:"dossier_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

type subscriber struct {
	ch     chan StreamEvent
	closed atomic.Bool
}

// StreamNotifications registers a stream for a user and closes it when ctx is done.
func (s *Usecase) StreamNotifications(ctx context.Context, userID string) <-chan StreamEvent {
	sub := &subscriber{ch: make(chan StreamEvent, 10)}

	s.streamMu.Lock()
	if s.streams[userID] == nil {
		s.streams[userID] = make(map[*subscriber]struct{})
	}
	s.streams[userID][sub] = struct{}{}
	s.streamMu.Unlock()

	go func() {
		<-ctx.Done()
		s.streamMu.Lock()
		if subs := s.streams[userID]; subs != nil {
			delete(subs, sub)
			if len(subs) == 0 {
				delete(s.streams, userID)
			}
		}
		sub.closed.Store(true)
		close(sub.ch)
		s.streamMu.Unlock()
	}()

	return sub.ch
}

func (s *Usecase) publishNotification(n entity.Notification) {
	evt := StreamEvent{
		ID:        n.ID,
		UserID:    n.UserID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		DossierID: n.DossierID,
		CreatedAt: n.CreatedAt,
	}

	s.streamMu.RLock()
	defer s.streamMu.RUnlock()

	for sub := range s.streams[evt.UserID] {
		if sub.closed.Load() {
			continue
		}

		select {
		case sub.ch <- evt:
		default:
		}
	}
}
