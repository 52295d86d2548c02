package sms

import (
	"context"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
)

// Stub occupies the SMS channel until a provider is chosen.
type Stub struct{}

func New() Stub { return Stub{} }

func (Stub) Send(context.Context, entity.Delivery) error {
	return entity.ErrChannelUnsupported
}
