package uid

import "github.com/google/uuid"

// UUID hands out time-ordered v7 UUIDs, random v4 if the v7 source fails.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
