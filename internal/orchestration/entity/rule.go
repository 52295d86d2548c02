package entity

import (
	"cmp"
	"encoding/json"
	"slices"
	"time"
)

type Rule struct {
	ID           int64
	EventType    EventType
	TemplateCode string
	Channels     []Channel
	IsActive     bool
	Priority     int32
	Conditions   json.RawMessage
	Description  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasChannel reports whether the rule dispatches on ch.
func (r Rule) HasChannel(ch Channel) bool {
	return slices.Contains(r.Channels, ch)
}

type RuleFilter struct {
	EventType EventType
	IsActive  *bool
	Channel   Channel
}

type UpdateRule struct {
	ID           int64
	EventType    EventType
	TemplateCode string
	Channels     []Channel
	IsActive     bool
	Priority     int32
	Conditions   json.RawMessage
	Description  string
	UpdatedAt    time.Time
}

// SortRules orders rules by priority descending, then creation order.
// Snowflake ids grow with creation time so the id is the tie-break.
func SortRules(rules []Rule) {
	slices.SortStableFunc(rules, func(a, b Rule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
