// Package uid generates identifiers.
//
// NumberID is used for primary keys (events, rules, executions, notifications)
// and StringID for correlation ids and token ids.
package uid

// NumberID generates sortable int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}
