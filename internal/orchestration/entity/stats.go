package entity

import "time"

type StatsCounts struct {
	ActiveRules          int64
	Events               int64
	Executions           int64
	SucceededExecutions  int64
	CompletedExecutions  int64
	NotificationsCreated int64
}

type Stats struct {
	ActiveRules          int64
	EventsLast24h        int64
	ExecutionsLast24h    int64
	NotificationsLast24h int64
	SuccessRate          float64
	RecentExecutions     []Execution
	FailedExecutions     []Execution
	Since                time.Time
}
