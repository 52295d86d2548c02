package entity

import (
	"fmt"
	"strings"
	"time"
)

type Execution struct {
	ID           int64
	RuleID       int64
	EventID      int64
	Status       ExecutionStatus
	Success      bool
	ErrorMessage *string
	RetryCount   int32
	Outcomes     Outcomes
	ExecutedAt   time.Time
	UpdatedAt    time.Time
}

// ChannelOutcome records the dispatch of one channel to one recipient.
type ChannelOutcome struct {
	Channel  Channel       `json:"channel"`
	UserID   string        `json:"user_id"`
	Status   OutcomeStatus `json:"status"`
	Error    string        `json:"error,omitempty"`
	Attempts int           `json:"attempts"`
	At       time.Time     `json:"at"`
}

func (o ChannelOutcome) key() string {
	return string(o.Channel) + "|" + o.UserID
}

type Outcomes []ChannelOutcome

// HasFailure reports whether any outcome failed.
func (os Outcomes) HasFailure() bool {
	for _, o := range os {
		if o.Status == OutcomeStatusFailed {
			return true
		}
	}
	return false
}

// Delivered reports whether ch already reached userID.
func (os Outcomes) Delivered(ch Channel, userID string) bool {
	for _, o := range os {
		if o.Channel == ch && o.UserID == userID && o.Status == OutcomeStatusSent {
			return true
		}
	}
	return false
}

// Merge replaces outcomes that share a (channel, user) pair with next and
// appends the rest, keeping the original order.
func (os Outcomes) Merge(next Outcomes) Outcomes {
	out := make(Outcomes, 0, len(os)+len(next))
	index := make(map[string]int, len(os)+len(next))

	for _, o := range os {
		index[o.key()] = len(out)
		out = append(out, o)
	}
	for _, o := range next {
		if i, ok := index[o.key()]; ok {
			out[i] = o
			continue
		}
		index[o.key()] = len(out)
		out = append(out, o)
	}

	return out
}

// ErrorSummary joins the failed outcomes into one line, or "" when none failed.
func (os Outcomes) ErrorSummary() string {
	parts := make([]string, 0)
	for _, o := range os {
		if o.Status != OutcomeStatusFailed {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(%s): %s", o.Channel, o.UserID, o.Error))
	}
	return strings.Join(parts, "; ")
}

type ClaimExecution struct {
	ID         int64
	RuleID     int64
	EventID    int64
	ExecutedAt time.Time
}

type CompleteExecution struct {
	ID           int64
	Success      bool
	ErrorMessage *string
	Outcomes     Outcomes
	UpdatedAt    time.Time
}

// RetryExecution claims an execution for a retry attempt. The claim only
// holds while retry_count still equals ExpectedRetryCount.
type RetryExecution struct {
	ID                 int64
	ExpectedRetryCount int32
	ClaimedAt          time.Time
}

type RetryCandidates struct {
	MaxRetryCount int32
	StaleBefore   time.Time
	Limit         int32
}

type ExecutionFilter struct {
	Status  ExecutionStatus
	RuleID  int64
	EventID int64
	Limit   int32
	Offset  int32
}
