// Package idempotency remembers, in Redis, which keyed operations already ran
// so a repeated request or redelivered message is not processed twice.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrAlreadyInProgress = errors.New("idempotency: operation in progress")
	ErrAlreadyCompleted  = errors.New("idempotency: operation completed")
	ErrAlreadyFailed     = errors.New("idempotency: operation failed")
	ErrInvalidState      = errors.New("idempotency: unknown stored state")
)

// State is the value stored under a key. StateNone means the caller now owns
// the key; StateError accompanies a non-nil error.
type State string

const (
	StateNone       State = "none"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateError      State = "error"
)

func (s State) String() string { return string(s) }

type Idempotency interface {
	Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error)
	MarkCompleted(ctx context.Context, key string, ttl time.Duration) error
	MarkFailed(ctx context.Context, key string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
	Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error
}

// acquireScript claims KEYS[1] or returns what is already there, in one round trip.
var acquireScript = redis.NewScript(`
if redis.call("SET", KEYS[1], ARGV[1], "NX", "PX", ARGV[2]) then
	return ""
end
return redis.call("GET", KEYS[1]) or ""
`)

// releaseScript drops KEYS[1] only while it still holds the in-progress marker.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// StateTracker is the Redis-backed Idempotency.
type StateTracker struct {
	client redis.UniversalClient
	prefix string
}

// New stores keys under prefix, "idempotency:" when none is given.
func New(client redis.UniversalClient, prefix ...string) *StateTracker {
	t := &StateTracker{client: client, prefix: "idempotency:"}
	if len(prefix) > 0 && prefix[0] != "" {
		t.prefix = prefix[0]
	}
	return t
}

func (s *StateTracker) Acquire(ctx context.Context, key string, lockDuration time.Duration) (State, error) {
	held, err := acquireScript.Run(ctx, s.client, []string{s.prefix + key},
		StateInProgress.String(), lockDuration.Milliseconds()).Text()
	if err != nil {
		return StateError, err
	}

	switch State(held) {
	case "":
		return StateNone, nil
	case StateInProgress, StateCompleted, StateFailed:
		return State(held), nil
	default:
		return StateError, ErrInvalidState
	}
}

func (s *StateTracker) MarkCompleted(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateCompleted.String(), ttl).Err()
}

func (s *StateTracker) MarkFailed(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, StateFailed.String(), ttl).Err()
}

// Release gives up a claim so the key can run again. A key that already
// reached a final state is left alone.
func (s *StateTracker) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, s.client, []string{s.prefix + key}, StateInProgress.String()).Err()
}

// Exec runs fn under key. A key seen before yields the matching
// ErrAlready* error without calling fn.
func (s *StateTracker) Exec(ctx context.Context, key string, fn func(context.Context) error, opts ...Option) error {
	o := newExecOptions(opts)

	state, err := s.Acquire(ctx, key, o.lockDuration)
	if err != nil {
		return err
	}
	switch state {
	case StateInProgress:
		return ErrAlreadyInProgress
	case StateCompleted:
		return ErrAlreadyCompleted
	case StateFailed:
		return ErrAlreadyFailed
	}

	runErr := fn(ctx)
	switch {
	case runErr == nil:
		return s.MarkCompleted(ctx, key, o.stateTTL)
	case o.releaseOnError != nil && o.releaseOnError(runErr):
		err = s.Release(ctx, key)
	default:
		err = s.MarkFailed(ctx, key, o.stateTTL)
	}
	if err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}
