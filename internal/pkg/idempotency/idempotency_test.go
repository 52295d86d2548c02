package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*StateTracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "test:"), mr
}

func TestStateTracker_Exec(t *testing.T) {
	ctx := context.Background()

	t.Run("runs once then reports completed", func(t *testing.T) {
		tracker, mr := newTracker(t)

		calls := 0
		fn := func(context.Context) error { calls++; return nil }

		require.NoError(t, tracker.Exec(ctx, "event-1", fn, WithStateTTL(time.Hour)))
		assert.ErrorIs(t, tracker.Exec(ctx, "event-1", fn), ErrAlreadyCompleted)
		assert.Equal(t, 1, calls)

		val, err := mr.Get("test:event-1")
		require.NoError(t, err)
		assert.Equal(t, StateCompleted.String(), val)
		assert.Equal(t, time.Hour, mr.TTL("test:event-1"))
	})

	t.Run("failure is remembered", func(t *testing.T) {
		tracker, _ := newTracker(t)
		boom := errors.New("boom")

		assert.ErrorIs(t, tracker.Exec(ctx, "event-2", func(context.Context) error { return boom }), boom)
		assert.ErrorIs(t, tracker.Exec(ctx, "event-2", func(context.Context) error { return nil }), ErrAlreadyFailed)
	})

	t.Run("released failure can run again", func(t *testing.T) {
		tracker, mr := newTracker(t)
		transient := errors.New("connection reset")
		retryable := func(err error) bool { return errors.Is(err, transient) }

		err := tracker.Exec(ctx, "event-4", func(context.Context) error { return transient }, WithReleaseOnError(retryable))
		assert.ErrorIs(t, err, transient)
		assert.False(t, mr.Exists("test:event-4"))

		calls := 0
		require.NoError(t, tracker.Exec(ctx, "event-4", func(context.Context) error { calls++; return nil }, WithReleaseOnError(retryable)))
		assert.Equal(t, 1, calls)
	})

	t.Run("unmatched failure is still remembered", func(t *testing.T) {
		tracker, _ := newTracker(t)
		boom := errors.New("boom")
		never := func(error) bool { return false }

		assert.ErrorIs(t, tracker.Exec(ctx, "event-5", func(context.Context) error { return boom }, WithReleaseOnError(never)), boom)
		assert.ErrorIs(t, tracker.Exec(ctx, "event-5", func(context.Context) error { return nil }), ErrAlreadyFailed)
	})

	t.Run("in progress", func(t *testing.T) {
		tracker, _ := newTracker(t)

		state, err := tracker.Acquire(ctx, "event-3", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, StateNone, state)

		assert.ErrorIs(t, tracker.Exec(ctx, "event-3", func(context.Context) error { return nil }), ErrAlreadyInProgress)
	})

	t.Run("unknown stored state", func(t *testing.T) {
		tracker, mr := newTracker(t)
		require.NoError(t, mr.Set("test:event-4", "garbage"))

		state, err := tracker.Acquire(ctx, "event-4", time.Minute)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, StateError, state)
	})
	t.Run("release keeps a final state", func(t *testing.T) {
		tracker, mr := newTracker(t)

		require.NoError(t, tracker.MarkCompleted(ctx, "event-6", time.Hour))
		require.NoError(t, tracker.Release(ctx, "event-6"))

		val, err := mr.Get("test:event-6")
		require.NoError(t, err)
		assert.Equal(t, StateCompleted.String(), val)
	})

	t.Run("lock expires", func(t *testing.T) {
		tracker, mr := newTracker(t)

		state, err := tracker.Acquire(ctx, "event-7", time.Second)
		require.NoError(t, err)
		require.Equal(t, StateNone, state)

		mr.FastForward(2 * time.Second)
		state, err = tracker.Acquire(ctx, "event-7", time.Second)
		require.NoError(t, err)
		assert.Equal(t, StateNone, state)
	})
}
