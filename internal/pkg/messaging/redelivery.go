package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/notifyflow/internal/pkg/stacktrace"
)

// handle runs handler until it accepts msg. It returns the last handler error
// once the redelivery budget is spent, or ctx's error when the consumer stops.
func handle(ctx context.Context, handler Handler, msg Message, co consumeOptions) error {
	backoff := retry.WithCappedDuration(maxRedeliveryDelay, retry.NewExponential(co.redeliveryDelay))
	backoff = retry.WithMaxRetries(co.redeliveries, backoff)

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := safeCall(ctx, handler, msg)
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "message handler failed", "topic", msg.Topic(), "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
}

func safeCall(ctx context.Context, handler Handler, msg Message) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			slog.ErrorContext(ctx, "panic in message handler", "topic", msg.Topic(), "panic", rvr, "stack", stacktrace.InternalPaths(stack))
			err = fmt.Errorf("messaging: handler panic: %v", rvr)
		}
	}()

	return handler(ctx, msg)
}
