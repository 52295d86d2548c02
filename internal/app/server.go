package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultShutdownTimeout = 10 * time.Second

// Run serves until ctx is done or a listener fails, then shuts down: the
// listeners first, then the background tasks, then the resources.
func (a *App) Run(ctx context.Context) error {
	failed := make(chan error, 2)
	for name, srv := range map[string]*http.Server{"api": a.api, "sse": a.stream} {
		go func() {
			slog.Info("server listening", "server", name, "address", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				failed <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutdown requested")
	case runErr = <-failed:
		slog.Error("server stopped unexpectedly", "error", runErr)
	}

	timeout := a.config.GetSecond("app.server.shutdown_timeout_seconds")
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	sctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.shutdown(sctx)
	return runErr
}

func (a *App) shutdown(ctx context.Context) {
	for name, srv := range map[string]*http.Server{"api": a.api, "sse": a.stream} {
		if err := srv.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "server shutdown failed", "server", name, "error", err)
		}
	}

	a.cancel()
	if err := a.tasks.Wait(); err != nil {
		slog.ErrorContext(ctx, "background tasks ended with errors", "error", err)
	}

	a.close(ctx)
	slog.InfoContext(ctx, "notifyflow stopped")
}

func (a *App) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "close failed", "resource", c.name, "error", err)
		}
	}
	a.closers = nil
}
