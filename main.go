package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shandysiswandi/notifyflow/internal/app"
)

// @title           Notifyflow API
// @version         1.0
// @description     Notifyflow turns domain events into multi-channel notifications driven by configurable rules.
// @contact.name    Platform Team
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @server          https://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	a, err := app.New()
	if err != nil {
		slog.Error("notifyflow failed to start", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		slog.Error("notifyflow stopped with an error", "error", err)
		stop()
		os.Exit(1)
	}
}
