package app

import (
	"log/slog"

	"github.com/shandysiswandi/notifyflow/internal/orchestration"
)

func (a *App) initModules() error {
	if !a.config.GetBool("modules.orchestration.enabled") {
		slog.Warn("orchestration module is disabled")
		return nil
	}

	return orchestration.New(orchestration.Dependency{
		Ctx:         a.ctx,
		DBConn:      a.db,
		Messaging:   a.messaging,
		Mail:        a.mail,
		Idempotency: a.idemp,
		Config:      a.config,
		Instrument:  a.ins,
		UID:         a.uid,
		UUID:        a.uuid,
		Clock:       a.clock,
		HMAC:        a.hmac,
		Goroutine:   a.tasks,
		Validator:   a.validator,
		Router:      a.router,
	})
}
