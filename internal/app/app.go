// Package app assembles notifyflow from its configuration and runs it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/notifyflow/internal/pkg/clock"
	"github.com/shandysiswandi/notifyflow/internal/pkg/config"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/notifyflow/internal/pkg/hash"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/jwt"
	"github.com/shandysiswandi/notifyflow/internal/pkg/mail"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/pkg/router"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
)

type App struct {
	// ctx is cancelled when shutdown starts; background tasks derive from it.
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	tasks     *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT

	db        *pgxpool.Pool
	redis     *redis.Client
	idemp     idempotency.Idempotency
	mail      mail.Mail           // nil when no mail driver is set
	messaging messaging.Messaging // nil when no broker is set

	router *router.Router
	api    *http.Server
	stream *http.Server

	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New opens every resource in order. On failure the ones already opened
// are closed again before the error is returned.
func New() (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", a.initConfig},
		{"instrument", a.initInstrument},
		{"libraries", a.initLibraries},
		{"jwt", a.initJWT},
		{"database", a.initDatabase},
		{"redis", a.initRedis},
		{"mail", a.initMail},
		{"messaging", a.initMessaging},
		{"http", a.initHTTP},
		{"modules", a.initModules},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			cancel()
			a.close(context.Background())
			return nil, fmt.Errorf("init %s: %w", step.name, err)
		}
	}

	return a, nil
}

// onClose registers fn to run at shutdown. Closers run in reverse order of
// registration, so a resource is closed after everything built on top of it.
func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}
