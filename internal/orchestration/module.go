package orchestration

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/inbound"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/outbound/db"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/outbound/email"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/outbound/sms"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/outbound/whatsapp"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/usecase"
	"github.com/shandysiswandi/notifyflow/internal/pkg/clock"
	"github.com/shandysiswandi/notifyflow/internal/pkg/config"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/notifyflow/internal/pkg/hash"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/mail"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/pkg/router"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
)

type Dependency struct {
	Ctx         context.Context
	DBConn      *pgxpool.Pool
	Messaging   messaging.Messaging
	Mail        mail.Mail
	Idempotency idempotency.Idempotency
	Config      config.Config
	Instrument  instrument.Instrumentation
	UID         uid.NumberID
	UUID        uid.StringID
	Clock       clock.Clocker
	HMAC        hash.Hash
	Goroutine   *goroutine.Manager
	Validator   validator.Validator
	Router      *router.Router
}

func New(dep Dependency) error {
	cfg := dep.Config
	conf := usecase.Config{
		CronSecret:         cfg.GetString("orchestration.cron_secret"),
		Window:             cfg.GetMinute("orchestration.scheduler.window_minutes"),
		BatchSize:          cfg.GetInt32("orchestration.scheduler.batch_size"),
		AppBaseURL:         cfg.GetString("app.base_url"),
		DispatchTimeout:    cfg.GetSecond("orchestration.dispatch.timeout_seconds"),
		DispatchMaxRetries: cfg.GetUint64("orchestration.dispatch.max_retries"),
		DispatchBackoff:    cfg.GetMillisecond("orchestration.dispatch.backoff_ms"),
		RetryMaxCount:      cfg.GetInt32("orchestration.retry.max_retry_count"),
		RetryStaleAfter:    cfg.GetMinute("orchestration.retry.stale_pending_minutes"),
		RetryBatchSize:     cfg.GetInt32("orchestration.retry.batch_size"),
		IdempotencyTTL:     cfg.GetHour("orchestration.idempotency.ttl_hours"),
	}

	var publisher messaging.Publisher
	if dep.Messaging != nil {
		publisher = dep.Messaging
	}

	uc := usecase.NewOrchestration(usecase.Dependency{
		RepoDB: db.NewDB(dep.DBConn, dep.Instrument),
		Config: conf,
		Hash:   dep.HMAC,
		Senders: map[entity.Channel]usecase.ChannelSender{
			entity.ChannelEmail: email.New(dep.Mail, email.Config{
				From:    cfg.GetString("mail.from"),
				AppName: cfg.GetString("app.name"),
			}, dep.Instrument),
			entity.ChannelWhatsApp: whatsapp.New(publisher, cfg.GetString("orchestration.whatsapp.destination"), dep.Instrument),
			entity.ChannelSMS:      sms.New(),
		},
		Idempotency: dep.Idempotency,
		UID:         dep.UID,
		Clock:       dep.Clock,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, cfg.GetString("app.name"))
	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, cfg, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
		startScheduler(dep.Ctx, dep.Goroutine, uc, conf.CronSecret, cfg.GetSecond("orchestration.scheduler.internal_interval_seconds"))
	}

	return nil
}

// startScheduler drives the tick and the retry pass from inside the process
// for deployments without an external cron. A zero interval disables it.
func startScheduler(ctx context.Context, routine *goroutine.Manager, uc *usecase.Usecase, secret string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	routine.Go(ctx, "orchestration scheduler", func(pCtx context.Context) error {
		slog.InfoContext(ctx, "orchestration scheduler started", "interval", interval.String())

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-pCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := uc.ProcessEvents(pCtx, usecase.ProcessEventsInput{Secret: secret}); err != nil {
					slog.ErrorContext(pCtx, "scheduled orchestration tick failed", "error", err)
				}
				if _, err := uc.RetryFailedExecutions(pCtx, usecase.RetryExecutionsInput{Secret: secret}); err != nil {
					slog.ErrorContext(pCtx, "scheduled retry pass failed", "error", err)
				}
			}
		}
	})
}
