package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
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

const pingTimeout = 5 * time.Second

// configPath honours CONFIG_PATH, then LOCAL=true for a checkout, then the
// path mounted in the container.
func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig() error {
	cfg, err := config.NewViper(configPath())
	if err != nil {
		return err
	}
	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // TZ is advisory, time.Local falls back to UTC
		os.Setenv("TZ", tz)
	}

	a.config = cfg
	a.onClose("config", func(context.Context) error { return cfg.Close() })
	return nil
}

func (a *App) initInstrument() error {
	ins, err := instrument.New(a.ctx, instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		return err
	}

	a.ins = ins
	a.onClose("instrument", ins.Shutdown)
	return nil
}

func (a *App) initLibraries() error {
	v, err := validator.NewV10Validator()
	if err != nil {
		return fmt.Errorf("validator: %w", err)
	}
	snow, err := uid.NewSnowflake()
	if err != nil {
		return fmt.Errorf("snowflake: %w", err)
	}

	a.validator = v
	a.uid = snow
	a.uuid = uid.NewUUID()
	a.clock = clock.New()
	a.hmac = hash.NewHMACSHA256(a.config.GetString("hash.hmac.secret"))
	a.tasks = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))
	return nil
}

func (a *App) initJWT() error {
	tokens, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(a.config.GetString("jwt.secret")),
		Issuer:     a.config.GetString("jwt.issuer"),
		Audiences:  a.config.GetArray("jwt.audiences"),
		TTLMinutes: a.config.GetMinute("jwt.ttl_minutes"),
		Clock:      a.clock,
		UUID:       a.uuid,
	})
	if err != nil {
		return err
	}

	a.jwt = tokens
	return nil
}

func (a *App) initDatabase() error {
	pc, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	if err != nil {
		return err
	}
	a.onClose("database", func(context.Context) error { pool.Close(); return nil })

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	a.db = pool
	return nil
}

func (a *App) initRedis() error {
	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	rdb := redis.NewClient(opt)
	a.onClose("redis", func(context.Context) error { return rdb.Close() })

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	a.redis = rdb
	a.idemp = idempotency.New(rdb, a.config.GetString("redis.idempotency_prefix"))
	return nil
}

func disabled(driver string) bool {
	return driver == "" || driver == "none"
}

// initMail leaves a.mail nil without a driver: EMAIL then reports itself as
// not configured instead of failing startup.
func (a *App) initMail() error {
	driver := strings.TrimSpace(a.config.GetString("mail.driver"))
	if disabled(driver) {
		slog.Warn("mail driver is not configured, EMAIL channel is disabled")
		return nil
	}

	from := a.config.GetString("mail.from")
	client, err := mail.NewFromDriver(a.ctx, driver, mail.FactoryOptions{
		SMTP: mail.SMTPConfig{
			Host:     a.config.GetString("mail.smtp.host"),
			Port:     a.config.GetInt("mail.smtp.port"),
			Username: a.config.GetString("mail.smtp.username"),
			Password: a.config.GetString("mail.smtp.password"),
			From:     from,
		},
		SES: mail.SESConfig{
			Region:    a.config.GetString("mail.ses.region"),
			AccessKey: a.config.GetString("mail.ses.access_key"),
			SecretKey: a.config.GetString("mail.ses.secret_key"),
			Endpoint:  a.config.GetString("mail.ses.endpoint"),
			From:      from,
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", driver, err)
	}

	a.mail = client
	a.onClose("mail", func(context.Context) error { return client.Close() })
	return nil
}

// initMessaging leaves a.messaging nil without a driver: broker ingestion
// and the WHATSAPP channel are then off.
func (a *App) initMessaging() error {
	driver := strings.TrimSpace(a.config.GetString("messaging.driver"))
	if disabled(driver) {
		slog.Warn("messaging driver is not configured, broker ingestion and WHATSAPP are disabled")
		return nil
	}

	client, err := messaging.NewFromDriver(driver, messaging.Options{
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.PingInterval(a.config.GetSecond("messaging.nats.ping_interval_seconds")),
				nats.MaxPingsOutstanding(a.config.GetInt("messaging.nats.max_pings_outstanding")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", driver, err)
	}

	a.messaging = client
	a.onClose("messaging", func(context.Context) error { return client.Close() })
	return nil
}

// initHTTP builds one router for two listeners: the API, and the SSE inbox
// stream, which has no write timeout.
func (a *App) initHTTP() error {
	a.router = router.NewRouter(router.Config{
		Config:         a.config,
		UUID:           a.uuid,
		JWT:            a.jwt,
		Instrument:     a.ins,
		ServiceName:    a.config.GetString("app.name"),
		ServiceVersion: a.config.GetString("instrument.service_version"),
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.api = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
	a.stream = &http.Server{
		Addr:              a.config.GetString("app.server.sse.address"),
		Handler:           handler,
		ReadHeaderTimeout: a.config.GetSecond("app.server.sse.read_header_timeout_seconds"),
	}
	return nil
}
