package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/clock"
	"github.com/shandysiswandi/notifyflow/internal/pkg/hash"
	"github.com/shandysiswandi/notifyflow/internal/pkg/idempotency"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

type repoEvent interface {
	CreateEvent(ctx context.Context, data entity.CreateEvent) error
	GetEvent(ctx context.Context, id int64) (*entity.Event, error)
	ListUnprocessedEvents(ctx context.Context, in entity.ScanEvents) ([]entity.Event, error)
}

type repoRule interface {
	ListRulesByEventType(ctx context.Context, et entity.EventType) ([]entity.Rule, error)
	ListRules(ctx context.Context, f entity.RuleFilter) ([]entity.Rule, error)
	GetRule(ctx context.Context, id int64) (*entity.Rule, error)
	CreateRule(ctx context.Context, r entity.Rule) error
	UpdateRule(ctx context.Context, r entity.UpdateRule) error
	DeleteRule(ctx context.Context, id int64) error
}

type repoExecution interface {
	ClaimExecution(ctx context.Context, in entity.ClaimExecution) (*entity.Execution, bool, error)
	CompleteExecution(ctx context.Context, in entity.CompleteExecution) error
	ListRetryCandidates(ctx context.Context, in entity.RetryCandidates) ([]entity.Execution, error)
	RetryExecution(ctx context.Context, in entity.RetryExecution) (bool, error)
	ListExecutions(ctx context.Context, f entity.ExecutionFilter) ([]entity.Execution, error)
	CountStats(ctx context.Context, since time.Time) (entity.StatsCounts, error)
}

type repoNotification interface {
	CreateNotification(ctx context.Context, n entity.Notification) error
	ListNotifications(ctx context.Context, f entity.InboxFilter) ([]entity.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id int64, at time.Time) (bool, error)
}

type repoDirectory interface {
	FindDossierOwner(ctx context.Context, dossierID string) (string, error)
	ListAgentUsers(ctx context.Context, agentID string) ([]string, error)
	ListRecipients(ctx context.Context, userIDs []string) ([]entity.Recipient, error)
}

type repoDB interface {
	repoEvent
	repoRule
	repoExecution
	repoNotification
	repoDirectory
}

// ChannelSender delivers one rendered notification to one recipient.
type ChannelSender interface {
	Send(ctx context.Context, d entity.Delivery) error
}

// channelPreviewer is implemented by senders that can show what they would send.
type channelPreviewer interface {
	Preview(d entity.Delivery) (entity.Preview, error)
}

// Config carries every tunable the usecase needs; nothing below reads config itself.
type Config struct {
	CronSecret         string
	Window             time.Duration
	BatchSize          int32
	AppBaseURL         string
	DispatchTimeout    time.Duration
	DispatchMaxRetries uint64
	DispatchBackoff    time.Duration
	RetryMaxCount      int32
	RetryStaleAfter    time.Duration
	RetryBatchSize     int32
	IdempotencyTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = 10 * time.Second
	}
	if c.DispatchBackoff <= 0 {
		c.DispatchBackoff = 200 * time.Millisecond
	}
	if c.RetryMaxCount <= 0 {
		c.RetryMaxCount = 3
	}
	if c.RetryStaleAfter <= 0 {
		c.RetryStaleAfter = 15 * time.Minute
	}
	if c.RetryBatchSize <= 0 {
		c.RetryBatchSize = 50
	}
	if c.IdempotencyTTL <= 0 {
		c.IdempotencyTTL = 24 * time.Hour
	}
	return c
}

type Usecase struct {
	repoDB      repoDB
	conf        Config
	secretHash  string
	hash        hash.Hash
	senders     map[entity.Channel]ChannelSender
	idempotency idempotency.Idempotency
	uid         uid.NumberID
	clock       clock.Clocker
	validator   validator.Validator
	ins         instrument.Instrumentation

	rulesProcessed metric.Int64Counter
	dispatched     metric.Int64Counter

	streamMu sync.RWMutex
	streams  map[string]map[*subscriber]struct{}
}

type Dependency struct {
	RepoDB      repoDB
	Config      Config
	Hash        hash.Hash
	Senders     map[entity.Channel]ChannelSender
	Idempotency idempotency.Idempotency
	UID         uid.NumberID
	Clock       clock.Clocker
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func NewOrchestration(dep Dependency) *Usecase {
	s := &Usecase{
		repoDB:      dep.RepoDB,
		conf:        dep.Config.withDefaults(),
		hash:        dep.Hash,
		senders:     dep.Senders,
		idempotency: dep.Idempotency,
		uid:         dep.UID,
		clock:       dep.Clock,
		validator:   dep.Validator,
		ins:         dep.Instrument,
		streams:     make(map[string]map[*subscriber]struct{}),
	}
	if s.senders == nil {
		s.senders = make(map[entity.Channel]ChannelSender)
	}

	if s.conf.CronSecret != "" && s.hash != nil {
		if hashed, err := s.hash.Hash(s.conf.CronSecret); err == nil {
			s.secretHash = string(hashed)
		}
	}

	meter := s.ins.Meter("orchestration.usecase")
	s.rulesProcessed = counterOrNoop(meter, "orchestration.rules.processed", "Rules processed per (event, rule) outcome")
	s.dispatched = counterOrNoop(meter, "orchestration.dispatch.outcomes", "Channel dispatch outcomes")

	return s
}

func counterOrNoop(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return noop.Int64Counter{}
	}
	return c
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("orchestration.usecase").Start(ctx, name)
}

// verifySecret compares the trigger credential in constant time.
// An empty configured secret rejects everything.
func (s *Usecase) verifySecret(secret string) bool {
	if s.secretHash == "" || secret == "" {
		return false
	}
	return s.hash.Verify(s.secretHash, secret)
}
