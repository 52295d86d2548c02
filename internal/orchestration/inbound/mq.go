package inbound

import (
	"context"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/notifyflow/internal/pkg/config"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goroutine"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/messaging"
	"github.com/shandysiswandi/notifyflow/internal/pkg/uid"
	"github.com/shandysiswandi/notifyflow/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc ucEvent,
	ins instrument.Instrumentation,
) {
	if messenger == nil {
		slog.WarnContext(ctx, "messaging is not configured, orchestration consumers are disabled")
		return
	}

	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.orchestration.consumer_names")
	concurrency := cfg.GetInt("modules.orchestration.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}
	redeliveries := cfg.GetUint64("modules.orchestration.consumer_redeliveries")
	redeliveryDelay := cfg.GetMillisecond("modules.orchestration.consumer_redelivery_delay_ms")

	var consumers = []struct {
		name    string
		topic   string
		group   string // kafka consumer group or nats queue group
		handler messaging.Handler
	}{
		{
			name:    event.DomainEventConsumerOrchestration,
			topic:   event.DomainEventDestination,
			group:   event.DomainEventConsumerOrchestration,
			handler: mqHandler.IngestDomainEvent,
		},
	}

	for _, consumer := range consumers {
		if !slices.Contains(enableConsumerNames, consumer.name) {
			continue
		}

		routine.Go(ctx, "consumer "+consumer.name, func(pCtx context.Context) error {
			slog.InfoContext(ctx, "domain event consumer started", "consumer", consumer.name, "topic", consumer.topic)
			return messenger.Consume(pCtx,
				consumer.topic,
				consumer.handler,
				messaging.WithGroup(consumer.group),
				messaging.WithConcurrency(concurrency),
				messaging.WithRedelivery(redeliveries, redeliveryDelay),
			)
		})
	}
}
