package messaging

import "time"

const (
	defaultRedeliveries    = 5
	defaultRedeliveryDelay = 200 * time.Millisecond
	maxRedeliveryDelay     = 30 * time.Second
)

type consumeOptions struct {
	group           string
	concurrency     int
	redeliveries    uint64
	redeliveryDelay time.Duration
}

type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{
		concurrency:     1,
		redeliveries:    defaultRedeliveries,
		redeliveryDelay: defaultRedeliveryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = 1
	}
	if co.redeliveryDelay <= 0 {
		co.redeliveryDelay = defaultRedeliveryDelay
	}
	return co
}

// WithGroup names the Kafka consumer group or the NATS queue group. Members
// of one group share the stream instead of each receiving every message.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithConcurrency sets the number of handlers running at once. On Kafka each
// handler owns a group reader so offsets stay ordered per partition.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithRedelivery bounds how many times a failed message is handed back to
// the handler, starting at delay and doubling up to 30s.
func WithRedelivery(times uint64, delay time.Duration) ConsumeOption {
	return func(o *consumeOptions) {
		o.redeliveries = times
		o.redeliveryDelay = delay
	}
}
