package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

var ErrNATSURLRequired = errors.New("messaging: nats url is required")

type NATSConfig struct {
	URL     string
	Options []nats.Option
}

// NATS uses core subjects. Core NATS never redelivers, so a failing message
// is retried in the worker that received it.
type NATS struct {
	conn *nats.Conn
}

func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect %s: %w", cfg.URL, err)
	}
	return &NATS{conn: conn}, nil
}

// Close flushes pending publishes and in-flight subscriptions.
func (n *NATS) Close() error {
	if n.conn.IsClosed() {
		return nil
	}
	return n.conn.Drain()
}

func (n *NATS) Publish(ctx context.Context, subject string, msg OutgoingMessage) error {
	if subject == "" {
		return ErrTopicRequired
	}
	if n.conn.IsClosed() || n.conn.IsDraining() {
		return ErrClosed
	}

	nm := nats.NewMsg(subject)
	nm.Data = msg.Body
	for _, h := range msg.Headers {
		if h.Key != "" {
			nm.Header.Add(h.Key, string(h.Value))
		}
	}

	if err := n.conn.PublishMsg(nm); err != nil {
		return fmt.Errorf("messaging: nats publish to %s: %w", subject, err)
	}
	if err := n.flush(ctx); err != nil {
		return fmt.Errorf("messaging: nats flush %s: %w", subject, err)
	}
	return nil
}

func (n *NATS) flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		return n.conn.FlushWithContext(ctx)
	}
	return n.conn.Flush()
}

// Consume joins the queue group named by WithGroup, or a plain subscription
// when no group is set.
func (n *NATS) Consume(ctx context.Context, subject string, handler Handler, opts ...ConsumeOption) error {
	co := newConsumeOptions(opts...)
	switch {
	case subject == "":
		return ErrTopicRequired
	case handler == nil:
		return ErrHandlerRequired
	case n.conn.IsClosed() || n.conn.IsDraining():
		return ErrClosed
	}

	inbox := make(chan *nats.Msg, co.concurrency)
	sub, err := n.conn.QueueSubscribe(subject, co.group, func(m *nats.Msg) {
		select {
		case inbox <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe %s: %w", subject, err)
	}

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case nm := <-inbox:
					msg := &message{body: nm.Data, topic: nm.Subject, headers: natsHeaders(nm.Header)}
					if err := handle(ctx, handler, msg, co); err != nil && ctx.Err() == nil {
						slog.ErrorContext(ctx, "nats message dropped after redeliveries", "subject", nm.Subject, "error", err)
					}
				}
			}
		})
	}

	<-ctx.Done()
	uerr := sub.Unsubscribe()
	wg.Wait()
	if uerr != nil && !errors.Is(uerr, nats.ErrConnectionClosed) {
		return errors.Join(ctx.Err(), uerr)
	}
	return ctx.Err()
}

func natsHeaders(h nats.Header) []Header {
	var out []Header
	for k, values := range h {
		for _, v := range values {
			out = append(out, Header{Key: k, Value: []byte(v)})
		}
	}
	return out
}
