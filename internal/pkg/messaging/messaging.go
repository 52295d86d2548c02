package messaging

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrClosed is returned by a client used after Close.
	ErrClosed = errors.New("messaging: client closed")
	// ErrTopicRequired is returned when the topic or subject is empty.
	ErrTopicRequired = errors.New("messaging: topic is required")
	// ErrHandlerRequired is returned when Consume gets a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
)

// Messaging is a broker client able to both publish and consume.
type Messaging interface {
	io.Closer
	Publisher
	Consumer
}

type Publisher interface {
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
}

type Consumer interface {
	// Consume blocks until ctx is done or the broker fails.
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes one message. A non-nil error asks for redelivery.
type Handler func(ctx context.Context, msg Message) error

type OutgoingMessage struct {
	Body []byte
	// Key only picks the Kafka partition.
	Key     []byte
	Headers []Header
}

type Header struct {
	Key   string
	Value []byte
}

// Message is a received message, independent of the broker it came from.
type Message interface {
	Body() []byte
	Key() []byte
	Headers() []Header
	Topic() string
}

type message struct {
	body    []byte
	key     []byte
	headers []Header
	topic   string
}

func (m *message) Body() []byte      { return m.body }
func (m *message) Key() []byte       { return m.key }
func (m *message) Headers() []Header { return m.headers }
func (m *message) Topic() string     { return m.topic }

// HeaderValue returns the first value stored under key, or "".
func HeaderValue(headers []Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
