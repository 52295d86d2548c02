// Package messaging carries domain events over NATS or Kafka.
//
// Consumers never drop a message on a handler error: the message is handed
// back to the handler with exponential backoff until it succeeds, the
// redelivery budget runs out or the consumer stops. A Kafka offset is only
// committed once the handler is done with it.
package messaging
