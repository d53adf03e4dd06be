// Package message defines the envelope carried by the broker-backed
// Source adapters (source/nats, source/kafka, source/rabbitmq,
// source/cloudevents): a value plus the identity and metadata needed to
// acknowledge or trace it back to its origin.
package message

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces a unique message ID. The default is
// github.com/google/uuid's NewString (a random version 4 UUID); swap it out
// in tests for a deterministic generator.
type IDGenerator func() string

// DefaultIDGenerator is used by New when no other generator is supplied.
var DefaultIDGenerator IDGenerator = uuid.NewString

// Message wraps a decoded payload with the identity and provenance data the
// broker adapters attach on receipt.
type Message struct {
	ID        string
	Payload   []byte
	Topic     string
	Timestamp time.Time
	Headers   map[string]string

	// Ack, if non-nil, acknowledges the underlying broker delivery. Source
	// adapters set this; synthetic messages built with New leave it nil.
	Ack func() error
	// Nack, if non-nil, negatively acknowledges the delivery (redelivery or
	// dead-lettering, depending on the broker).
	Nack func() error
}

// New builds a Message with a freshly generated ID and the current time,
// for producers constructing outgoing messages rather than adapters
// decoding incoming ones.
func New(topic string, payload []byte, headers map[string]string) Message {
	return Message{
		ID:        DefaultIDGenerator(),
		Payload:   payload,
		Topic:     topic,
		Timestamp: time.Now(),
		Headers:   headers,
	}
}
