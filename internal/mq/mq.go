// Package mq carries auth lifecycle events to an optional message broker.
package mq

import (
	"context"
	"errors"
)

// Attribute keys set on every published message.
const (
	AttrContentType = "content-type"
	AttrEventType   = "event-type"
)

// ErrClosed is returned by Subscribe on a backend that cannot deliver messages.
var ErrClosed = errors.New("mq backend closed")

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Noop discards published messages. It backs EVENTS_BACKEND=none.
type Noop struct{}

func (Noop) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (Noop) Subscribe(context.Context, string, Handler) error {
	return ErrClosed
}

func (Noop) Close() error {
	return nil
}
