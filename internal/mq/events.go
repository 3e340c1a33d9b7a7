package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kasundularaam/flash-feather-starter-v6/config"
	"github.com/kasundularaam/flash-feather-starter-v6/types"
)

type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserLoggedIn   EventType = "user.logged_in"
	EventOAuthLogin     EventType = "user.oauth_login"
)

// AuthEvent is the JSON payload published for each auth lifecycle step.
type AuthEvent struct {
	ID         string             `json:"id"`
	Type       EventType          `json:"type"`
	UserID     int                `json:"user_id"`
	Email      string             `json:"email"`
	Provider   types.AuthProvider `json:"provider"`
	Created    bool               `json:"created,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// EventPublisher publishes auth events. Failures are logged and swallowed:
// an unavailable broker never fails a login.
type EventPublisher struct {
	backend Backend
	channel string
	logger  *slog.Logger
	now     func() time.Time
}

func NewEventPublisher(backend Backend, channel string, logger *slog.Logger) *EventPublisher {
	if backend == nil {
		backend = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventPublisher{
		backend: backend,
		channel: channel,
		logger:  logger,
		now:     time.Now,
	}
}

// Publish emits an event of the given type for user.
func (p *EventPublisher) Publish(ctx context.Context, eventType EventType, user types.User, created bool) {
	event := AuthEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Provider:   user.AuthProvider,
		Created:    created,
		OccurredAt: p.now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode auth event", "error", err, "type", eventType)
		return
	}

	attrs := map[string]string{
		AttrContentType: "application/json",
		AttrEventType:   string(eventType),
	}
	if _, err := p.backend.Publish(ctx, p.channel, data, attrs); err != nil {
		p.logger.WarnContext(ctx, "failed to publish auth event", "error", err, "type", eventType, "user_id", user.ID)
	}
}

// Tail delivers decoded events from the channel until ctx is done.
func (p *EventPublisher) Tail(ctx context.Context, fn func(AuthEvent) error) error {
	return p.backend.Subscribe(ctx, p.channel, func(ctx context.Context, msg Message) error {
		var event AuthEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.WarnContext(ctx, "dropping malformed auth event", "error", err, "message_id", msg.ID)
			return nil
		}
		return fn(event)
	})
}

func (p *EventPublisher) Close() error {
	return p.backend.Close()
}

// NewBackend builds the backend selected by EVENTS_BACKEND.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch cfg.Backend {
	case "", config.EventsBackendNone:
		return Noop{}, nil
	case config.EventsBackendRabbitMQ:
		client, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.EventsBackendPubSub:
		client, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
