package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-gateway/pkg/instance"
	"github.com/angelmondragon/storefront-gateway/pkg/logger"
)

// Publisher emits checkout events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType Type, data any) error
}

type topic interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string, orderingKey string) (string, error)
}

// ordered is implemented by payloads that must be delivered in order per key.
type ordered interface {
	OrderingKey() string
}

// TopicPublisher wraps payloads in an Envelope and sends them to a Pub/Sub topic.
type TopicPublisher struct {
	topic topic
	logg  *logger.Logger
	now   func() time.Time
}

func NewTopicPublisher(t topic, logg *logger.Logger) (*TopicPublisher, error) {
	if t == nil {
		return nil, fmt.Errorf("topic required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &TopicPublisher{topic: t, logg: logg, now: time.Now}, nil
}

func (p *TopicPublisher) Publish(ctx context.Context, eventType Type, data any) error {
	envelope := Envelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}
	attrs := map[string]string{
		"event_type": string(eventType),
		"event_id":   envelope.EventID,
		"instance":   instance.GetID(),
	}
	var key string
	if o, ok := data.(ordered); ok {
		key = o.OrderingKey()
	}
	id, err := p.topic.Publish(ctx, body, attrs, key)
	if err != nil {
		return err
	}
	p.logg.Debug(p.logg.WithFields(ctx, map[string]any{
		"event_type":   string(eventType),
		"message_id":   id,
		"ordering_key": key,
	}), "checkout event published")
	return nil
}

// Noop discards events; used when no checkout topic is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Type, any) error { return nil }
