package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to a durable queue. Each publish dials its own
// connection so the API keeps working while the broker is down. A nil
// *Publisher drops events silently.
type Publisher struct {
	url   string
	queue string
}

// NewPublisher returns a publisher for url and queue.
func NewPublisher(url, queue string) *Publisher {
	return &Publisher{url: url, queue: queue}
}

// Publish wraps payload in an Event and sends it. Errors are logged and
// returned so callers may ignore them without interrupting the request.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) error {
	if p == nil {
		return nil
	}
	body, err := encode(eventType, payload, time.Now().UTC())
	if err != nil {
		slog.Error("event marshal failed", "type", eventType, "err", err)
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		slog.Warn("event broker dial failed", "type", eventType, "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		slog.Warn("event channel open failed", "type", eventType, "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		slog.Warn("event queue declare failed", "queue", p.queue, "err", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         eventType,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		slog.Warn("event publish failed", "type", eventType, "err", err)
		return err
	}
	return nil
}

func encode(eventType string, payload any, at time.Time) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: eventType, OccurredAt: at, Payload: raw})
}
