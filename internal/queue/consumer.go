package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer drains the events queue and appends one line per event to
// <dir>/activity.log.
type Consumer struct {
	url   string
	queue string
	dir   string
}

// NewConsumer returns a consumer writing under dir.
func NewConsumer(url, queue, dir string) *Consumer {
	return &Consumer{url: url, queue: queue, dir: dir}
}

// Run connects, declares the durable queue and consumes until ctx is done.
// Lost connections are retried with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			slog.Warn("activity consumer dial failed", "err", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		slog.Warn("activity consumer loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		slog.Warn("activity consumer qos failed", "err", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				slog.Error("activity consumer rejected message", "err", err)
				_ = d.Nack(false, false) // do not requeue poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	line, err := formatLine(ev)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "activity.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write activity log: %w", err)
	}
	return nil
}

// formatLine renders a single human-readable log line for an event.
func formatLine(ev Event) (string, error) {
	at := ev.OccurredAt.UTC().Format(time.RFC3339)
	switch ev.Type {
	case InvoicePaid:
		var p InvoicePaidPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Invoice paid | invoice_id=%d | invoice_no=%s | customer_id=%d | total=%s %s\n",
			at, p.InvoiceID, p.InvoiceNo, p.CustomerID, p.Total, p.Currency), nil
	case BasketReturned:
		var p BasketReturnedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Basket returned | basket_id=%d | basket_no=%s | customer_id=%d | items=%d | date=%s\n",
			at, p.BasketID, p.BasketNo, p.CustomerID, p.ReturnedItems, p.ReturnDate), nil
	case EquipmentServiceDue:
		var p ServiceDuePayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return "", fmt.Errorf("payload %s: %w", ev.Type, err)
		}
		return fmt.Sprintf("[%s] Equipment service due | items=%d | overdue=%d | serials=%v | checked_on=%s\n",
			at, len(p.ItemIDs), p.Overdue, p.Serials, p.CheckedOn), nil
	}
	return fmt.Sprintf("[%s] %s | %s\n", at, ev.Type, string(ev.Payload)), nil
}
