package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ActivityLogFile is the file, inside the configured directory, the
// consumer appends to.
const ActivityLogFile = "inventory.log"

// Consumer reads InventoryChangedEvent messages and appends one line per
// event to <Dir>/inventory.log.
type Consumer struct {
	URL string
	Dir string
	Log *zap.Logger
}

// Run dials the broker, declares the durable queue and consumes until
// ctx is cancelled.  Lost connections are retried with exponential
// backoff capped at 30s.  Malformed messages are rejected without
// requeue so they cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("activity consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("activity consumer: consume loop ended, reconnecting", zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("activity consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(InventoryQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(InventoryQueueName, "", false, false, false, false, nil)
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
			if err := c.HandleMessage(d.Body); err != nil {
				c.Log.Error("activity consumer: handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// HandleMessage decodes one message body and appends its log line.
func (c *Consumer) HandleMessage(body []byte) error {
	var ev InventoryChangedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Kind == "" {
		return errors.New("event without kind")
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, ActivityLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders an event as a single human-readable line ending in
// a newline.
func FormatLine(ev InventoryChangedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", ev.OccurredAt, ev.Kind)
	if ev.TransactionID != 0 {
		fmt.Fprintf(&b, " | transaction_id=%d", ev.TransactionID)
	}
	if ev.StudentID != nil {
		fmt.Fprintf(&b, " | student_id=%q", *ev.StudentID)
	}
	if ev.ItemName != "" {
		fmt.Fprintf(&b, " | item=%q", ev.ItemName)
	}
	if len(ev.Items) > 0 {
		lines := make([]string, 0, len(ev.Items))
		for _, l := range ev.Items {
			lines = append(lines, fmt.Sprintf("%s x%d", l.ItemName, l.ItemQuantity))
		}
		fmt.Fprintf(&b, " | items=[%s]", strings.Join(lines, ", "))
	}
	b.WriteByte('\n')
	return b.String()
}
