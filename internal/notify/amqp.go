// Package notify delivers post-commit inventory events to subscribers:
// RabbitMQ for the activity log and other listeners, and the redis
// response cache, which must forget stale reads.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/queue"
)

// AMQPPublisher sends every event to the inventory.changed queue as a
// persistent JSON message, dialling the broker once per event.
type AMQPPublisher struct {
	URL         string
	DialTimeout time.Duration
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url, DialTimeout: 2 * time.Second}
}

// Notify implements inventory.Notifier.
func (p *AMQPPublisher) Notify(ctx context.Context, ev inventory.Event) error {
	body, err := json.Marshal(ToQueueEvent(ev))
	if err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.DialTimeout),
	})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.InventoryQueueName, // name
		true,                     // durable
		false,                    // autoDelete
		false,                    // exclusive
		false,                    // noWait
		nil,                      // args
	); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(ev.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	return ch.PublishWithContext(ctx, "", queue.InventoryQueueName, false, false, pub)
}

// ToQueueEvent converts a core event into its wire payload.
func ToQueueEvent(ev inventory.Event) queue.InventoryChangedEvent {
	out := queue.InventoryChangedEvent{
		Kind:          string(ev.Kind),
		TransactionID: ev.TransactionID,
		StudentID:     ev.StudentID,
		ItemName:      ev.ItemName,
		OccurredAt:    ev.At.Format(time.RFC3339),
	}
	for _, it := range ev.Items {
		out.Items = append(out.Items, queue.LineItem{ItemName: it.ItemName, ItemQuantity: it.ItemQuantity})
	}
	return out
}
