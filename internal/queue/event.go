// Package queue defines the messages exchanged over RabbitMQ and the
// consumer that turns them into an activity log.
package queue

// InventoryQueueName is the durable queue inventory changes are sent to.
const InventoryQueueName = "inventory.changed"

// LineItem is one (name, quantity) pair of a logged transaction.
type LineItem struct {
	ItemName     string `json:"item_name"`
	ItemQuantity int    `json:"item_quantity"`
}

// InventoryChangedEvent is published after a committed mutation.  It is
// self-contained so consumers never need to query the database.
type InventoryChangedEvent struct {
	Kind          string     `json:"kind"`
	TransactionID uint64     `json:"transaction_id,omitempty"`
	StudentID     *string    `json:"student_id,omitempty"`
	ItemName      string     `json:"item_name,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
	OccurredAt    string     `json:"occurred_at"`
}
