package domain

import "time"

// EventType names an order domain event.
type EventType string

const (
	EventOrderCreated         EventType = "order.created"
	EventStatusChanged        EventType = "order.status_changed"
	EventDisputeMessagePosted EventType = "order.dispute_message_posted"
)

// Event is published after a committed order change.
type Event struct {
	Type           EventType `json:"type"`
	OrderID        string    `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	CustomerID     string    `json:"customer_id"`
	Status         Status    `json:"status"`
	PreviousStatus Status    `json:"previous_status,omitempty"`
	Actor          Actor     `json:"actor"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	Version        int64     `json:"version"`
}

// NewEvent builds an event of type t for o.
func NewEvent(t EventType, o *Order, previous Status, by Actor, at time.Time) Event {
	return Event{
		Type:           t,
		OrderID:        o.ID,
		TrackingNumber: o.TrackingNumber,
		CustomerID:     o.CustomerID,
		Status:         o.Status,
		PreviousStatus: previous,
		Actor:          by,
		OccurredAt:     at,
		Version:        o.Version,
	}
}
