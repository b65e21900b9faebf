package domain

import "time"

type OrderEventType string

const (
	OrderEventFulfilled OrderEventType = "order.fulfilled"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

// OrderEvent describes a committed order state change.
type OrderEvent struct {
	Type         OrderEventType `json:"type"`
	OrderID      string         `json:"order_id"`
	TicketTypeID string         `json:"ticket_type_id"`
	UserID       string         `json:"user_id"`
	Quantity     int            `json:"quantity"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// NewOrderEvent builds an event of kind typ for order at the given instant.
func NewOrderEvent(typ OrderEventType, order Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:         typ,
		OrderID:      order.ID,
		TicketTypeID: order.TicketTypeID,
		UserID:       order.UserID,
		Quantity:     order.Quantity,
		OccurredAt:   at,
	}
}
