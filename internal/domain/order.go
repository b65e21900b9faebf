package domain

import "time"

// CancellationWindow is how long after creation a fulfilled order may still be
// cancelled. It is a fixed policy, not a configuration value.
const CancellationWindow = 30 * time.Minute

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a request for Quantity tickets of a single ticket type.
//
// A pending order has no tickets bound. A fulfilled order has exactly Quantity
// tickets bound. A cancelled order was fulfilled and has released them all.
type Order struct {
	ID           string
	TicketTypeID string
	UserID       string
	Quantity     int
	Status       OrderStatus
	CreatedAt    time.Time
}

// Fulfilled reports whether the order was ever fulfilled. Cancelled orders
// count as fulfilled since cancellation is only reachable from fulfilled.
func (o Order) Fulfilled() bool {
	return o.Status == OrderStatusFulfilled || o.Status == OrderStatusCancelled
}

func (o Order) Cancelled() bool {
	return o.Status == OrderStatusCancelled
}

// CancelDeadline is the first instant at which cancellation is rejected.
func (o Order) CancelDeadline() time.Time {
	return o.CreatedAt.Add(CancellationWindow)
}

// CheckCancellable returns the reason the order cannot be cancelled at now, or
// nil if it can.
func (o Order) CheckCancellable(now time.Time) error {
	switch {
	case o.Status == OrderStatusPending:
		return ErrNotFulfilled
	case o.Status == OrderStatusCancelled:
		return ErrAlreadyCancelled
	case !now.Before(o.CancelDeadline()):
		return ErrCancellationWindowExpired
	}
	return nil
}
