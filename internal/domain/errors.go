package domain

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidID          = errors.New("invalid id")
)

var (
	ErrValidation = errors.New("validation error")
)

// Allocation.
var (
	ErrAlreadyFulfilled      = errors.New("order already fulfilled")
	ErrInsufficientInventory = errors.New("not enough tickets available")
)

// Cancellation.
var (
	ErrNotFulfilled              = errors.New("cannot cancel an unfulfilled order, please contact support")
	ErrAlreadyCancelled          = errors.New("order has already been cancelled")
	ErrCancellationWindowExpired = errors.New("cancellation window has passed")
)

var (
	ErrNoData = errors.New("no data for report")
)
