package domain

import "time"

// TicketType is a fixed-capacity pool of tickets for one event. Capacity is
// set at creation time and exactly Capacity tickets exist for the pool.
type TicketType struct {
	ID        string
	EventID   string
	Name      string
	Capacity  int
	CreatedAt time.Time
}

// Availability reports how many tickets of a pool are currently unbound.
type Availability struct {
	TicketTypeID string
	Free         int
}
