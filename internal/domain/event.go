package domain

import "time"

// Event is a ticketed event. It owns zero or more ticket types and is never
// modified after creation.
type Event struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// EventWithTicketTypes is the read model returned by event lookups.
type EventWithTicketTypes struct {
	Event
	TicketTypes []TicketType
}
