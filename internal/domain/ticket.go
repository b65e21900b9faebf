package domain

// Binding is the ownership state of a ticket: either unbound (free) or bound
// to exactly one order.
type Binding struct {
	orderID string
}

// Unbound returns the binding of a free ticket.
func Unbound() Binding {
	return Binding{}
}

// BoundTo returns a binding that assigns a ticket to orderID.
func BoundTo(orderID string) Binding {
	return Binding{orderID: orderID}
}

// OrderID returns the owning order and whether the ticket is bound.
func (b Binding) OrderID() (string, bool) {
	return b.orderID, b.orderID != ""
}

func (b Binding) IsBound() bool {
	return b.orderID != ""
}

// Ticket is one individually allocatable unit of a ticket type.
type Ticket struct {
	ID           string
	TicketTypeID string
	Binding      Binding
}

// Free reports whether the ticket is available for allocation.
func (t Ticket) Free() bool {
	return !t.Binding.IsBound()
}
