package app

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/ticketbay/ticketing/internal/domain"
)

// fakeStore is an in-memory stand-in for the Postgres repositories. WithTx
// snapshots state and restores it when fn fails, so rollback behaviour can be
// asserted without a database.
type fakeStore struct {
	mu          sync.Mutex
	events      map[string]domain.Event
	ticketTypes map[string]domain.TicketType
	orders      map[string]domain.Order
	tickets     map[string]domain.Ticket
	nextTicket  int

	createOrderErr error
	bindShortfall  int
	releaseErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:      map[string]domain.Event{},
		ticketTypes: map[string]domain.TicketType{},
		orders:      map[string]domain.Order{},
		tickets:     map[string]domain.Ticket{},
	}
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	events := maps.Clone(f.events)
	types := maps.Clone(f.ticketTypes)
	orders := maps.Clone(f.orders)
	tickets := maps.Clone(f.tickets)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.events, f.ticketTypes, f.orders, f.tickets = events, types, orders, tickets
		f.mu.Unlock()
		return err
	}
	return nil
}

// seedPool adds an event and a ticket type with capacity free tickets.
func (f *fakeStore) seedPool(eventID, ticketTypeID string, capacity int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[eventID] = domain.Event{ID: eventID, Name: "event " + eventID}
	f.ticketTypes[ticketTypeID] = domain.TicketType{ID: ticketTypeID, EventID: eventID, Name: "General", Capacity: capacity}
	f.addTicketsLocked(ticketTypeID, capacity)
}

func (f *fakeStore) seedOrder(o domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
	if o.Status != domain.OrderStatusFulfilled {
		return
	}
	bound := 0
	for _, id := range f.sortedTicketIDs() {
		t := f.tickets[id]
		if bound == o.Quantity {
			break
		}
		if t.TicketTypeID == o.TicketTypeID && t.Free() {
			t.Binding = domain.BoundTo(o.ID)
			f.tickets[id] = t
			bound++
		}
	}
}

func (f *fakeStore) addTicketsLocked(ticketTypeID string, count int) {
	for range count {
		f.nextTicket++
		id := "ticket-" + strconv.Itoa(f.nextTicket)
		f.tickets[id] = domain.Ticket{ID: id, TicketTypeID: ticketTypeID, Binding: domain.Unbound()}
	}
}

func (f *fakeStore) sortedTicketIDs() []string {
	ids := slices.Collect(maps.Keys(f.tickets))
	slices.SortFunc(ids, func(a, b string) int {
		na, _ := strconv.Atoi(a[len("ticket-"):])
		nb, _ := strconv.Atoi(b[len("ticket-"):])
		return na - nb
	})
	return ids
}

func (f *fakeStore) free(ticketTypeID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if t.TicketTypeID == ticketTypeID && t.Free() {
			n++
		}
	}
	return n
}

func (f *fakeStore) boundTo(orderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tickets {
		if id, ok := t.Binding.OrderID(); ok && id == orderID {
			n++
		}
	}
	return n
}

func (f *fakeStore) order(id string) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeStore) CreateEvent(_ context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[e.ID] = e
	return nil
}

func (f *fakeStore) GetEvent(_ context.Context, id string) (domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return domain.Event{}, domain.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeStore) ListEvents(context.Context) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := slices.Collect(maps.Values(f.events))
	slices.SortFunc(out, func(a, b domain.Event) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (f *fakeStore) CreateTicketType(_ context.Context, tt domain.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.events[tt.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	f.ticketTypes[tt.ID] = tt
	return nil
}

func (f *fakeStore) InsertTickets(_ context.Context, ticketTypeID string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addTicketsLocked(ticketTypeID, count)
	return nil
}

func (f *fakeStore) GetTicketType(_ context.Context, id string) (domain.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.ticketTypes[id]
	if !ok {
		return domain.TicketType{}, domain.ErrTicketTypeNotFound
	}
	return tt, nil
}

func (f *fakeStore) ListTicketTypesByEvents(_ context.Context, eventIDs []string) ([]domain.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketType
	for _, tt := range f.ticketTypes {
		if slices.Contains(eventIDs, tt.EventID) {
			out = append(out, tt)
		}
	}
	slices.SortFunc(out, func(a, b domain.TicketType) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) CountFreeTickets(ctx context.Context, id string) (int, error) {
	if _, err := f.GetTicketType(ctx, id); err != nil {
		return 0, err
	}
	return f.free(id), nil
}

func (f *fakeStore) CreateOrder(_ context.Context, o domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeStore) GetOrder(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeStore) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (f *fakeStore) LockFreeTickets(_ context.Context, ticketTypeID string, limit int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, id := range f.sortedTicketIDs() {
		if len(out) == limit {
			break
		}
		t := f.tickets[id]
		if t.TicketTypeID == ticketTypeID && t.Free() {
			out = append(out, t)
		}
	}
	return out, nil
}

// BindTickets binds all but bindShortfall of the given tickets, emulating
// rows taken by another transaction between lock and update.
func (f *fakeStore) BindTickets(_ context.Context, orderID string, ticketIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i, id := range ticketIDs {
		if i >= len(ticketIDs)-f.bindShortfall {
			break
		}
		t, ok := f.tickets[id]
		if !ok || !t.Free() {
			continue
		}
		t.Binding = domain.BoundTo(orderID)
		f.tickets[id] = t
		n++
	}
	return n, nil
}

func (f *fakeStore) ReleaseTickets(_ context.Context, orderID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return 0, f.releaseErr
	}
	n := 0
	for id, t := range f.tickets {
		if bound, ok := t.Binding.OrderID(); ok && bound == orderID {
			t.Binding = domain.Unbound()
			f.tickets[id] = t
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID string, status domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	f.orders[orderID] = o
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, e domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type recordingObserver struct {
	allocations   []error
	allocated     int
	cancellations []error
	released      int
}

func (o *recordingObserver) RecordAllocation(_ time.Duration, quantity int, err error) {
	o.allocations = append(o.allocations, err)
	if err == nil {
		o.allocated += quantity
	}
}

func (o *recordingObserver) RecordCancellation(released int, err error) {
	o.cancellations = append(o.cancellations, err)
	if err == nil {
		o.released += released
	}
}
