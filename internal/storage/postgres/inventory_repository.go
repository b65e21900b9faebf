package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketbay/ticketing/internal/domain"
)

type InventoryRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{pool: pool, q: querier{pool: pool}}
}

func (r *InventoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *InventoryRepository) CreateEvent(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, name, description, created_at)
VALUES ($1, $2, $3, $4)`
	_, err := r.q.exec(ctx, stmt, event.ID, event.Name, event.Description, event.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *InventoryRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	const query = `SELECT id, name, description, created_at FROM events WHERE id = $1`
	var e domain.Event
	err := r.q.queryRow(ctx, query, eventID).Scan(&e.ID, &e.Name, &e.Description, &e.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

func (r *InventoryRepository) ListEvents(ctx context.Context) ([]domain.Event, error) {
	const query = `
SELECT id, name, description, created_at
FROM events
ORDER BY created_at ASC, id ASC`
	rows, err := r.q.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate events: %w", rows.Err())
	}
	return events, nil
}

func (r *InventoryRepository) CreateTicketType(ctx context.Context, tt domain.TicketType) error {
	const stmt = `
INSERT INTO ticket_types (id, event_id, name, capacity, created_at)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.exec(ctx, stmt, tt.ID, tt.EventID, tt.Name, tt.Capacity, tt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create ticket type: %w", err)
	}
	return nil
}

// InsertTickets bulk-inserts count free tickets for a pool using COPY.
func (r *InventoryRepository) InsertTickets(ctx context.Context, ticketTypeID string, count int) error {
	if count == 0 {
		return nil
	}
	typeID, err := uuid.Parse(ticketTypeID)
	if err != nil {
		return domain.ErrInvalidID
	}
	poolID := pgtype.UUID{Bytes: typeID, Valid: true}

	n, err := r.q.copyFrom(ctx,
		pgx.Identifier{"tickets"},
		[]string{"id", "ticket_type_id"},
		pgx.CopyFromSlice(count, func(int) ([]any, error) {
			return []any{pgtype.UUID{Bytes: uuid.New(), Valid: true}, poolID}, nil
		}),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrTicketTypeNotFound
		}
		return fmt.Errorf("insert tickets: %w", err)
	}
	if int(n) != count {
		return fmt.Errorf("insert tickets: copied %d of %d rows", n, count)
	}
	return nil
}

func (r *InventoryRepository) GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	return getTicketType(ctx, r.q, ticketTypeID)
}

func (r *InventoryRepository) ListTicketTypesByEvents(ctx context.Context, eventIDs []string) ([]domain.TicketType, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	const query = `
SELECT id, event_id, name, capacity, created_at
FROM ticket_types
WHERE event_id = ANY($1::text[]::uuid[])
ORDER BY created_at ASC, id ASC`
	rows, err := r.q.query(ctx, query, eventIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	defer rows.Close()

	var types []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Capacity, &tt.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket type: %w", err)
		}
		types = append(types, tt)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate ticket types: %w", rows.Err())
	}
	return types, nil
}

// CountFreeTickets returns the number of unbound tickets of a pool.
func (r *InventoryRepository) CountFreeTickets(ctx context.Context, ticketTypeID string) (int, error) {
	const query = `
SELECT COUNT(t.id) FILTER (WHERE t.order_id IS NULL)
FROM ticket_types tt
LEFT JOIN tickets t ON t.ticket_type_id = tt.id
WHERE tt.id = $1
GROUP BY tt.id`
	var free int
	if err := r.q.queryRow(ctx, query, ticketTypeID).Scan(&free); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return 0, domain.ErrTicketTypeNotFound
		}
		return 0, fmt.Errorf("count free tickets: %w", err)
	}
	return free, nil
}

func getTicketType(ctx context.Context, q querier, ticketTypeID string) (domain.TicketType, error) {
	const query = `SELECT id, event_id, name, capacity, created_at FROM ticket_types WHERE id = $1`
	var tt domain.TicketType
	err := q.queryRow(ctx, query, ticketTypeID).Scan(&tt.ID, &tt.EventID, &tt.Name, &tt.Capacity, &tt.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.TicketType{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.TicketType{}, domain.ErrTicketTypeNotFound
		}
		return domain.TicketType{}, fmt.Errorf("get ticket type: %w", err)
	}
	return tt, nil
}
