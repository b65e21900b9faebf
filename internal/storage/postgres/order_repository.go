package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketbay/ticketing/internal/domain"
)

type OrderRepository struct {
	pool *pgxpool.Pool
	q    querier
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool, q: querier{pool: pool}}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *OrderRepository) GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	return getTicketType(ctx, r.q, ticketTypeID)
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (id, ticket_type_id, user_id, quantity, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.exec(ctx, stmt,
		order.ID,
		order.TicketTypeID,
		order.UserID,
		order.Quantity,
		string(order.Status),
		order.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrTicketTypeNotFound
		}
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, ticket_type_id, user_id, quantity, status, created_at
FROM orders
WHERE id = $1`
	return r.getOrder(ctx, query, orderID)
}

// GetOrderForUpdate locks the order row until the surrounding transaction
// ends. Concurrent allocate/cancel calls on the same order serialise here.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	const query = `
SELECT id, ticket_type_id, user_id, quantity, status, created_at
FROM orders
WHERE id = $1
FOR UPDATE`
	return r.getOrder(ctx, query, orderID)
}

func (r *OrderRepository) getOrder(ctx context.Context, query, orderID string) (domain.Order, error) {
	var o domain.Order
	var status string
	err := r.q.queryRow(ctx, query, orderID).
		Scan(&o.ID, &o.TicketTypeID, &o.UserID, &o.Quantity, &status, &o.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Order{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	const query = `
SELECT id, ticket_type_id, user_id, quantity, status, created_at
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC, id ASC`
	rows, err := r.q.query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		var status string
		if err := rows.Scan(&o.ID, &o.TicketTypeID, &o.UserID, &o.Quantity, &status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate orders: %w", rows.Err())
	}
	return orders, nil
}

// LockFreeTickets locks up to limit unbound tickets of a pool for the rest of
// the surrounding transaction. Tickets already locked by another transaction
// are skipped rather than waited on, so concurrent callers receive disjoint
// sets. Must run inside WithTx.
func (r *OrderRepository) LockFreeTickets(ctx context.Context, ticketTypeID string, limit int) ([]domain.Ticket, error) {
	const query = `
SELECT id, ticket_type_id
FROM tickets
WHERE ticket_type_id = $1 AND order_id IS NULL
LIMIT $2
FOR UPDATE SKIP LOCKED`
	rows, err := r.q.query(ctx, query, ticketTypeID, limit)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock free tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0, limit)
	for rows.Next() {
		t := domain.Ticket{Binding: domain.Unbound()}
		if err := rows.Scan(&t.ID, &t.TicketTypeID); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}

// BindTickets assigns the given tickets to orderID and returns how many were
// bound. Tickets that are no longer free are left untouched.
func (r *OrderRepository) BindTickets(ctx context.Context, orderID string, ticketIDs []string) (int, error) {
	if len(ticketIDs) == 0 {
		return 0, nil
	}
	const stmt = `
UPDATE tickets
SET order_id = $1
WHERE id = ANY($2::text[]::uuid[]) AND order_id IS NULL`
	tag, err := r.q.exec(ctx, stmt, orderID, ticketIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return 0, domain.ErrOrderNotFound
		}
		return 0, fmt.Errorf("bind tickets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ReleaseTickets unbinds every ticket held by orderID and returns the count.
func (r *OrderRepository) ReleaseTickets(ctx context.Context, orderID string) (int, error) {
	const stmt = `UPDATE tickets SET order_id = NULL WHERE order_id = $1`
	tag, err := r.q.exec(ctx, stmt, orderID)
	if err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("release tickets: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	const stmt = `UPDATE orders SET status = $2 WHERE id = $1`
	tag, err := r.q.exec(ctx, stmt, orderID, string(status))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
