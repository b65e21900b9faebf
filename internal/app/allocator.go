package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/domain"
)

// AllocationRepository is the storage surface the Allocator needs. Every
// method except WithTx must be called with a context returned by WithTx.
type AllocationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	LockFreeTickets(ctx context.Context, ticketTypeID string, limit int) ([]domain.Ticket, error)
	BindTickets(ctx context.Context, orderID string, ticketIDs []string) (int, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// Allocator binds free tickets to pending orders.
type Allocator struct {
	repo     AllocationRepository
	logger   *zap.Logger
	observer Observer
}

func NewAllocator(repo AllocationRepository, opts ...Option) *Allocator {
	o := newOptions(opts)
	return &Allocator{repo: repo, logger: o.logger, observer: o.observer}
}

// Allocate binds exactly order.Quantity free tickets to the order and marks it
// fulfilled, all in one transaction. Either every ticket is bound or nothing
// changes.
//
// Free tickets are claimed with row locks that skip rows held by concurrent
// allocations, so two callers never wait on or receive the same ticket.
func (a *Allocator) Allocate(ctx context.Context, orderID string) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "allocator.Allocate",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	start := time.Now()
	var (
		result   domain.Order
		quantity int
	)
	err := a.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := a.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		quantity = order.Quantity
		span.SetAttributes(
			attribute.String("ticket_type.id", order.TicketTypeID),
			attribute.Int("order.quantity", order.Quantity),
		)
		if order.Status != domain.OrderStatusPending {
			return domain.ErrAlreadyFulfilled
		}

		free, err := a.repo.LockFreeTickets(txCtx, order.TicketTypeID, order.Quantity)
		if err != nil {
			return err
		}
		if len(free) < order.Quantity {
			return fmt.Errorf("%w: requested %d, claimed %d", domain.ErrInsufficientInventory, order.Quantity, len(free))
		}

		ids := make([]string, 0, len(free))
		for _, t := range free {
			ids = append(ids, t.ID)
		}
		bound, err := a.repo.BindTickets(txCtx, order.ID, ids)
		if err != nil {
			return err
		}
		if bound != order.Quantity {
			return fmt.Errorf("%w: requested %d, bound %d", domain.ErrInsufficientInventory, order.Quantity, bound)
		}

		if err := a.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusFulfilled); err != nil {
			return err
		}
		order.Status = domain.OrderStatusFulfilled
		result = order
		return nil
	})
	a.observer.RecordAllocation(time.Since(start), quantity, err)
	if err != nil {
		recordSpanError(span, err)
		a.logger.Info("allocation failed",
			zap.String("order_id", orderID),
			zap.Int("quantity", quantity),
			zap.Error(err),
		)
		return domain.Order{}, err
	}

	a.logger.Info("order allocated",
		zap.String("order_id", result.ID),
		zap.String("ticket_type_id", result.TicketTypeID),
		zap.Int("quantity", result.Quantity),
	)
	return result, nil
}
