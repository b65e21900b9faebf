package app

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/clock"
	"github.com/ticketbay/ticketing/internal/domain"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ReleaseTickets(ctx context.Context, orderID string) (int, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// OrderAllocator is satisfied by *Allocator.
type OrderAllocator interface {
	Allocate(ctx context.Context, orderID string) (domain.Order, error)
}

type OrderService struct {
	repo      OrderRepository
	allocator OrderAllocator
	clock     clock.Clock
	logger    *zap.Logger
	observer  Observer
	publisher OrderEventPublisher
}

func NewOrderService(repo OrderRepository, allocator OrderAllocator, clk clock.Clock, opts ...Option) *OrderService {
	o := newOptions(opts)
	return &OrderService{
		repo:      repo,
		allocator: allocator,
		clock:     clk,
		logger:    o.logger,
		observer:  o.observer,
		publisher: o.publisher,
	}
}

type CreateOrderInput struct {
	UserID       string
	TicketTypeID string
	Quantity     int
}

// UpdateOrderInput carries the full order representation sent by a client.
// Only the cancelled flag may change; TicketTypeID and Quantity must match the
// stored order when set.
type UpdateOrderInput struct {
	TicketTypeID string
	Quantity     int
	Cancelled    bool
}

// CreateOrder persists a pending order. No tickets are bound.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if in.UserID == "" {
		return domain.Order{}, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if in.TicketTypeID == "" {
		return domain.Order{}, fmt.Errorf("%w: ticket type is required", domain.ErrValidation)
	}
	if in.Quantity <= 0 {
		return domain.Order{}, fmt.Errorf("%w: quantity must be greater than zero", domain.ErrValidation)
	}

	if _, err := s.repo.GetTicketType(ctx, in.TicketTypeID); err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		ID:           newID(),
		TicketTypeID: in.TicketTypeID,
		UserID:       in.UserID,
		Quantity:     in.Quantity,
		Status:       domain.OrderStatusPending,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

// PlaceOrder creates an order and allocates it immediately. When allocation
// fails the pending order is returned alongside the error so the caller can
// retry with Allocate.
func (s *OrderService) PlaceOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.String("ticket_type.id", in.TicketTypeID),
		attribute.Int("order.quantity", in.Quantity),
	))
	defer span.End()

	order, err := s.CreateOrder(ctx, in)
	if err != nil {
		recordSpanError(span, err)
		return domain.Order{}, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID))

	fulfilled, err := s.allocator.Allocate(ctx, order.ID)
	if err != nil {
		recordSpanError(span, err)
		return order, err
	}
	s.publish(ctx, domain.OrderEventFulfilled, fulfilled)
	return fulfilled, nil
}

// Allocate retries allocation of a pending order owned by userID.
func (s *OrderService) Allocate(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if _, err := s.GetOrder(ctx, userID, orderID); err != nil {
		return domain.Order{}, err
	}
	fulfilled, err := s.allocator.Allocate(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	s.publish(ctx, domain.OrderEventFulfilled, fulfilled)
	return fulfilled, nil
}

// Cancel releases every ticket of a fulfilled order and marks it cancelled.
// The order must still be inside its cancellation window at the service
// clock's current time. An empty userID skips the ownership check.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Cancel",
		trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	now := s.clock.Now()
	var (
		result   domain.Order
		released int
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if userID != "" && order.UserID != userID {
			return domain.ErrOrderNotFound
		}
		if err := order.CheckCancellable(now); err != nil {
			return err
		}

		released, err = s.repo.ReleaseTickets(txCtx, order.ID)
		if err != nil {
			return err
		}
		if released != order.Quantity {
			return fmt.Errorf("release tickets: order %s held %d tickets, want %d", order.ID, released, order.Quantity)
		}
		if err := s.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusCancelled); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		result = order
		return nil
	})
	s.observer.RecordCancellation(released, err)
	if err != nil {
		recordSpanError(span, err)
		return domain.Order{}, err
	}

	s.logger.Info("order cancelled",
		zap.String("order_id", result.ID),
		zap.Int("released", released),
	)
	s.publish(ctx, domain.OrderEventCancelled, result)
	return result, nil
}

// UpdateOrder applies a client update to an order. Cancellation is the only
// permitted change.
func (s *OrderService) UpdateOrder(ctx context.Context, userID, orderID string, in UpdateOrderInput) (domain.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Cancelled() {
		return domain.Order{}, domain.ErrAlreadyCancelled
	}
	if in.TicketTypeID != "" && in.TicketTypeID != order.TicketTypeID {
		return domain.Order{}, fmt.Errorf("%w: ticket type cannot be changed", domain.ErrValidation)
	}
	if in.Quantity != 0 && in.Quantity != order.Quantity {
		return domain.Order{}, fmt.Errorf("%w: quantity cannot be changed", domain.ErrValidation)
	}
	if !in.Cancelled {
		return order, nil
	}
	return s.Cancel(ctx, userID, orderID)
}

// GetOrder returns an order owned by userID. Orders of other users are
// reported as not found. An empty userID skips the ownership check.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if userID != "" && order.UserID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	return s.repo.ListOrdersByUser(ctx, userID)
}

func (s *OrderService) publish(ctx context.Context, typ domain.OrderEventType, order domain.Order) {
	event := domain.NewOrderEvent(typ, order, s.clock.Now().UTC())
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("publish order event failed",
			zap.String("type", string(typ)),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// recordSpanError marks the span failed unless err is an expected business
// outcome.
func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrOrderNotFound) {
		return
	}
	span.SetStatus(codes.Error, err.Error())
}
