package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/clock"
	"github.com/ticketbay/ticketing/internal/domain"
)

type InventoryRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateTicketType(ctx context.Context, tt domain.TicketType) error
	InsertTickets(ctx context.Context, ticketTypeID string, count int) error
	GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	ListTicketTypesByEvents(ctx context.Context, eventIDs []string) ([]domain.TicketType, error)
	CountFreeTickets(ctx context.Context, ticketTypeID string) (int, error)
}

type InventoryService struct {
	repo   InventoryRepository
	clock  clock.Clock
	logger *zap.Logger
}

func NewInventoryService(repo InventoryRepository, clk clock.Clock, opts ...Option) *InventoryService {
	o := newOptions(opts)
	return &InventoryService{repo: repo, clock: clk, logger: o.logger}
}

type CreateEventInput struct {
	Name        string
	Description string
}

func (s *InventoryService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.Name == "" {
		return domain.Event{}, fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	event := domain.Event{
		ID:          newID(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// ListEvents returns every event with its ticket types attached.
func (s *InventoryService) ListEvents(ctx context.Context) ([]domain.EventWithTicketTypes, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []domain.EventWithTicketTypes{}, nil
	}

	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	types, err := s.repo.ListTicketTypesByEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	byEvent := make(map[string][]domain.TicketType, len(events))
	for _, tt := range types {
		byEvent[tt.EventID] = append(byEvent[tt.EventID], tt)
	}

	out := make([]domain.EventWithTicketTypes, 0, len(events))
	for _, e := range events {
		out = append(out, domain.EventWithTicketTypes{Event: e, TicketTypes: byEvent[e.ID]})
	}
	return out, nil
}

func (s *InventoryService) GetEvent(ctx context.Context, eventID string) (domain.EventWithTicketTypes, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return domain.EventWithTicketTypes{}, err
	}
	types, err := s.repo.ListTicketTypesByEvents(ctx, []string{event.ID})
	if err != nil {
		return domain.EventWithTicketTypes{}, err
	}
	return domain.EventWithTicketTypes{Event: event, TicketTypes: types}, nil
}

type CreateTicketTypeInput struct {
	EventID  string
	Name     string
	Capacity int
}

// CreateTicketType creates a pool and its Capacity free tickets in one
// transaction.
func (s *InventoryService) CreateTicketType(ctx context.Context, in CreateTicketTypeInput) (domain.TicketType, error) {
	if in.EventID == "" {
		return domain.TicketType{}, domain.ErrInvalidID
	}
	if in.Name == "" {
		return domain.TicketType{}, fmt.Errorf("%w: ticket type name is required", domain.ErrValidation)
	}
	if in.Capacity < 0 {
		return domain.TicketType{}, fmt.Errorf("%w: capacity must not be negative", domain.ErrValidation)
	}

	tt := domain.TicketType{
		ID:        newID(),
		EventID:   in.EventID,
		Name:      in.Name,
		Capacity:  in.Capacity,
		CreatedAt: s.clock.Now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateTicketType(txCtx, tt); err != nil {
			return err
		}
		return s.repo.InsertTickets(txCtx, tt.ID, tt.Capacity)
	})
	if err != nil {
		return domain.TicketType{}, err
	}

	s.logger.Info("ticket type created",
		zap.String("ticket_type_id", tt.ID),
		zap.String("event_id", tt.EventID),
		zap.Int("capacity", tt.Capacity),
	)
	return tt, nil
}

func (s *InventoryService) GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error) {
	return s.repo.GetTicketType(ctx, ticketTypeID)
}

// ListTicketTypes returns the pools of one event. ErrEventNotFound is returned
// for unknown events rather than an empty list.
func (s *InventoryService) ListTicketTypes(ctx context.Context, eventID string) ([]domain.TicketType, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListTicketTypesByEvents(ctx, []string{eventID})
}

func (s *InventoryService) CountFree(ctx context.Context, ticketTypeID string) (domain.Availability, error) {
	free, err := s.repo.CountFreeTickets(ctx, ticketTypeID)
	if err != nil {
		return domain.Availability{}, err
	}
	return domain.Availability{TicketTypeID: ticketTypeID, Free: free}, nil
}
