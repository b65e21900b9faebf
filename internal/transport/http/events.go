package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/domain"
)

// EventService is the minimal interface needed for event endpoints.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.EventWithTicketTypes, error)
	GetEvent(ctx context.Context, eventID string) (domain.EventWithTicketTypes, error)
}

type eventHandler struct {
	svc    EventService
	logger *zap.Logger
}

type createEventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ticketTypeSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type eventResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	CreatedAt   time.Time           `json:"created_at"`
	TicketTypes []ticketTypeSummary `json:"ticket_types"`
}

func newEventResponse(e domain.EventWithTicketTypes) eventResponse {
	types := make([]ticketTypeSummary, 0, len(e.TicketTypes))
	for _, tt := range e.TicketTypes {
		types = append(types, ticketTypeSummary{ID: tt.ID, Name: tt.Name})
	}
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		TicketTypes: types,
	}
}

func (h *eventHandler) list(c *gin.Context) {
	events, err := h.svc.ListEvents(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	resp := make([]eventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, newEventResponse(e))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *eventHandler) get(c *gin.Context) {
	event, err := h.svc.GetEvent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newEventResponse(event))
}

func (h *eventHandler) create(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, codeMissingRequiredField, "name is required")
		return
	}

	event, err := h.svc.CreateEvent(c.Request.Context(), app.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newEventResponse(domain.EventWithTicketTypes{Event: event}))
}
