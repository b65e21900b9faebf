package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/domain"
)

// defaultTicketTypeQuantity is used when a create request omits quantity.
const defaultTicketTypeQuantity = 1

// TicketTypeService is the minimal interface needed for ticket type endpoints.
type TicketTypeService interface {
	CreateTicketType(ctx context.Context, in app.CreateTicketTypeInput) (domain.TicketType, error)
	GetTicketType(ctx context.Context, ticketTypeID string) (domain.TicketType, error)
	CountFree(ctx context.Context, ticketTypeID string) (domain.Availability, error)
}

type ticketTypeHandler struct {
	svc    TicketTypeService
	logger *zap.Logger
}

type createTicketTypeRequest struct {
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	Quantity *int   `json:"quantity"`
}

type ticketTypeResponse struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type availabilityResponse struct {
	TicketTypeID string `json:"ticket_type_id"`
	Available    int    `json:"available"`
}

func newTicketTypeResponse(tt domain.TicketType) ticketTypeResponse {
	return ticketTypeResponse{ID: tt.ID, EventID: tt.EventID, Name: tt.Name, Quantity: tt.Capacity}
}

func (h *ticketTypeHandler) create(c *gin.Context) {
	var req createTicketTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.EventID == "" || req.Name == "" {
		writeError(c, http.StatusBadRequest, codeMissingRequiredField, "event_id and name are required")
		return
	}
	quantity := defaultTicketTypeQuantity
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	tt, err := h.svc.CreateTicketType(c.Request.Context(), app.CreateTicketTypeInput{
		EventID:  req.EventID,
		Name:     req.Name,
		Capacity: quantity,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newTicketTypeResponse(tt))
}

func (h *ticketTypeHandler) get(c *gin.Context) {
	tt, err := h.svc.GetTicketType(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newTicketTypeResponse(tt))
}

func (h *ticketTypeHandler) availability(c *gin.Context) {
	avail, err := h.svc.CountFree(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{TicketTypeID: avail.TicketTypeID, Available: avail.Free})
}
