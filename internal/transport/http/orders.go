package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/domain"
)

// userIDHeader identifies the caller. Authentication happens upstream.
const userIDHeader = "X-User-ID"

// OrderService is the minimal interface needed for order endpoints.
type OrderService interface {
	PlaceOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	Allocate(ctx context.Context, userID, orderID string) (domain.Order, error)
	UpdateOrder(ctx context.Context, userID, orderID string, in app.UpdateOrderInput) (domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)
}

type orderHandler struct {
	svc    OrderService
	logger *zap.Logger
}

type createOrderRequest struct {
	TicketType string `json:"ticket_type"`
	Quantity   int    `json:"quantity"`
}

type updateOrderRequest struct {
	TicketType string `json:"ticket_type"`
	Quantity   int    `json:"quantity"`
	Cancelled  bool   `json:"cancelled"`
}

type orderResponse struct {
	ID         string    `json:"id"`
	TicketType string    `json:"ticket_type"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	Cancelled  bool      `json:"cancelled"`
	CreatedAt  time.Time `json:"created_at"`
}

// pendingOrderError is returned when an order was created but could not be
// allocated, so clients can retry it.
type pendingOrderError struct {
	errorResponse
	OrderID string `json:"order_id"`
}

func newOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		TicketType: o.TicketTypeID,
		Quantity:   o.Quantity,
		Status:     string(o.Status),
		Cancelled:  o.Cancelled(),
		CreatedAt:  o.CreatedAt,
	}
}

// requireUser aborts with 401 when the caller is not identified.
func requireUser(c *gin.Context) {
	userID := c.GetHeader(userIDHeader)
	if userID == "" {
		writeError(c, http.StatusUnauthorized, codeUnauthenticated, userIDHeader+" header is required")
		return
	}
	c.Set(userIDHeader, userID)
	c.Next()
}

func (h *orderHandler) create(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.TicketType == "" {
		writeError(c, http.StatusBadRequest, codeMissingRequiredField, "ticket_type is required")
		return
	}

	order, err := h.svc.PlaceOrder(c.Request.Context(), app.CreateOrderInput{
		UserID:       c.GetString(userIDHeader),
		TicketTypeID: req.TicketType,
		Quantity:     req.Quantity,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientInventory) && order.ID != "" {
			c.AbortWithStatusJSON(http.StatusConflict, pendingOrderError{
				errorResponse: errorResponse{Error: err.Error(), Code: codeInsufficientInventory},
				OrderID:       order.ID,
			})
			return
		}
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

func (h *orderHandler) list(c *gin.Context) {
	orders, err := h.svc.ListOrders(c.Request.Context(), c.GetString(userIDHeader))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *orderHandler) get(c *gin.Context) {
	order, err := h.svc.GetOrder(c.Request.Context(), c.GetString(userIDHeader), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h *orderHandler) update(c *gin.Context) {
	var req updateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	order, err := h.svc.UpdateOrder(c.Request.Context(), c.GetString(userIDHeader), c.Param("id"), app.UpdateOrderInput{
		TicketTypeID: req.TicketType,
		Quantity:     req.Quantity,
		Cancelled:    req.Cancelled,
	})
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h *orderHandler) allocate(c *gin.Context) {
	order, err := h.svc.Allocate(c.Request.Context(), c.GetString(userIDHeader), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}
