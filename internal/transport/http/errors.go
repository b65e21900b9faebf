package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/domain"
)

const (
	codeNotFound                  = "not_found"
	codeMethodNotAllowed          = "method_not_allowed"
	codeInvalidRequestBody        = "invalid_request_body"
	codeMissingRequiredField      = "missing_required_field"
	codeUnauthenticated           = "unauthenticated"
	codeValidation                = "validation_error"
	codeInvalidID                 = "invalid_id"
	codeEventNotFound             = "event_not_found"
	codeTicketTypeNotFound        = "ticket_type_not_found"
	codeOrderNotFound             = "order_not_found"
	codeAlreadyFulfilled          = "already_fulfilled"
	codeInsufficientInventory     = "insufficient_inventory"
	codeNotFulfilled              = "not_fulfilled"
	codeAlreadyCancelled          = "already_cancelled"
	codeCancellationWindowExpired = "cancellation_window_expired"
	codeNoData                    = "no_data"
	codeForbidden                 = "forbidden"
	codeInternalError             = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

var errorMappings = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrValidation, http.StatusBadRequest, codeValidation},
	{domain.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
	{domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound},
	{domain.ErrTicketTypeNotFound, http.StatusNotFound, codeTicketTypeNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound, codeOrderNotFound},
	{domain.ErrNoData, http.StatusNotFound, codeNoData},
	{domain.ErrAlreadyFulfilled, http.StatusConflict, codeAlreadyFulfilled},
	{domain.ErrInsufficientInventory, http.StatusConflict, codeInsufficientInventory},
	{domain.ErrNotFulfilled, http.StatusConflict, codeNotFulfilled},
	{domain.ErrAlreadyCancelled, http.StatusConflict, codeAlreadyCancelled},
	{domain.ErrCancellationWindowExpired, http.StatusConflict, codeCancellationWindowExpired},
}

// statusFor maps a service error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternalError
}

// writeServiceError renders err and logs anything that maps to a 500.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		writeError(c, status, code, "internal error")
		return
	}
	writeError(c, status, code, err.Error())
}
