package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/domain"
)

// ReportService is the minimal interface needed for report endpoints.
type ReportService interface {
	CancellationSummary(ctx context.Context, eventName string) (domain.CancellationSummary, error)
	DateWithMostCancellations(ctx context.Context) (domain.PeakCancellationDay, error)
}

type reportHandler struct {
	svc    ReportService
	logger *zap.Logger
}

// Report keys are camelCase to match the existing reporting consumers.
type cancellationSummaryResponse struct {
	Event            string `json:"event"`
	NumberOfOrders   int    `json:"numberOfOrders"`
	CancellationRate string `json:"cancellationRate"`
}

type peakCancellationResponse struct {
	Date                     string `json:"date"`
	NumberOfCancelledTickets int    `json:"numberOfCancelledTickets"`
}

func (h *reportHandler) cancellations(c *gin.Context) {
	event := c.Query("event")
	if event == "" {
		writeError(c, http.StatusBadRequest, codeMissingRequiredField, "event query parameter is required")
		return
	}
	summary, err := h.svc.CancellationSummary(c.Request.Context(), event)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cancellationSummaryResponse{
		Event:            summary.EventName,
		NumberOfOrders:   summary.TotalOrders,
		CancellationRate: summary.Rate(),
	})
}

func (h *reportHandler) peakCancellationDate(c *gin.Context) {
	peak, err := h.svc.DateWithMostCancellations(c.Request.Context())
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, peakCancellationResponse{
		Date:                     peak.DateString(),
		NumberOfCancelledTickets: peak.CancelledQuantity,
	})
}
