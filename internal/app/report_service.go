package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ticketbay/ticketing/internal/domain"
)

type ReportRepository interface {
	CountOrdersForEvent(ctx context.Context, eventName string) (total, cancelled int, err error)
	DailyCancelledQuantities(ctx context.Context) ([]domain.DailyCancellations, error)
}

// ReportService answers read-only aggregate queries over orders.
type ReportService struct {
	repo ReportRepository
}

func NewReportService(repo ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// CancellationSummary returns the order count and cancellation rate for the
// event with the given name. ErrNoData is returned when the event has no
// orders or none of them were cancelled.
func (s *ReportService) CancellationSummary(ctx context.Context, eventName string) (domain.CancellationSummary, error) {
	ctx, span := tracer.Start(ctx, "reports.CancellationSummary",
		trace.WithAttributes(attribute.String("event.name", eventName)))
	defer span.End()

	if eventName == "" {
		return domain.CancellationSummary{}, fmt.Errorf("%w: event name is required", domain.ErrValidation)
	}
	total, cancelled, err := s.repo.CountOrdersForEvent(ctx, eventName)
	if err != nil {
		recordSpanError(span, err)
		return domain.CancellationSummary{}, err
	}
	return domain.NewCancellationSummary(eventName, total, cancelled)
}

// DateWithMostCancellations returns the UTC day with the highest cancelled
// ticket quantity. Ties go to the earliest day.
func (s *ReportService) DateWithMostCancellations(ctx context.Context) (domain.PeakCancellationDay, error) {
	ctx, span := tracer.Start(ctx, "reports.DateWithMostCancellations")
	defer span.End()

	days, err := s.repo.DailyCancelledQuantities(ctx)
	if err != nil {
		recordSpanError(span, err)
		return domain.PeakCancellationDay{}, err
	}
	return domain.FindPeakCancellationDay(days)
}
