package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ticketbay/ticketing/internal/domain"
)

const namespace = "ticketing"

// Observer exports allocation and cancellation outcomes to Prometheus.
type Observer struct {
	allocations       *prometheus.CounterVec
	allocationLatency prometheus.Histogram
	allocatedTickets  prometheus.Counter
	cancellations     *prometheus.CounterVec
	releasedTickets   prometheus.Counter
}

// NewObserver registers the ticketing collectors on reg, reusing collectors
// that are already registered. A nil reg uses the default registerer.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &Observer{}
	var err error
	if o.allocations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocations_total",
		Help:      "Allocation attempts by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if o.allocationLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "allocation_duration_seconds",
		Help:      "Latency of allocation transactions.",
		Buckets:   prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	if o.allocatedTickets, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "allocated_tickets_total",
		Help:      "Tickets bound to orders.",
	})); err != nil {
		return nil, err
	}
	if o.cancellations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Cancellation attempts by result.",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if o.releasedTickets, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "released_tickets_total",
		Help:      "Tickets released by cancellations.",
	})); err != nil {
		return nil, err
	}
	return o, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

func (o *Observer) RecordAllocation(duration time.Duration, quantity int, err error) {
	if o == nil {
		return
	}
	o.allocationLatency.Observe(duration.Seconds())
	o.allocations.WithLabelValues(allocationResult(err)).Inc()
	if err == nil {
		o.allocatedTickets.Add(float64(quantity))
	}
}

func (o *Observer) RecordCancellation(released int, err error) {
	if o == nil {
		return
	}
	o.cancellations.WithLabelValues(cancellationResult(err)).Inc()
	if err == nil {
		o.releasedTickets.Add(float64(released))
	}
}

func allocationResult(err error) string {
	switch {
	case err == nil:
		return "fulfilled"
	case errors.Is(err, domain.ErrInsufficientInventory):
		return "insufficient_inventory"
	case errors.Is(err, domain.ErrAlreadyFulfilled):
		return "already_fulfilled"
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrInvalidID):
		return "not_found"
	}
	return "error"
}

func cancellationResult(err error) string {
	switch {
	case err == nil:
		return "cancelled"
	case errors.Is(err, domain.ErrCancellationWindowExpired):
		return "window_expired"
	case errors.Is(err, domain.ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, domain.ErrNotFulfilled):
		return "not_fulfilled"
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrInvalidID):
		return "not_found"
	}
	return "error"
}
