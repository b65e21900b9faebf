package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ticketbay/ticketing/internal/domain"
)

var tracer = otel.Tracer("github.com/ticketbay/ticketing/internal/app")

// Observer receives allocation and cancellation outcomes for metrics.
type Observer interface {
	RecordAllocation(duration time.Duration, quantity int, err error)
	RecordCancellation(released int, err error)
}

// OrderEventPublisher delivers committed order state changes to other
// systems. Implementations must not assume the caller retries.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

type options struct {
	logger    *zap.Logger
	observer  Observer
	publisher OrderEventPublisher
}

func newOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		observer:  nopObserver{},
		publisher: nopPublisher{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures the services in this package.
type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func WithPublisher(p OrderEventPublisher) Option {
	return func(o *options) {
		if p != nil {
			o.publisher = p
		}
	}
}

type nopObserver struct{}

func (nopObserver) RecordAllocation(time.Duration, int, error) {}
func (nopObserver) RecordCancellation(int, error)              {}

type nopPublisher struct{}

func (nopPublisher) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }
