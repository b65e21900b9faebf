package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Events      EventService
	TicketTypes TicketTypeService
	Orders      OrderService
	Reports     ReportService
}

type RouterConfig struct {
	Logger      *zap.Logger
	CORSOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics stdhttp.Handler
}

// NewRouter wires every endpoint onto a fresh gin engine.
func NewRouter(svc Services, cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(Recovery(logger), RequestLogger(logger), CORS(cfg.CORSOrigins))
	r.NoRoute(NotFoundHandler)
	r.NoMethod(MethodNotAllowedHandler)

	r.GET("/health", HealthHandler)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	events := &eventHandler{svc: svc.Events, logger: logger}
	r.GET("/events", events.list)
	r.POST("/events", events.create)
	r.GET("/events/:id", events.get)

	ticketTypes := &ticketTypeHandler{svc: svc.TicketTypes, logger: logger}
	r.POST("/ticket-types", ticketTypes.create)
	r.GET("/ticket-types/:id", ticketTypes.get)
	r.GET("/ticket-types/:id/availability", ticketTypes.availability)

	orders := &orderHandler{svc: svc.Orders, logger: logger}
	og := r.Group("/orders", requireUser)
	og.GET("", orders.list)
	og.POST("", orders.create)
	og.GET("/:id", orders.get)
	og.PUT("/:id", orders.update)
	og.PATCH("/:id", orders.update)
	og.POST("/:id/allocate", orders.allocate)

	reports := &reportHandler{svc: svc.Reports, logger: logger}
	r.GET("/reports/cancellations", reports.cancellations)
	r.GET("/reports/peak-cancellation-date", reports.peakCancellationDate)

	return r
}
