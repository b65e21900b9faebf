package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ticketbay/ticketing/internal/app"
	"github.com/ticketbay/ticketing/internal/clock"
	"github.com/ticketbay/ticketing/internal/messaging/kafka"
	"github.com/ticketbay/ticketing/internal/metrics"
	"github.com/ticketbay/ticketing/internal/observability"
	"github.com/ticketbay/ticketing/internal/storage/postgres"
	transporthttp "github.com/ticketbay/ticketing/internal/transport/http"
	"github.com/ticketbay/ticketing/migrations"
)

func runServe(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTelServiceName, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		return err
	}

	opts := []app.Option{app.WithLogger(logger)}
	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		obs, err := metrics.NewObserver(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithObserver(obs))
		metricsHandler = promhttp.Handler()
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaOrderTopic), logger)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("kafka writer close", zap.Error(err))
			}
		}()
		opts = append(opts, app.WithPublisher(publisher))
		logger.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	clk := clock.NewSystem()
	inventoryRepo := postgres.NewInventoryRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	inventorySvc := app.NewInventoryService(inventoryRepo, clk, opts...)
	orderSvc := app.NewOrderService(orderRepo, app.NewAllocator(orderRepo, opts...), clk, opts...)
	reportSvc := app.NewReportService(postgres.NewReportRepository(pool))

	gin.SetMode(gin.ReleaseMode)
	router := transporthttp.NewRouter(transporthttp.Services{
		Events:      inventorySvc,
		TicketTypes: inventorySvc,
		Orders:      orderSvc,
		Reports:     reportSvc,
	}, transporthttp.RouterConfig{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     metricsHandler,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, stopping server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
