package deliveryservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	service "github.com/goodslice/pizza-fulfillment/internal/app/deliveryservice"
	"github.com/goodslice/pizza-fulfillment/internal/shared/auth"
	"github.com/goodslice/pizza-fulfillment/internal/shared/config"
	"github.com/goodslice/pizza-fulfillment/internal/shared/events"
	"github.com/goodslice/pizza-fulfillment/internal/shared/logger"
	pg "github.com/goodslice/pizza-fulfillment/internal/shared/postgres"
	"github.com/goodslice/pizza-fulfillment/internal/shared/rabbitmq"
	"github.com/goodslice/pizza-fulfillment/internal/shared/telemetry"
)

// Run wires the delivery service and blocks until ctx is cancelled. It
// registers quality-checked orders for delivery and exposes the dispatcher
// commands for the driver hand-off.
func Run(ctx context.Context, port int) error {
	logger := logger.NewLogger("delivery-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load()
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}

	shutdownTracing, err := telemetry.Setup(ctx, "delivery-service", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error(ctx, "telemetry_setup_failed", "Failed to set up tracing", err)
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shCtx)
	}()

	pool, err := pg.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err)
		return err
	}
	defer pool.Close()
	logger.Info(ctx, "db_connected", "Connected to PostgreSQL database", nil)

	rmq, err := rabbitmq.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()

	uow := pg.NewUnitOfWork(pool)
	deliveryRepo := pg.NewDeliveryRepo()
	pub := rabbitmq.NewPublisher(rmq)

	svc := service.New(uow, deliveryRepo, pub, logger)

	consumer := rabbitmq.NewConsumer(rmq, logger, cfg.Consumer.Prefetch, cfg.Consumer.MaxAttempts)
	go consumer.Consume(ctx, events.QueueDeliveryQualityChecked, service.QualityCheckedHandler(svc))

	h := service.NewHandler(svc, logger)
	mux := http.NewServeMux()
	h.Register(mux)

	handler := auth.Middleware(cfg.Auth.JWTSecret, "dispatcher")(mux)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Delivery service started on port %d", port),
		map[string]any{"port": port},
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
