package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pizza-lovers/internal/api"
	"pizza-lovers/internal/config"
	"pizza-lovers/internal/database"
	"pizza-lovers/internal/events"
	"pizza-lovers/internal/logger"
	"pizza-lovers/internal/messaging"
	"pizza-lovers/internal/metrics"
	"pizza-lovers/internal/services/account"
	"pizza-lovers/internal/services/cart"
	"pizza-lovers/internal/services/catalog"
	"pizza-lovers/internal/services/delivery"
	"pizza-lovers/internal/services/fulfillment"
	"pizza-lovers/internal/services/loyalty"
	"pizza-lovers/internal/services/notification"
	"pizza-lovers/internal/services/order"
	"pizza-lovers/internal/store"
	"pizza-lovers/internal/store/memory"
	"pizza-lovers/internal/store/postgres"
)

func main() {
	// Parse command line flags
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, notification-subscriber, migrate)")
		port       = flag.Int("port", 0, "HTTP port, overrides http.port from the config")
		storage    = flag.String("storage", "postgres", "Order storage (postgres, memory)")
		configFile = flag.String("config", "config.yaml", "Path to the YAML config file")
		migrations = flag.String("migrations", "migrations", "Directory holding the SQL migrations")
		prefetch   = flag.Int("prefetch", 10, "RabbitMQ prefetch count for the notification subscriber")
	)
	flag.Parse()

	// Validate required mode flag
	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}

	// Create logger
	log := logger.New(*mode)
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":    *mode,
		"port":    cfg.HTTP.Port,
		"storage": *storage,
	})

	// Set up graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Route to appropriate service
	switch *mode {
	case "order-service":
		err = runOrderService(ctx, cfg, log, *storage, *migrations)
	case "notification-subscriber":
		err = runNotificationSubscriber(ctx, cfg, log, *prefetch)
	case "migrate":
		err = runMigrations(ctx, cfg, log, *migrations)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}
	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
}

// runOrderService serves the HTTP API until ctx is cancelled
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger, storage, migrations string) error {
	requestID := logger.GenerateRequestID()

	var (
		st     store.Store
		health func(context.Context) error
	)
	switch storage {
	case "postgres":
		db, err := database.New(ctx, cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(ctx, os.DirFS(migrations)); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		st, health = postgres.New(db), db.Ping
	case "memory":
		log.Warn("memory_storage", "Using in-memory storage, data is lost on exit", requestID, nil)
		st = memory.New()
	default:
		return fmt.Errorf("unknown storage: %s", storage)
	}

	m := metrics.New("order-service")
	sinks, closeSinks, err := eventSinks(cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()
	publisher := m.CountFailures(sinks)

	server := api.NewServer(api.Deps{
		Orders:      order.NewService(st, publisher, log),
		Fulfillment: fulfillment.NewService(st, publisher, log).OnApplied(m.ObserveTransition),
		Loyalty:     loyalty.NewService(st, log),
		Catalog:     catalog.NewService(st, log),
		Cart:        cart.NewService(st, log),
		Delivery:    delivery.NewService(st, log),
		Accounts:    account.NewService(st, log),
		Metrics:     m,
		Logger:      log,
		Health:      health,
	})

	// Setup HTTP server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           http.TimeoutHandler(server.SetupRoutes(), cfg.HTTP.RequestTimeout, `{"error":"request timed out"}`),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.HTTP.Port), requestID, map[string]interface{}{
			"port": cfg.HTTP.Port,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("graceful_shutdown", "Shutting down HTTP server", requestID, nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

// eventSinks builds the configured event publishers. With none configured
// events are dropped.
func eventSinks(cfg *config.Config, log *logger.Logger) (events.Publisher, func(), error) {
	var (
		sinks   events.Multi
		closers []func() error
	)

	if cfg.RabbitMQEnabled() {
		conn, err := messaging.New(cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize messaging: %w", err)
		}
		sinks = append(sinks, messaging.NewPublisher(conn, log))
		closers = append(closers, conn.Close)
	}

	if brokers := cfg.KafkaBrokers(); len(brokers) > 0 {
		k := events.NewKafkaSink(brokers, cfg.Kafka.Topic)
		sinks = append(sinks, k)
		closers = append(closers, k.Close)
		log.Info("kafka_sink_enabled", "Publishing order events to Kafka", "startup", map[string]interface{}{
			"brokers": brokers,
			"topic":   cfg.Kafka.Topic,
		})
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Error("sink_close_failed", "Failed to close event sink", "shutdown", err, nil)
			}
		}
	}

	if len(sinks) == 0 {
		log.Warn("no_event_sinks", "No event sinks configured, order events are dropped", "startup", nil)
		return events.Nop{}, closeAll, nil
	}
	return sinks, closeAll, nil
}

// runNotificationSubscriber prints order notifications until ctx is cancelled
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger, prefetch int) error {
	if !cfg.RabbitMQEnabled() {
		return fmt.Errorf("rabbitmq.host is required for the notification subscriber")
	}

	conn, err := messaging.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	consumer := messaging.NewConsumer(conn, log, messaging.NotificationsQueue, "notification-subscriber", prefetch)
	return notification.NewSubscriber(consumer, log).Run(ctx)
}

// runMigrations applies pending migrations and exits
func runMigrations(ctx context.Context, cfg *config.Config, log *logger.Logger, migrations string) error {
	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	return db.RunMigrations(ctx, os.DirFS(migrations))
}
