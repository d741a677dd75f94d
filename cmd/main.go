package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"order-service/internal/auth"
	"order-service/internal/cache"
	"order-service/internal/config"
	"order-service/internal/database"
	"order-service/internal/identity"
	"order-service/internal/logger"
	"order-service/internal/messaging"
	"order-service/internal/metrics"
	"order-service/internal/observability"
	"order-service/internal/server"
	"order-service/internal/services/notification"
	"order-service/internal/services/order"
	"order-service/internal/services/report"
)

const (
	modeOrderService           = "order-service"
	modeNotificationSubscriber = "notification-subscriber"
)

// notificationPublisher is a queue publisher owning its broker connection
type notificationPublisher interface {
	order.QueuePublisher
	Close() error
}

func main() {
	var (
		mode       = flag.String("mode", "", "Service mode (order-service, notification-subscriber)")
		port       = flag.Int("port", 0, "HTTP port, overrides server.port")
		configPath = flag.String("config", "config.yaml", "Path to the YAML configuration file")
	)
	flag.Parse()

	if *mode == "" {
		fmt.Fprintf(os.Stderr, "Error: --mode flag is required\n")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTelemetry, err := observability.Setup(ctx, *mode, cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up telemetry: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(*mode)
	if observability.Enabled(cfg.Telemetry) {
		log = log.WithOTel(*mode)
	}
	requestID := logger.GenerateRequestID()

	log.Info("service_started", fmt.Sprintf("Starting %s", *mode), requestID, map[string]interface{}{
		"mode":      *mode,
		"port":      cfg.Server.Port,
		"transport": cfg.Notification.Transport,
	})

	switch *mode {
	case modeOrderService:
		err = runOrderService(ctx, cfg, log)
	case modeNotificationSubscriber:
		err = runNotificationSubscriber(ctx, cfg, log)
	default:
		err = fmt.Errorf("unknown mode: %s", *mode)
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if shutdownErr := shutdownTelemetry(flushCtx); shutdownErr != nil {
		log.Error("telemetry_shutdown_failed", "Failed to flush telemetry", requestID, shutdownErr, nil)
	}
	flushCancel()

	if err != nil {
		log.Error("service_failed", fmt.Sprintf("%s failed", *mode), requestID, err, nil)
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("service_stopped", "Service stopped gracefully", requestID, nil)
	_ = log.Sync()
}

// runOrderService serves the order engine and reports over HTTP
func runOrderService(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	requestID := logger.GenerateRequestID()

	db, err := database.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	log.Info("db_connected", "Connected to PostgreSQL database", requestID, nil)

	if err := db.RunMigrations(ctx, os.DirFS(cfg.Server.MigrationsPath)); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	verifier, err := auth.NewVerifier(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	listings := cache.NewRedisGateway(cache.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Timeouts.Cache,
	})
	defer listings.Close()

	publisher, queueCheck, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	m := metrics.New()
	identityClient := identity.NewClient(cfg.Identity, cfg.Timeouts.Identity, log)
	orderRepo := order.NewPostgresRepository(db.Pool)

	service := order.NewService(
		orderRepo,
		identityClient,
		identityClient,
		listings,
		order.NewNotifier(publisher, cfg.Notification.Queue, cfg.Timeouts.Queue),
		m,
		log,
		order.Options{
			ListingTTL:   cfg.Cache.ListingTTL,
			StoreTimeout: cfg.Timeouts.Store,
		},
	)

	router := server.NewRouter(log, m)
	router.GET("/health", server.HealthHandler(modeOrderService, 5*time.Second,
		server.Check{Name: "database", Critical: true, Ping: db.Ping},
		server.Check{Name: "cache", Ping: listings.Ping},
		queueCheck,
	))
	router.GET("/metrics", gin.WrapH(m.Handler()))

	api := router.Group("", auth.Authenticate(verifier, log))
	order.NewHandler(service, log).RegisterRoutes(api)
	report.NewHandler(report.NewPostgresRepository(db.Pool), log, cfg.Timeouts.Store).RegisterRoutes(api)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("service_started", fmt.Sprintf("Order Service started on port %d", cfg.Server.Port), requestID, map[string]interface{}{
			"port": cfg.Server.Port,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}

// newPublisher builds the notification publisher for the configured transport
func newPublisher(cfg *config.Config, log *logger.Logger) (notificationPublisher, server.Check, error) {
	switch cfg.Notification.Transport {
	case config.TransportKafka:
		pub, err := messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Notification.Queue, otel.GetTracerProvider(), log)
		if err != nil {
			return nil, server.Check{}, err
		}
		check := server.Check{Name: "kafka", Ping: func(ctx context.Context) error {
			return messaging.PingKafka(ctx, cfg.Kafka.Brokers)
		}}
		return pub, check, nil
	default:
		conn := messaging.New(cfg, log, cfg.Notification.Queue)
		pub := messaging.NewPublisher(conn, log)
		check := server.Check{Name: "rabbitmq", Ping: func(ctx context.Context) error {
			_, err := conn.Channel(ctx)
			return err
		}}
		return pub, check, nil
	}
}

// runNotificationSubscriber prints order notifications until shutdown
func runNotificationSubscriber(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	var source notification.Source

	switch cfg.Notification.Transport {
	case config.TransportKafka:
		consumer, err := messaging.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Notification.Queue, modeNotificationSubscriber, log)
		if err != nil {
			return err
		}
		source = consumer
	default:
		conn := messaging.New(cfg, log, cfg.Notification.Queue)
		source = messaging.NewConsumer(conn, log, cfg.Notification.Queue, modeNotificationSubscriber, cfg.RabbitMQ.Prefetch)
	}

	return notification.NewSubscriber(source, log, os.Stdout).Start(ctx)
}
