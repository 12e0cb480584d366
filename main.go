package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcpfirestore "cloud.google.com/go/firestore"
	apporder "github.com/Zhima-Mochi/dropship-fulfillment/internal/application/order"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/config"
	dominventory "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/inventory"
	domain "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/domain/settings"
	fsstore "github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/firestore"
	kafkapub "github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/kafka"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/memory"
	obsinfra "github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/postgres"
	redisstore "github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/redis"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/infrastructure/seed"
	"github.com/Zhima-Mochi/dropship-fulfillment/internal/observability"
	httppresentation "github.com/Zhima-Mochi/dropship-fulfillment/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/dropship-fulfillment/internal/presentation/worker"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger, err := zaplogger.New(
		zaplogger.Options{Level: cfg.LogLevel, File: cfg.LogFile},
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	if s, ok := baseLogger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	shutdownTracing, err := oteltrace.Setup(ctx, cfg.ServiceName, cfg.Env, cfg.Tracing.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			baseLogger.Warn("tracing_shutdown_error", observability.F("error", err.Error()))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel := obsinfra.FromRegistry(oteltrace.New(cfg.ServiceName), baseLogger, prometrics.New(reg, "", ""))

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := seedStore(ctx, cfg, store, baseLogger); err != nil {
		return err
	}

	thresholds, availability, closeRedis, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer closeRedis()

	bus := outbox.NewBus(baseLogger, tel)
	bus.Start(ctx)
	defer bus.Stop(context.Background())

	publisher := domoutbox.Publisher(bus)
	if len(cfg.Kafka.Brokers) > 0 {
		kp := kafkapub.NewPublisher(kafkapub.NewWriter(cfg.Kafka.Brokers), cfg.Kafka.TopicPrefix)
		defer func() { _ = kp.Close() }()
		publisher = outbox.NewFanout(bus, kp)
	}

	deps := apporder.Dependencies{
		Store:        store,
		Settings:     thresholds,
		Availability: availability,
		Publisher:    publisher,
		Tel:          tel,
	}

	subscriber := workerpresentation.NewSubscriber(bus, baseLogger, tel)
	apporder.NewWorker(apporder.NewApplySuggestedStatusUseCase(deps), subscriber, cfg.AutoApplyStatus, tel).Start()

	handler := httppresentation.NewHandler(httppresentation.NewUseCases(deps), baseLogger, tel)
	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	root.Mount("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		baseLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("store", cfg.Store.Driver),
			observability.F("auto_apply_status", cfg.AutoApplyStatus),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", observability.F("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
		return err
	}
	baseLogger.Info("http_server_stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (domain.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewOrderStore(pool, postgres.WithTxTimeout(cfg.Store.TxTimeout)), pool.Close, nil
	case config.StoreFirestore:
		client, err := gcpfirestore.NewClient(ctx, cfg.Store.FirestoreProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		store := fsstore.NewOrderStore(client,
			fsstore.WithCollection(cfg.Store.FirestoreCollection),
			fsstore.WithTxTimeout(cfg.Store.TxTimeout),
		)
		return store, func() { _ = client.Close() }, nil
	}
	return memory.NewOrderStore(memory.WithTxTimeout(cfg.Store.TxTimeout)), func() {}, nil
}

// seedStore inserts the configured fixture orders. Orders are placed upstream, so an unseeded memory
// store starts empty.
func seedStore(ctx context.Context, cfg config.Config, store domain.Store, logger observability.Logger) error {
	if cfg.Store.SeedFile == "" {
		if cfg.Store.Driver == config.StoreMemory {
			logger.Warn("memory_store_unseeded", observability.F("hint", "set STORE_SEED_FILE to load orders"))
		}
		return nil
	}
	dst, ok := store.(seed.Inserter)
	if !ok {
		return fmt.Errorf("store %s does not accept seed orders", cfg.Store.Driver)
	}
	n, err := seed.LoadFile(ctx, dst, cfg.Store.SeedFile, time.Now())
	if err != nil {
		return err
	}
	logger.Info("store_seeded", observability.F("file", cfg.Store.SeedFile), observability.F("inserted", n))
	return nil
}

// openSettings reads thresholds and the availability set from redis when configured, from memory otherwise.
func openSettings(cfg config.Config) (settings.Source, dominventory.Availability, func(), error) {
	amount, err := cfg.MinimumOrderAmount()
	if err != nil {
		return nil, nil, nil, err
	}
	defaults := settings.Thresholds{MinimumOrderAmount: amount, MinimumItemCount: cfg.Thresholds.MinimumItemCount}

	if cfg.Redis.Addr == "" {
		return memory.NewSettings(defaults), memory.NewAvailability(), func() {}, nil
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return redisstore.NewSettings(client, cfg.Redis.SettingsKey, defaults),
		redisstore.NewAvailability(client, cfg.Redis.AvailabilityKey),
		func() { _ = client.Close() },
		nil
}
