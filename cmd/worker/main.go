package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/winimarket/winimarket-backend/internal/dispatch"
	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/mailer"
	"github.com/winimarket/winimarket-backend/pkg/metrics"
	"github.com/winimarket/winimarket-backend/pkg/migrate"
	"github.com/winimarket/winimarket-backend/pkg/outbox/idempotency"
	"github.com/winimarket/winimarket-backend/pkg/pubsub"
	"github.com/winimarket/winimarket-backend/pkg/redis"
	"github.com/winimarket/winimarket-backend/pkg/webpush"
)

// Pub/Sub can redeliver a message days later when a subscriber was
// down, keep processed markers around long enough to absorb that.
const processedEventTTL = 72 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	mailClient, err := mailer.NewClient(context.Background(), cfg.Mailer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}
	pushClient := webpush.NewClient(context.Background(), cfg.Push, logg)

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, processedEventTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := dispatch.NewConsumer(
		pubsubClient.NotificationSubscription(),
		dispatch.NewRepository(dbClient.DB()),
		usersService,
		mailClient,
		pushClient,
		manager,
		metrics.NewDeliveryMetrics(prometheus.DefaultRegisterer),
		cfg.Dispatch,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting notification worker")

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}
