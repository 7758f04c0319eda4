package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/winimarket/winimarket-backend/internal/cron"
	"github.com/winimarket/winimarket-backend/internal/dispatch"
	"github.com/winimarket/winimarket-backend/internal/orders"
	"github.com/winimarket/winimarket-backend/internal/products"
	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/metrics"
	"github.com/winimarket/winimarket-backend/pkg/migrate"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	gormDB := dbClient.DB()
	ordersRepo := orders.NewRepository(gormDB)
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)

	usersService, err := users.NewService(users.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	productsService, err := products.NewService(products.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}
	notifierService, err := dispatch.NewService(dispatch.NewRepository(gormDB), usersService, publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}
	ordersService, err := orders.NewService(ordersRepo, productsService, publisher, notifierService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewExpiryJob(cron.ExpiryJobParams{
		Logger:  logg,
		Reader:  ordersRepo,
		Expirer: ordersService,
		Config:  cfg.Orders,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("order-sweep"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	sweep, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Orders.SweepInterval,
		Jobs:     []cron.Job{expiryJob},
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting order sweep worker")

	if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "order sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "order sweep worker shutting down gracefully")
}
