package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/winimarket/winimarket-backend/api/routes"
	"github.com/winimarket/winimarket-backend/internal/addresses"
	"github.com/winimarket/winimarket-backend/internal/cart"
	"github.com/winimarket/winimarket-backend/internal/checkout"
	"github.com/winimarket/winimarket-backend/internal/dispatch"
	"github.com/winimarket/winimarket-backend/internal/orders"
	"github.com/winimarket/winimarket-backend/internal/payments"
	"github.com/winimarket/winimarket-backend/internal/products"
	"github.com/winimarket/winimarket-backend/internal/users"
	paystackwebhook "github.com/winimarket/winimarket-backend/internal/webhooks/paystack"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/migrate"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/paystack"
	"github.com/winimarket/winimarket-backend/pkg/redis"
)

// Paystack redelivers for roughly a day, keep the dedupe keys at least
// that long.
const webhookIdempotencyTTL = 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gateway, err := paystack.NewClient(context.Background(), cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	usersRepo := users.NewRepository(gormDB)
	productsRepo := products.NewRepository(gormDB)
	addressesRepo := addresses.NewRepository(gormDB)
	cartsRepo := cart.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)
	dispatchRepo := dispatch.NewRepository(gormDB)

	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(productsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	addressesService, err := addresses.NewService(addressesRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create addresses service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartsRepo, productsRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	notifierService, err := dispatch.NewService(dispatchRepo, usersService, publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(ordersRepo, productsService, publisher, notifierService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(ordersRepo, cartsRepo, productsRepo, addressesRepo, publisher, notifierService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(paymentsRepo, ordersRepo, cartsRepo, usersService, gateway, publisher, notifierService, dbClient, cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
		Payments: paymentsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := paystackwebhook.NewIdempotencyGuard(redisClient, webhookIdempotencyTTL, "paystack-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Products:  productsService,
			Cart:      cartService,
			Checkout:  checkoutService,
			Orders:    ordersService,
			Payments:  paymentsService,
			Addresses: addressesService,
			Webhook:   webhookService,
			Guard:     webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
