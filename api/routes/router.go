package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/winimarket/winimarket-backend/api/controllers"
	webhookcontrollers "github.com/winimarket/winimarket-backend/api/controllers/webhooks"
	"github.com/winimarket/winimarket-backend/api/middleware"
	"github.com/winimarket/winimarket-backend/internal/addresses"
	cartsvc "github.com/winimarket/winimarket-backend/internal/cart"
	checkoutsvc "github.com/winimarket/winimarket-backend/internal/checkout"
	"github.com/winimarket/winimarket-backend/internal/orders"
	"github.com/winimarket/winimarket-backend/internal/payments"
	"github.com/winimarket/winimarket-backend/internal/products"
	paystackwebhook "github.com/winimarket/winimarket-backend/internal/webhooks/paystack"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        pinger
	Redis     pinger
	Products  products.Service
	Cart      cartsvc.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Payments  payments.Service
	Addresses addresses.Service
	Webhook   *paystackwebhook.Service
	Guard     *paystackwebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.SiteURL),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.Health(nil, nil, logg))
		r.Get("/ready", controllers.Health(deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(deps.Webhook, cfg.Paystack.SecretKey, deps.Guard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{productID}", controllers.ProductDetail(deps.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RecipientRoleBuyer, logg))
				r.Get("/", controllers.CartView(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
				r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.Cart, logg))
				r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Cart, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RecipientRoleBuyer, logg))
				r.Post("/", controllers.AddressCreate(deps.Addresses, logg))
				r.Get("/", controllers.AddressList(deps.Addresses, logg))
				r.Patch("/{addressID}", controllers.AddressUpdate(deps.Addresses, logg))
				r.Delete("/{addressID}", controllers.AddressDelete(deps.Addresses, logg))
			})

			r.With(middleware.RequireRole(enums.RecipientRoleBuyer, logg)).
				Post("/checkout", controllers.Checkout(deps.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderID}", controllers.OrderDetail(deps.Orders, logg))
				r.With(middleware.RequireRole(enums.RecipientRoleSeller, logg)).
					Patch("/{orderID}/track-status", controllers.OrderUpdateTrack(deps.Orders, logg))
				r.With(middleware.RequireRole(enums.RecipientRoleBuyer, logg)).
					Post("/{orderID}/confirm-delivery", controllers.OrderConfirmDelivery(deps.Orders, logg))
				r.Post("/{orderID}/cancel", controllers.OrderCancel(deps.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RecipientRoleBuyer, logg))
				r.Post("/initialize", controllers.PaymentInitialize(deps.Payments, logg))
				r.Get("/verify", controllers.PaymentVerify(deps.Payments, logg))
			})
		})
	})

	return r
}
