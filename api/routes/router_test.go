package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	cartsvc "github.com/winimarket/winimarket-backend/internal/cart"
	pkgauth "github.com/winimarket/winimarket-backend/pkg/auth"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubProductsService struct{}

func (stubProductsService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return &models.Product{ID: id, Name: "Keyboard"}, nil
}

func (stubProductsService) ListActive(ctx context.Context, limit int) ([]models.Product, error) {
	return []models.Product{{ID: uuid.New(), Name: "Keyboard"}}, nil
}

func (stubProductsService) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return nil
}

type stubCartService struct {
	views int
}

func (s *stubCartService) AddItem(ctx context.Context, buyerID uuid.UUID, input cartsvc.AddItemInput) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*cartsvc.View, error) {
	return &cartsvc.View{}, nil
}

func (s *stubCartService) View(ctx context.Context, buyerID uuid.UUID) (*cartsvc.View, error) {
	s.views++
	return &cartsvc.View{Status: enums.CartStatusActive}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080", SiteURL: "https://winimarket.app"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "winimarket", ExpirationMinutes: 30},
	}
}

func testRouter(t *testing.T, cart *stubCartService) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:   testConfig(),
		DB:       stubPinger{},
		Redis:    stubPinger{},
		Products: stubProductsService{},
		Cart:     cart,
	})
}

func bearerToken(t *testing.T, cfg *config.Config, role enums.RecipientRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthAndPublicCatalogAreOpen(t *testing.T) {
	router := testRouter(t, &stubCartService{})

	for _, path := range []string{"/health/live", "/health/ready", "/api/v1/products"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s, got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestCartRequiresAuthentication(t *testing.T) {
	cart := &stubCartService{}
	router := testRouter(t, cart)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if cart.views != 0 {
		t.Fatal("cart service must not run unauthenticated")
	}
}

func TestCartAllowsBuyers(t *testing.T) {
	cart := &stubCartService{}
	router := testRouter(t, cart)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearerToken(t, testConfig(), enums.RecipientRoleBuyer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for buyer, got %d (%s)", rec.Code, rec.Body.String())
	}
	if cart.views != 1 {
		t.Fatalf("expected one cart view, got %d", cart.views)
	}
}

func TestCartRejectsSellers(t *testing.T) {
	cart := &stubCartService{}
	router := testRouter(t, cart)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", bearerToken(t, testConfig(), enums.RecipientRoleSeller))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for seller on cart, got %d", rec.Code)
	}
	if cart.views != 0 {
		t.Fatal("cart service must not run for sellers")
	}
}
