package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  currency TEXT NOT NULL DEFAULT 'GHS',
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, name string, stock int, active bool, createdAt time.Time) models.Product {
	t.Helper()

	product := models.Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Name:       name,
		PriceCents: 1500,
		Currency:   enums.CurrencyGHS,
		StockQty:   stock,
		IsActive:   active,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func TestRepositoryFindByID(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedProduct(t, db, uuid.New(), "Shea Butter 500g", 8, true, time.Now())

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)
	assert.Equal(t, "Shea Butter 500g", found.Name)
	assert.Equal(t, 8, found.StockQty)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryListActiveFiltersAndOrders(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	older := seedProduct(t, db, sellerID, "Kente Scarf", 3, true, time.Now().Add(-time.Hour))
	newer := seedProduct(t, db, sellerID, "Woven Basket", 5, true, time.Now())
	seedProduct(t, db, sellerID, "Retired Item", 0, false, time.Now())

	rows, err := repo.ListActive(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestRepositoryListActiveLimit(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	sellerID := uuid.New()
	for i := 0; i < 3; i++ {
		seedProduct(t, db, sellerID, "Listing", 1, true, time.Now().Add(time.Duration(i)*time.Minute))
	}

	rows, err := repo.ListActive(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestRepositoryListBySeller(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	mine := uuid.New()
	other := uuid.New()
	seedProduct(t, db, mine, "Cocoa Powder", 4, true, time.Now())
	seedProduct(t, db, other, "Someone Else's", 4, true, time.Now())

	rows, err := repo.ListBySeller(ctx, mine)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cocoa Powder", rows[0].Name)
}

func TestRepositoryAdjustStock(t *testing.T) {
	db := setupProductsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seeded := seedProduct(t, db, uuid.New(), "Black Soap", 10, true, time.Now())

	require.NoError(t, repo.AdjustStock(ctx, seeded.ID, -3))
	require.NoError(t, repo.AdjustStock(ctx, seeded.ID, 1))

	found, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, found.StockQty)
}
