package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"FOREIGN KEY (seller_id) REFERENCES seller_profiles(id) ON DELETE SET NULL",
		"FOREIGN KEY (shipping_address_id) REFERENCES shipping_addresses(id) ON DELETE SET NULL",
		"CHECK (status IN ('pending', 'paid', 'shipped', 'delivered', 'completed', 'cancelled'))",
		"CHECK (quantity >= 1)",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_order_product",
		"DROP TABLE IF EXISTS orders",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartsMigrationEnforcesSingleActiveCart(t *testing.T) {
	content := readMigration(t, "*_create_carts.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_carts_buyer_active",
		"WHERE status = 'active'",
		"CREATE UNIQUE INDEX IF NOT EXISTS uq_cart_product",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestEmailLogMigrationDeduplicatesSentRows(t *testing.T) {
	content := readMigration(t, "*_create_order_email_logs.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_order_email_logs_sent",
		"ON order_email_logs (order_id, event, recipient_email)",
		"WHERE status = 'sent'",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
