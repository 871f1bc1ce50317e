package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/bazaar-backend/pkg/migrate"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate dir: %v", err)
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_products_and_coupons.sql")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0)",
		"CREATE TABLE IF NOT EXISTS coupons",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code",
	})
}

func TestOrdersMigrationUsesCanonicalColumns(t *testing.T) {
	content := readMigration(t, "*_create_orders_tables.sql")
	assertContains(t, content, []string{
		"order_status text NOT NULL DEFAULT 'pending'",
		"payment_status text NOT NULL DEFAULT 'pending'",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"CHECK (total_minor = subtotal_minor + tax_minor + shipping_fee_minor - discount_minor)",
		"CREATE TABLE IF NOT EXISTS order_line_items",
	})
}

func TestPaymentsMigrationAllowsOneSuccessPerOrder(t *testing.T) {
	content := readMigration(t, "*_create_payments_table.sql")
	assertContains(t, content, []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_order_success ON payments (order_id) WHERE status = 'success'",
		"CHECK (method IN ('upi', 'card', 'netbanking', 'wallet'))",
		"CHECK (total_minor = amount_minor + convenience_fee_minor + tax_minor)",
	})
}

func TestRefundMigrationEnforcesOnePerOrderAndRequest(t *testing.T) {
	content := readMigration(t, "*_create_refund_tables.sql")
	assertContains(t, content, []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_refund_requests_order_id ON refund_requests (order_id)",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_refunds_refund_request_id ON refunds (refund_request_id)",
		"CHECK (status IN ('initiated', 'processing', 'completed', 'failed'))",
	})
}

func TestOutboxMigrationIndexesUnpublished(t *testing.T) {
	content := readMigration(t, "*_create_outbox_tables.sql")
	assertContains(t, content, []string{
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"WHERE published_at IS NULL",
		"CREATE TABLE IF NOT EXISTS outbox_dlq",
		"payload jsonb NOT NULL",
		"idx_outbox_dlq_reason ON outbox_dlq (error_reason, created_at DESC)",
	})
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Coupon Usage!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_coupon_usage.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("validate generated migration: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateEmbedded(); err != nil {
		t.Fatalf("embedded migrations invalid: %v", err)
	}
}
