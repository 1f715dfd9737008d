package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rentiva/rentiva-backend/pkg/migrate"
)

func TestMigrationsDirectoryIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration validation failed: %v", err)
	}
}

func TestInitSchemaCoversAllTables(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_init_schema.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no init schema migration found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE vendors",
		"CREATE TABLE users",
		"CREATE TABLE products",
		"CREATE TABLE product_variants",
		"CREATE TABLE quotations",
		"CREATE TABLE quotation_items",
		"CREATE TABLE orders",
		"CREATE TABLE order_line_items",
		"CREATE TABLE rental_records",
		"CREATE TABLE system_settings",
		"CREATE TABLE audit_logs",
		"CREATE TABLE outbox_events",
		"CREATE UNIQUE INDEX ux_orders_order_number",
		"CREATE UNIQUE INDEX ux_outbox_events_event_aggregate",
		"ck_product_variants_stock_non_negative",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
