package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"marketplace/migrations"
)

const migrationsDir = "../../migrations"

func readMigration(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(migrationsDir, name))
	if err != nil {
		t.Fatalf("Failed to read migration %s: %v", name, err)
	}
	return string(content)
}

func TestMigrationFilesExist(t *testing.T) {
	expectedMigrations := []string{
		"00001_create_users_table.sql",
		"00002_create_refresh_tokens_table.sql",
		"00003_create_categories_table.sql",
		"00004_create_products_table.sql",
		"00005_create_carts_table.sql",
		"00006_create_orders_table.sql",
		"00007_create_order_items_table.sql",
		"00008_create_checkouts_table.sql",
		"00009_create_favorites_table.sql",
		"00010_create_updated_at_trigger.sql",
	}

	for _, migration := range expectedMigrations {
		path := filepath.Join(migrationsDir, migration)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("Migration file %s does not exist", migration)
		}
	}
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrations.FS.ReadDir(".")
	if err != nil {
		t.Fatalf("Failed to read embedded migrations: %v", err)
	}

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	onDisk := 0
	for _, f := range files {
		if strings.HasSuffix(f.Name(), ".sql") {
			onDisk++
		}
	}

	if len(entries) != onDisk {
		t.Errorf("Expected %d embedded migrations, got %d", onDisk, len(entries))
	}
}

func TestMigrationFilesHaveUpAndDown(t *testing.T) {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("Failed to read migrations directory: %v", err)
	}

	sqlFileCount := 0
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		sqlFileCount++
		contentStr := readMigration(t, file.Name())

		for _, directive := range []string{
			"-- +goose Up",
			"-- +goose Down",
			"-- +goose StatementBegin",
			"-- +goose StatementEnd",
		} {
			if !strings.Contains(contentStr, directive) {
				t.Errorf("Migration file %s missing '%s' directive", file.Name(), directive)
			}
		}
	}

	if sqlFileCount == 0 {
		t.Error("No SQL migration files found")
	}
}

func TestMigrationFilesCreateExpectedTables(t *testing.T) {
	expectedTables := map[string]string{
		"users":          "00001_create_users_table.sql",
		"vendors":        "00001_create_users_table.sql",
		"customers":      "00001_create_users_table.sql",
		"refresh_tokens": "00002_create_refresh_tokens_table.sql",
		"categories":     "00003_create_categories_table.sql",
		"products":       "00004_create_products_table.sql",
		"carts":          "00005_create_carts_table.sql",
		"cart_items":     "00005_create_carts_table.sql",
		"orders":         "00006_create_orders_table.sql",
		"order_items":    "00007_create_order_items_table.sql",
		"checkouts":      "00008_create_checkouts_table.sql",
		"favorites":      "00009_create_favorites_table.sql",
	}

	for tableName, migrationFile := range expectedTables {
		contentStr := readMigration(t, migrationFile)

		if !strings.Contains(contentStr, "CREATE TABLE IF NOT EXISTS "+tableName+" (") {
			t.Errorf("Migration file %s does not create table %s", migrationFile, tableName)
		}

		if !strings.Contains(contentStr, "DROP TABLE IF EXISTS "+tableName+";") {
			t.Errorf("Migration file %s does not drop table %s in down section", migrationFile, tableName)
		}
	}
}

func TestProductsTableHasRequiredColumns(t *testing.T) {
	contentStr := readMigration(t, "00004_create_products_table.sql")

	requiredColumns := []string{
		"id UUID PRIMARY KEY",
		"title VARCHAR",
		"description TEXT",
		"price DECIMAL(10, 2)",
		"stock INTEGER",
		"category_id UUID",
		"vendor_id UUID",
		"image_url VARCHAR",
		"sold_count INTEGER",
		"FOREIGN KEY (category_id)",
		"FOREIGN KEY (vendor_id)",
		"CHECK (stock >= 0)",
	}

	for _, column := range requiredColumns {
		if !strings.Contains(contentStr, column) {
			t.Errorf("Products table missing required definition: %s", column)
		}
	}
}

func TestOneCartPerCustomerIsEnforced(t *testing.T) {
	contentStr := readMigration(t, "00005_create_carts_table.sql")

	if !strings.Contains(contentStr, "UNIQUE (customer_id)") {
		t.Error("Carts table missing unique constraint on customer_id")
	}
	if !strings.Contains(contentStr, "UNIQUE (cart_id, product_id)") {
		t.Error("Cart items table missing unique constraint on (cart_id, product_id)")
	}
	if !strings.Contains(contentStr, "CHECK (quantity > 0)") {
		t.Error("Cart items table missing positive quantity check")
	}
}

func TestOrdersTableHasStatusConstraint(t *testing.T) {
	contentStr := readMigration(t, "00006_create_orders_table.sql")

	for _, status := range []string{"PENDING", "PROCESSING", "SHIPPED", "DELIVERED", "CANCELLED"} {
		if !strings.Contains(contentStr, "'"+status+"'") {
			t.Errorf("Orders table status constraint missing value: %s", status)
		}
	}
	if strings.Contains(contentStr, "'CART'") {
		t.Error("Orders table must not carry a CART status")
	}
}

func TestCheckoutIsOnePerOrder(t *testing.T) {
	contentStr := readMigration(t, "00008_create_checkouts_table.sql")

	if !strings.Contains(contentStr, "order_id UUID UNIQUE NOT NULL") {
		t.Error("Checkouts table must be one-to-one with orders")
	}
	for _, method := range []string{"'INSTAPAY'", "'CASH'"} {
		if !strings.Contains(contentStr, method) {
			t.Errorf("Checkouts table payment method constraint missing %s", method)
		}
	}
}

func TestFavoritesAreUniquePerCustomerAndProduct(t *testing.T) {
	contentStr := readMigration(t, "00009_create_favorites_table.sql")

	if !strings.Contains(contentStr, "UNIQUE (customer_id, product_id)") {
		t.Error("Favorites table missing unique constraint on (customer_id, product_id)")
	}
}
