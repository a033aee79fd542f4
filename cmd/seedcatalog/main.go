// Command seedcatalog fills a catalog-admin data directory with demo
// catalogs, categories, groups and products so the grid has something
// to show on first run.
package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`PRAGMA journal_mode=WAL;`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		sku TEXT NOT NULL DEFAULT '',
		unit TEXT NOT NULL DEFAULT '',
		packaging_type TEXT NOT NULL DEFAULT '',
		unit_weight REAL NOT NULL DEFAULT 0,
		buy_price REAL,
		price_per_unit REAL,
		markup_type TEXT NOT NULL DEFAULT '',
		markup_value REAL NOT NULL DEFAULT 0,
		fixed_price INTEGER NOT NULL DEFAULT 0,
		portion_prices TEXT NOT NULL DEFAULT '{}',
		images TEXT NOT NULL DEFAULT '[]',
		category_id TEXT NOT NULL DEFAULT '',
		category_overrides TEXT NOT NULL DEFAULT '{}',
		source TEXT NOT NULL DEFAULT 'local',
		auto_sync INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS catalogs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS catalog_products (
		catalog_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		PRIMARY KEY (catalog_id, product_id)
	);`,
	`CREATE TABLE IF NOT EXISTS product_groups (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS group_products (
		group_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		PRIMARY KEY (group_id, product_id)
	);`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS custom_options (
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (kind, value)
	);`,
	`CREATE TABLE IF NOT EXISTS column_widths (
		instance TEXT NOT NULL,
		col TEXT NOT NULL,
		width INTEGER NOT NULL,
		PRIMARY KEY (instance, col)
	);`,
}

type seedProduct struct {
	name      string
	sku       string
	unit      string
	packaging string
	weight    float64
	buyPrice  float64
	price     float64
	category  string
	catalogs  []string
	groups    []string
	external  bool
}

var seedProducts = []seedProduct{
	{name: "Whole Milk 1L", sku: "DAIRY-001", unit: "l", packaging: "crate", weight: 1.03, buyPrice: 0.62, price: 0.99, category: "Dairy", catalogs: []string{"Retail", "Wholesale"}, groups: []string{"Cold chain"}},
	{name: "Butter 250g", sku: "DAIRY-014", unit: "pcs", packaging: "box", weight: 0.25, buyPrice: 1.45, price: 2.29, category: "Dairy", catalogs: []string{"Retail"}, groups: []string{"Cold chain"}},
	{name: "Gouda Wheel 4kg", sku: "DAIRY-031", unit: "kg", packaging: "crate", weight: 4, buyPrice: 5.9, price: 8.5, category: "Dairy", catalogs: []string{"Wholesale"}, groups: []string{"Cold chain"}, external: true},
	{name: "Sourdough Loaf", sku: "BAKE-002", unit: "pcs", packaging: "tray", weight: 0.8, buyPrice: 1.1, price: 2.95, category: "Bakery", catalogs: []string{"Retail"}, groups: []string{"Daily fresh"}},
	{name: "Baguette", sku: "BAKE-007", unit: "pcs", packaging: "tray", weight: 0.3, buyPrice: 0.45, price: 1.2, category: "Bakery", catalogs: []string{"Retail", "Food service"}, groups: []string{"Daily fresh"}},
	{name: "Flour Type 550 25kg", sku: "BAKE-100", unit: "kg", packaging: "bag", weight: 25, buyPrice: 9.8, price: 14.5, category: "Bakery", catalogs: []string{"Wholesale"}},
	{name: "Bananas", sku: "PROD-003", unit: "kg", packaging: "box", weight: 18, buyPrice: 0.9, price: 1.49, category: "Produce", catalogs: []string{"Retail", "Food service"}, groups: []string{"Daily fresh"}, external: true},
	{name: "Roma Tomatoes", sku: "PROD-018", unit: "kg", packaging: "crate", weight: 6, buyPrice: 1.3, price: 2.1, category: "Produce", catalogs: []string{"Retail"}, groups: []string{"Daily fresh"}},
	{name: "Olive Oil 5L", sku: "PANT-040", unit: "l", packaging: "box", weight: 4.6, buyPrice: 18.5, price: 27.9, category: "Pantry", catalogs: []string{"Wholesale", "Food service"}},
	{name: "Basmati Rice 5kg", sku: "PANT-055", unit: "kg", packaging: "bag", weight: 5, buyPrice: 6.2, price: 9.9, category: "Pantry", catalogs: []string{"Retail", "Wholesale"}},
	{name: "Espresso Beans 1kg", sku: "BEV-009", unit: "kg", packaging: "bag", weight: 1, buyPrice: 8.4, price: 13.9, category: "Beverages", catalogs: []string{"Retail", "Food service"}, external: true},
	{name: "Sparkling Water 12x1L", sku: "BEV-021", unit: "pcs", packaging: "pallet", weight: 12.5, buyPrice: 3.9, price: 6.5, category: "Beverages", catalogs: []string{"Wholesale"}},
}

func main() {
	dataDir := flag.String("data", "", "Data directory to seed (defaults to CATALOG_ADMIN_DATA)")
	flag.Parse()

	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("CATALOG_ADMIN_DATA")
	}
	if dir == "" {
		fmt.Fprintln(os.Stderr, "seedcatalog: no data directory; pass -data or set CATALOG_ADMIN_DATA")
		os.Exit(1)
	}
	if err := seed(dir); err != nil {
		fmt.Fprintln(os.Stderr, "seedcatalog:", err)
		os.Exit(1)
	}
	fmt.Printf("seeded %d products into %s\n", len(seedProducts), dir)
}

func seed(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "catalog.sqlite"))
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	catalogIDs := make(map[string]string)
	for _, name := range []string{"Retail", "Wholesale", "Food service"} {
		id := uuid.NewString()
		catalogIDs[name] = id
		if _, err := tx.Exec(`INSERT INTO catalogs (id, name) VALUES (?, ?)`, id, name); err != nil {
			return err
		}
	}

	categoryIDs := make(map[string]string)
	for _, name := range []string{"Dairy", "Bakery", "Produce", "Pantry", "Beverages"} {
		id := uuid.NewString()
		categoryIDs[name] = id
		if _, err := tx.Exec(`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, '')`, id, name); err != nil {
			return err
		}
	}

	groupIDs := make(map[string]string)
	for _, name := range []string{"Cold chain", "Daily fresh"} {
		id := uuid.NewString()
		groupIDs[name] = id
		if _, err := tx.Exec(`INSERT INTO product_groups (id, name) VALUES (?, ?)`, id, name); err != nil {
			return err
		}
	}

	for _, sp := range seedProducts {
		id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
		source := "local"
		autoSync := 0
		if sp.external {
			source = "external"
			autoSync = 1
		}
		emptyJSON, _ := json.Marshal(map[string]any{})
		emptyList, _ := json.Marshal([]string{})
		_, err := tx.Exec(`INSERT INTO products (
			id, name, description, sku, unit, packaging_type, unit_weight,
			buy_price, price_per_unit, markup_type, markup_value, fixed_price,
			portion_prices, images, category_id, category_overrides, source, auto_sync
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'percent', 35, 0, ?, ?, ?, ?, ?, ?)`,
			id, sp.name, demoDescription(sp.name), sp.sku, sp.unit, sp.packaging, sp.weight,
			sp.buyPrice, sp.price, string(emptyJSON), string(emptyList),
			categoryIDs[sp.category], string(emptyJSON), source, autoSync,
		)
		if err != nil {
			return err
		}
		for _, catalogName := range sp.catalogs {
			if _, err := tx.Exec(`INSERT INTO catalog_products (catalog_id, product_id) VALUES (?, ?)`,
				catalogIDs[catalogName], id); err != nil {
				return err
			}
		}
		for _, groupName := range sp.groups {
			if _, err := tx.Exec(`INSERT INTO group_products (group_id, product_id) VALUES (?, ?)`,
				groupIDs[groupName], id); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func demoDescription(name string) string {
	return fmt.Sprintf("# %s\n\nDemo product seeded for local development.\n\n- Editable inline in the grid\n- Safe to delete\n", name)
}
