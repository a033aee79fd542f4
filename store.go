package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// catalogStore is the persistence collaborator. The grid core never
// touches it directly; commits arrive here through the model, one call
// per committed change, and failures are reported back without retry.
type catalogStore struct {
	db       *sql.DB
	path     string
	imageDir string
}

func openCatalogStore(dataDir string) (*catalogStore, error) {
	if err := ensureDir(dataDir); err != nil {
		return nil, err
	}
	imageDir := filepath.Join(dataDir, "images")
	if err := ensureDir(imageDir); err != nil {
		return nil, err
	}
	sqlitePath := filepath.Join(dataDir, "catalog.sqlite")
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, err
	}
	if err := migrateCatalogStore(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &catalogStore{db: db, path: sqlitePath, imageDir: imageDir}, nil
}

func migrateCatalogStore(db *sql.DB) error {
	statements := []string{
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
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("catalog store migration failed: %w", err)
		}
	}
	return nil
}

func (s *catalogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *catalogStore) ListProducts() ([]product, error) {
	rows, err := s.db.Query(`SELECT id, name, description, sku, unit, packaging_type,
		unit_weight, buy_price, price_per_unit, markup_type, markup_value, fixed_price,
		portion_prices, images, category_id, category_overrides, source, auto_sync
		FROM products ORDER BY name COLLATE NOCASE ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachMemberships(products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *catalogStore) GetProduct(id string) (product, bool, error) {
	row := s.db.QueryRow(`SELECT id, name, description, sku, unit, packaging_type,
		unit_weight, buy_price, price_per_unit, markup_type, markup_value, fixed_price,
		portion_prices, images, category_id, category_overrides, source, auto_sync
		FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return product{}, false, nil
	}
	if err != nil {
		return product{}, false, err
	}
	list := []product{p}
	if err := s.attachMemberships(list); err != nil {
		return product{}, false, err
	}
	return list[0], true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (product, error) {
	var (
		p             product
		buyPrice      sql.NullFloat64
		pricePerUnit  sql.NullFloat64
		markupKind    string
		markupValue   float64
		fixed         int
		portionsJSON  string
		imagesJSON    string
		overridesJSON string
		source        string
		autoSync      int
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.SKU, &p.Unit, &p.PackagingType,
		&p.UnitWeight, &buyPrice, &pricePerUnit, &markupKind, &markupValue, &fixed,
		&portionsJSON, &imagesJSON, &p.CategoryID, &overridesJSON, &source, &autoSync)
	if err != nil {
		return product{}, err
	}
	if buyPrice.Valid {
		v := buyPrice.Float64
		p.BuyPrice = &v
	}
	if pricePerUnit.Valid {
		v := pricePerUnit.Float64
		p.PricePerUnit = &v
	}
	if markupKind != "" && markupValue > 0 {
		p.Markup = &markup{Type: markupType(markupKind), Value: markupValue}
	}
	p.FixedPrice = fixed != 0
	p.AutoSync = autoSync != 0
	p.Source = productSource(source)
	if err := json.Unmarshal([]byte(portionsJSON), &p.PortionPrices); err != nil {
		p.PortionPrices = nil
	}
	if err := json.Unmarshal([]byte(imagesJSON), &p.Images); err != nil {
		p.Images = nil
	}
	if err := json.Unmarshal([]byte(overridesJSON), &p.CategoryOverrides); err != nil {
		p.CategoryOverrides = nil
	}
	p.Catalogs = make(map[string]struct{})
	return p, nil
}

func (s *catalogStore) attachMemberships(products []product) error {
	if len(products) == 0 {
		return nil
	}
	byID := make(map[string]*product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	rows, err := s.db.Query(`SELECT catalog_id, product_id FROM catalog_products`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var catalogID, productID string
		if err := rows.Scan(&catalogID, &productID); err != nil {
			rows.Close()
			return err
		}
		if p, ok := byID[productID]; ok {
			p.Catalogs[catalogID] = struct{}{}
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.Query(`SELECT group_id, product_id FROM group_products ORDER BY group_id ASC`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var groupID, productID string
		if err := rows.Scan(&groupID, &productID); err != nil {
			return err
		}
		if p, ok := byID[productID]; ok {
			p.GroupIDs = append(p.GroupIDs, groupID)
		}
	}
	return rows.Err()
}

// UpdateProduct persists a full product mutation, including catalog
// and group memberships.
func (s *catalogStore) UpdateProduct(p product) error {
	portions, _ := json.Marshal(orEmptyMap(p.PortionPrices))
	images, _ := json.Marshal(orEmptySlice(p.Images))
	overrides, _ := json.Marshal(orEmptyStringMap(p.CategoryOverrides))
	markupKind := ""
	markupValue := 0.0
	if p.Markup != nil {
		markupKind = string(p.Markup.Type)
		markupValue = p.Markup.Value
	}
	source := string(p.Source)
	if source == "" {
		source = string(sourceLocal)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO products (id, name, description, sku, unit, packaging_type,
			unit_weight, buy_price, price_per_unit, markup_type, markup_value, fixed_price,
			portion_prices, images, category_id, category_overrides, source, auto_sync)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, description = excluded.description, sku = excluded.sku,
			unit = excluded.unit, packaging_type = excluded.packaging_type,
			unit_weight = excluded.unit_weight, buy_price = excluded.buy_price,
			price_per_unit = excluded.price_per_unit, markup_type = excluded.markup_type,
			markup_value = excluded.markup_value, fixed_price = excluded.fixed_price,
			portion_prices = excluded.portion_prices, images = excluded.images,
			category_id = excluded.category_id, category_overrides = excluded.category_overrides,
			source = excluded.source, auto_sync = excluded.auto_sync`,
		p.ID, p.Name, p.Description, p.SKU, p.Unit, p.PackagingType,
		p.UnitWeight, nullFloat(p.BuyPrice), nullFloat(p.PricePerUnit), markupKind, markupValue,
		boolInt(p.FixedPrice), string(portions), string(images), p.CategoryID, string(overrides),
		source, boolInt(p.AutoSync))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update product %s: %w", p.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM catalog_products WHERE product_id = ?`, p.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for catalogID := range p.Catalogs {
		if _, err := tx.Exec(`INSERT INTO catalog_products (catalog_id, product_id) VALUES (?, ?)`, catalogID, p.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM group_products WHERE product_id = ?`, p.ID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, groupID := range p.GroupIDs {
		if _, err := tx.Exec(`INSERT INTO group_products (group_id, product_id) VALUES (?, ?)`, groupID, p.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ToggleCatalogVisibility adds or removes one catalog membership and
// reports whether the product is now in the catalog.
func (s *catalogStore) ToggleCatalogVisibility(productID, catalogID string) (bool, error) {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM catalog_products WHERE catalog_id = ? AND product_id = ?`,
		catalogID, productID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists > 0 {
		_, err = s.db.Exec(`DELETE FROM catalog_products WHERE catalog_id = ? AND product_id = ?`,
			catalogID, productID)
		return false, err
	}
	_, err = s.db.Exec(`INSERT INTO catalog_products (catalog_id, product_id) VALUES (?, ?)`,
		catalogID, productID)
	return true, err
}

// AddToCatalog is the idempotent membership add used by bulk actions.
func (s *catalogStore) AddToCatalog(productID, catalogID string) error {
	_, err := s.db.Exec(`INSERT INTO catalog_products (catalog_id, product_id) VALUES (?, ?)
		ON CONFLICT(catalog_id, product_id) DO NOTHING`, catalogID, productID)
	return err
}

func (s *catalogStore) SetProductGroupAssignments(productID string, groupIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM group_products WHERE product_id = ?`, productID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, groupID := range groupIDs {
		if _, err := tx.Exec(`INSERT INTO group_products (group_id, product_id) VALUES (?, ?)`, groupID, productID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *catalogStore) CreateCatalog(name string) (catalog, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return catalog{}, fmt.Errorf("catalog name is empty")
	}
	c := catalog{ID: newEntityID(), Name: name}
	_, err := s.db.Exec(`INSERT INTO catalogs (id, name) VALUES (?, ?)`, c.ID, c.Name)
	if err != nil {
		return catalog{}, err
	}
	return c, nil
}

func (s *catalogStore) ListCatalogs() ([]catalog, error) {
	rows, err := s.db.Query(`SELECT id, name FROM catalogs ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var catalogs []catalog
	for rows.Next() {
		var c catalog
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, rows.Err()
}

func (s *catalogStore) CreateProductGroup(name string) (productGroup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return productGroup{}, fmt.Errorf("group name is empty")
	}
	g := productGroup{ID: newEntityID(), Name: name}
	_, err := s.db.Exec(`INSERT INTO product_groups (id, name) VALUES (?, ?)`, g.ID, g.Name)
	if err != nil {
		return productGroup{}, err
	}
	return g, nil
}

func (s *catalogStore) ListGroups() ([]productGroup, error) {
	rows, err := s.db.Query(`SELECT id, name FROM product_groups ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []productGroup
	for rows.Next() {
		var g productGroup
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (s *catalogStore) CreateCategory(name, parentID string) (category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return category{}, fmt.Errorf("category name is empty")
	}
	c := category{ID: newEntityID(), Name: name, ParentID: parentID}
	_, err := s.db.Exec(`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)`, c.ID, c.Name, c.ParentID)
	if err != nil {
		return category{}, err
	}
	return c, nil
}

func (s *catalogStore) ListCategories() ([]category, error) {
	rows, err := s.db.Query(`SELECT id, name, parent_id FROM categories ORDER BY name COLLATE NOCASE ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []category
	for rows.Next() {
		var c category
		if err := rows.Scan(&c.ID, &c.Name, &c.ParentID); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *catalogStore) DeleteProducts(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, id := range ids {
		for _, stmt := range []string{
			`DELETE FROM products WHERE id = ?`,
			`DELETE FROM catalog_products WHERE product_id = ?`,
			`DELETE FROM group_products WHERE product_id = ?`,
		} {
			if _, err := tx.Exec(stmt, id); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *catalogStore) AddCustomUnit(value string) error {
	return s.addCustomOption("unit", value)
}

func (s *catalogStore) AddCustomPackagingType(value string) error {
	return s.addCustomOption("packaging", value)
}

func (s *catalogStore) addCustomOption(kind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO custom_options (kind, value) VALUES (?, ?)
		ON CONFLICT(kind, value) DO NOTHING`, kind, value)
	return err
}

func (s *catalogStore) ListCustomUnits() ([]string, error) {
	return s.listCustomOptions("unit")
}

func (s *catalogStore) ListCustomPackagingTypes() ([]string, error) {
	return s.listCustomOptions("packaging")
}

func (s *catalogStore) listCustomOptions(kind string) ([]string, error) {
	rows, err := s.db.Query(`SELECT value FROM custom_options WHERE kind = ? ORDER BY value ASC`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// UploadFiles copies chosen files into the image directory and returns
// their stored URLs in order, starting at startIndex for naming.
func (s *catalogStore) UploadFiles(files []string, productID string, startIndex int) ([]string, error) {
	var urls []string
	for i, src := range files {
		ext := filepath.Ext(src)
		if ext == "" {
			ext = ".img"
		}
		name := fmt.Sprintf("%s_%d%s", productID, startIndex+i, ext)
		dst := filepath.Join(s.imageDir, name)
		if err := copyFile(src, dst); err != nil {
			return urls, fmt.Errorf("upload %s: %w", filepath.Base(src), err)
		}
		urls = append(urls, dst)
	}
	return urls, nil
}

func (s *catalogStore) DeleteImage(productID, url string) error {
	p, ok, err := s.GetProduct(productID)
	if err != nil || !ok {
		return err
	}
	kept := p.Images[:0]
	for _, img := range p.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	if err := s.UpdateProduct(p); err != nil {
		return err
	}
	if strings.HasPrefix(url, s.imageDir) {
		_ = os.Remove(url)
	}
	return nil
}

func (s *catalogStore) ColumnWidth(instance, column string) (int, bool, error) {
	var width int
	err := s.db.QueryRow(`SELECT width FROM column_widths WHERE instance = ? AND col = ?`,
		instance, column).Scan(&width)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return width, true, nil
}

func (s *catalogStore) SetColumnWidth(instance, column string, width int) error {
	_, err := s.db.Exec(`INSERT INTO column_widths (instance, col, width) VALUES (?, ?, ?)
		ON CONFLICT(instance, col) DO UPDATE SET width = excluded.width`,
		instance, column, width)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func orEmptyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func orEmptyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
