package main

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type markupType string

const (
	markupPercent markupType = "percent"
	markupAmount  markupType = "amount"
)

type markup struct {
	Type  markupType
	Value float64
}

type productSource string

const (
	sourceLocal    productSource = "local"
	sourceExternal productSource = "external"
)

// product is the unit the grid renders and edits. The store owns its
// lifecycle; the grid only requests field mutations through the store.
type product struct {
	ID          string
	Name        string
	Description string
	SKU         string

	Unit          string
	PackagingType string
	UnitWeight    float64
	BuyPrice      *float64
	PricePerUnit  *float64
	Markup        *markup
	FixedPrice    bool
	PortionPrices map[string]float64

	// Images are ordered; Images[0] is the primary image.
	Images []string

	GroupIDs   []string
	CategoryID string
	// CategoryOverrides maps catalog id to a catalog-scoped category.
	CategoryOverrides map[string]string

	// Catalogs is the set of catalog ids this product is visible in.
	Catalogs map[string]struct{}

	Source   productSource
	AutoSync bool
}

func (p product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p product) InCatalog(catalogID string) bool {
	_, ok := p.Catalogs[catalogID]
	return ok
}

// CategoryFor resolves the category shown in the given catalog scope,
// falling back to the base assignment when no override exists. An empty
// catalogID means the unscoped ("all products") view.
func (p product) CategoryFor(catalogID string) string {
	if catalogID != "" {
		if override, ok := p.CategoryOverrides[catalogID]; ok {
			return override
		}
	}
	return p.CategoryID
}

type catalog struct {
	ID   string
	Name string
}

type productGroup struct {
	ID   string
	Name string
}

type category struct {
	ID       string
	Name     string
	ParentID string
}

func (c category) TopLevel() bool {
	return c.ParentID == ""
}

func newProductID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func newEntityID() string {
	return uuid.NewString()
}

// matchesQuery reports whether the product matches a filter query by
// case-insensitive substring over name and SKU.
func (p product) matchesQuery(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.SKU), query)
}
