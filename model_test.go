package main

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T) *model {
	t.Helper()
	dir := t.TempDir()
	store, err := openCatalogStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	events := newEventLog(filepath.Join(dir, "events.log"), zerolog.InfoLevel)
	m := initialModel(store, events, &uiConfig{}, filepath.Join(dir, "ui.yaml"))
	m.width, m.height = 140, 40
	m.layoutPanes()
	return m
}

func loadModel(t *testing.T, m *model) {
	t.Helper()
	msg := m.loadCmd()().(productsLoadedMsg)
	require.NoError(t, msg.err)
	m.handleLoaded(msg)
}

func TestBulkUnitAppliesToWholeSelection(t *testing.T) {
	m := testModel(t)
	var ids []string
	for _, name := range []string{"Baguette", "Butter", "Milk"} {
		p := product{ID: newProductID(), Name: name}
		require.NoError(t, m.store.UpdateProduct(p))
		ids = append(ids, p.ID)
	}
	loadModel(t, m)
	for _, id := range ids {
		m.selection.Toggle(id, false, m.grid.Order())
	}

	cmd := m.runBulkPick(bulkAction{kind: bulkSetUnit}, selectOption{id: "kg", label: "kg"})
	pumpBulk(t, m.bulk, cmd)

	assert.Equal(t, 0, m.selection.Count())
	for _, id := range ids {
		p, ok, err := m.store.GetProduct(id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "kg", p.Unit)
	}
}

func TestBulkCategoryScopeCapturedAtEnqueue(t *testing.T) {
	m := testModel(t)
	c, err := m.store.CreateCatalog("Retail")
	require.NoError(t, err)
	cat, err := m.store.CreateCategory("Dairy", "")
	require.NoError(t, err)
	p := product{ID: newProductID(), Name: "Milk", Catalogs: map[string]struct{}{c.ID: {}}}
	require.NoError(t, m.store.UpdateProduct(p))
	loadModel(t, m)

	m.filter.CatalogID = c.ID
	m.refreshGrid()
	m.selection.Toggle(p.ID, false, m.grid.Order())

	cmd := m.runBulkPick(bulkAction{kind: bulkSetCategory}, selectOption{id: cat.ID, label: cat.Name})
	// The sidebar moves back to "All products" before the runner is
	// done; the write still lands in the catalog that was scoped when
	// the action was requested.
	m.filter.CatalogID = ""
	pumpBulk(t, m.bulk, cmd)

	got, _, err := m.store.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CategoryID)
	assert.Equal(t, cat.ID, got.CategoryOverrides[c.ID])
}

func TestSidebarHighlightScopesGrid(t *testing.T) {
	m := testModel(t)
	c, err := m.store.CreateCatalog("Retail")
	require.NoError(t, err)
	inside := product{ID: newProductID(), Name: "Milk", Catalogs: map[string]struct{}{c.ID: {}}}
	outside := product{ID: newProductID(), Name: "Bread"}
	require.NoError(t, m.store.UpdateProduct(inside))
	require.NoError(t, m.store.UpdateProduct(outside))
	loadModel(t, m)
	require.Len(t, m.grid.Order(), 2)

	m.focus = focusCatalogs
	_, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyDown})

	assert.Equal(t, c.ID, m.filter.CatalogID)
	assert.Equal(t, "Retail", m.grid.Title())
	assert.Equal(t, []string{inside.ID}, m.grid.Order())
}

func TestRemovePrimaryImagePromotesNext(t *testing.T) {
	m := testModel(t)
	p := product{ID: newProductID(), Name: "Milk", Images: []string{"/img/a.jpg", "/img/b.jpg"}}
	require.NoError(t, m.store.UpdateProduct(p))
	loadModel(t, m)

	cmd := m.removePrimaryImage()
	require.NotNil(t, cmd)
	saved := cmd().(productSavedMsg)
	require.NoError(t, saved.err)

	got, _, err := m.store.GetProduct(p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/img/b.jpg"}, got.Images)
}

func TestRemovePrimaryImageWithoutImagesIsNoOp(t *testing.T) {
	m := testModel(t)
	p := product{ID: newProductID(), Name: "Milk"}
	require.NoError(t, m.store.UpdateProduct(p))
	loadModel(t, m)

	assert.Nil(t, m.removePrimaryImage())
}
