package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGrid(products ...product) *productGrid {
	layout := newColumnLayout("grid:test", nil)
	g := newProductGrid("All products", "", layout, defaultColumnVisibility(), 4, newSelectionState())
	g.SetSize(120, 30)
	g.SetRows(products)
	return g
}

func gridProducts() []product {
	price := 0.99
	return []product{
		{ID: "p1", Name: "Whole Milk", SKU: "DAIRY-001", Unit: "l", PricePerUnit: &price},
		{ID: "p2", Name: "Butter", SKU: "DAIRY-014", Unit: "pcs"},
		{ID: "p3", Name: "Baguette", SKU: "BAKE-007", Unit: "pcs"},
	}
}

func TestRowStatePrefersOverlayValues(t *testing.T) {
	g := testGrid(gridProducts()...)

	g.overlay[cellKey{productID: "p1", column: colName}] = "Oat Milk"
	state := g.rowStateFor(g.rows[0], false)
	assert.Equal(t, "Oat Milk", state.Name)
	// Untouched fields come from the authoritative product.
	assert.Equal(t, "DAIRY-001", state.SKU)
	assert.Equal(t, "0.99", state.Price)
}

func TestDropOverlayRestoresAuthoritativeValue(t *testing.T) {
	g := testGrid(gridProducts()...)

	g.overlay[cellKey{productID: "p1", column: colName}] = "Oat Milk"
	g.overlay[cellKey{productID: "p1", column: colSKU}] = "X-1"
	g.overlay[cellKey{productID: "p2", column: colName}] = "Margarine"

	g.DropOverlay("p1")
	state := g.rowStateFor(g.rows[0], false)
	assert.Equal(t, "Whole Milk", state.Name)
	assert.Equal(t, "DAIRY-001", state.SKU)

	// Other products keep their overlay entries.
	state = g.rowStateFor(g.rows[1], false)
	assert.Equal(t, "Margarine", state.Name)
}

func TestRowStateShowsUploadPreviews(t *testing.T) {
	g := testGrid(gridProducts()...)

	g.images.Begin("p1", []string{"/tmp/a.jpg", "/tmp/b.jpg", "/tmp/c.jpg"})
	state := g.rowStateFor(g.rows[0], false)
	assert.True(t, state.Uploading)
	assert.Equal(t, 3, state.ImageCount)
	assert.Equal(t, "/tmp/a.jpg", state.Image)

	g.images.Finish("p1")
	state = g.rowStateFor(g.rows[0], false)
	assert.False(t, state.Uploading)
	assert.Equal(t, 0, state.ImageCount)
}

func TestWeightCellShowsOptimisticValue(t *testing.T) {
	g := testGrid(gridProducts()...)
	for i, spec := range gridColumns {
		if spec.id == colWeight {
			g.colIdx = i
		}
	}
	g.openEditor()
	require.NotNil(t, g.editor)

	g.editor.input.SetValue("1.25")
	outcome := g.editor.save()
	g.applyOutcome(outcome)

	// The saved value shows before the store round-trip completes.
	state := g.rowStateFor(g.rows[0], false)
	assert.Equal(t, "1.25", state.Weight)

	g.DropOverlay("p1")
	state = g.rowStateFor(g.rows[0], false)
	assert.Equal(t, "—", state.Weight)
}

func TestSetRowsCancelsStateForRemovedProducts(t *testing.T) {
	g := testGrid(gridProducts()...)

	key := cellKey{productID: "p2", column: colName}
	g.deb.Schedule(key, textCommitDebounce, func() tea.Msg { return nil })
	g.overlay[key] = "Margarine"
	g.cursor = 1
	g.colIdx = 2
	require.Nil(t, g.openEditor())
	require.NotNil(t, g.editor)

	// p2 disappears from the filtered set.
	products := gridProducts()
	g.SetRows([]product{products[0], products[2]})

	assert.Equal(t, 0, g.deb.PendingCount())
	_, hasOverlay := g.overlay[key]
	assert.False(t, hasOverlay)
	assert.Nil(t, g.editor)
	assert.Equal(t, []string{"p1", "p3"}, g.Order())
}

func TestSetRowsClampsCursor(t *testing.T) {
	g := testGrid(gridProducts()...)
	g.cursor = 2
	g.SetRows(gridProducts()[:1])
	assert.Equal(t, 0, g.cursor)
}

func TestOpenEditorKindMatchesColumn(t *testing.T) {
	cases := []struct {
		col  columnID
		kind cellEditorKind
	}{
		{col: colName, kind: editText},
		{col: colSKU, kind: editText},
		{col: colWeight, kind: editText},
		{col: colBuyPrice, kind: editPrice},
		{col: colPrice, kind: editPrice},
		{col: colMarkup, kind: editMarkup},
		{col: colUnit, kind: editSelect},
		{col: colPackaging, kind: editSelect},
		{col: colCategory, kind: editCategory},
		{col: colGroups, kind: editMultiSelect},
		{col: colCatalogs, kind: editMultiSelect},
	}
	for _, tc := range cases {
		g := testGrid(gridProducts()...)
		for i, spec := range gridColumns {
			if spec.id == tc.col {
				g.colIdx = i
			}
		}
		g.openEditor()
		require.NotNil(t, g.editor, "column %s", tc.col)
		assert.Equal(t, tc.kind, g.editor.kind, "column %s", tc.col)
		assert.Equal(t, tc.col, g.editor.key.column)
	}
}

func TestFixedColumnTogglesWithoutEditor(t *testing.T) {
	g := testGrid(gridProducts()...)
	for i, spec := range gridColumns {
		if spec.id == colFixed {
			g.colIdx = i
		}
	}
	cmd := g.openEditor()
	require.NotNil(t, cmd)
	assert.Nil(t, g.editor)

	msg := cmd().(fixedToggledMsg)
	assert.Equal(t, "p1", msg.productID)
	assert.True(t, msg.value)
	// The overlay shows the flipped state immediately.
	state := g.rowStateFor(g.rows[0], false)
	assert.True(t, state.Fixed)
}

func TestOnlyOneCellEditsAtATime(t *testing.T) {
	g := testGrid(gridProducts()...)
	g.openEditor()
	first := g.editor
	require.NotNil(t, first)

	g.cursor = 1
	g.openEditor()
	require.NotNil(t, g.editor)
	assert.NotSame(t, first, g.editor)
	assert.Equal(t, "p2", g.editor.key.productID)
}

func TestApplySavedSchedulesDebouncedCommit(t *testing.T) {
	g := testGrid(gridProducts()...)
	key := cellKey{productID: "p1", column: colName}

	cmd := g.applySaved(key, &savedEdit{
		display:    "Oat Milk",
		hasDisplay: true,
		debounced:  textCommittedMsg{key: key, value: "Oat Milk"},
		delay:      textCommitDebounce,
	})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, g.deb.PendingCount())
	assert.Equal(t, "Oat Milk", g.overlay[key])

	// Resolving the due timer yields the commit message.
	due := cmd().(commitDueMsg)
	resolved := g.deb.Resolve(due.key, due.seq)
	require.NotNil(t, resolved)
	committed := resolved().(textCommittedMsg)
	assert.Equal(t, "Oat Milk", committed.value)
}

func TestApplySavedImmediateCommit(t *testing.T) {
	g := testGrid(gridProducts()...)
	key := cellKey{productID: "p1", column: colPrice}
	price := 1.49

	cmd := g.applySaved(key, &savedEdit{
		display:    "1.49",
		hasDisplay: true,
		immediate:  priceCommittedMsg{key: key, value: &price},
	})
	require.NotNil(t, cmd)
	assert.Equal(t, 0, g.deb.PendingCount())
	msg := cmd().(priceCommittedMsg)
	assert.InDelta(t, 1.49, *msg.value, 0.001)
}

func TestMoveColumnSkipsHiddenColumns(t *testing.T) {
	g := testGrid(gridProducts()...)
	g.visibility.SKU = false
	// Start on the name column, move right: SKU is skipped.
	g.colIdx = 2
	g.moveColumn(1)
	assert.Equal(t, colUnit, g.currentColumn())
	g.moveColumn(-1)
	assert.Equal(t, colName, g.currentColumn())
}

func TestFollowCursorScrollsViewport(t *testing.T) {
	var products []product
	for i := 0; i < 200; i++ {
		products = append(products, product{ID: newProductID(), Name: "P"})
	}
	g := testGrid(products...)

	g.cursor = 150
	g.followCursor()
	start, end := g.window().visibleRange(g.scroll, g.contentHeight())
	assert.GreaterOrEqual(t, 150, start)
	assert.LessOrEqual(t, 150, end)

	g.cursor = 0
	g.followCursor()
	assert.Equal(t, 0, g.scroll)
}
