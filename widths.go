package main

type columnID string

const (
	colSelect    columnID = "select"
	colImage     columnID = "image"
	colName      columnID = "name"
	colSKU       columnID = "sku"
	colUnit      columnID = "unit"
	colPackaging columnID = "packaging"
	colWeight    columnID = "weight"
	colBuyPrice  columnID = "buy_price"
	colPrice     columnID = "price"
	colMarkup    columnID = "markup"
	colFixed     columnID = "fixed"
	colCategory  columnID = "category"
	colGroups    columnID = "groups"
	colCatalogs  columnID = "catalogs"
	colSource    columnID = "source"
)

type columnSpec struct {
	id           columnID
	title        string
	defaultWidth int
	minWidth     int
}

// gridColumns is the declared column order of the product grid.
var gridColumns = []columnSpec{
	{id: colSelect, title: " ", defaultWidth: 3, minWidth: 3},
	{id: colImage, title: "Img", defaultWidth: 5, minWidth: 4},
	{id: colName, title: "Name", defaultWidth: 28, minWidth: 10},
	{id: colSKU, title: "SKU", defaultWidth: 12, minWidth: 6},
	{id: colUnit, title: "Unit", defaultWidth: 8, minWidth: 5},
	{id: colPackaging, title: "Packaging", defaultWidth: 11, minWidth: 6},
	{id: colWeight, title: "Weight", defaultWidth: 8, minWidth: 6},
	{id: colBuyPrice, title: "Buy", defaultWidth: 9, minWidth: 6},
	{id: colPrice, title: "Price", defaultWidth: 9, minWidth: 6},
	{id: colMarkup, title: "Markup", defaultWidth: 10, minWidth: 7},
	{id: colFixed, title: "Fix", defaultWidth: 4, minWidth: 4},
	{id: colCategory, title: "Category", defaultWidth: 14, minWidth: 8},
	{id: colGroups, title: "Groups", defaultWidth: 8, minWidth: 6},
	{id: colCatalogs, title: "Catalogs", defaultWidth: 9, minWidth: 6},
	{id: colSource, title: "Src", defaultWidth: 5, minWidth: 4},
}

func columnSpecFor(id columnID) (columnSpec, bool) {
	for _, spec := range gridColumns {
		if spec.id == id {
			return spec, true
		}
	}
	return columnSpec{}, false
}

// columnVisibility is the per-column display toggle set. It is a plain
// value type so row snapshots can compare it directly.
type columnVisibility struct {
	Image     bool
	Name      bool
	SKU       bool
	Unit      bool
	Packaging bool
	Weight    bool
	BuyPrice  bool
	Price     bool
	Markup    bool
	Fixed     bool
	Category  bool
	Groups    bool
	Catalogs  bool
	Source    bool
}

func defaultColumnVisibility() columnVisibility {
	return columnVisibility{
		Image: true, Name: true, SKU: true, Unit: true, Packaging: true,
		Weight: true, BuyPrice: true, Price: true, Markup: true, Fixed: true,
		Category: true, Groups: true, Catalogs: true, Source: true,
	}
}

func (v columnVisibility) visible(id columnID) bool {
	switch id {
	case colSelect:
		return true
	case colImage:
		return v.Image
	case colName:
		return v.Name
	case colSKU:
		return v.SKU
	case colUnit:
		return v.Unit
	case colPackaging:
		return v.Packaging
	case colWeight:
		return v.Weight
	case colBuyPrice:
		return v.BuyPrice
	case colPrice:
		return v.Price
	case colMarkup:
		return v.Markup
	case colFixed:
		return v.Fixed
	case colCategory:
		return v.Category
	case colGroups:
		return v.Groups
	case colCatalogs:
		return v.Catalogs
	case colSource:
		return v.Source
	}
	return false
}

// widthStore persists column widths under a key unique per table
// instance, so differently scoped grids never share layouts.
type widthStore interface {
	ColumnWidth(instance string, column string) (int, bool, error)
	SetColumnWidth(instance string, column string, width int) error
}

type widthDrag struct {
	column     columnID
	startX     int
	startWidth int
}

// columnLayout owns the width of every grid column for one table
// instance. Widths are clamped to the column minimum and persisted on
// every change; the revision counter lets row snapshots detect layout
// changes cheaply.
type columnLayout struct {
	instanceKey string
	store       widthStore
	widths      map[columnID]int
	revision    int
	drag        *widthDrag
}

func newColumnLayout(instanceKey string, store widthStore) *columnLayout {
	l := &columnLayout{
		instanceKey: instanceKey,
		store:       store,
		widths:      make(map[columnID]int),
	}
	if store == nil {
		return l
	}
	for _, spec := range gridColumns {
		w, ok, err := store.ColumnWidth(instanceKey, string(spec.id))
		if err != nil || !ok {
			continue
		}
		if w < spec.minWidth {
			w = spec.minWidth
		}
		l.widths[spec.id] = w
	}
	return l
}

func (l *columnLayout) Width(id columnID) int {
	if w, ok := l.widths[id]; ok {
		return w
	}
	if spec, ok := columnSpecFor(id); ok {
		return spec.defaultWidth
	}
	return 0
}

func (l *columnLayout) SetWidth(id columnID, width int) error {
	spec, ok := columnSpecFor(id)
	if !ok {
		return nil
	}
	if width < spec.minWidth {
		width = spec.minWidth
	}
	if l.widths[id] == width && l.widths[id] != 0 {
		return nil
	}
	l.widths[id] = width
	l.revision++
	if l.store == nil {
		return nil
	}
	return l.store.SetColumnWidth(l.instanceKey, string(id), width)
}

// TotalWidth sums the widths of visible columns only.
func (l *columnLayout) TotalWidth(v columnVisibility) int {
	total := 0
	for _, spec := range gridColumns {
		if v.visible(spec.id) {
			total += l.Width(spec.id)
		}
	}
	return total
}

func (l *columnLayout) Revision() int {
	return l.revision
}

func (l *columnLayout) StartDrag(id columnID, x int) {
	l.drag = &widthDrag{column: id, startX: x, startWidth: l.Width(id)}
}

// DragTo applies the current pointer position of an in-flight drag.
func (l *columnLayout) DragTo(x int) error {
	if l.drag == nil {
		return nil
	}
	return l.SetWidth(l.drag.column, l.drag.startWidth+(x-l.drag.startX))
}

func (l *columnLayout) EndDrag() {
	l.drag = nil
}

func (l *columnLayout) Dragging() bool {
	return l.drag != nil
}

// columnAtX maps an x offset inside the rendered row to the column it
// falls in, returning the column and the x position of its right edge.
// Only visible columns participate.
func (l *columnLayout) columnAtX(x int, v columnVisibility) (columnID, int, bool) {
	edge := 0
	for _, spec := range gridColumns {
		if !v.visible(spec.id) {
			continue
		}
		edge += l.Width(spec.id)
		if x < edge {
			return spec.id, edge, true
		}
	}
	return "", 0, false
}
