package main

import (
	"strconv"
	"strings"
)

// rowState is the full snapshot of everything that can change one
// row's rendered output. Rows are re-rendered only when a field of
// this snapshot differs from the cached one; with thousands of mounted
// rows this guard is what keeps per-keystroke work bounded.
type rowState struct {
	Selected  bool
	Cursor    bool
	Expanded  bool
	Deleting  bool
	Uploading bool

	Name      string
	SKU       string
	Unit      string
	Packaging string
	Weight    string
	BuyPrice  string
	Price     string
	Markup    string
	Fixed     bool
	Image     string
	Source    productSource
	AutoSync  bool

	ImageCount   int
	GroupCount   int
	CatalogCount int
	Category     string

	Visibility columnVisibility
	LayoutRev  int
}

// equal compares every tracked field. It must return true only when
// nothing that affects the rendered line has changed.
func (s rowState) equal(o rowState) bool {
	return s.Selected == o.Selected &&
		s.Cursor == o.Cursor &&
		s.Expanded == o.Expanded &&
		s.Deleting == o.Deleting &&
		s.Uploading == o.Uploading &&
		s.Name == o.Name &&
		s.SKU == o.SKU &&
		s.Unit == o.Unit &&
		s.Packaging == o.Packaging &&
		s.Weight == o.Weight &&
		s.BuyPrice == o.BuyPrice &&
		s.Price == o.Price &&
		s.Markup == o.Markup &&
		s.Fixed == o.Fixed &&
		s.Image == o.Image &&
		s.Source == o.Source &&
		s.AutoSync == o.AutoSync &&
		s.ImageCount == o.ImageCount &&
		s.GroupCount == o.GroupCount &&
		s.CatalogCount == o.CatalogCount &&
		s.Category == o.Category &&
		s.Visibility == o.Visibility &&
		s.LayoutRev == o.LayoutRev
}

type cachedRow struct {
	state    rowState
	rendered string
}

// rowCache keeps the last rendered line per product id, guarded by
// rowState equality.
type rowCache struct {
	entries map[string]cachedRow
}

func newRowCache() *rowCache {
	return &rowCache{entries: make(map[string]cachedRow)}
}

func (c *rowCache) Render(id string, state rowState, render func() string) string {
	if entry, ok := c.entries[id]; ok && entry.state.equal(state) {
		return entry.rendered
	}
	out := render()
	c.entries[id] = cachedRow{state: state, rendered: out}
	return out
}

func (c *rowCache) Invalidate(id string) {
	delete(c.entries, id)
}

// Prune drops cache entries for rows no longer mounted.
func (c *rowCache) Prune(live map[string]struct{}) {
	for id := range c.entries {
		if _, ok := live[id]; !ok {
			delete(c.entries, id)
		}
	}
}

func (c *rowCache) Len() int {
	return len(c.entries)
}

// renderRowLine assembles one product row in column order, clamping
// every cell to its current width.
func renderRowLine(s rowState, layout *columnLayout, st styles) string {
	var b strings.Builder
	for _, spec := range gridColumns {
		if !s.Visibility.visible(spec.id) {
			continue
		}
		b.WriteString(clampCell(rowCellText(s, spec.id), layout.Width(spec.id)))
	}
	line := b.String()
	switch {
	case s.Deleting:
		return st.rowDeleting.Render(line)
	case s.Cursor:
		return st.rowCursor.Render(line)
	case s.Selected:
		return st.rowSelected.Render(line)
	}
	return st.row.Render(line)
}

func rowCellText(s rowState, id columnID) string {
	switch id {
	case colSelect:
		if s.Selected {
			return "[x]"
		}
		return "[ ]"
	case colImage:
		marker := "·"
		if s.ImageCount > 0 {
			marker = strconv.Itoa(s.ImageCount)
		}
		if s.Uploading {
			marker += "↑"
		}
		return marker
	case colName:
		if s.Expanded {
			return s.Name + " ▾"
		}
		return s.Name
	case colSKU:
		return s.SKU
	case colUnit:
		return s.Unit
	case colPackaging:
		return s.Packaging
	case colWeight:
		return s.Weight
	case colBuyPrice:
		return s.BuyPrice
	case colPrice:
		return s.Price
	case colMarkup:
		return s.Markup
	case colFixed:
		if s.Fixed {
			return "✓"
		}
		return ""
	case colCategory:
		return s.Category
	case colGroups:
		return strconv.Itoa(s.GroupCount)
	case colCatalogs:
		return strconv.Itoa(s.CatalogCount)
	case colSource:
		label := "loc"
		if s.Source == sourceExternal {
			label = "ext"
			if s.AutoSync {
				label = "ext⟳"
			}
		}
		return label
	}
	return ""
}

// clampCell truncates or pads a plain-text cell to exactly width
// columns, keeping one trailing space as the separator.
func clampCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) > width-1 {
		if width > 1 {
			runes = runes[:width-1]
		} else {
			runes = runes[:0]
		}
	}
	return string(runes) + strings.Repeat(" ", width-len(runes))
}

// renderHeaderLine renders the column titles with the same widths as
// the rows beneath them.
func renderHeaderLine(layout *columnLayout, v columnVisibility, st styles) string {
	var b strings.Builder
	for _, spec := range gridColumns {
		if !v.visible(spec.id) {
			continue
		}
		b.WriteString(clampCell(spec.title, layout.Width(spec.id)))
	}
	return st.gridHeader.Render(b.String())
}
