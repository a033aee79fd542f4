package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// fixedToggledMsg flips the fixed-price flag; it has no edit state, so
// it commits straight from the key handler.
type fixedToggledMsg struct {
	productID string
	value     bool
}

// rowHighlightedMsg asks the model to show the highlighted product in
// the detail pane.
type rowHighlightedMsg struct {
	productID string
}

const wheelScrollStep = 3

// gridFrameLines is the vertical chrome inside the grid panel: border
// top/bottom, title line, header line.
const gridFrameLines = 4

// productGrid is the virtualized product table. It owns the scroll
// window, the column layout, the row cache, the active cell editor and
// the bulk selection; products themselves are externally owned and
// replaced wholesale via SetRows.
type productGrid struct {
	title  string
	width  int
	height int

	// originX/originY are the grid's screen position, set during
	// layout, used to translate global mouse coordinates.
	originX int
	originY int

	layout     *columnLayout
	visibility columnVisibility
	scopeID    string

	rows   []product
	order  []string
	scroll int
	cursor int
	colIdx int

	overscan  int
	selection *selectionState
	overlay   map[cellKey]string
	images    *imageOverlay
	cache     *rowCache
	deb       *debouncer
	editor    *cellEditor

	deleting map[string]struct{}
	expanded map[string]bool

	unitOptions      []selectOption
	packagingOptions []selectOption
	groupOptions     []selectOption
	catalogOptions   []selectOption
	categoryOptions  []selectOption
	categoryLabels   map[string]string
}

func newProductGrid(title, scopeID string, layout *columnLayout, visibility columnVisibility, overscan int, selection *selectionState) *productGrid {
	return &productGrid{
		title:      title,
		scopeID:    scopeID,
		layout:     layout,
		visibility: visibility,
		overscan:   overscan,
		selection:  selection,
		overlay:    make(map[cellKey]string),
		images:     newImageOverlay(),
		cache:      newRowCache(),
		deb:        newDebouncer(),
		deleting:   make(map[string]struct{}),
		expanded:   make(map[string]bool),
		colIdx:     2, // name column
	}
}

func (g *productGrid) SetOrigin(x, y int) {
	g.originX = x
	g.originY = y
}

func (g *productGrid) SetScope(title, scopeID string, layout *columnLayout) {
	g.title = title
	g.scopeID = scopeID
	g.layout = layout
	g.cache = newRowCache()
	g.closeEditor()
}

func (g *productGrid) SetOptions(units, packagings, groups, catalogs, categories []selectOption, categoryLabels map[string]string) {
	g.unitOptions = units
	g.packagingOptions = packagings
	g.groupOptions = groups
	g.catalogOptions = catalogs
	g.categoryOptions = categories
	g.categoryLabels = categoryLabels
}

// SetRows replaces the filtered, ordered row set. Pending debounced
// commits and overlay entries for rows that disappeared are cancelled
// so a recycled cell never commits to a disposed product.
func (g *productGrid) SetRows(rows []product) {
	live := make(map[string]struct{}, len(rows))
	for _, p := range rows {
		live[p.ID] = struct{}{}
	}
	for _, p := range g.rows {
		if _, ok := live[p.ID]; !ok {
			g.deb.CancelProduct(p.ID)
			g.dropOverlay(p.ID)
			g.cache.Invalidate(p.ID)
			delete(g.expanded, p.ID)
			if g.editor != nil && g.editor.key.productID == p.ID {
				g.editor = nil
			}
		}
	}
	g.rows = rows
	g.order = productOrder(rows)
	g.cache.Prune(live)
	if g.cursor > len(rows)-1 {
		g.cursor = len(rows) - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
	g.scroll = g.window().clampScroll(g.scroll, g.contentHeight())
}

func (g *productGrid) Order() []string {
	return g.order
}

func (g *productGrid) Selection() *selectionState {
	return g.selection
}

func (g *productGrid) Images() *imageOverlay {
	return g.images
}

func (g *productGrid) CurrentProduct() (product, bool) {
	if g.cursor < 0 || g.cursor >= len(g.rows) {
		return product{}, false
	}
	return g.rows[g.cursor], true
}

func (g *productGrid) SetDeleting(ids []string) {
	g.deleting = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		g.deleting[id] = struct{}{}
	}
}

func (g *productGrid) ClearDeleting() {
	g.deleting = make(map[string]struct{})
}

// DropOverlay removes optimistic display values for a product once the
// store acknowledged (or rejected) the write.
func (g *productGrid) DropOverlay(productID string) {
	g.dropOverlay(productID)
}

func (g *productGrid) dropOverlay(productID string) {
	for key := range g.overlay {
		if key.productID == productID {
			delete(g.overlay, key)
		}
	}
}

func (g *productGrid) overlayOr(key cellKey, fallback string) string {
	if v, ok := g.overlay[key]; ok {
		return v
	}
	return fallback
}

func (g *productGrid) window() rowWindow {
	return newRowWindow(len(g.rows), 1, g.overscan)
}

func (g *productGrid) contentHeight() int {
	h := g.height - gridFrameLines
	if g.editor != nil && g.editor.popover() {
		h -= g.popoverHeight()
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (g *productGrid) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 6 {
		height = 6
	}
	g.width = width
	g.height = height
	g.scroll = g.window().clampScroll(g.scroll, g.contentHeight())
}

func (g *productGrid) Title() string {
	return g.title
}

func (g *productGrid) FocusValue() string {
	if p, ok := g.CurrentProduct(); ok {
		return p.Name
	}
	return ""
}

func (g *productGrid) Update(msg tea.Msg) (column, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return g, g.handleKey(msg)
	case tea.MouseMsg:
		return g, g.handleMouse(msg)
	case commitDueMsg:
		return g, g.deb.Resolve(msg.key, msg.seq)
	case optionCreatedMsg:
		if g.editor != nil && g.editor.key == msg.key {
			outcome, cmd := g.editor.adoptCreatedOption(msg)
			return g, tea.Batch(cmd, g.applyOutcome(outcome))
		}
	}
	return g, nil
}

func (g *productGrid) handleKey(msg tea.KeyMsg) tea.Cmd {
	if g.editor != nil {
		outcome, cmd := g.editor.HandleKey(msg)
		return tea.Batch(cmd, g.applyOutcome(outcome))
	}

	switch msg.String() {
	case "up", "k":
		g.moveCursor(-1)
	case "down", "j":
		g.moveCursor(1)
	case "pgup":
		g.moveCursor(-g.contentHeight())
	case "pgdown":
		g.moveCursor(g.contentHeight())
	case "g", "home":
		g.cursor = 0
		g.followCursor()
	case "G", "end":
		g.cursor = len(g.rows) - 1
		if g.cursor < 0 {
			g.cursor = 0
		}
		g.followCursor()
	case "left":
		g.moveColumn(-1)
	case "right":
		g.moveColumn(1)
	case "x", " ":
		if p, ok := g.CurrentProduct(); ok {
			g.selection.Toggle(p.ID, false, g.order)
		}
	case "X":
		if p, ok := g.CurrentProduct(); ok {
			g.selection.Toggle(p.ID, true, g.order)
		}
	case "a":
		g.selection.SelectAll(g.order)
	case "c":
		g.selection.Clear()
	case "e":
		if p, ok := g.CurrentProduct(); ok {
			g.expanded[p.ID] = !g.expanded[p.ID]
		}
	case "enter":
		return g.openEditor()
	}

	if p, ok := g.CurrentProduct(); ok {
		id := p.ID
		switch msg.String() {
		case "up", "down", "k", "j", "pgup", "pgdown", "g", "G", "home", "end":
			return func() tea.Msg { return rowHighlightedMsg{productID: id} }
		}
	}
	return nil
}

func (g *productGrid) moveCursor(delta int) {
	g.cursor += delta
	if g.cursor < 0 {
		g.cursor = 0
	}
	if g.cursor > len(g.rows)-1 {
		g.cursor = len(g.rows) - 1
	}
	if g.cursor < 0 {
		g.cursor = 0
	}
	g.followCursor()
}

func (g *productGrid) followCursor() {
	w := g.window()
	offset := w.rowOffset(g.cursor)
	viewport := g.contentHeight()
	if offset < g.scroll {
		g.scroll = offset
	}
	if offset+w.rowHeight > g.scroll+viewport {
		g.scroll = offset + w.rowHeight - viewport
	}
	g.scroll = w.clampScroll(g.scroll, viewport)
}

func (g *productGrid) moveColumn(delta int) {
	idx := g.colIdx
	for {
		idx += delta
		if idx < 0 || idx > len(gridColumns)-1 {
			return
		}
		spec := gridColumns[idx]
		if spec.id != colSelect && g.visibility.visible(spec.id) {
			g.colIdx = idx
			return
		}
	}
}

func (g *productGrid) currentColumn() columnID {
	if g.colIdx < 0 || g.colIdx >= len(gridColumns) {
		return colName
	}
	return gridColumns[g.colIdx].id
}

// openEditor enters Editing for the cursor cell. The fixed-price flag
// has no edit affordance and toggles directly.
func (g *productGrid) openEditor() tea.Cmd {
	p, ok := g.CurrentProduct()
	if !ok {
		return nil
	}
	col := g.currentColumn()
	key := cellKey{productID: p.ID, column: col}

	switch col {
	case colFixed:
		value := !p.FixedPrice
		g.overlay[key] = boolMark(value)
		return func() tea.Msg { return fixedToggledMsg{productID: p.ID, value: value} }
	case colName:
		g.editor = newTextEditor(key, g.overlayOr(key, p.Name))
	case colSKU:
		g.editor = newTextEditor(key, g.overlayOr(key, p.SKU))
	case colWeight:
		g.editor = newTextEditor(key, g.overlayOr(key, trimFloat(p.UnitWeight)))
	case colBuyPrice:
		g.editor = newPriceEditor(key, p.BuyPrice)
	case colPrice:
		g.editor = newPriceEditor(key, p.PricePerUnit)
	case colMarkup:
		g.editor = newMarkupEditor(key, p.Markup)
	case colUnit:
		g.editor = newSelectEditor(key, g.unitOptions, p.Unit)
	case colPackaging:
		g.editor = newSelectEditor(key, g.packagingOptions, p.PackagingType)
	case colCategory:
		g.editor = newCategoryEditor(key, g.categoryOptions, p.CategoryFor(g.scopeID))
	case colGroups:
		g.editor = newMultiSelectEditor(key, g.groupOptions, p.GroupIDs)
	case colCatalogs:
		g.editor = newMultiSelectEditor(key, g.catalogOptions, setToSlice(p.Catalogs))
	default:
		return nil
	}
	return nil
}

func (g *productGrid) closeEditor() {
	g.editor = nil
}

// applyOutcome folds an editor outcome back into grid state: overlay
// for optimistic display, debounced or immediate upward commit.
func (g *productGrid) applyOutcome(outcome editOutcome) tea.Cmd {
	var cmd tea.Cmd
	if outcome.saved != nil {
		key := cellKey{}
		if g.editor != nil {
			key = g.editor.key
		}
		cmd = g.applySaved(key, outcome.saved)
	}
	if outcome.close {
		g.closeEditor()
	}
	return cmd
}

func (g *productGrid) applySaved(key cellKey, saved *savedEdit) tea.Cmd {
	if saved.hasDisplay {
		g.overlay[key] = saved.display
	}
	if saved.debounced != nil {
		msg := saved.debounced
		return g.deb.Schedule(key, saved.delay, func() tea.Msg { return msg })
	}
	if saved.immediate != nil {
		msg := saved.immediate
		return func() tea.Msg { return msg }
	}
	return nil
}

// Blur saves or closes the in-flight edit when focus leaves the grid
// or the pointer lands outside the editing cell.
func (g *productGrid) Blur() tea.Cmd {
	if g.editor == nil {
		return nil
	}
	outcome := g.editor.Blur()
	return g.applyOutcome(outcome)
}

func (g *productGrid) handleMouse(msg tea.MouseMsg) tea.Cmd {
	x := msg.X - g.originX
	y := msg.Y - g.originY

	switch msg.Type {
	case tea.MouseWheelUp:
		g.scroll = g.window().clampScroll(g.scroll-wheelScrollStep, g.contentHeight())
		return nil
	case tea.MouseWheelDown:
		g.scroll = g.window().clampScroll(g.scroll+wheelScrollStep, g.contentHeight())
		return nil
	case tea.MouseMotion:
		if g.layout.Dragging() {
			_ = g.layout.DragTo(x)
		}
		return nil
	case tea.MouseRelease:
		g.layout.EndDrag()
		return nil
	case tea.MouseLeft:
		return g.handleClick(x, y, msg.Alt)
	}
	return nil
}

// handleClick maps a grid-local click to header drag, row cursor
// movement, selection toggles, and blur of an in-flight edit.
func (g *productGrid) handleClick(x, y int, alt bool) tea.Cmd {
	const headerLine = 2 // inside border: title is line 1, header line 2

	var cmds []tea.Cmd
	if g.editor != nil {
		cmds = append(cmds, g.Blur())
	}

	if y == headerLine {
		if col, edge, ok := g.layout.columnAtX(x, g.visibility); ok && edge-x <= 1 {
			g.layout.StartDrag(col, x)
		}
		return tea.Batch(cmds...)
	}

	rowY := y - headerLine - 1
	if rowY < 0 {
		return tea.Batch(cmds...)
	}
	idx := g.scroll + rowY
	if idx < 0 || idx > len(g.rows)-1 {
		return tea.Batch(cmds...)
	}
	g.cursor = idx
	g.followCursor()
	p := g.rows[idx]

	if col, _, ok := g.layout.columnAtX(x, g.visibility); ok {
		for i, spec := range gridColumns {
			if spec.id == col {
				if g.visibility.visible(spec.id) && spec.id != colSelect {
					g.colIdx = i
				}
				break
			}
		}
		if col == colSelect || alt {
			g.selection.Toggle(p.ID, alt, g.order)
		}
	}
	id := p.ID
	cmds = append(cmds, func() tea.Msg { return rowHighlightedMsg{productID: id} })
	return tea.Batch(cmds...)
}

func (g *productGrid) rowStateFor(p product, cursor bool) rowState {
	id := p.ID
	previews := g.images.Previews(id)
	image := p.PrimaryImage()
	imageCount := len(p.Images)
	if len(previews) > 0 {
		image = previews[0]
		imageCount = len(previews)
	}

	buy := ""
	if p.BuyPrice != nil {
		buy = formatPrice(*p.BuyPrice)
	}
	price := ""
	if p.PricePerUnit != nil {
		price = formatPrice(*p.PricePerUnit)
	}
	categoryID := p.CategoryFor(g.scopeID)
	categoryLabel := g.categoryLabels[categoryID]
	if categoryLabel == "" {
		categoryLabel = categoryID
	}

	_, deleting := g.deleting[id]
	fixed := p.FixedPrice
	if v, ok := g.overlay[cellKey{productID: id, column: colFixed}]; ok {
		fixed = v == "✓"
	}

	return rowState{
		Selected:  g.selection.Has(id),
		Cursor:    cursor,
		Expanded:  g.expanded[id],
		Deleting:  deleting,
		Uploading: g.images.Uploading(id),

		Name:      g.overlayOr(cellKey{productID: id, column: colName}, p.Name),
		SKU:       g.overlayOr(cellKey{productID: id, column: colSKU}, p.SKU),
		Unit:      g.overlayOr(cellKey{productID: id, column: colUnit}, p.Unit),
		Packaging: g.overlayOr(cellKey{productID: id, column: colPackaging}, p.PackagingType),
		Weight:    g.overlayOr(cellKey{productID: id, column: colWeight}, formatWeight(p.UnitWeight)),
		BuyPrice:  g.overlayOr(cellKey{productID: id, column: colBuyPrice}, buy),
		Price:     g.overlayOr(cellKey{productID: id, column: colPrice}, price),
		Markup:    g.overlayOr(cellKey{productID: id, column: colMarkup}, formatMarkup(p.Markup)),
		Fixed:     fixed,
		Image:     image,
		Source:    p.Source,
		AutoSync:  p.AutoSync,

		ImageCount:   imageCount,
		GroupCount:   len(p.GroupIDs),
		CatalogCount: len(p.Catalogs),
		Category:     g.overlayOr(cellKey{productID: id, column: colCategory}, categoryLabel),

		Visibility: g.visibility,
		LayoutRev:  g.layout.Revision(),
	}
}

func (g *productGrid) View(s styles, focused bool) string {
	var b strings.Builder

	header := fmt.Sprintf("%s — %d rows", g.title, len(g.rows))
	if n := g.selection.Count(); n > 0 {
		header += fmt.Sprintf(" • %d selected", n)
	}
	b.WriteString(s.columnTitle.Render(header))
	b.WriteRune('\n')
	b.WriteString(renderHeaderLine(g.layout, g.visibility, s))
	b.WriteRune('\n')

	start, end := g.window().visibleRange(g.scroll, g.contentHeight())
	for i := start; i <= end; i++ {
		p := g.rows[i]
		if g.editor != nil && g.editor.key.productID == p.ID && !g.editor.popover() {
			b.WriteString(g.renderEditingRow(p, s))
		} else {
			state := g.rowStateFor(p, i == g.cursor)
			b.WriteString(g.cache.Render(p.ID, state, func() string {
				return renderRowLine(state, g.layout, s)
			}))
		}
		b.WriteRune('\n')
	}
	if end < start {
		b.WriteString(s.statusHint.Render("no products match"))
		b.WriteRune('\n')
	}

	if g.editor != nil && g.editor.popover() {
		b.WriteString(g.renderPopover(s))
	}

	body := strings.TrimRight(b.String(), "\n")
	if focused {
		return s.panelFocused.Width(g.width).Render(body)
	}
	return s.panel.Width(g.width).Render(body)
}

// renderEditingRow swaps the editing cell's text for the live input.
func (g *productGrid) renderEditingRow(p product, s styles) string {
	state := g.rowStateFor(p, true)
	var b strings.Builder
	for _, spec := range gridColumns {
		if !g.visibility.visible(spec.id) {
			continue
		}
		w := g.layout.Width(spec.id)
		if spec.id == g.editor.key.column {
			b.WriteString(s.cellEditing.Render(clampCell(g.editor.input.View(), w)))
			continue
		}
		b.WriteString(clampCell(rowCellText(state, spec.id), w))
	}
	return b.String()
}

func (e *cellEditor) popover() bool {
	switch e.kind {
	case editSelect, editMultiSelect, editCategory:
		return true
	}
	return false
}

const popoverMaxOptions = 6

func (g *productGrid) popoverHeight() int {
	n := len(g.editor.options)
	if n > popoverMaxOptions {
		n = popoverMaxOptions
	}
	return n + 1
}

// renderPopover draws the option list for select-style editors at the
// bottom of the panel.
func (g *productGrid) renderPopover(s styles) string {
	e := g.editor
	var b strings.Builder
	label := "select"
	if e.kind == editMultiSelect {
		label = "toggle with space"
	}
	b.WriteString(s.statusHint.Render(fmt.Sprintf("%s — %s, enter to close", e.key.column, label)))
	b.WriteRune('\n')

	if e.addingNew {
		b.WriteString(s.cmdPrompt.Render("new: "))
		b.WriteString(e.addInput.View())
		return b.String()
	}

	first := e.index - popoverMaxOptions + 1
	if first < 0 {
		first = 0
	}
	for i := first; i < len(e.options) && i < first+popoverMaxOptions; i++ {
		opt := e.options[i]
		marker := "  "
		if e.kind == editMultiSelect && opt.id != addNewOptionID {
			if e.checked[opt.id] {
				marker = "[x] "
			} else {
				marker = "[ ] "
			}
		}
		line := marker + opt.label
		if i == e.index {
			b.WriteString(s.listSel.Render(line))
		} else {
			b.WriteString(s.listItem.Render(line))
		}
		if i < len(e.options)-1 && i < first+popoverMaxOptions-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}

func boolMark(v bool) string {
	if v {
		return "✓"
	}
	return ""
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
