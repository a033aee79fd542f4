package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type focusArea int

const (
	focusCatalogs focusArea = iota
	focusGrid
	focusPreview
)

type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputBulkMenu
	inputBulkValue
	inputBulkPick
	inputNewCatalog
	inputNewGroup
	inputUploadFiles
	inputDeleteConfirm
)

type bulkActionKind int

const (
	bulkSetUnit bulkActionKind = iota
	bulkSetPackaging
	bulkSetPrice
	bulkSetMarkup
	bulkAddToCatalog
	bulkNewCatalogAdd
	bulkAddToGroup
	bulkSetCategory
	bulkClearCategory
	bulkAutoFillCategory
	bulkBestPhoto
	bulkDelete
)

type bulkAction struct {
	label string
	kind  bulkActionKind
}

var bulkActions = []bulkAction{
	{label: "Set unit", kind: bulkSetUnit},
	{label: "Set packaging", kind: bulkSetPackaging},
	{label: "Set price per unit", kind: bulkSetPrice},
	{label: "Set markup %", kind: bulkSetMarkup},
	{label: "Add to catalog", kind: bulkAddToCatalog},
	{label: "Create catalog and add", kind: bulkNewCatalogAdd},
	{label: "Add to group", kind: bulkAddToGroup},
	{label: "Set category", kind: bulkSetCategory},
	{label: "Clear category", kind: bulkClearCategory},
	{label: "Auto-fill category", kind: bulkAutoFillCategory},
	{label: "Use best photo", kind: bulkBestPhoto},
	{label: "Delete products", kind: bulkDelete},
}

type productsLoadedMsg struct {
	products   []product
	catalogs   []catalog
	groups     []productGroup
	categories []category
	units      []string
	packagings []string
	err        error
}

// productSavedMsg reports the result of one persisted field change.
// On failure the optimistic overlay entry is dropped so the cell shows
// the authoritative value again.
type productSavedMsg struct {
	productID string
	field     string
	err       error
}

type productRefreshedMsg struct {
	product product
	ok      bool
	err     error
}

type keyMap struct {
	Filter     key.Binding
	BulkMenu   key.Binding
	Select     key.Binding
	RangeSel   key.Binding
	SelectAll  key.Binding
	ClearSel   key.Binding
	Edit       key.Binding
	Upload     key.Binding
	RemoveImg  key.Binding
	BestPhoto  key.Binding
	Copy       key.Binding
	Preview    key.Binding
	Logs       key.Binding
	NextFocus  key.Binding
	NewCatalog key.Binding
	NewGroup   key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		BulkMenu:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bulk actions")),
		Select:     key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "select")),
		RangeSel:   key.NewBinding(key.WithKeys("X"), key.WithHelp("shift+x", "range select")),
		SelectAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
		ClearSel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
		Edit:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit cell")),
		Upload:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload images")),
		RemoveImg:  key.NewBinding(key.WithKeys("D"), key.WithHelp("shift+d", "remove photo")),
		BestPhoto:  key.NewBinding(key.WithKeys("P"), key.WithHelp("shift+p", "best photo")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy row")),
		Preview:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "toggle details")),
		Logs:       key.NewBinding(key.WithKeys("L"), key.WithHelp("shift+l", "toggle log")),
		NextFocus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		NewCatalog: key.NewBinding(key.WithKeys("C"), key.WithHelp("shift+c", "new catalog")),
		NewGroup:   key.NewBinding(key.WithKeys("G"), key.WithHelp("shift+g", "new group")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Filter, k.BulkMenu, k.Select, k.Edit, k.Upload, k.Preview, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Filter, k.BulkMenu, k.Select, k.RangeSel, k.SelectAll, k.ClearSel},
		{k.Edit, k.Upload, k.RemoveImg, k.BestPhoto, k.Copy, k.NewCatalog, k.NewGroup},
		{k.Preview, k.Logs, k.NextFocus, k.Quit},
	}
}

const sidebarWidth = 26
const previewWidth = 44

type model struct {
	store  *catalogStore
	events *eventLog

	cfg     *uiConfig
	cfgPath string

	styles styles
	keys   keyMap
	help   help.Model

	width  int
	height int

	focus       focusArea
	showPreview bool
	showLog     bool

	products   []product
	catalogs   []catalog
	groups     []productGroup
	categories []category
	units      []string
	packagings []string

	filter    productFilter
	selection *selectionState

	sidebar *selectableColumn
	grid    *productGrid
	preview *productPreview
	logView viewport.Model

	bulk         *bulkRunner
	bulkIndex    int
	bulkPending  *bulkAction
	bulkOptions  []selectOption
	bulkPickIdx  int
	deleteSt     deleteState
	deletePend   []string
	bulkProgress string

	uploadCh     chan uploadEvent
	uploadTarget string

	inputMode   inputMode
	input       textinput.Model
	inputPrompt string

	spin    spinner.Model
	saving  int
	status  string
	toast   string
	toastAt time.Time

	err error
}

func initialModel(store *catalogStore, events *eventLog, cfg *uiConfig, cfgPath string) *model {
	s := newStyles()
	selection := newSelectionState()

	overscan := cfg.Overscan
	if overscan <= 0 {
		overscan = 4
	}
	visibility := visibilityFromConfig(cfg)
	layout := newColumnLayout("grid:all", store)
	grid := newProductGrid("All products", "", layout, visibility, overscan, selection)

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	m := &model{
		store:     store,
		events:    events,
		cfg:       cfg,
		cfgPath:   cfgPath,
		styles:    s,
		keys:      newKeyMap(),
		help:      help.New(),
		focus:     focusGrid,
		selection: selection,
		grid:      grid,
		preview:   newProductPreview(),
		logView:   viewport.New(60, 10),
		bulk:      newBulkRunner(),
		spin:      sp,
		input:     textinput.New(),
	}
	m.sidebar = newSelectableColumn("Catalogs", nil, sidebarWidth, m.catalogSelected, s)
	// Moving the sidebar cursor re-scopes the grid live; enter keeps
	// its meaning of jumping focus into the grid.
	m.sidebar.SetHighlightFunc(m.catalogHighlighted)
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spin.Tick)
}

func (m *model) loadCmd() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		products, err := store.ListProducts()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		catalogs, err := store.ListCatalogs()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		groups, err := store.ListGroups()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		categories, err := store.ListCategories()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		units, err := store.ListCustomUnits()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		packagings, err := store.ListCustomPackagingTypes()
		if err != nil {
			return productsLoadedMsg{err: err}
		}
		return productsLoadedMsg{
			products:   products,
			catalogs:   catalogs,
			groups:     groups,
			categories: categories,
			units:      units,
			packagings: packagings,
		}
	}
}

var builtinUnits = []string{"pcs", "kg", "g", "l", "ml"}
var builtinPackagings = []string{"box", "bag", "crate", "tray", "pallet"}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutPanes()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case productsLoadedMsg:
		return m, m.handleLoaded(msg)

	case productSavedMsg:
		return m, m.handleSaved(msg)

	case productRefreshedMsg:
		if msg.ok && msg.err == nil {
			m.replaceProduct(msg.product)
			m.refreshGrid()
			if m.preview.ProductID() == msg.product.ID {
				m.preview.Show(msg.product)
			}
		}
		return m, nil

	case rowHighlightedMsg:
		if p, ok := m.productByID(msg.productID); ok {
			m.preview.Show(p)
		}
		return m, nil

	case commitDueMsg:
		_, cmd := m.grid.Update(msg)
		return m, cmd

	case textCommittedMsg:
		return m, m.commitText(msg)
	case priceCommittedMsg:
		return m, m.commitPrice(msg)
	case markupCommittedMsg:
		return m, m.commitMarkup(msg)
	case optionCommittedMsg:
		return m, m.commitOption(msg)
	case categoryCommittedMsg:
		return m, m.commitCategory(msg)
	case catalogToggledMsg:
		return m, m.commitCatalogToggle(msg)
	case groupsCommittedMsg:
		return m, m.commitGroups(msg)
	case fixedToggledMsg:
		return m, m.commitFixed(msg)

	case optionCreateRequestMsg:
		return m, m.createOption(msg)
	case optionCreatedMsg:
		m.refreshOptionLists()
		_, cmd := m.grid.Update(msg)
		return m, tea.Batch(cmd, m.loadCmd())

	case bulkStartedMsg:
		m.bulkProgress = fmt.Sprintf("%s 0/%d", msg.Title, msg.Total)
		return m, m.bulk.Handle(msg)
	case bulkProgressMsg:
		m.bulkProgress = fmt.Sprintf("%s %d", msg.Title, msg.Index+1)
		if msg.Err != nil {
			m.events.SaveFailed(msg.ProductID, msg.Err)
		}
		return m, m.bulk.Handle(msg)
	case bulkFinishedMsg:
		m.bulkProgress = ""
		m.events.BulkDone(msg.Title, msg.Affected, msg.Failed)
		m.showToast(fmt.Sprintf("%s: %d done, %d failed", msg.Title, msg.Affected, msg.Failed))
		m.grid.ClearDeleting()
		m.deleteSt = deleteIdle
		return m, tea.Batch(m.bulk.Handle(msg), m.loadCmd())
	case bulkChannelClosedMsg:
		return m, m.bulk.Handle(msg)

	case uploadProgressMsg:
		m.status = fmt.Sprintf("uploading %d/%d", msg.done, msg.total)
		return m, waitForUploadMsg(m.uploadCh)
	case uploadFinishedMsg:
		return m, m.handleUploadFinished(msg)
	case uploadClosedMsg:
		m.uploadCh = nil
		m.status = ""
		return m, nil

	case tea.MouseMsg:
		if m.focus == focusGrid || msg.Type == tea.MouseMotion || msg.Type == tea.MouseRelease {
			_, cmd := m.grid.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleLoaded(msg productsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.err = msg.err
		m.showToast("load failed: " + msg.err.Error())
		return nil
	}
	m.products = msg.products
	m.catalogs = msg.catalogs
	m.groups = msg.groups
	m.categories = msg.categories
	m.units = mergeOptions(builtinUnits, msg.units)
	m.packagings = mergeOptions(builtinPackagings, msg.packagings)

	m.refreshOptionLists()
	m.refreshSidebar()
	m.refreshGrid()
	if p, ok := m.grid.CurrentProduct(); ok {
		m.preview.Show(p)
	}
	return nil
}

func mergeOptions(builtin, custom []string) []string {
	seen := make(map[string]struct{}, len(builtin)+len(custom))
	out := make([]string, 0, len(builtin)+len(custom))
	for _, v := range append(append([]string{}, builtin...), custom...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func (m *model) refreshOptionLists() {
	units := make([]selectOption, len(m.units))
	for i, u := range m.units {
		units[i] = selectOption{id: u, label: u}
	}
	packagings := make([]selectOption, len(m.packagings))
	for i, p := range m.packagings {
		packagings[i] = selectOption{id: p, label: p}
	}
	groups := make([]selectOption, len(m.groups))
	for i, g := range m.groups {
		groups[i] = selectOption{id: g.ID, label: g.Name}
	}
	catalogs := make([]selectOption, len(m.catalogs))
	for i, c := range m.catalogs {
		catalogs[i] = selectOption{id: c.ID, label: c.Name}
	}
	var categories []selectOption
	labels := make(map[string]string, len(m.categories))
	for _, c := range m.categories {
		labels[c.ID] = c.Name
		if c.TopLevel() {
			categories = append(categories, selectOption{id: c.ID, label: c.Name})
		}
	}
	m.grid.SetOptions(units, packagings, groups, catalogs, categories, labels)

	catalogNames := make(map[string]string, len(m.catalogs))
	for _, c := range m.catalogs {
		catalogNames[c.ID] = c.Name
	}
	groupNames := make(map[string]string, len(m.groups))
	for _, g := range m.groups {
		groupNames[g.ID] = g.Name
	}
	m.preview.SetNames(catalogNames, groupNames, labels)
}

func (m *model) refreshSidebar() {
	items := []list.Item{listEntry{title: "All products", desc: "every product", payload: ""}}
	for _, c := range m.catalogs {
		items = append(items, listEntry{title: c.Name, desc: "catalog", payload: c.ID})
	}
	m.sidebar.SetItems(items)
}

// refreshGrid reapplies the current filter and pushes the resulting
// ordered row set into the grid.
func (m *model) refreshGrid() {
	m.grid.SetRows(m.filter.Apply(m.products))
}

// applyCatalogScope re-scopes the grid to a sidebar entry: its own
// width-persistence key and a catalog-bound filter.
func (m *model) applyCatalogScope(entry listEntry) {
	catalogID, _ := entry.payload.(string)
	if catalogID == m.filter.CatalogID {
		return
	}
	m.filter.CatalogID = catalogID
	title := "All products"
	instanceKey := "grid:all"
	if catalogID != "" {
		title = entry.title
		instanceKey = "grid:catalog:" + catalogID
	}
	m.grid.SetScope(title, catalogID, newColumnLayout(instanceKey, m.store))
	m.refreshGrid()
}

func (m *model) catalogHighlighted(entry listEntry) tea.Cmd {
	m.applyCatalogScope(entry)
	return nil
}

func (m *model) catalogSelected(entry listEntry) tea.Cmd {
	m.applyCatalogScope(entry)
	m.focus = focusGrid
	return nil
}

func (m *model) productByID(id string) (product, bool) {
	for _, p := range m.products {
		if p.ID == id {
			return p, true
		}
	}
	return product{}, false
}

func (m *model) replaceProduct(p product) {
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return
		}
	}
	m.products = append(m.products, p)
}

// saveCmd persists a full product and reports the outcome.
func (m *model) saveCmd(p product, field string) tea.Cmd {
	store := m.store
	m.saving++
	return func() tea.Msg {
		err := store.UpdateProduct(p)
		return productSavedMsg{productID: p.ID, field: field, err: err}
	}
}

func (m *model) refreshProductCmd(id string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		p, ok, err := store.GetProduct(id)
		return productRefreshedMsg{product: p, ok: ok, err: err}
	}
}

func (m *model) handleSaved(msg productSavedMsg) tea.Cmd {
	if m.saving > 0 {
		m.saving--
	}
	m.grid.DropOverlay(msg.productID)
	if msg.err != nil {
		m.events.SaveFailed(msg.productID, msg.err)
		m.showToast("save failed: " + msg.err.Error())
		return m.refreshProductCmd(msg.productID)
	}
	m.events.Saved(msg.productID, msg.field)
	return m.refreshProductCmd(msg.productID)
}

func (m *model) commitText(msg textCommittedMsg) tea.Cmd {
	p, ok := m.productByID(msg.key.productID)
	if !ok {
		return nil
	}
	switch msg.key.column {
	case colName:
		p.Name = msg.value
	case colSKU:
		p.SKU = msg.value
	case colWeight:
		v, err := strconv.ParseFloat(strings.TrimSpace(msg.value), 64)
		if err != nil || v < 0 {
			m.grid.DropOverlay(p.ID)
			return nil
		}
		p.UnitWeight = v
	default:
		return nil
	}
	return m.saveCmd(p, string(msg.key.column))
}

func (m *model) commitPrice(msg priceCommittedMsg) tea.Cmd {
	p, ok := m.productByID(msg.key.productID)
	if !ok {
		return nil
	}
	switch msg.key.column {
	case colBuyPrice:
		p.BuyPrice = msg.value
	case colPrice:
		p.PricePerUnit = msg.value
	default:
		return nil
	}
	return m.saveCmd(p, string(msg.key.column))
}

func (m *model) commitMarkup(msg markupCommittedMsg) tea.Cmd {
	p, ok := m.productByID(msg.productID)
	if !ok {
		return nil
	}
	p.Markup = msg.value
	return m.saveCmd(p, "markup")
}

func (m *model) commitOption(msg optionCommittedMsg) tea.Cmd {
	p, ok := m.productByID(msg.key.productID)
	if !ok {
		return nil
	}
	switch msg.key.column {
	case colUnit:
		p.Unit = msg.value
	case colPackaging:
		p.PackagingType = msg.value
	default:
		return nil
	}
	return m.saveCmd(p, string(msg.key.column))
}

// commitCategory assigns the base category in the unscoped view and a
// catalog-scoped override inside a catalog scope.
func (m *model) commitCategory(msg categoryCommittedMsg) tea.Cmd {
	p, ok := m.productByID(msg.productID)
	if !ok {
		return nil
	}
	assignCategory(&p, m.filter.CatalogID, msg.categoryID)
	return m.saveCmd(p, "category")
}

func (m *model) commitCatalogToggle(msg catalogToggledMsg) tea.Cmd {
	store := m.store
	m.saving++
	return func() tea.Msg {
		_, err := store.ToggleCatalogVisibility(msg.productID, msg.catalogID)
		return productSavedMsg{productID: msg.productID, field: "catalogs", err: err}
	}
}

func (m *model) commitGroups(msg groupsCommittedMsg) tea.Cmd {
	store := m.store
	m.saving++
	return func() tea.Msg {
		err := store.SetProductGroupAssignments(msg.productID, msg.groupIDs)
		return productSavedMsg{productID: msg.productID, field: "groups", err: err}
	}
}

func (m *model) commitFixed(msg fixedToggledMsg) tea.Cmd {
	p, ok := m.productByID(msg.productID)
	if !ok {
		return nil
	}
	p.FixedPrice = msg.value
	return m.saveCmd(p, "fixed")
}

// createOption registers an add-new value with the store and answers
// the requesting editor.
func (m *model) createOption(msg optionCreateRequestMsg) tea.Cmd {
	store := m.store
	switch msg.key.column {
	case colUnit:
		return func() tea.Msg {
			err := store.AddCustomUnit(msg.name)
			return optionCreatedMsg{key: msg.key, id: msg.name, label: msg.name, err: err}
		}
	case colPackaging:
		return func() tea.Msg {
			err := store.AddCustomPackagingType(msg.name)
			return optionCreatedMsg{key: msg.key, id: msg.name, label: msg.name, err: err}
		}
	case colCatalogs:
		return func() tea.Msg {
			c, err := store.CreateCatalog(msg.name)
			return optionCreatedMsg{key: msg.key, id: c.ID, label: c.Name, err: err}
		}
	case colGroups:
		return func() tea.Msg {
			g, err := store.CreateProductGroup(msg.name)
			return optionCreatedMsg{key: msg.key, id: g.ID, label: g.Name, err: err}
		}
	}
	return nil
}

func (m *model) handleUploadFinished(msg uploadFinishedMsg) tea.Cmd {
	m.grid.Images().Finish(msg.productID)
	m.events.UploadDone(msg.productID, len(msg.urls), msg.err)
	if msg.err != nil {
		m.showToast("upload failed: " + msg.err.Error())
		return waitForUploadMsg(m.uploadCh)
	}
	p, ok := m.productByID(msg.productID)
	if !ok {
		return waitForUploadMsg(m.uploadCh)
	}
	images := append([]string{}, p.Images[:min(msg.startIndex, len(p.Images))]...)
	images = append(images, msg.urls...)
	if msg.startIndex < len(p.Images) {
		images = append(images, p.Images[msg.startIndex:]...)
	}
	p.Images = images
	return tea.Batch(m.saveCmd(p, "images"), waitForUploadMsg(m.uploadCh))
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != inputNone {
		return m, m.handleInputKey(msg)
	}

	// While a cell edits, the grid owns every key except quit.
	if m.focus == focusGrid && m.grid.editor != nil {
		_, cmd := m.grid.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveConfig()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Filter):
		m.openInput("filter: ", m.filter.Query, inputFilter)
		return m, nil
	case key.Matches(msg, m.keys.BulkMenu):
		if m.selection.Count() == 0 {
			m.showToast("nothing selected")
			return m, nil
		}
		m.inputMode = inputBulkMenu
		m.bulkIndex = 0
		return m, nil
	case key.Matches(msg, m.keys.NewCatalog):
		m.openInput("new catalog: ", "", inputNewCatalog)
		return m, nil
	case key.Matches(msg, m.keys.NewGroup):
		m.openInput("new group: ", "", inputNewGroup)
		return m, nil
	case key.Matches(msg, m.keys.Upload):
		if p, ok := m.grid.CurrentProduct(); ok {
			m.uploadTarget = p.ID
			m.openInput("image files: ", "", inputUploadFiles)
		}
		return m, nil
	case key.Matches(msg, m.keys.RemoveImg):
		return m, m.removePrimaryImage()
	case key.Matches(msg, m.keys.BestPhoto):
		return m, m.promoteBestPhoto()
	case key.Matches(msg, m.keys.Copy):
		m.copyCurrentRow()
		return m, nil
	case key.Matches(msg, m.keys.Preview):
		m.showPreview = !m.showPreview
		m.layoutPanes()
		return m, nil
	case key.Matches(msg, m.keys.Logs):
		m.showLog = !m.showLog
		m.layoutPanes()
		return m, nil
	case key.Matches(msg, m.keys.NextFocus):
		m.cycleFocus()
		return m, nil
	}

	switch m.focus {
	case focusCatalogs:
		_, cmd := m.sidebar.Update(msg)
		return m, cmd
	case focusPreview:
		_, cmd := m.preview.Update(msg)
		return m, cmd
	default:
		_, cmd := m.grid.Update(msg)
		return m, cmd
	}
}

func (m *model) cycleFocus() {
	switch m.focus {
	case focusCatalogs:
		m.focus = focusGrid
	case focusGrid:
		if m.showPreview {
			m.focus = focusPreview
		} else {
			m.focus = focusCatalogs
		}
	default:
		m.focus = focusCatalogs
	}
}

func (m *model) openInput(prompt, initial string, mode inputMode) {
	m.inputMode = mode
	m.inputPrompt = prompt
	m.input = textinput.New()
	m.input.Prompt = ""
	m.input.SetValue(initial)
	m.input.Focus()
	m.input.CursorEnd()
}

func (m *model) closeInput() {
	m.inputMode = inputNone
	m.inputPrompt = ""
	m.input.Blur()
}

func (m *model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch m.inputMode {
	case inputBulkMenu:
		return m.handleBulkMenuKey(msg)
	case inputBulkPick:
		return m.handleBulkPickKey(msg)
	case inputDeleteConfirm:
		return m.handleDeleteConfirmKey(msg)
	}

	switch msg.String() {
	case "esc":
		if m.inputMode == inputFilter {
			m.filter.Query = ""
			m.refreshGrid()
		}
		m.closeInput()
		return nil
	case "enter":
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputMode == inputFilter {
		m.filter.Query = m.input.Value()
		m.refreshGrid()
	}
	return cmd
}

func (m *model) submitInput() tea.Cmd {
	value := strings.TrimSpace(m.input.Value())
	mode := m.inputMode
	m.closeInput()

	switch mode {
	case inputFilter:
		m.filter.Query = value
		m.refreshGrid()
		return nil
	case inputNewCatalog:
		if value == "" {
			return nil
		}
		store := m.store
		return tea.Sequence(func() tea.Msg {
			if _, err := store.CreateCatalog(value); err != nil {
				return productsLoadedMsg{err: err}
			}
			return nil
		}, m.loadCmd())
	case inputNewGroup:
		if value == "" {
			return nil
		}
		store := m.store
		return tea.Sequence(func() tea.Msg {
			if _, err := store.CreateProductGroup(value); err != nil {
				return productsLoadedMsg{err: err}
			}
			return nil
		}, m.loadCmd())
	case inputUploadFiles:
		return m.startUpload(value)
	case inputBulkValue:
		if m.bulkPending == nil {
			return nil
		}
		action := *m.bulkPending
		m.bulkPending = nil
		return m.runBulkValue(action, value)
	}
	return nil
}

func (m *model) handleBulkMenuKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeInput()
		return nil
	case "up", "k":
		if m.bulkIndex > 0 {
			m.bulkIndex--
		}
	case "down", "j":
		if m.bulkIndex < len(bulkActions)-1 {
			m.bulkIndex++
		}
	case "enter":
		action := bulkActions[m.bulkIndex]
		return m.chooseBulkAction(action)
	}
	return nil
}

func (m *model) chooseBulkAction(action bulkAction) tea.Cmd {
	switch action.kind {
	case bulkSetPrice:
		m.bulkPending = &action
		m.openInput("price per unit: ", "", inputBulkValue)
		return nil
	case bulkSetMarkup:
		m.bulkPending = &action
		m.openInput("markup %: ", "", inputBulkValue)
		return nil
	case bulkNewCatalogAdd:
		m.bulkPending = &action
		m.openInput("new catalog name: ", "", inputBulkValue)
		return nil
	case bulkSetUnit:
		m.openBulkPick(action, optionsFromStrings(m.units))
		return nil
	case bulkSetPackaging:
		m.openBulkPick(action, optionsFromStrings(m.packagings))
		return nil
	case bulkAddToCatalog:
		m.openBulkPick(action, m.catalogOptions())
		return nil
	case bulkAddToGroup:
		m.openBulkPick(action, m.groupOptions())
		return nil
	case bulkSetCategory:
		m.openBulkPick(action, m.topCategoryOptions())
		return nil
	case bulkClearCategory:
		m.closeInput()
		scope := m.filter.CatalogID
		return m.enqueueFieldBulk("Clear category", func(p *product) {
			assignCategory(p, scope, "")
		})
	case bulkAutoFillCategory:
		m.closeInput()
		return m.enqueueAutoFillCategory()
	case bulkBestPhoto:
		m.closeInput()
		return m.enqueueBestPhoto()
	case bulkDelete:
		m.inputMode = inputDeleteConfirm
		m.deleteSt = deleteConfirming
		m.deletePend = m.selection.IDs(m.grid.Order())
		m.grid.SetDeleting(m.deletePend)
		return nil
	}
	return nil
}

func (m *model) openBulkPick(action bulkAction, options []selectOption) {
	m.bulkPending = &action
	m.bulkOptions = options
	m.bulkPickIdx = 0
	m.inputMode = inputBulkPick
}

func (m *model) handleBulkPickKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.bulkPending = nil
		m.closeInput()
		return nil
	case "up", "k":
		if m.bulkPickIdx > 0 {
			m.bulkPickIdx--
		}
	case "down", "j":
		if m.bulkPickIdx < len(m.bulkOptions)-1 {
			m.bulkPickIdx++
		}
	case "enter":
		if m.bulkPending == nil || len(m.bulkOptions) == 0 {
			m.closeInput()
			return nil
		}
		action := *m.bulkPending
		option := m.bulkOptions[m.bulkPickIdx]
		m.bulkPending = nil
		m.closeInput()
		return m.runBulkPick(action, option)
	}
	return nil
}

func (m *model) handleDeleteConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y", "enter":
		m.closeInput()
		m.deleteSt = deleteExecuting
		return m.enqueueDelete()
	case "esc", "n", "N":
		m.closeInput()
		m.deleteSt = deleteIdle
		m.deletePend = nil
		m.grid.ClearDeleting()
		return nil
	}
	return nil
}

func optionsFromStrings(values []string) []selectOption {
	out := make([]selectOption, len(values))
	for i, v := range values {
		out[i] = selectOption{id: v, label: v}
	}
	return out
}

func (m *model) catalogOptions() []selectOption {
	out := make([]selectOption, len(m.catalogs))
	for i, c := range m.catalogs {
		out[i] = selectOption{id: c.ID, label: c.Name}
	}
	return out
}

func (m *model) groupOptions() []selectOption {
	out := make([]selectOption, len(m.groups))
	for i, g := range m.groups {
		out[i] = selectOption{id: g.ID, label: g.Name}
	}
	return out
}

func (m *model) topCategoryOptions() []selectOption {
	var out []selectOption
	for _, c := range m.categories {
		if c.TopLevel() {
			out = append(out, selectOption{id: c.ID, label: c.Name})
		}
	}
	return out
}

// assignCategory is a free function on purpose: bulk mutate closures
// run inside the runner goroutine, so the scope must be captured on
// the event loop before the request is built.
func assignCategory(p *product, scope, categoryID string) {
	if scope == "" {
		p.CategoryID = categoryID
		return
	}
	if categoryID == "" {
		delete(p.CategoryOverrides, scope)
		return
	}
	if p.CategoryOverrides == nil {
		p.CategoryOverrides = make(map[string]string)
	}
	p.CategoryOverrides[scope] = categoryID
}

// enqueueFieldBulk builds a bulk request that mutates each selected
// product through the store, one product at a time.
func (m *model) enqueueFieldBulk(title string, mutate func(p *product)) tea.Cmd {
	ids := m.selection.IDs(m.grid.Order())
	store := m.store
	req := bulkRequest{
		title: title,
		ids:   ids,
		apply: func(productID string) error {
			p, ok, err := store.GetProduct(productID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("product %s not found", productID)
			}
			mutate(&p)
			return store.UpdateProduct(p)
		},
		onFinish: func(int) {
			m.selection.Clear()
		},
	}
	return m.bulk.Enqueue(req)
}

func (m *model) runBulkValue(action bulkAction, value string) tea.Cmd {
	switch action.kind {
	case bulkSetPrice:
		price, ok := parsePriceInput(value)
		if !ok {
			m.showToast("invalid price")
			return nil
		}
		return m.enqueueFieldBulk("Set price", func(p *product) {
			p.PricePerUnit = price
		})
	case bulkSetMarkup:
		mk := saveMarkup(markupPercent, value)
		return m.enqueueFieldBulk("Set markup", func(p *product) {
			p.Markup = mk
		})
	case bulkNewCatalogAdd:
		if value == "" {
			return nil
		}
		store := m.store
		c, err := store.CreateCatalog(value)
		if err != nil {
			m.showToast("create catalog failed: " + err.Error())
			return nil
		}
		ids := m.selection.IDs(m.grid.Order())
		req := bulkRequest{
			title: "Add to " + c.Name,
			ids:   ids,
			apply: func(productID string) error {
				return store.AddToCatalog(productID, c.ID)
			},
			onFinish: func(int) { m.selection.Clear() },
		}
		return m.bulk.Enqueue(req)
	}
	return nil
}

func (m *model) runBulkPick(action bulkAction, option selectOption) tea.Cmd {
	switch action.kind {
	case bulkSetUnit:
		return m.enqueueFieldBulk("Set unit", func(p *product) {
			p.Unit = option.id
		})
	case bulkSetPackaging:
		return m.enqueueFieldBulk("Set packaging", func(p *product) {
			p.PackagingType = option.id
		})
	case bulkSetCategory:
		scope := m.filter.CatalogID
		return m.enqueueFieldBulk("Set category", func(p *product) {
			assignCategory(p, scope, option.id)
		})
	case bulkAddToGroup:
		return m.enqueueFieldBulk("Add to "+option.label, func(p *product) {
			if !containsString(p.GroupIDs, option.id) {
				p.GroupIDs = append(p.GroupIDs, option.id)
			}
		})
	case bulkAddToCatalog:
		store := m.store
		ids := m.selection.IDs(m.grid.Order())
		req := bulkRequest{
			title: "Add to " + option.label,
			ids:   ids,
			// AddToCatalog is idempotent, so re-running over an
			// overlapping selection is safe.
			apply: func(productID string) error {
				return store.AddToCatalog(productID, option.id)
			},
			onFinish: func(int) { m.selection.Clear() },
		}
		return m.bulk.Enqueue(req)
	}
	return nil
}

// enqueueAutoFillCategory copies a category into the current scope for
// products that have none here: the base assignment wins, then the
// first override from another catalog.
func (m *model) enqueueAutoFillCategory() tea.Cmd {
	scope := m.filter.CatalogID
	return m.enqueueFieldBulk("Auto-fill category", func(p *product) {
		if p.CategoryFor(scope) != "" {
			return
		}
		candidate := p.CategoryID
		if candidate == "" {
			keys := make([]string, 0, len(p.CategoryOverrides))
			for k := range p.CategoryOverrides {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if p.CategoryOverrides[k] != "" {
					candidate = p.CategoryOverrides[k]
					break
				}
			}
		}
		if candidate != "" {
			assignCategory(p, scope, candidate)
		}
	})
}

func (m *model) enqueueBestPhoto() tea.Cmd {
	return m.enqueueFieldBulk("Best photo", func(p *product) {
		if len(p.Images) < 2 {
			return
		}
		p.Images = promoteImage(p.Images, bestPhotoIndex(p.Images))
	})
}

func (m *model) enqueueDelete() tea.Cmd {
	ids := m.deletePend
	store := m.store
	req := bulkRequest{
		title: "Delete products",
		ids:   ids,
		apply: func(productID string) error {
			return store.DeleteProducts([]string{productID})
		},
		onFinish: func(int) {
			m.selection.Clear()
		},
	}
	return m.bulk.Enqueue(req)
}

// removePrimaryImage deletes the current row's primary image; the next
// image in order becomes primary on refresh.
func (m *model) removePrimaryImage() tea.Cmd {
	p, ok := m.grid.CurrentProduct()
	if !ok || len(p.Images) == 0 {
		return nil
	}
	store := m.store
	url := p.Images[0]
	m.saving++
	return func() tea.Msg {
		err := store.DeleteImage(p.ID, url)
		return productSavedMsg{productID: p.ID, field: "images", err: err}
	}
}

func (m *model) promoteBestPhoto() tea.Cmd {
	p, ok := m.grid.CurrentProduct()
	if !ok || len(p.Images) < 2 {
		return nil
	}
	p.Images = promoteImage(p.Images, bestPhotoIndex(p.Images))
	return m.saveCmd(p, "images")
}

func (m *model) startUpload(raw string) tea.Cmd {
	files := expandImageFiles(strings.Fields(raw))
	if len(files) == 0 {
		m.showToast("no readable files")
		return nil
	}
	p, ok := m.productByID(m.uploadTarget)
	if !ok {
		return nil
	}
	m.grid.Images().Begin(p.ID, files)
	cmd, ch := startUploadCmd(m.store, p.ID, files, len(p.Images))
	m.uploadCh = ch
	return cmd
}

func (m *model) copyCurrentRow() {
	p, ok := m.grid.CurrentProduct()
	if !ok {
		return
	}
	line := p.Name
	if p.SKU != "" {
		line += "\t" + p.SKU
	}
	if p.PricePerUnit != nil {
		line += "\t" + formatPrice(*p.PricePerUnit)
	}
	if err := clipboard.WriteAll(line); err != nil {
		m.showToast("clipboard unavailable")
		return
	}
	m.showToast("copied")
}

func (m *model) showToast(text string) {
	m.toast = text
	m.toastAt = time.Now()
}

const toastDuration = 3 * time.Second

func (m *model) saveConfig() {
	if m.cfg == nil {
		m.cfg = &uiConfig{}
	}
	_ = saveUIConfig(m.cfg, m.cfgPath)
}

func (m *model) layoutPanes() {
	if m.width == 0 || m.height == 0 {
		return
	}
	contentHeight := m.height - 3
	gridWidth := m.width - sidebarWidth
	if m.showPreview || m.showLog {
		gridWidth -= previewWidth
	}
	if gridWidth < 40 {
		gridWidth = 40
	}
	m.sidebar.SetSize(sidebarWidth, contentHeight)
	m.grid.SetSize(gridWidth, contentHeight)
	// The sidebar panel draws a border around its content width.
	m.grid.SetOrigin(sidebarWidth+2, 1)
	m.preview.SetSize(previewWidth, contentHeight)
	m.logView.Width = previewWidth - 2
	m.logView.Height = contentHeight - 2
}

func (m *model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	top := m.styles.topBar.Render("catalog-admin")
	panes := []string{
		m.sidebar.View(m.styles, m.focus == focusCatalogs),
		m.grid.View(m.styles, m.focus == focusGrid),
	}
	if m.showLog {
		panes = append(panes, m.logPane())
	} else if m.showPreview {
		panes = append(panes, m.preview.View(m.styles, m.focus == focusPreview))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, panes...)

	view := lipgloss.JoinVertical(lipgloss.Left, top, body, m.statusLine())

	if overlay := m.inputOverlay(); overlay != "" {
		view = lipgloss.JoinVertical(lipgloss.Left, view, overlay)
	}
	return view
}

func (m *model) logPane() string {
	m.logView.SetContent(strings.Join(m.events.Tail(), "\n"))
	m.logView.GotoBottom()
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.styles.columnTitle.Render("Events"),
		m.logView.View(),
	)
	return m.styles.panel.Width(previewWidth).Render(body)
}

func (m *model) statusLine() string {
	var segments []string
	if m.err != nil {
		segments = append(segments, m.styles.statusHint.Render("error: "+m.err.Error()))
	}
	if m.bulk.Busy() || m.saving > 0 || m.uploadCh != nil {
		segments = append(segments, m.spin.View())
	}
	if m.bulkProgress != "" {
		segments = append(segments, m.styles.statusSeg.Render(m.bulkProgress))
	}
	if m.status != "" {
		segments = append(segments, m.styles.statusSeg.Render(m.status))
	}
	if n := m.selection.Count(); n > 0 {
		segments = append(segments, m.styles.statusSeg.Render(fmt.Sprintf("%d selected", n)))
	}
	if m.filter.Query != "" {
		segments = append(segments, m.styles.statusSeg.Render("filter: "+m.filter.Query))
	}
	if m.toast != "" && time.Since(m.toastAt) < toastDuration {
		segments = append(segments, m.styles.statusHint.Render(m.toast))
	}
	segments = append(segments, m.help.ShortHelpView(m.keys.ShortHelp()))
	return m.styles.statusBar.Render(strings.Join(segments, " "))
}

func (m *model) inputOverlay() string {
	switch m.inputMode {
	case inputNone:
		return ""
	case inputBulkMenu:
		var b strings.Builder
		b.WriteString(m.styles.cmdPrompt.Render("Bulk actions"))
		b.WriteRune('\n')
		for i, action := range bulkActions {
			line := "  " + action.label
			if i == m.bulkIndex {
				line = m.styles.listSel.Render("> " + action.label)
			}
			b.WriteString(line)
			if i < len(bulkActions)-1 {
				b.WriteRune('\n')
			}
		}
		return m.styles.cmdOverlay.Render(b.String())
	case inputBulkPick:
		var b strings.Builder
		if m.bulkPending != nil {
			b.WriteString(m.styles.cmdPrompt.Render(m.bulkPending.label))
			b.WriteRune('\n')
		}
		for i, opt := range m.bulkOptions {
			line := "  " + opt.label
			if i == m.bulkPickIdx {
				line = m.styles.listSel.Render("> " + opt.label)
			}
			b.WriteString(line)
			if i < len(m.bulkOptions)-1 {
				b.WriteRune('\n')
			}
		}
		return m.styles.cmdOverlay.Render(b.String())
	case inputDeleteConfirm:
		prompt := fmt.Sprintf("Delete %d products? This cannot be undone. (y/n)", len(m.deletePend))
		return m.styles.cmdOverlay.Render(m.styles.cmdPrompt.Render(prompt))
	default:
		return m.styles.cmdOverlay.Render(
			m.styles.cmdPrompt.Render(m.inputPrompt) + m.input.View(),
		)
	}
}
