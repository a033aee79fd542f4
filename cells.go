package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Commit messages emitted by cell editors. Each committed change is
// delivered upward exactly once; the model translates them into store
// calls. Failed persistence is reported by the store layer, never
// rolled back here.

type textCommittedMsg struct {
	key   cellKey
	value string
}

type priceCommittedMsg struct {
	key   cellKey
	value *float64
}

type markupCommittedMsg struct {
	productID string
	value     *markup
}

type optionCommittedMsg struct {
	key   cellKey
	value string
}

type categoryCommittedMsg struct {
	productID  string
	categoryID string
}

type catalogToggledMsg struct {
	productID string
	catalogID string
}

type groupsCommittedMsg struct {
	productID string
	groupIDs  []string
}

// optionCreateRequestMsg asks the model to register a new option with
// the external registry (custom unit/packaging value, new catalog, new
// group) on behalf of an add-new sub-flow.
type optionCreateRequestMsg struct {
	key  cellKey
	name string
}

// optionCreatedMsg is the model's answer; a non-empty id is adopted by
// the editor that asked for it.
type optionCreatedMsg struct {
	key   cellKey
	id    string
	label string
	err   error
}

type cellEditorKind int

const (
	editText cellEditorKind = iota
	editPrice
	editMarkup
	editSelect
	editMultiSelect
	editCategory
)

const addNewOptionID = "__add_new__"

type selectOption struct {
	id    string
	label string
}

// savedEdit describes the outcome of a save: an optimistic display
// value for the overlay, plus either an immediate or a debounced
// upward commit. A nil commit means the save was a no-op.
type savedEdit struct {
	display    string
	hasDisplay bool
	immediate  tea.Msg
	debounced  tea.Msg
	delay      time.Duration
}

type editOutcome struct {
	close bool
	saved *savedEdit
}

// cellEditor is the single in-flight edit state machine. Only one cell
// edits at a time; opening an editor for another cell closes this one.
type cellEditor struct {
	key  cellKey
	kind cellEditorKind

	input     textinput.Model
	committed string

	markupKind markupType

	options []selectOption
	index   int
	checked map[string]bool

	addingNew bool
	addInput  textinput.Model
}

func newCellInput(value string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 256
	in.SetValue(value)
	in.Focus()
	in.CursorEnd()
	return in
}

func newTextEditor(key cellKey, committed string) *cellEditor {
	return &cellEditor{
		key:       key,
		kind:      editText,
		input:     newCellInput(committed),
		committed: committed,
	}
}

func newPriceEditor(key cellKey, committed *float64) *cellEditor {
	raw := ""
	if committed != nil {
		raw = formatPrice(*committed)
	}
	return &cellEditor{
		key:       key,
		kind:      editPrice,
		input:     newCellInput(raw),
		committed: raw,
	}
}

func newMarkupEditor(key cellKey, committed *markup) *cellEditor {
	kind := markupPercent
	raw := ""
	if committed != nil {
		kind = committed.Type
		raw = trimFloat(committed.Value)
	}
	return &cellEditor{
		key:   key,
		kind:  editMarkup,
		input: newCellInput(raw),
		// Markup equality covers type and value together, so the
		// committed snapshot is the formatted pair.
		committed:  formatMarkup(committed),
		markupKind: kind,
	}
}

func newSelectEditor(key cellKey, options []selectOption, current string) *cellEditor {
	options = append(append([]selectOption{}, options...), selectOption{id: addNewOptionID, label: "+ add new"})
	e := &cellEditor{
		key:       key,
		kind:      editSelect,
		options:   options,
		committed: current,
	}
	e.index = e.optionIndex(current)
	return e
}

func newMultiSelectEditor(key cellKey, options []selectOption, selected []string) *cellEditor {
	options = append(append([]selectOption{}, options...), selectOption{id: addNewOptionID, label: "+ add new"})
	checked := make(map[string]bool, len(selected))
	for _, id := range selected {
		checked[id] = true
	}
	return &cellEditor{
		key:     key,
		kind:    editMultiSelect,
		options: options,
		checked: checked,
	}
}

func newCategoryEditor(key cellKey, topLevel []selectOption, current string) *cellEditor {
	e := &cellEditor{
		key:       key,
		kind:      editCategory,
		options:   append([]selectOption{}, topLevel...),
		committed: current,
	}
	e.index = e.optionIndex(current)
	return e
}

func (e *cellEditor) optionIndex(id string) int {
	for i, opt := range e.options {
		if opt.id == id {
			return i
		}
	}
	return 0
}

// HandleKey advances the state machine for one key event.
func (e *cellEditor) HandleKey(msg tea.KeyMsg) (editOutcome, tea.Cmd) {
	if e.addingNew {
		return e.handleAddNewKey(msg)
	}

	switch e.kind {
	case editText, editPrice:
		switch msg.String() {
		case "esc":
			return editOutcome{close: true}, nil
		case "enter":
			return e.save(), nil
		}
	case editMarkup:
		switch msg.String() {
		case "esc":
			return editOutcome{close: true}, nil
		case "enter":
			return e.save(), nil
		case "tab":
			if e.markupKind == markupPercent {
				e.markupKind = markupAmount
			} else {
				e.markupKind = markupPercent
			}
			return editOutcome{}, nil
		}
	case editSelect, editCategory:
		switch msg.String() {
		case "esc":
			return editOutcome{close: true}, nil
		case "up", "k":
			e.moveIndex(-1)
			return editOutcome{}, nil
		case "down", "j":
			e.moveIndex(1)
			return editOutcome{}, nil
		case "enter":
			return e.chooseCurrent()
		}
		return editOutcome{}, nil
	case editMultiSelect:
		switch msg.String() {
		case "esc", "enter":
			return editOutcome{close: true}, nil
		case "up", "k":
			e.moveIndex(-1)
			return editOutcome{}, nil
		case "down", "j":
			e.moveIndex(1)
			return editOutcome{}, nil
		case " ", "space":
			return e.toggleCurrent()
		}
		return editOutcome{}, nil
	}

	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return editOutcome{}, cmd
}

func (e *cellEditor) handleAddNewKey(msg tea.KeyMsg) (editOutcome, tea.Cmd) {
	switch msg.String() {
	case "esc":
		e.addingNew = false
		return editOutcome{}, nil
	case "enter":
		name := strings.TrimSpace(e.addInput.Value())
		e.addingNew = false
		if name == "" {
			// Losing the sub-state without input reverts.
			return editOutcome{}, nil
		}
		key := e.key
		return editOutcome{}, func() tea.Msg {
			return optionCreateRequestMsg{key: key, name: name}
		}
	}
	var cmd tea.Cmd
	e.addInput, cmd = e.addInput.Update(msg)
	return editOutcome{}, cmd
}

func (e *cellEditor) moveIndex(delta int) {
	e.index += delta
	if e.index < 0 {
		e.index = 0
	}
	if e.index > len(e.options)-1 {
		e.index = len(e.options) - 1
	}
}

func (e *cellEditor) chooseCurrent() (editOutcome, tea.Cmd) {
	if len(e.options) == 0 {
		return editOutcome{close: true}, nil
	}
	opt := e.options[e.index]
	if opt.id == addNewOptionID {
		e.addingNew = true
		e.addInput = newCellInput("")
		return editOutcome{}, nil
	}
	if opt.id == e.committed {
		return editOutcome{close: true}, nil
	}
	key := e.key
	switch e.kind {
	case editCategory:
		id := opt.id
		return editOutcome{close: true, saved: &savedEdit{
			display:    opt.label,
			hasDisplay: true,
			debounced:  categoryCommittedMsg{productID: key.productID, categoryID: id},
			delay:      categoryCommitDebounce,
		}}, nil
	default:
		return editOutcome{close: true, saved: &savedEdit{
			display:    opt.label,
			hasDisplay: true,
			immediate:  optionCommittedMsg{key: key, value: opt.id},
		}}, nil
	}
}

func (e *cellEditor) toggleCurrent() (editOutcome, tea.Cmd) {
	if len(e.options) == 0 {
		return editOutcome{}, nil
	}
	opt := e.options[e.index]
	if opt.id == addNewOptionID {
		e.addingNew = true
		e.addInput = newCellInput("")
		return editOutcome{}, nil
	}
	e.checked[opt.id] = !e.checked[opt.id]
	return editOutcome{saved: &savedEdit{immediate: e.membershipCommit(opt.id)}}, nil
}

// membershipCommit builds the per-click commit for a multi-select
// toggle: catalogs commit one membership flip, groups commit the full
// assignment list.
func (e *cellEditor) membershipCommit(optionID string) tea.Msg {
	if e.key.column == colCatalogs {
		return catalogToggledMsg{productID: e.key.productID, catalogID: optionID}
	}
	return groupsCommittedMsg{productID: e.key.productID, groupIDs: e.checkedIDs()}
}

func (e *cellEditor) checkedIDs() []string {
	var ids []string
	for _, opt := range e.options {
		if opt.id == addNewOptionID {
			continue
		}
		if e.checked[opt.id] {
			ids = append(ids, opt.id)
		}
	}
	return ids
}

// adoptCreatedOption completes the add-new sub-flow once the registry
// returns the new option.
func (e *cellEditor) adoptCreatedOption(msg optionCreatedMsg) (editOutcome, tea.Cmd) {
	if msg.err != nil || msg.id == "" {
		return editOutcome{}, nil
	}
	opt := selectOption{id: msg.id, label: msg.label}
	switch e.kind {
	case editMultiSelect:
		e.options = append(e.options[:len(e.options)-1], opt, selectOption{id: addNewOptionID, label: "+ add new"})
		e.checked[opt.id] = true
		return editOutcome{saved: &savedEdit{immediate: e.membershipCommit(opt.id)}}, nil
	case editSelect:
		return editOutcome{close: true, saved: &savedEdit{
			display:    opt.label,
			hasDisplay: true,
			immediate:  optionCommittedMsg{key: e.key, value: opt.id},
		}}, nil
	}
	return editOutcome{}, nil
}

// save implements the Save transition for the typed variants. Blur
// (clicking outside the cell) routes here as well.
func (e *cellEditor) save() editOutcome {
	switch e.kind {
	case editText:
		value, changed := saveText(e.input.Value(), e.committed)
		if !changed {
			return editOutcome{close: true}
		}
		return editOutcome{close: true, saved: &savedEdit{
			display:    value,
			hasDisplay: true,
			debounced:  textCommittedMsg{key: e.key, value: value},
			delay:      textCommitDebounce,
		}}
	case editPrice:
		value, ok := parsePriceInput(e.input.Value())
		if !ok {
			// Invalid input is discarded; display reverts.
			return editOutcome{close: true}
		}
		if priceEqual(value, e.committed) {
			return editOutcome{close: true}
		}
		display := ""
		if value != nil {
			display = formatPrice(*value)
		}
		return editOutcome{close: true, saved: &savedEdit{
			display:    display,
			hasDisplay: true,
			immediate:  priceCommittedMsg{key: e.key, value: value},
		}}
	case editMarkup:
		m := saveMarkup(e.markupKind, e.input.Value())
		display := formatMarkup(m)
		if display == e.committed {
			return editOutcome{close: true}
		}
		return editOutcome{close: true, saved: &savedEdit{
			display:    display,
			hasDisplay: true,
			immediate:  markupCommittedMsg{productID: e.key.productID, value: m},
		}}
	}
	return editOutcome{close: true}
}

// Blur is the focus-loss save: typed variants save, select variants
// just close (their commits already happened per click).
func (e *cellEditor) Blur() editOutcome {
	switch e.kind {
	case editText, editPrice, editMarkup:
		if e.addingNew {
			e.addingNew = false
			return editOutcome{close: true}
		}
		return e.save()
	default:
		return editOutcome{close: true}
	}
}

func saveText(draft, committed string) (string, bool) {
	value := strings.TrimSpace(draft)
	return value, value != committed
}

// parsePriceInput parses a non-negative price. Empty input means
// "unset"; invalid or negative input is rejected.
func parsePriceInput(raw string) (*float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return nil, false
	}
	return &v, true
}

func priceEqual(v *float64, committedRaw string) bool {
	if v == nil {
		return committedRaw == ""
	}
	return committedRaw != "" && formatPrice(*v) == committedRaw
}

// saveMarkup keeps the markup only when the value is positive;
// anything else commits "unset".
func saveMarkup(kind markupType, raw string) *markup {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return nil
	}
	return &markup{Type: kind, Value: v}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMarkup(m *markup) string {
	if m == nil {
		return "—"
	}
	if m.Type == markupPercent {
		return trimFloat(m.Value) + "%"
	}
	return "+" + formatPrice(m.Value)
}

func formatWeight(v float64) string {
	if v == 0 {
		return "—"
	}
	return fmt.Sprintf("%gkg", v)
}
