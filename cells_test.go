package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyEnter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyEsc() tea.KeyMsg   { return tea.KeyMsg{Type: tea.KeyEscape} }
func keyTab() tea.KeyMsg   { return tea.KeyMsg{Type: tea.KeyTab} }
func keySpace() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}} }
func keyDown() tea.KeyMsg  { return tea.KeyMsg{Type: tea.KeyDown} }
func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var testKey = cellKey{productID: "p1", column: colName}

func TestTextEditorNoopDoesNotCommit(t *testing.T) {
	e := newTextEditor(testKey, "Milk")
	outcome := e.save()
	assert.True(t, outcome.close)
	assert.Nil(t, outcome.saved)
}

func TestTextEditorTrimsAndDebounces(t *testing.T) {
	e := newTextEditor(testKey, "Milk")
	e.input.SetValue("  Whole Milk ")

	outcome := e.save()
	require.NotNil(t, outcome.saved)
	assert.True(t, outcome.close)
	assert.True(t, outcome.saved.hasDisplay)
	assert.Equal(t, "Whole Milk", outcome.saved.display)
	assert.Nil(t, outcome.saved.immediate)
	require.IsType(t, textCommittedMsg{}, outcome.saved.debounced)
	assert.Equal(t, "Whole Milk", outcome.saved.debounced.(textCommittedMsg).value)
	assert.Equal(t, textCommitDebounce, outcome.saved.delay)
}

func TestTextEditorTrimToSameValueIsNoop(t *testing.T) {
	e := newTextEditor(testKey, "Milk")
	e.input.SetValue("  Milk  ")
	outcome := e.save()
	assert.Nil(t, outcome.saved)
}

func TestEscapeCancelsWithoutCommit(t *testing.T) {
	e := newTextEditor(testKey, "Milk")
	e.input.SetValue("changed")
	outcome, cmd := e.HandleKey(keyEsc())
	assert.True(t, outcome.close)
	assert.Nil(t, outcome.saved)
	assert.Nil(t, cmd)
}

func TestBlurSavesTypedEditors(t *testing.T) {
	e := newTextEditor(testKey, "Milk")
	e.input.SetValue("Oat Milk")
	outcome := e.Blur()
	require.NotNil(t, outcome.saved)
	assert.Equal(t, "Oat Milk", outcome.saved.display)
}

func TestPriceEditorRejectsNegative(t *testing.T) {
	price := 1.5
	e := newPriceEditor(cellKey{productID: "p1", column: colPrice}, &price)
	e.input.SetValue("-1")
	outcome := e.save()
	assert.True(t, outcome.close)
	assert.Nil(t, outcome.saved)
}

func TestPriceEditorRejectsGarbage(t *testing.T) {
	e := newPriceEditor(cellKey{productID: "p1", column: colPrice}, nil)
	e.input.SetValue("abc")
	outcome := e.save()
	assert.Nil(t, outcome.saved)
}

func TestPriceEditorEmptyMeansUnset(t *testing.T) {
	price := 2.5
	e := newPriceEditor(cellKey{productID: "p1", column: colPrice}, &price)
	e.input.SetValue("")
	outcome := e.save()
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(priceCommittedMsg)
	assert.Nil(t, msg.value)
}

func TestPriceEditorCommitsImmediately(t *testing.T) {
	e := newPriceEditor(cellKey{productID: "p1", column: colPrice}, nil)
	e.input.SetValue("3,50")
	outcome := e.save()
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(priceCommittedMsg)
	require.NotNil(t, msg.value)
	assert.InDelta(t, 3.5, *msg.value, 0.001)
	assert.Equal(t, "3.50", outcome.saved.display)
	assert.Nil(t, outcome.saved.debounced)
}

func TestPriceEditorUnchangedValueIsNoop(t *testing.T) {
	price := 2.0
	e := newPriceEditor(cellKey{productID: "p1", column: colPrice}, &price)
	e.input.SetValue("2.00")
	outcome := e.save()
	assert.Nil(t, outcome.saved)
}

func TestMarkupEditorTabTogglesKind(t *testing.T) {
	e := newMarkupEditor(cellKey{productID: "p1", column: colMarkup}, nil)
	assert.Equal(t, markupPercent, e.markupKind)
	_, _ = e.HandleKey(keyTab())
	assert.Equal(t, markupAmount, e.markupKind)
	_, _ = e.HandleKey(keyTab())
	assert.Equal(t, markupPercent, e.markupKind)
}

func TestMarkupEditorZeroCommitsUnset(t *testing.T) {
	e := newMarkupEditor(cellKey{productID: "p1", column: colMarkup}, &markup{Type: markupPercent, Value: 10})
	e.input.SetValue("0")
	outcome := e.save()
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(markupCommittedMsg)
	assert.Nil(t, msg.value)
	assert.Equal(t, "—", outcome.saved.display)
}

func TestMarkupEditorUnchangedIsNoOp(t *testing.T) {
	e := newMarkupEditor(cellKey{productID: "p1", column: colMarkup}, &markup{Type: markupPercent, Value: 35})
	outcome := e.save()
	assert.True(t, outcome.close)
	assert.Nil(t, outcome.saved)

	// The same value under the other type is a real change.
	e = newMarkupEditor(cellKey{productID: "p1", column: colMarkup}, &markup{Type: markupPercent, Value: 35})
	_, _ = e.HandleKey(keyTab())
	outcome = e.save()
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(markupCommittedMsg)
	require.NotNil(t, msg.value)
	assert.Equal(t, markupAmount, msg.value.Type)
}

func TestMarkupEditorCommitsPositiveValue(t *testing.T) {
	e := newMarkupEditor(cellKey{productID: "p1", column: colMarkup}, nil)
	e.markupKind = markupAmount
	e.input.SetValue("2.5")
	outcome := e.save()
	msg := outcome.saved.immediate.(markupCommittedMsg)
	require.NotNil(t, msg.value)
	assert.Equal(t, markupAmount, msg.value.Type)
	assert.InDelta(t, 2.5, msg.value.Value, 0.001)
	assert.Equal(t, "+2.50", outcome.saved.display)
}

func TestSelectEditorCommitsChoiceImmediately(t *testing.T) {
	options := []selectOption{{id: "kg", label: "kg"}, {id: "l", label: "l"}}
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, options, "kg")

	_, _ = e.HandleKey(keyDown())
	outcome, cmd := e.HandleKey(keyEnter())
	assert.Nil(t, cmd)
	assert.True(t, outcome.close)
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(optionCommittedMsg)
	assert.Equal(t, "l", msg.value)
}

func TestSelectEditorSameChoiceIsNoop(t *testing.T) {
	options := []selectOption{{id: "kg", label: "kg"}}
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, options, "kg")
	outcome, _ := e.HandleKey(keyEnter())
	assert.True(t, outcome.close)
	assert.Nil(t, outcome.saved)
}

func TestCategoryEditorDebouncesCommit(t *testing.T) {
	options := []selectOption{{id: "c1", label: "Dairy"}, {id: "c2", label: "Bakery"}}
	e := newCategoryEditor(cellKey{productID: "p1", column: colCategory}, options, "c1")

	_, _ = e.HandleKey(keyDown())
	outcome, _ := e.HandleKey(keyEnter())
	require.NotNil(t, outcome.saved)
	assert.Nil(t, outcome.saved.immediate)
	msg := outcome.saved.debounced.(categoryCommittedMsg)
	assert.Equal(t, "c2", msg.categoryID)
	assert.Equal(t, categoryCommitDebounce, outcome.saved.delay)
}

func TestMultiSelectTogglesCommitPerClick(t *testing.T) {
	options := []selectOption{{id: "g1", label: "Cold chain"}, {id: "g2", label: "Daily fresh"}}
	e := newMultiSelectEditor(cellKey{productID: "p1", column: colGroups}, options, []string{"g1"})

	outcome, _ := e.HandleKey(keySpace())
	require.NotNil(t, outcome.saved)
	assert.False(t, outcome.close)
	msg := outcome.saved.immediate.(groupsCommittedMsg)
	assert.Empty(t, msg.groupIDs)

	_, _ = e.HandleKey(keyDown())
	outcome, _ = e.HandleKey(keySpace())
	msg = outcome.saved.immediate.(groupsCommittedMsg)
	assert.Equal(t, []string{"g2"}, msg.groupIDs)
}

func TestCatalogToggleCommitsSingleFlip(t *testing.T) {
	options := []selectOption{{id: "cat1", label: "Retail"}}
	e := newMultiSelectEditor(cellKey{productID: "p1", column: colCatalogs}, options, nil)

	outcome, _ := e.HandleKey(keySpace())
	msg := outcome.saved.immediate.(catalogToggledMsg)
	assert.Equal(t, "cat1", msg.catalogID)
	assert.Equal(t, "p1", msg.productID)
}

func TestMultiSelectEnterCloses(t *testing.T) {
	e := newMultiSelectEditor(cellKey{productID: "p1", column: colGroups}, nil, nil)
	outcome, _ := e.HandleKey(keyEnter())
	assert.True(t, outcome.close)
}

func TestAddNewFlowRequestsOption(t *testing.T) {
	options := []selectOption{{id: "kg", label: "kg"}}
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, options, "kg")

	// Move onto the add-new sentinel and enter the sub-state.
	_, _ = e.HandleKey(keyDown())
	outcome, cmd := e.HandleKey(keyEnter())
	assert.False(t, outcome.close)
	assert.Nil(t, cmd)
	assert.True(t, e.addingNew)

	for _, r := range "case" {
		_, _ = e.HandleKey(keyRunes(string(r)))
	}
	_, cmd = e.HandleKey(keyEnter())
	require.NotNil(t, cmd)
	req := cmd().(optionCreateRequestMsg)
	assert.Equal(t, "case", req.name)
	assert.False(t, e.addingNew)
}

func TestAddNewEmptyInputReverts(t *testing.T) {
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, nil, "")
	_, _ = e.HandleKey(keyEnter()) // only option is the sentinel
	require.True(t, e.addingNew)
	_, cmd := e.HandleKey(keyEnter())
	assert.Nil(t, cmd)
	assert.False(t, e.addingNew)
}

func TestAdoptCreatedOptionSelect(t *testing.T) {
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, nil, "")
	outcome, _ := e.adoptCreatedOption(optionCreatedMsg{key: e.key, id: "case", label: "case"})
	assert.True(t, outcome.close)
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(optionCommittedMsg)
	assert.Equal(t, "case", msg.value)
}

func TestAdoptCreatedOptionMultiSelectChecksAndCommits(t *testing.T) {
	e := newMultiSelectEditor(cellKey{productID: "p1", column: colGroups}, nil, nil)
	outcome, _ := e.adoptCreatedOption(optionCreatedMsg{key: e.key, id: "g9", label: "New group"})
	assert.False(t, outcome.close)
	require.NotNil(t, outcome.saved)
	msg := outcome.saved.immediate.(groupsCommittedMsg)
	assert.Equal(t, []string{"g9"}, msg.groupIDs)
	assert.True(t, e.checked["g9"])
	// Sentinel stays last.
	assert.Equal(t, addNewOptionID, e.options[len(e.options)-1].id)
}

func TestAdoptCreatedOptionErrorIsIgnored(t *testing.T) {
	e := newSelectEditor(cellKey{productID: "p1", column: colUnit}, nil, "")
	outcome, _ := e.adoptCreatedOption(optionCreatedMsg{key: e.key, err: assert.AnError})
	assert.False(t, outcome.close)
	assert.Nil(t, outcome.saved)
}

func TestParsePriceInput(t *testing.T) {
	cases := []struct {
		in    string
		ok    bool
		unset bool
		want  float64
	}{
		{in: "", ok: true, unset: true},
		{in: "  ", ok: true, unset: true},
		{in: "0", ok: true, want: 0},
		{in: "12.34", ok: true, want: 12.34},
		{in: "12,34", ok: true, want: 12.34},
		{in: "-0.01", ok: false},
		{in: "NaN", ok: false},
		{in: "1e2x", ok: false},
	}
	for _, tc := range cases {
		v, ok := parsePriceInput(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if tc.ok && !tc.unset {
			require.NotNil(t, v, "input %q", tc.in)
			assert.InDelta(t, tc.want, *v, 0.001)
		}
		if tc.unset {
			assert.Nil(t, v)
		}
	}
}

func TestFormatMarkup(t *testing.T) {
	assert.Equal(t, "—", formatMarkup(nil))
	assert.Equal(t, "10%", formatMarkup(&markup{Type: markupPercent, Value: 10}))
	assert.Equal(t, "+2.50", formatMarkup(&markup{Type: markupAmount, Value: 2.5}))
}
