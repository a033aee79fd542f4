package main

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type column interface {
	SetSize(width, height int)
	Update(msg tea.Msg) (column, tea.Cmd)
	View(styles styles, focused bool) string
	Title() string
	FocusValue() string
}

type selectableColumn struct {
	title       string
	model       list.Model
	width       int
	height      int
	onSelect    func(entry listEntry) tea.Cmd
	onHighlight func(entry listEntry) tea.Cmd
}

type listEntry struct {
	title   string
	desc    string
	payload any
}

func (e listEntry) Title() string       { return e.title }
func (e listEntry) Description() string { return e.desc }
func (e listEntry) FilterValue() string { return e.title }

func newSelectableColumn(title string, items []list.Item, width int, onSelect func(listEntry) tea.Cmd, s styles) *selectableColumn {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = s.listSel
	delegate.Styles.SelectedDesc = s.listSel
	delegate.Styles.NormalTitle = s.listItem
	delegate.Styles.NormalDesc = s.listItem.Foreground(palette.textMuted)

	m := list.New(items, delegate, width, 20)
	m.Title = title
	m.SetShowStatusBar(false)
	m.SetFilteringEnabled(false)
	m.SetShowHelp(false)
	m.SetShowPagination(false)

	return &selectableColumn{
		title:    title,
		model:    m,
		width:    width,
		onSelect: onSelect,
	}
}

func (c *selectableColumn) SetItems(items []list.Item) {
	c.model.SetItems(items)
	if len(items) > 0 {
		c.model.Select(0)
	}
}

func (c *selectableColumn) SetHighlightFunc(fn func(listEntry) tea.Cmd) {
	c.onHighlight = fn
}

func (c *selectableColumn) SelectedEntry() (listEntry, bool) {
	if entry, ok := c.model.SelectedItem().(listEntry); ok {
		return entry, true
	}
	return listEntry{}, false
}

func (c *selectableColumn) SetSize(width, height int) {
	c.width = width
	if height < 3 {
		height = 3
	}
	c.height = height
	c.model.SetSize(width, height-2)
}

func (c *selectableColumn) Update(msg tea.Msg) (column, tea.Cmd) {
	prev := c.model.Index()
	if m, ok := msg.(tea.KeyMsg); ok {
		if m.String() == "enter" && c.onSelect != nil {
			if item, ok := c.model.SelectedItem().(listEntry); ok {
				return c, c.onSelect(item)
			}
		}
	}
	var cmd tea.Cmd
	c.model, cmd = c.model.Update(msg)
	if c.model.Index() != prev && c.onHighlight != nil {
		if item, ok := c.model.SelectedItem().(listEntry); ok {
			if run := c.onHighlight(item); run != nil {
				if cmd != nil {
					return c, tea.Batch(cmd, run)
				}
				return c, run
			}
		}
	}
	return c, cmd
}

func (c *selectableColumn) View(s styles, focused bool) string {
	content := c.model.View()
	body := lipgloss.JoinVertical(lipgloss.Left, s.columnTitle.Render(c.title), content)
	if focused {
		return s.panelFocused.Width(c.width).Render(body)
	}
	return s.panel.Width(c.width).Render(body)
}

func (c *selectableColumn) Title() string {
	return c.title
}

func (c *selectableColumn) FocusValue() string {
	if item, ok := c.model.SelectedItem().(listEntry); ok {
		return item.title
	}
	return ""
}
