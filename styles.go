package main

import "github.com/charmbracelet/lipgloss"

var palette = struct {
	text      lipgloss.AdaptiveColor
	textMuted lipgloss.AdaptiveColor
	accent    lipgloss.AdaptiveColor
	border    lipgloss.AdaptiveColor
	selection lipgloss.AdaptiveColor
	danger    lipgloss.AdaptiveColor
}{
	text:      lipgloss.AdaptiveColor{Light: "235", Dark: "252"},
	textMuted: lipgloss.AdaptiveColor{Light: "244", Dark: "243"},
	accent:    lipgloss.AdaptiveColor{Light: "27", Dark: "39"},
	border:    lipgloss.AdaptiveColor{Light: "250", Dark: "238"},
	selection: lipgloss.AdaptiveColor{Light: "153", Dark: "24"},
	danger:    lipgloss.AdaptiveColor{Light: "124", Dark: "167"},
}

type styles struct {
	app, topBar                      lipgloss.Style
	sidebarTitle, columnTitle        lipgloss.Style
	panel, panelFocused              lipgloss.Style
	statusBar, statusSeg, statusHint lipgloss.Style
	listItem, listSel                lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint   lipgloss.Style

	gridHeader  lipgloss.Style
	row         lipgloss.Style
	rowSelected lipgloss.Style
	rowCursor   lipgloss.Style
	rowDeleting lipgloss.Style
	cellEditing lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	panelBorder := lipgloss.NormalBorder()
	focusedBorder := lipgloss.DoubleBorder()

	return styles{
		app:          base,
		topBar:       base.Padding(0, 1),
		sidebarTitle: base.Copy().Bold(true).Padding(0, 1),
		columnTitle:  base.Copy().Bold(true).Padding(0, 1),
		panel:        base.BorderStyle(panelBorder).BorderForeground(palette.border),
		panelFocused: base.BorderStyle(focusedBorder).BorderForeground(palette.accent),
		statusBar:    base.Padding(0, 1),
		statusSeg:    base.Padding(0, 1).MarginRight(1),
		statusHint:   base.Foreground(palette.textMuted),
		listItem:     base.Padding(0, 1),
		listSel:      base.Padding(0, 1).Bold(true).Foreground(palette.accent),
		cmdOverlay:   base.Border(lipgloss.RoundedBorder()).Padding(1, 2),
		cmdPrompt:    base.Copy().Bold(true),
		cmdHint:      base.Copy().Faint(true),

		gridHeader:  base.Copy().Bold(true).Foreground(palette.textMuted),
		row:         base,
		rowSelected: base.Copy().Foreground(palette.accent),
		rowCursor:   base.Copy().Background(palette.selection).Foreground(palette.text),
		rowDeleting: base.Copy().Faint(true).Foreground(palette.danger),
		cellEditing: base.Copy().Background(palette.selection),
	}
}
