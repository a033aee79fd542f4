package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

type markdownTheme string

const (
	markdownThemeAuto  markdownTheme = "auto"
	markdownThemeDark  markdownTheme = "dark"
	markdownThemeLight markdownTheme = "light"
)

var (
	markdownMu       sync.Mutex
	markdownRenderer *glamour.TermRenderer
	markdownErr      error
	markdownStyle    = markdownThemeAuto
	markdownWordWrap = 80
)

// RenderMarkdown returns Glamour-rendered terminal output for the
// provided Markdown. On renderer failure the raw text comes back.
func RenderMarkdown(content string) string {
	renderer := ensureMarkdownRenderer()
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

func ensureMarkdownRenderer() *glamour.TermRenderer {
	markdownMu.Lock()
	defer markdownMu.Unlock()
	if markdownRenderer != nil && markdownErr == nil {
		return markdownRenderer
	}
	options := []glamour.TermRendererOption{
		glamour.WithAutoStyle(),
	}
	if markdownWordWrap > 0 {
		options = append(options, glamour.WithWordWrap(markdownWordWrap))
	} else {
		options = append(options, glamour.WithWordWrap(0))
	}
	switch markdownStyle {
	case markdownThemeLight:
		options = append(options, glamour.WithStandardStyle("light"))
	case markdownThemeDark:
		options = append(options, glamour.WithStandardStyle("dark"))
	}
	markdownRenderer, markdownErr = glamour.NewTermRenderer(options...)
	if markdownErr != nil {
		return nil
	}
	return markdownRenderer
}

func setMarkdownWordWrap(width int) {
	markdownMu.Lock()
	if width < 0 {
		width = 0
	}
	if markdownWordWrap != width {
		markdownWordWrap = width
		markdownRenderer = nil
		markdownErr = nil
	}
	markdownMu.Unlock()
}

func setMarkdownTheme(theme markdownTheme) {
	markdownMu.Lock()
	if theme == "" {
		theme = markdownThemeAuto
	}
	if markdownStyle != theme {
		markdownStyle = theme
		markdownRenderer = nil
		markdownErr = nil
	}
	markdownMu.Unlock()
}

func markdownThemeFromString(value string) markdownTheme {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return markdownThemeDark
	case "light":
		return markdownThemeLight
	default:
		return markdownThemeAuto
	}
}

// productPreview is the read-only detail pane for the highlighted
// product: rendered description, pricing, memberships and images.
type productPreview struct {
	title     string
	width     int
	height    int
	viewport  viewport.Model
	productID string

	catalogNames  map[string]string
	groupNames    map[string]string
	categoryNames map[string]string
}

func newProductPreview() *productPreview {
	return &productPreview{
		title:    "Details",
		viewport: viewport.New(40, 20),
	}
}

func (p *productPreview) SetNames(catalogs, groups, categories map[string]string) {
	p.catalogNames = catalogs
	p.groupNames = groups
	p.categoryNames = categories
}

// Show replaces the pane content with the given product's detail view.
func (p *productPreview) Show(prod product) {
	p.productID = prod.ID
	p.viewport.SetContent(p.renderProduct(prod))
	p.viewport.GotoTop()
}

func (p *productPreview) Clear() {
	p.productID = ""
	p.viewport.SetContent("")
}

func (p *productPreview) ProductID() string {
	return p.productID
}

func (p *productPreview) renderProduct(prod product) string {
	var b strings.Builder

	b.WriteString(prod.Name + "\n")
	b.WriteString(strings.Repeat("─", len([]rune(prod.Name))) + "\n")
	if prod.SKU != "" {
		fmt.Fprintf(&b, "SKU: %s\n", prod.SKU)
	}
	fmt.Fprintf(&b, "Source: %s\n", prod.Source)
	if prod.Unit != "" {
		fmt.Fprintf(&b, "Unit: %s", prod.Unit)
		if prod.PackagingType != "" {
			fmt.Fprintf(&b, " • %s", prod.PackagingType)
		}
		b.WriteString("\n")
	}
	if prod.UnitWeight > 0 {
		fmt.Fprintf(&b, "Weight: %s\n", formatWeight(prod.UnitWeight))
	}

	b.WriteString("\nPricing\n-------\n")
	if prod.BuyPrice != nil {
		fmt.Fprintf(&b, "Buy: %s\n", formatPrice(*prod.BuyPrice))
	}
	if prod.PricePerUnit != nil {
		fmt.Fprintf(&b, "Price/unit: %s", formatPrice(*prod.PricePerUnit))
		if prod.FixedPrice {
			b.WriteString(" (fixed)")
		}
		b.WriteString("\n")
	}
	if prod.Markup != nil {
		fmt.Fprintf(&b, "Markup: %s\n", formatMarkup(prod.Markup))
	}
	if len(prod.PortionPrices) > 0 {
		portions := make([]string, 0, len(prod.PortionPrices))
		for portion := range prod.PortionPrices {
			portions = append(portions, portion)
		}
		sort.Strings(portions)
		for _, portion := range portions {
			fmt.Fprintf(&b, "Portion %s: %s\n", portion, formatPrice(prod.PortionPrices[portion]))
		}
	}

	if len(prod.Catalogs) > 0 {
		b.WriteString("\nCatalogs\n--------\n")
		ids := make([]string, 0, len(prod.Catalogs))
		for id := range prod.Catalogs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			name := p.catalogNames[id]
			if name == "" {
				name = id
			}
			line := "  " + name
			if override, ok := prod.CategoryOverrides[id]; ok {
				if cat := p.categoryNames[override]; cat != "" {
					line += " → " + cat
				}
			} else if cat := p.categoryNames[prod.CategoryID]; cat != "" {
				line += " → " + cat
			}
			b.WriteString(line + "\n")
		}
	}

	if len(prod.GroupIDs) > 0 {
		b.WriteString("\nGroups\n------\n")
		for _, id := range prod.GroupIDs {
			name := p.groupNames[id]
			if name == "" {
				name = id
			}
			b.WriteString("  " + name + "\n")
		}
	}

	if len(prod.Images) > 0 {
		b.WriteString("\nImages\n------\n")
		for i, img := range prod.Images {
			marker := "  "
			if i == 0 {
				marker = "★ "
			}
			b.WriteString(marker + filepath.Base(img) + "\n")
		}
	}

	if strings.TrimSpace(prod.Description) != "" {
		b.WriteString("\n")
		b.WriteString(RenderMarkdown(prod.Description))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (p *productPreview) SetSize(width, height int) {
	if width < 20 {
		width = 20
	}
	if height < 4 {
		height = 4
	}
	p.width = width
	p.height = height
	p.viewport.Width = width - 2
	p.viewport.Height = height - 3
	setMarkdownWordWrap(width - 4)
}

func (p *productPreview) Update(msg tea.Msg) (column, tea.Cmd) {
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *productPreview) View(s styles, focused bool) string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		s.columnTitle.Render(p.title),
		p.viewport.View(),
	)
	if focused {
		return s.panelFocused.Width(p.width).Render(body)
	}
	return s.panel.Width(p.width).Render(body)
}

func (p *productPreview) Title() string {
	return p.title
}

func (p *productPreview) FocusValue() string {
	return p.productID
}
