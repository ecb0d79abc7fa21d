package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TypePickerModel is the modal for changing the selected entity's type.
type TypePickerModel struct {
	types         []string
	currentType   string
	selectedIndex int
	width         int
	height        int
	theme         Theme
}

// NewTypePickerModel lists the given types, deduplicated and sorted, with
// the entity's current type preselected.
func NewTypePickerModel(types []string, current string, theme Theme) TypePickerModel {
	var list []string
	for _, t := range types {
		if t = strings.TrimSpace(t); t != "" {
			list = append(list, t)
		}
	}
	slices.Sort(list)
	list = slices.Compact(list)

	selectedIdx := max(0, slices.Index(list, current))
	return TypePickerModel{
		types:         list,
		currentType:   current,
		selectedIndex: selectedIdx,
		theme:         theme,
	}
}

// SetSize updates the picker dimensions
func (m *TypePickerModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// MoveUp moves selection up
func (m *TypePickerModel) MoveUp() {
	if m.selectedIndex > 0 {
		m.selectedIndex--
	}
}

// MoveDown moves selection down
func (m *TypePickerModel) MoveDown() {
	if m.selectedIndex < len(m.types)-1 {
		m.selectedIndex++
	}
}

// SelectedType returns the highlighted type, or "" when there are none.
func (m *TypePickerModel) SelectedType() string {
	if m.selectedIndex >= 0 && m.selectedIndex < len(m.types) {
		return m.types[m.selectedIndex]
	}
	return ""
}

// Changed reports whether applying would change the entity.
func (m *TypePickerModel) Changed() bool {
	sel := m.SelectedType()
	return sel != "" && sel != m.currentType
}

// View renders the picker overlay
func (m *TypePickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 35
	if m.width < 45 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Change Type"))
	lines = append(lines, "")

	if len(m.types) == 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Muted).Render("  no types in this graph"))
	}
	for i, typ := range m.types {
		isSelected := i == m.selectedIndex
		isCurrent := typ == m.currentType

		itemStyle := t.Renderer.NewStyle()
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		prefix := "  "
		if isSelected {
			prefix = "> "
		}

		suffix := ""
		if isCurrent {
			checkStyle := t.Renderer.NewStyle().Foreground(t.Secondary)
			suffix = " " + checkStyle.Render("✓")
		}
		lines = append(lines, itemStyle.Render(prefix+typ)+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | enter: apply | esc: cancel"))

	content := strings.Join(lines, "\n")

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(content),
	)
}
