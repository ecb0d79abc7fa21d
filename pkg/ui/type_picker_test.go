package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTypePickerModel(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewTypePickerModel([]string{"政策", "组织", "", "政策", " 概念 "}, "组织", theme)

	if len(picker.types) != 3 {
		t.Fatalf("types = %v, want 3 distinct non-empty", picker.types)
	}
	if picker.SelectedType() != "组织" {
		t.Errorf("selected = %q, want current type", picker.SelectedType())
	}
	if picker.Changed() {
		t.Error("current type should not count as a change")
	}
}

func TestTypePickerUnknownCurrent(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewTypePickerModel([]string{"b", "a"}, "zzz", theme)

	if picker.selectedIndex != 0 || picker.SelectedType() != "a" {
		t.Errorf("expected first sorted type, got %q", picker.SelectedType())
	}
	if !picker.Changed() {
		t.Error("unknown current type should be a change")
	}
}

func TestTypePickerNavigation(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewTypePickerModel([]string{"a", "b", "c"}, "a", theme)

	picker.MoveUp()
	if picker.SelectedType() != "a" {
		t.Errorf("MoveUp at top moved to %q", picker.SelectedType())
	}
	picker.MoveDown()
	picker.MoveDown()
	picker.MoveDown()
	if picker.SelectedType() != "c" {
		t.Errorf("MoveDown past bottom gave %q", picker.SelectedType())
	}
}

func TestTypePickerView(t *testing.T) {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	picker := NewTypePickerModel([]string{"政策", "组织"}, "组织", theme)
	picker.SetSize(80, 24)

	view := picker.View()
	for _, want := range []string{"Change Type", "政策", "组织", "✓", "enter: apply"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	empty := NewTypePickerModel(nil, "", theme)
	if empty.SelectedType() != "" || empty.Changed() {
		t.Error("empty picker should select nothing")
	}
	if !strings.Contains(empty.View(), "no types") {
		t.Error("empty picker should say so")
	}
}
