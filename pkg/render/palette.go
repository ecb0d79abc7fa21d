package render

import (
	"fmt"
	"hash/fnv"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/vanderheijden86/kgview/pkg/engine"
)

// Palette holds the colours of a frame. Entity fills come from the type
// table; unknown types get a stable colour derived from a hash of the name.
type Palette struct {
	Background   colorful.Color
	Grid         colorful.Color
	Edge         colorful.Color
	EdgeNeighbor colorful.Color
	EdgeFocused  colorful.Color
	Label        colorful.Color

	Hovered   colorful.Color
	Batch     colorful.Color
	SearchHit colorful.Color
	Pinned    colorful.Color
	Selected  colorful.Color
	Focused   colorful.Color

	types map[string]colorful.Color
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultPalette returns the dark theme.
func DefaultPalette() *Palette {
	return &Palette{
		Background:   mustHex("#1e1e2e"),
		Grid:         mustHex("#2f2f45"),
		Edge:         mustHex("#6b80bf"),
		EdgeNeighbor: mustHex("#8be9fd"),
		EdgeFocused:  mustHex("#ffb86c"),
		Label:        mustHex("#f8f8f2"),

		Hovered:   mustHex("#f8f8f2"),
		Batch:     mustHex("#ff79c6"),
		SearchHit: mustHex("#f1fa8c"),
		Pinned:    mustHex("#6272a4"),
		Selected:  mustHex("#8be9fd"),
		Focused:   mustHex("#ffb86c"),

		types: map[string]colorful.Color{
			"组织": mustHex("#8be9fd"),
			"概念": mustHex("#bd93f9"),
			"政策": mustHex("#50fa7b"),
			"法规": mustHex("#ffb86c"),
			"地区": mustHex("#f1fa8c"),
			"产业": mustHex("#ff79c6"),
		},
	}
}

// SetType assigns a fill colour to an entity type.
func (p *Palette) SetType(typ, hex string) error {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("palette colour for %q: %w", typ, err)
	}
	p.types[typ] = c
	return nil
}

// SetBackground replaces the background colour.
func (p *Palette) SetBackground(hex string) error {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("background colour: %w", err)
	}
	p.Background = c
	return nil
}

// Override applies a type→hex table, stopping at the first bad colour.
func (p *Palette) Override(table map[string]string) error {
	for typ, hex := range table {
		if err := p.SetType(typ, hex); err != nil {
			return err
		}
	}
	return nil
}

// ForType returns the fill colour of an entity type.
func (p *Palette) ForType(typ string) colorful.Color {
	if c, ok := p.types[typ]; ok {
		return c
	}
	h := fnv.New32a()
	h.Write([]byte(typ))
	hue := float64(h.Sum32() % 360)
	return colorful.Hcl(hue, 0.45, 0.72).Clamped()
}

// ForState returns the emphasis colour of an entity state. ok is false for
// the default state, which has no ring or halo.
func (p *Palette) ForState(s engine.EntityState) (c colorful.Color, ok bool) {
	switch s {
	case engine.StateHovered:
		return p.Hovered, true
	case engine.StateBatch:
		return p.Batch, true
	case engine.StateSearchHit:
		return p.SearchHit, true
	case engine.StatePinned:
		return p.Pinned, true
	case engine.StateSelected:
		return p.Selected, true
	case engine.StateFocused:
		return p.Focused, true
	}
	return colorful.Color{}, false
}

// ForRelation returns the stroke colour of a relation state.
func (p *Palette) ForRelation(s engine.RelationState) colorful.Color {
	switch s {
	case engine.RelationNeighbor:
		return p.EdgeNeighbor
	case engine.RelationFocused:
		return p.EdgeFocused
	}
	return p.Edge
}

// alpha converts c to a non-premultiplied colour with the given opacity.
func alpha(c colorful.Color, a float64) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a * 255)}
}

func lighten(c colorful.Color, t float64) colorful.Color {
	return c.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, t).Clamped()
}

func darken(c colorful.Color, t float64) colorful.Color {
	return c.BlendLab(colorful.Color{}, t).Clamped()
}
