package ui

import (
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/kgview/pkg/render"
)

// Logical pixels covered by one terminal cell. A cell shows two vertically
// stacked dots with the upper half block, so each dot is cellW×cellW.
const (
	cellW = 8.0
	cellH = 16.0
)

const upperHalf = '▀'

type cell struct {
	ch     rune
	fg, bg color.RGBA
	// cont marks the right half of a wide rune; it prints nothing.
	cont bool
}

// Canvas is a grid of half-block cells painted from a raster.
type Canvas struct {
	cols, rows int
	cells      []cell
	sb         strings.Builder
}

// NewCanvas creates a canvas of cols×rows cells.
func NewCanvas(cols, rows int) *Canvas {
	c := &Canvas{}
	c.Resize(cols, rows)
	return c
}

// Resize changes the grid size and clears it.
func (c *Canvas) Resize(cols, rows int) {
	c.cols, c.rows = max(0, cols), max(0, rows)
	c.cells = make([]cell, c.cols*c.rows)
}

// Size returns the grid size in cells.
func (c *Canvas) Size() (cols, rows int) {
	return c.cols, c.rows
}

// Viewport returns the logical pixel size the engine camera should use so
// that one cell maps to cellW×cellH.
func (c *Canvas) Viewport() (w, h float64) {
	return float64(c.cols) * cellW, float64(c.rows) * cellH
}

// CellToLogical maps the centre of a cell to logical pixels.
func CellToLogical(col, row int) (x, y float64) {
	return (float64(col) + 0.5) * cellW, (float64(row) + 0.5) * cellH
}

// Paint fills the grid from f, downsampling to two dots per cell and
// overlaying the frame's labels.
func (c *Canvas) Paint(f render.Frame, pal *render.Palette) {
	if c.cols == 0 || c.rows == 0 || f.Image == nil {
		return
	}
	img := render.Downsample(f.Image, c.cols, c.rows*2)
	c.paintDots(img)

	for _, spot := range f.Labels {
		col := int(spot.X/cellW) - runewidth.StringWidth(spot.Text)/2
		row := int(spot.Y / cellH)
		fg := pal.Label
		if sc, ok := pal.ForState(spot.State); ok {
			fg = sc
		}
		c.Overlay(col, row, spot.Text, fg)
	}
}

func (c *Canvas) paintDots(img *image.RGBA) {
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			c.cells[row*c.cols+col] = cell{
				ch: upperHalf,
				fg: img.RGBAAt(col, row*2),
				bg: img.RGBAAt(col, row*2+1),
			}
		}
	}
}

// Overlay writes text starting at (col,row). Characters take the mean of
// the two dots they cover as background. Text outside the grid is clipped.
func (c *Canvas) Overlay(col, row int, text string, fg colorful.Color) {
	if row < 0 || row >= c.rows {
		return
	}
	r, g, b := fg.RGB255()
	fgc := color.RGBA{R: r, G: g, B: b, A: 0xff}
	x := col
	for _, ch := range text {
		w := runewidth.RuneWidth(ch)
		if w == 0 {
			continue
		}
		if x >= c.cols {
			return
		}
		if x >= 0 && x+w <= c.cols {
			i := row*c.cols + x
			bg := mix(c.cells[i].fg, c.cells[i].bg)
			c.cells[i] = cell{ch: ch, fg: fgc, bg: bg}
			for k := 1; k < w; k++ {
				c.cells[i+k] = cell{cont: true, bg: bg}
			}
		}
		x += w
	}
}

func mix(a, b color.RGBA) color.RGBA {
	return color.RGBA{
		R: uint8((uint16(a.R) + uint16(b.R)) / 2),
		G: uint8((uint16(a.G) + uint16(b.G)) / 2),
		B: uint8((uint16(a.B) + uint16(b.B)) / 2),
		A: 0xff,
	}
}

// String renders the grid with 24-bit colour escapes, one line per row.
// Colour codes are only emitted when they change along a row.
func (c *Canvas) String() string {
	sb := &c.sb
	sb.Reset()
	sb.Grow(c.cols * c.rows * 12)
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		var lastFg, lastBg color.RGBA
		first := true
		for col := 0; col < c.cols; col++ {
			ce := c.cells[row*c.cols+col]
			if ce.cont {
				continue
			}
			if first || ce.fg != lastFg {
				writeSGR(sb, 38, ce.fg)
				lastFg = ce.fg
			}
			if first || ce.bg != lastBg {
				writeSGR(sb, 48, ce.bg)
				lastBg = ce.bg
			}
			first = false
			sb.WriteRune(ce.ch)
		}
		sb.WriteString("\x1b[0m")
	}
	return sb.String()
}

func writeSGR(sb *strings.Builder, layer int, c color.RGBA) {
	sb.WriteString("\x1b[")
	sb.WriteString(strconv.Itoa(layer))
	sb.WriteString(";2;")
	sb.WriteString(strconv.Itoa(int(c.R)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.G)))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(int(c.B)))
	sb.WriteByte('m')
}

// Plain returns the grid's characters without colour, for tests and
// non-colour terminals. Dots print as spaces.
func (c *Canvas) Plain() string {
	var sb strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			ce := c.cells[row*c.cols+col]
			switch {
			case ce.cont:
			case ce.ch == upperHalf || ce.ch == 0:
				sb.WriteByte(' ')
			default:
				sb.WriteRune(ce.ch)
			}
		}
	}
	return sb.String()
}
