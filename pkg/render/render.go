// Package render draws engine frames onto a raster surface with gg.
package render

import (
	"fmt"
	"image"
	"math"
	"os"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/vanderheijden86/kgview/pkg/engine"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Options configures a Renderer.
type Options struct {
	// LabelZoom is the zoom at and above which every entity is labelled.
	// Below it only emphasised entities get a label.
	LabelZoom float64
	// RasterLabels draws labels into the image. When false they are returned
	// as LabelSpots for a text overlay.
	RasterLabels bool
	// FontPath is a TrueType/OpenType file for raster labels. Go Regular is
	// used when empty; it has no CJK glyphs.
	FontPath string
	FontSize float64
	// GridSpacing is the world distance between grid lines.
	GridSpacing float64
	Palette     *Palette
}

func (o Options) withDefaults() Options {
	if o.LabelZoom == 0 {
		o.LabelZoom = 0.9
	}
	if o.FontSize == 0 {
		o.FontSize = 12
	}
	if o.GridSpacing == 0 {
		o.GridSpacing = 50
	}
	if o.Palette == nil {
		o.Palette = DefaultPalette()
	}
	return o
}

// LabelSpot is a label position in logical screen pixels. X is the
// horizontal centre, Y the top of the text.
type LabelSpot struct {
	X, Y  float64
	Text  string
	State engine.EntityState
}

// Frame is one rendered frame. Image is Width×Height device pixels, which is
// the logical viewport scaled by DPR.
type Frame struct {
	Image  *image.RGBA
	Width  int
	Height int
	DPR    float64
	Labels []LabelSpot
}

// Renderer draws views. It reuses its surface between frames of the same
// size, so a Frame's image is only valid until the next Draw.
type Renderer struct {
	opts    Options
	fontRaw []byte
	face    font.Face
	faceDPR float64
	dc      *gg.Context
}

// New creates a renderer.
func New(opts Options) (*Renderer, error) {
	opts = opts.withDefaults()
	r := &Renderer{opts: opts}
	if opts.RasterLabels {
		r.fontRaw = goregular.TTF
		if opts.FontPath != "" {
			raw, err := os.ReadFile(opts.FontPath)
			if err != nil {
				return nil, fmt.Errorf("reading label font: %w", err)
			}
			r.fontRaw = raw
		}
		if err := r.loadFace(1); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// loadFace (re)loads the label face at the device pixel size for dpr.
func (r *Renderer) loadFace(dpr float64) error {
	if r.face != nil && r.faceDPR == dpr {
		return nil
	}
	face, err := gg.LoadFontFaceFromBytes(r.fontRaw, r.opts.FontSize*dpr)
	if err != nil {
		return fmt.Errorf("loading label font: %w", err)
	}
	r.face, r.faceDPR = face, dpr
	return nil
}

// Palette returns the palette in use.
func (r *Renderer) Palette() *Palette {
	return r.opts.Palette
}

// Frame is the animation-frame callback: it advances the engine by dt and
// draws the result.
func (r *Renderer) Frame(e *engine.Engine, dt time.Duration) Frame {
	e.Step(dt)
	return r.Draw(e.View())
}

// Draw renders v. It reads the view only.
func (r *Renderer) Draw(v engine.View) Frame {
	cam := v.Camera
	dpr := cam.DPR
	if dpr <= 0 {
		dpr = 1
	}
	w := max(1, int(math.Round(cam.Width*dpr)))
	h := max(1, int(math.Round(cam.Height*dpr)))
	if r.dc == nil || r.dc.Width() != w || r.dc.Height() != h {
		r.dc = gg.NewContext(w, h)
	}
	dc := r.dc
	dc.Identity()
	dc.ResetClip()
	dc.Scale(dpr, dpr)

	pal := r.opts.Palette
	drawBackground(dc, pal, cam)
	drawGrid(dc, pal, cam, r.opts.GridSpacing)
	for i := range v.Relations {
		drawRelation(dc, pal, v, i)
	}

	var labels []LabelSpot
	for i := range v.Entities {
		drawEntity(dc, pal, v, i)
		if spot, ok := r.label(v, i); ok {
			labels = append(labels, spot)
		}
	}
	if r.opts.RasterLabels && r.loadFace(dpr) == nil {
		// Text is laid out in device pixels.
		dc.Identity()
		dc.SetFontFace(r.face)
		for _, spot := range labels {
			drawLabel(dc, pal, spot, dpr)
		}
		labels = nil
	}

	img, _ := dc.Image().(*image.RGBA)
	return Frame{Image: img, Width: w, Height: h, DPR: dpr, Labels: labels}
}

func (r *Renderer) label(v engine.View, i int) (LabelSpot, bool) {
	ent := v.Entities[i]
	st := v.EntityStates[i]
	cam := v.Camera
	if cam.K < r.opts.LabelZoom && st == engine.StateDefault && !v.Neighbor[i] {
		return LabelSpot{}, false
	}
	sx, sy := cam.WorldToScreen(ent.X, ent.Y)
	top := sy + ent.Radius*cam.K + 4
	if sx < 0 || sx > cam.Width || top < 0 || top > cam.Height {
		return LabelSpot{}, false
	}
	return LabelSpot{X: sx, Y: top, Text: ent.Name, State: st}, true
}
