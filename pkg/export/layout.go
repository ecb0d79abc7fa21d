// Package export writes knowledge graphs to files: a settled PNG snapshot
// through the render pipeline, an SVG drawing, and a Markdown report.
package export

import (
	"context"
	"math/rand"

	"github.com/vanderheijden86/kgview/pkg/engine"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
)

// Options configures static exports.
type Options struct {
	// Width and Height are the viewport in logical pixels.
	Width, Height int
	// DPR scales the PNG surface; SVG output is always at DPR 1.
	DPR float64
	// SettleTicks caps the solver ticks run before drawing.
	SettleTicks int
	// Seed makes the initial placement reproducible.
	Seed   int64
	Params engine.Params
	Render render.Options
	Title  string
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 800
	}
	if o.DPR <= 0 {
		o.DPR = 1
	}
	if o.SettleTicks <= 0 {
		o.SettleTicks = 3000
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	if o.Title == "" {
		o.Title = "Knowledge Graph"
	}
	o.Params = o.Params.WithDefaults()
	if o.Render.Palette == nil {
		o.Render.Palette = render.DefaultPalette()
	}
	return o
}

// settleChunk is how many solver ticks run between context checks.
const settleChunk = 200

// Layout builds an engine for ds, runs the solver until it freezes or the
// tick cap is reached, and fits the camera to the result.
func Layout(ctx context.Context, ds model.Dataset, opts Options) (*engine.Engine, engine.BuildReport, error) {
	opts = opts.withDefaults()
	e := engine.New(opts.Params, engine.WithRand(rand.New(rand.NewSource(opts.Seed))))
	e.Resize(float64(opts.Width), float64(opts.Height), opts.DPR)
	report := e.Rebuild(ds)

	for left := opts.SettleTicks; left > 0 && !e.Settled(); {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		n := min(left, settleChunk)
		if e.Settle(n) < n {
			break
		}
		left -= n
	}
	e.FitToBounds()
	e.SnapCamera()
	return e, report, nil
}
