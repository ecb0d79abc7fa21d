package export

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
)

// WritePNG lays ds out and writes one rendered frame as PNG. Labels are
// drawn into the image.
func WritePNG(ctx context.Context, ds model.Dataset, w io.Writer, opts Options) error {
	opts = opts.withDefaults()
	e, _, err := Layout(ctx, ds, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	ro := opts.Render
	ro.RasterLabels = true
	r, err := render.New(ro)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	frame := r.Draw(e.View())
	if err := frame.EncodePNG(w); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// SavePNG writes the PNG snapshot to path.
func SavePNG(ctx context.Context, ds model.Dataset, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WritePNG(ctx, ds, f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Snapshotter returns a PNG writer with fixed options, suitable for serving
// previews.
func Snapshotter(opts Options) func(ctx context.Context, ds model.Dataset, w io.Writer) error {
	return func(ctx context.Context, ds model.Dataset, w io.Writer) error {
		return WritePNG(ctx, ds, w, opts)
	}
}
