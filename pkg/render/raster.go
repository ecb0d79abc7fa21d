package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	xdraw "golang.org/x/image/draw"
)

// Downsample resizes img to w×h with Catmull-Rom filtering. Rendering at a
// higher DPR and downsampling gives smooth edges on coarse targets such as
// terminal cells.
func Downsample(img image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(1, w), max(1, h)))
	if img == nil {
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// EncodePNG writes the frame image as PNG.
func (f Frame) EncodePNG(w io.Writer) error {
	if f.Image == nil {
		return fmt.Errorf("encoding frame: no image")
	}
	if err := png.Encode(w, f.Image); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return nil
}
