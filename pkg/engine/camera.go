package engine

import "math"

// snapEpsilon is the gap below which smoothing snaps actual to target.
const snapEpsilon = 1e-4

// Point is a 2D coordinate in world or screen space.
type Point struct {
	X, Y float64
}

// Camera maps world coordinates to screen coordinates as
// screen = world*K + (X, Y). The actual transform chases the target
// (TX, TY, TK) by a fixed fraction per frame.
type Camera struct {
	X, Y, K    float64
	TX, TY, TK float64

	// Viewport size in logical pixels and the device pixel ratio of the
	// drawing surface.
	Width, Height float64
	DPR           float64

	kMin, kMax float64
	smoothing  float64
	laidOut    bool
}

// NewCamera returns an identity camera with the given limits.
func NewCamera(p Params) Camera {
	p = p.WithDefaults()
	c := Camera{kMin: p.KMin, kMax: p.KMax, smoothing: p.Smoothing, DPR: 1}
	c.K = c.clamp(1)
	c.TK = c.K
	return c
}

// Limits returns the zoom range.
func (c *Camera) Limits() (kMin, kMax float64) {
	return c.kMin, c.kMax
}

func (c *Camera) clamp(k float64) float64 {
	if math.IsNaN(k) {
		return c.TK
	}
	return math.Max(c.kMin, math.Min(c.kMax, k))
}

// Resize updates the viewport. The first layout with a non-zero size centres
// the world origin; later resizes leave the pan alone.
func (c *Camera) Resize(width, height, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	c.Width, c.Height, c.DPR = width, height, dpr
	if c.laidOut || width <= 0 || height <= 0 {
		return
	}
	c.laidOut = true
	c.X, c.Y = width/2, height/2
	c.TX, c.TY = c.X, c.Y
}

// Center returns the viewport centre in screen coordinates.
func (c *Camera) Center() Point {
	return Point{X: c.Width / 2, Y: c.Height / 2}
}

// Advance moves the actual transform one smoothing step toward the target.
// It reports whether anything is still moving.
func (c *Camera) Advance() bool {
	moving := false
	step := func(cur *float64, target float64) {
		gap := target - *cur
		if math.Abs(gap) < snapEpsilon {
			*cur = target
			return
		}
		*cur += gap * c.smoothing
		moving = true
	}
	step(&c.X, c.TX)
	step(&c.Y, c.TY)
	step(&c.K, c.TK)
	c.K = c.clamp(c.K)
	return moving
}

// Snap jumps the actual transform to the target.
func (c *Camera) Snap() {
	c.X, c.Y, c.K = c.TX, c.TY, c.TK
}

// Pan shifts the target pan by (dx, dy) relative to the actual pan; the
// actual pan follows immediately so drags do not lag.
func (c *Camera) Pan(dx, dy float64) {
	c.PanTo(c.X+dx, c.Y+dy)
}

// PanTo sets both target and actual pan.
func (c *Camera) PanTo(x, y float64) {
	c.TX, c.TY = x, y
	c.X, c.Y = x, y
}

// ZoomAtPoint scales the target zoom by factor while keeping the world point
// currently under (sx, sy) at the same screen position.
func (c *Camera) ZoomAtPoint(sx, sy, factor float64) {
	if factor <= 0 || math.IsNaN(factor) {
		return
	}
	wx, wy := c.ScreenToWorld(sx, sy)
	k := c.clamp(c.TK * factor)
	c.TK = k
	c.TX = sx - wx*k
	c.TY = sy - wy*k
}

// ZoomByFactor scales the target zoom about the viewport centre.
func (c *Camera) ZoomByFactor(factor float64) {
	ctr := c.Center()
	c.ZoomAtPoint(ctr.X, ctr.Y, factor)
}

// SetZoom sets the target zoom, clamped.
func (c *Camera) SetZoom(k float64) {
	c.TK = c.clamp(k)
}

// FitToBounds targets a zoom and pan that fit the given world box plus
// margin into the viewport. It reports false when there is nothing to fit.
func (c *Camera) FitToBounds(minX, minY, maxX, maxY, margin float64) bool {
	if c.Width <= 0 || c.Height <= 0 {
		return false
	}
	boxW := maxX - minX + 2*margin
	boxH := maxY - minY + 2*margin
	if boxW <= 0 || boxH <= 0 {
		return false
	}
	k := c.clamp(math.Min(c.Width/boxW, c.Height/boxH))
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	c.TK = k
	c.TX = c.Width/2 - cx*k
	c.TY = c.Height/2 - cy*k
	return true
}

// FocusOn targets the pan that puts the midpoint of pts at the viewport
// centre at the target zoom.
func (c *Camera) FocusOn(pts ...Point) bool {
	if len(pts) == 0 {
		return false
	}
	var mx, my float64
	for _, p := range pts {
		mx += p.X
		my += p.Y
	}
	mx /= float64(len(pts))
	my /= float64(len(pts))
	ctr := c.Center()
	c.TX = ctr.X - mx*c.TK
	c.TY = ctr.Y - my*c.TK
	return true
}

// ScreenToWorld inverts the actual transform.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	return (sx - c.X) / c.K, (sy - c.Y) / c.K
}

// WorldToScreen applies the actual transform.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	return wx*c.K + c.X, wy*c.K + c.Y
}

// TargetScreenToWorld inverts the target transform.
func (c *Camera) TargetScreenToWorld(sx, sy float64) (wx, wy float64) {
	return (sx - c.TX) / c.TK, (sy - c.TY) / c.TK
}

// VisibleWorld returns the world rectangle covered by the viewport.
func (c *Camera) VisibleWorld() (minX, minY, maxX, maxY float64) {
	minX, minY = c.ScreenToWorld(0, 0)
	maxX, maxY = c.ScreenToWorld(c.Width, c.Height)
	return minX, minY, maxX, maxY
}
