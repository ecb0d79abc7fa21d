package render

import (
	"math"

	"git.sr.ht/~sbinet/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/vanderheijden86/kgview/pkg/engine"
)

const (
	arrowLen   = 9.0
	arrowWidth = 4.5
	minGridPx  = 12.0
)

func drawBackground(dc *gg.Context, pal *Palette, cam engine.Camera) {
	dc.SetColor(alpha(pal.Background, 1))
	dc.Clear()

	// Darken the corners.
	cx, cy := cam.Width/2, cam.Height/2
	reach := math.Hypot(cx, cy)
	if reach == 0 {
		return
	}
	g := gg.NewRadialGradient(cx, cy, reach*0.45, cx, cy, reach)
	g.AddColorStop(0, alpha(colorful.Color{}, 0))
	g.AddColorStop(1, alpha(colorful.Color{}, 0.35))
	dc.SetFillStyle(g)
	dc.DrawRectangle(0, 0, cam.Width, cam.Height)
	dc.Fill()
}

// drawGrid strokes world-aligned lines over the visible world rectangle,
// doubling the spacing until lines are at least minGridPx apart on screen.
func drawGrid(dc *gg.Context, pal *Palette, cam engine.Camera, spacing float64) {
	if spacing <= 0 || cam.K <= 0 {
		return
	}
	for spacing*cam.K < minGridPx {
		spacing *= 2
	}
	minX, minY, maxX, maxY := cam.VisibleWorld()

	dc.SetColor(alpha(pal.Grid, 0.5))
	dc.SetLineWidth(1)
	for x := math.Floor(minX/spacing) * spacing; x <= maxX; x += spacing {
		sx, _ := cam.WorldToScreen(x, 0)
		dc.DrawLine(sx, 0, sx, cam.Height)
	}
	for y := math.Floor(minY/spacing) * spacing; y <= maxY; y += spacing {
		_, sy := cam.WorldToScreen(0, y)
		dc.DrawLine(0, sy, cam.Width, sy)
	}
	dc.Stroke()
}

func drawRelation(dc *gg.Context, pal *Palette, v engine.View, i int) {
	rel := v.Relations[i]
	if rel.Source == rel.Target {
		return
	}
	cam := v.Camera
	src := v.Entities[rel.Source]
	dst := v.Entities[rel.Target]
	x1, y1 := cam.WorldToScreen(src.X, src.Y)
	x2, y2 := cam.WorldToScreen(dst.X, dst.Y)
	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	r1, r2 := src.Radius*cam.K, dst.Radius*cam.K
	if dist <= r1+r2+1 {
		return
	}
	ux, uy := dx/dist, dy/dist

	// Endpoints on the disc boundaries; the line stops short of the arrow tip.
	sx, sy := x1+ux*r1, y1+uy*r1
	tx, ty := x2-ux*(r2+2), y2-uy*(r2+2)

	state := v.RelationStates[i]
	c := pal.ForRelation(state)
	width, opacity := 1.0, 0.45
	switch state {
	case engine.RelationNeighbor:
		width, opacity = 1.8, 0.85
	case engine.RelationFocused:
		width, opacity = 2.6, 1
		dc.SetColor(alpha(c, 0.18))
		dc.SetLineWidth(width * 4)
		dc.DrawLine(sx, sy, tx, ty)
		dc.Stroke()
	}

	dc.SetColor(alpha(c, opacity))
	dc.SetLineWidth(width)
	dc.DrawLine(sx, sy, tx-ux*arrowLen*0.6, ty-uy*arrowLen*0.6)
	dc.Stroke()

	// Arrowhead
	px, py := -uy, ux
	dc.MoveTo(tx, ty)
	dc.LineTo(tx-ux*arrowLen+px*arrowWidth, ty-uy*arrowLen+py*arrowWidth)
	dc.LineTo(tx-ux*arrowLen-px*arrowWidth, ty-uy*arrowLen-py*arrowWidth)
	dc.ClosePath()
	dc.Fill()

	// Flow particles
	pr := 1.6 + width*0.5
	pc := lighten(c, 0.4)
	for _, ph := range rel.Phases {
		fx := sx + (tx-sx)*ph
		fy := sy + (ty-sy)*ph
		// Fade in and out at the ends.
		fade := math.Sin(ph * math.Pi)
		dc.SetColor(alpha(pc, opacity*(0.35+0.65*fade)))
		dc.DrawCircle(fx, fy, pr)
		dc.Fill()
	}
}

func drawEntity(dc *gg.Context, pal *Palette, v engine.View, i int) {
	ent := v.Entities[i]
	cam := v.Camera
	x, y := cam.WorldToScreen(ent.X, ent.Y)
	r := ent.Radius * cam.K
	if x+r*3 < 0 || y+r*3 < 0 || x-r*3 > cam.Width || y-r*3 > cam.Height {
		return
	}

	state := v.EntityStates[i]
	base := pal.ForType(ent.Type)
	t := v.Clock.Seconds()
	accent, emphasised := pal.ForState(state)

	if emphasised {
		drawHalo(dc, accent, state, x, y, r, t)
	}

	// Body: radial gradient lit from the upper left.
	g := gg.NewRadialGradient(x-r*0.35, y-r*0.35, 0, x, y, r)
	g.AddColorStop(0, alpha(lighten(base, 0.35), 1))
	g.AddColorStop(0.7, alpha(base, 1))
	g.AddColorStop(1, alpha(darken(base, 0.25), 1))
	dc.SetFillStyle(g)
	dc.DrawCircle(x, y, r)
	dc.Fill()

	// Outline
	outline, width := darken(base, 0.4), 1.0
	if emphasised {
		outline, width = accent, 1.5
		if state >= engine.StatePinned {
			width = 2.2
		}
	} else if v.Neighbor[i] {
		outline, width = pal.EdgeNeighbor, 1.4
	}
	dc.SetStrokeStyle(gg.NewSolidPattern(alpha(outline, 1)))
	dc.SetLineWidth(width)
	dc.DrawCircle(x, y, r)
	dc.Stroke()

	if state == engine.StatePinned || (ent.Pinned && state > engine.StatePinned) {
		drawPin(dc, pal, x, y, r)
	}
}

// drawHalo draws the glow around an emphasised entity. Its size pulses over
// time; selected and focused entities also get a rotating dashed ring.
func drawHalo(dc *gg.Context, c colorful.Color, state engine.EntityState, x, y, r, t float64) {
	strength := float64(state) / float64(engine.StateFocused)
	pulse := 1 + 0.12*math.Sin(t*2*math.Pi*(0.6+0.4*strength))
	glow := r * (0.35 + 0.5*strength) * pulse

	g := gg.NewRadialGradient(x, y, r, x, y, r+glow)
	g.AddColorStop(0, alpha(c, 0.25+0.35*strength))
	g.AddColorStop(1, alpha(c, 0))
	dc.SetFillStyle(g)
	dc.DrawCircle(x, y, r+glow)
	dc.Fill()

	if state < engine.StateSelected {
		return
	}
	ring := r + 4 + glow*0.3
	dash := math.Max(3, ring*0.35)
	dc.Push()
	dc.SetStrokeStyle(gg.NewSolidPattern(alpha(c, 0.9)))
	dc.SetLineWidth(1.4)
	dc.SetDash(dash, dash*0.6)
	dc.SetDashOffset(t * 24)
	dc.DrawCircle(x, y, ring)
	dc.Stroke()
	dc.Pop()
}

func drawPin(dc *gg.Context, pal *Palette, x, y, r float64) {
	pr := math.Max(2, r*0.18)
	dc.SetColor(alpha(pal.Label, 0.9))
	dc.DrawCircle(x+r*0.7, y-r*0.7, pr)
	dc.Fill()
}

func drawLabel(dc *gg.Context, pal *Palette, spot LabelSpot, dpr float64) {
	x, y := spot.X*dpr, spot.Y*dpr
	w, h := dc.MeasureString(spot.Text)
	pad := 3 * dpr
	dc.SetColor(alpha(pal.Background, 0.7))
	dc.DrawRoundedRectangle(x-w/2-pad, y-dpr, w+2*pad, h+4*dpr, pad)
	dc.Fill()

	c := pal.Label
	if accent, ok := pal.ForState(spot.State); ok && spot.State != engine.StateHovered {
		c = accent
	}
	dc.SetColor(alpha(c, 1))
	dc.DrawStringAnchored(spot.Text, x, y, 0.5, 1)
}
