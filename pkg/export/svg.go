package export

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	svg "github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/vanderheijden86/kgview/pkg/engine"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/render"
)

const svgFont = "font-family:'Noto Sans CJK SC','PingFang SC','Microsoft YaHei',system-ui,sans-serif"

// WriteSVG lays ds out and writes it as an SVG drawing. Text stays text, so
// CJK names render with whatever fonts the viewer has.
func WriteSVG(ctx context.Context, ds model.Dataset, w io.Writer, opts Options) error {
	opts = opts.withDefaults()
	e, report, err := Layout(ctx, ds, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	v := e.View()
	pal := opts.Render.Palette
	width, height := opts.Width, opts.Height

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Title(opts.Title)

	canvas.Def()
	canvas.RadialGradient("bgGrad", 50, 50, 75, 50, 50, []svg.Offcolor{
		{Offset: 0, Color: pal.Background.BlendLab(pal.Grid, 0.5).Hex(), Opacity: 1},
		{Offset: 100, Color: pal.Background.Hex(), Opacity: 1},
	})
	canvas.Filter("glow")
	canvas.FeGaussianBlur(svg.Filterspec{In: "SourceGraphic", Result: "blur"}, 6, 6)
	canvas.FeMerge([]string{"blur", "SourceGraphic"})
	canvas.Fend()
	types := make(map[string]string)
	for _, ent := range v.Entities {
		if _, ok := types[ent.Type]; ok {
			continue
		}
		id := fmt.Sprintf("type%d", len(types))
		types[ent.Type] = id
		base := pal.ForType(ent.Type)
		canvas.RadialGradient(id, 35, 35, 65, 35, 35, []svg.Offcolor{
			{Offset: 0, Color: base.BlendLab(colorful.Color{R: 1, G: 1, B: 1}, 0.35).Hex(), Opacity: 1},
			{Offset: 100, Color: base.Hex(), Opacity: 1},
		})
	}
	canvas.DefEnd()

	canvas.Rect(0, 0, width, height, "fill:url(#bgGrad)")

	cam := v.Camera
	for i := range v.Relations {
		drawRelationSVG(canvas, pal, cam, v.Entities, v.Relations[i])
	}
	for i := range v.Entities {
		drawEntitySVG(canvas, pal, cam, v.Entities[i], types[v.Entities[i].Type])
	}

	drawHeaderSVG(canvas, pal, opts.Title, report)
	canvas.End()
	return nil
}

// SaveSVG writes the SVG drawing to path.
func SaveSVG(ctx context.Context, ds model.Dataset, path string, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteSVG(ctx, ds, f, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func drawRelationSVG(canvas *svg.SVG, pal *render.Palette, cam engine.Camera, ents []engine.Entity, r engine.Relation) {
	if r.Source == r.Target {
		return
	}
	from, to := ents[r.Source], ents[r.Target]
	x1, y1 := cam.WorldToScreen(from.X, from.Y)
	x2, y2 := cam.WorldToScreen(to.X, to.Y)
	dx, dy := x2-x1, y2-y1
	dist := math.Hypot(dx, dy)
	if dist == 0 {
		return
	}
	ux, uy := dx/dist, dy/dist

	// Stop the line at the target's rim so the arrowhead stays visible.
	tr := to.Radius * cam.K
	ax, ay := x2-ux*(tr+2), y2-uy*(tr+2)
	col := pal.Edge.Hex()
	canvas.Line(int(x1), int(y1), int(ax), int(ay),
		fmt.Sprintf("stroke:%s;stroke-width:1.5;stroke-opacity:0.7", col))

	const arrowLen, arrowWidth = 9.0, 4.0
	px, py := -uy, ux
	canvas.Polygon(
		[]int{int(ax), int(ax - ux*arrowLen + px*arrowWidth), int(ax - ux*arrowLen - px*arrowWidth)},
		[]int{int(ay), int(ay - uy*arrowLen + py*arrowWidth), int(ay - uy*arrowLen - py*arrowWidth)},
		fmt.Sprintf("fill:%s;fill-opacity:0.8", col),
	)

	if r.Label != "" {
		mx, my := (x1+x2)/2, (y1+y2)/2
		canvas.Text(int(mx), int(my)-3, r.Label,
			fmt.Sprintf("fill:%s;fill-opacity:0.75;font-size:10px;%s;text-anchor:middle", pal.Label.Hex(), svgFont))
	}
}

func drawEntitySVG(canvas *svg.SVG, pal *render.Palette, cam engine.Camera, ent engine.Entity, gradID string) {
	x, y := cam.WorldToScreen(ent.X, ent.Y)
	r := max(2, int(math.Round(ent.Radius*cam.K)))
	base := pal.ForType(ent.Type)

	canvas.Circle(int(x), int(y), r+4, fmt.Sprintf("fill:%s;fill-opacity:0.25;filter:url(#glow)", base.Hex()))
	canvas.Circle(int(x), int(y), r, fmt.Sprintf("fill:url(#%s);stroke:%s;stroke-width:1.5", gradID, base.BlendLab(pal.Background, 0.4).Hex()))
	if ent.Pinned {
		canvas.Circle(int(x), int(y)-r, 3, fmt.Sprintf("fill:%s", pal.Pinned.Hex()))
	}
	canvas.Text(int(x), int(y)+r+14, ent.Name,
		fmt.Sprintf("fill:%s;font-size:12px;%s;text-anchor:middle", pal.Label.Hex(), svgFont))
}

func drawHeaderSVG(canvas *svg.SVG, pal *render.Palette, title string, report engine.BuildReport) {
	canvas.Roundrect(16, 12, 300, 58, 10, 10,
		fmt.Sprintf("fill:%s;fill-opacity:0.85;stroke:%s;stroke-opacity:0.4", pal.Background.Hex(), pal.Selected.Hex()))
	canvas.Text(30, 36, title,
		fmt.Sprintf("fill:%s;font-size:16px;font-weight:600;%s", pal.Label.Hex(), svgFont))
	stats := fmt.Sprintf("%d entities · %d relations", report.Entities, report.Relations)
	if report.Dropped > 0 {
		stats += fmt.Sprintf(" · %d dropped", report.Dropped)
	}
	canvas.Text(30, 56, stats,
		fmt.Sprintf("fill:%s;fill-opacity:0.7;font-size:12px;%s", pal.Label.Hex(), svgFont))
}
