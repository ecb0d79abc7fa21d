package render

import (
	"bytes"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
	"time"

	"github.com/vanderheijden86/kgview/pkg/engine"
	"github.com/vanderheijden86/kgview/pkg/model"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(engine.DefaultParams(), engine.WithRand(rand.New(rand.NewSource(1))))
	e.Resize(320, 240, 1)
	e.Rebuild(model.Dataset{
		Entities: []model.Entity{
			{ID: "a", Name: "alpha", Type: "组织", Weight: 5},
			{ID: "b", Name: "beta", Type: "unknown-type", Weight: 2},
		},
		Relations: []model.Relation{{ID: "r", Source: "a", Target: "b", Label: "links"}},
	})
	ents := e.State().Entities
	ents[0].X, ents[0].Y = -60, 0
	ents[1].X, ents[1].Y = 60, 0
	return e
}

func colorDistance(a, b color.Color) int {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) int {
		if x > y {
			return int(x-y) >> 8
		}
		return int(y-x) >> 8
	}
	return d(ar, br) + d(ag, bg) + d(ab, bb)
}

func TestDrawSurfaceTracksDPR(t *testing.T) {
	r, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	e := testEngine(t)
	e.Resize(320, 240, 2)

	f := r.Draw(e.View())
	if f.Width != 640 || f.Height != 480 {
		t.Fatalf("frame = %dx%d, want 640x480", f.Width, f.Height)
	}
	if b := f.Image.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
		t.Errorf("image bounds = %v", b)
	}
}

func TestDrawPaintsBackgroundAndEntities(t *testing.T) {
	r, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	e := testEngine(t)
	f := r.Draw(e.View())
	bg := alpha(r.Palette().Background, 1)

	// Halfway between the centre and the top edge, away from both discs and
	// inside the vignette's clear zone.
	if d := colorDistance(f.Image.At(170, 40), bg); d > 30 {
		t.Errorf("background pixel distance = %d", d)
	}

	cam := e.Camera()
	sx, sy := cam.WorldToScreen(-60, 0)
	if d := colorDistance(f.Image.At(int(sx), int(sy)), bg); d < 60 {
		t.Errorf("entity centre looks like background (distance %d)", d)
	}
}

func TestDrawDoesNotMutateView(t *testing.T) {
	r, _ := New(Options{})
	e := testEngine(t)
	before := append([]engine.Entity(nil), e.State().Entities...)
	phases := append([]float64(nil), e.State().Relations[0].Phases...)

	r.Draw(e.View())
	r.Draw(e.View())

	for i, ent := range e.State().Entities {
		if ent != before[i] {
			t.Errorf("entity %d changed by Draw", i)
		}
	}
	for i, ph := range e.State().Relations[0].Phases {
		if ph != phases[i] {
			t.Errorf("phase %d changed by Draw", i)
		}
	}
}

func TestFrameAdvancesEngine(t *testing.T) {
	r, _ := New(Options{})
	e := testEngine(t)
	ph := e.State().Relations[0].Phases[0]
	r.Frame(e, 30*time.Millisecond)
	if e.State().Relations[0].Phases[0] == ph {
		t.Error("Frame did not advance flow phases")
	}
	if e.View().Clock != 30*time.Millisecond {
		t.Errorf("clock = %v", e.View().Clock)
	}
}

func TestLabelSpots(t *testing.T) {
	r, _ := New(Options{LabelZoom: 2})
	e := testEngine(t)

	if got := r.Draw(e.View()).Labels; len(got) != 0 {
		t.Errorf("labels below zoom threshold = %v", got)
	}

	e.Select("a")
	got := r.Draw(e.View()).Labels
	// Selection labels the entity and its neighbour.
	if len(got) != 2 {
		t.Fatalf("labels = %+v, want 2", got)
	}
	if got[0].Text != "alpha" || got[0].State != engine.StateSelected {
		t.Errorf("first label = %+v", got[0])
	}

	e.Select("")
	e.ZoomByFactor(2.5)
	e.SnapCamera()
	if got := r.Draw(e.View()).Labels; len(got) != 2 {
		t.Errorf("labels at high zoom = %d, want 2", len(got))
	}
}

func TestRasterLabelsAndPNG(t *testing.T) {
	r, err := New(Options{RasterLabels: true})
	if err != nil {
		t.Fatal(err)
	}
	e := testEngine(t)
	f := r.Draw(e.View())
	if f.Labels != nil {
		t.Error("raster labels should not be returned as spots")
	}

	var buf bytes.Buffer
	if err := f.EncodePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 320 {
		t.Errorf("png width = %d", img.Bounds().Dx())
	}
}

func TestNewRejectsMissingFont(t *testing.T) {
	if _, err := New(Options{RasterLabels: true, FontPath: "/does/not/exist.ttf"}); err == nil {
		t.Error("expected error for missing font")
	}
}

func TestDownsample(t *testing.T) {
	r, _ := New(Options{})
	e := testEngine(t)
	f := r.Draw(e.View())
	small := Downsample(f.Image, 40, 30)
	if b := small.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("downsampled bounds = %v", b)
	}
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()
	if err := p.Override(map[string]string{"person": "#ff0000"}); err != nil {
		t.Fatal(err)
	}
	if r, g, b := p.ForType("person").RGB255(); r != 255 || g != 0 || b != 0 {
		t.Errorf("override = %d,%d,%d", r, g, b)
	}
	if err := p.SetType("x", "not-a-colour"); err == nil {
		t.Error("expected error for bad hex")
	}
	if p.ForType("mystery") != p.ForType("mystery") {
		t.Error("hash colour not stable")
	}
	if _, ok := p.ForState(engine.StateDefault); ok {
		t.Error("default state should have no accent")
	}
	if c, ok := p.ForState(engine.StateFocused); !ok || c != p.Focused {
		t.Error("focused accent wrong")
	}
}
