package engine

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/vanderheijden86/kgview/pkg/model"
	"pgregory.net/rapid"
)

func newTestEngine(t *testing.T, ds model.Dataset, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(7)))}, opts...)
	e := New(DefaultParams(), opts...)
	e.Resize(800, 600, 1)
	e.Rebuild(ds)
	// Spread entities along the x axis so picks never overlap.
	ents := e.State().Entities
	for i := range ents {
		ents[i].X = float64(i-len(ents)/2) * 60
		ents[i].Y = 0
	}
	return e
}

func chain(n int) model.Dataset {
	var ds model.Dataset
	for i := 0; i < n; i++ {
		ds.Entities = append(ds.Entities, model.Entity{
			ID:     string(rune('a' + i)),
			Name:   "node-" + string(rune('a'+i)),
			Type:   "t",
			Weight: float64(i),
		})
		if i > 0 {
			ds.Relations = append(ds.Relations, model.Relation{
				ID:     "r" + string(rune('a'+i)),
				Source: string(rune('a' + i - 1)),
				Target: string(rune('a' + i)),
				Label:  "next",
			})
		}
	}
	return ds
}

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestBuildDropsDanglingRelations(t *testing.T) {
	ds := chain(3)
	ds.Relations = append(ds.Relations,
		model.Relation{ID: "x1", Source: "a", Target: "missing"},
		model.Relation{ID: "x2", Source: "node-a", Target: "node-c"},
	)
	st, rep := Build(ds, DefaultParams(), rand.New(rand.NewSource(1)))

	if rep.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", rep.Dropped)
	}
	if len(st.Relations) != 3 {
		t.Fatalf("relations = %d, want 3", len(st.Relations))
	}
	last := st.Relations[2]
	if last.Source != 0 || last.Target != 2 {
		t.Errorf("name-resolved relation = %d->%d, want 0->2", last.Source, last.Target)
	}
	if st.Alpha != 1 {
		t.Errorf("Alpha = %v, want 1", st.Alpha)
	}
	for _, r := range st.Relations {
		if len(r.Phases) != DefaultParams().FlowParticles {
			t.Errorf("relation %s has %d phases", r.ID, len(r.Phases))
		}
		for _, ph := range r.Phases {
			if ph < 0 || ph >= 1 {
				t.Errorf("phase %v outside [0,1)", ph)
			}
		}
	}
}

func TestBuildRadiusAndPlacement(t *testing.T) {
	p := DefaultParams()
	ds := model.Dataset{Entities: []model.Entity{
		{ID: "1", Name: "zero", Weight: 0},
		{ID: "2", Name: "heavy", Weight: 10},
		{ID: "3", Name: "nan", Weight: math.NaN()},
		{ID: "1", Name: "dup"},
	}}
	st, rep := Build(ds, p, rand.New(rand.NewSource(2)))

	if rep.Duplicate != 1 || len(st.Entities) != 3 {
		t.Fatalf("entities = %d dup = %d", len(st.Entities), rep.Duplicate)
	}
	for _, e := range st.Entities {
		if e.Radius < p.MinRadius {
			t.Errorf("%s radius %v below minimum", e.Name, e.Radius)
		}
		if math.Abs(e.X) > p.InitialSpread/2 || math.Abs(e.Y) > p.InitialSpread/2 {
			t.Errorf("%s placed outside box: (%v,%v)", e.Name, e.X, e.Y)
		}
		if e.Pinned || e.VX != 0 || e.VY != 0 {
			t.Errorf("%s not at rest", e.Name)
		}
	}
	if got := st.Entities[1].Radius; got != 10*p.RadiusScale {
		t.Errorf("heavy radius = %v, want %v", got, 10*p.RadiusScale)
	}
}

// drawDataset draws up to maxEntities entities with random weights and
// random relations, self-loops and dangling endpoints included.
func drawDataset(rt *rapid.T, maxEntities int) model.Dataset {
	n := rapid.IntRange(0, maxEntities).Draw(rt, "entities")
	var ds model.Dataset
	for i := 0; i < n; i++ {
		ds.Entities = append(ds.Entities, model.Entity{
			ID:     fmt.Sprintf("e%d", i),
			Name:   fmt.Sprintf("entity %d", i),
			Type:   "t",
			Weight: rapid.Float64Range(0, 50).Draw(rt, "weight"),
		})
	}
	if n == 0 {
		return ds
	}
	m := rapid.IntRange(0, 2*n).Draw(rt, "relations")
	for i := 0; i < m; i++ {
		src := rapid.IntRange(0, n-1).Draw(rt, "source")
		dst := rapid.IntRange(0, n).Draw(rt, "target")
		ds.Relations = append(ds.Relations, model.Relation{
			ID:     fmt.Sprintf("r%d", i),
			Source: fmt.Sprintf("e%d", src),
			Target: fmt.Sprintf("e%d", dst),
		})
	}
	return ds
}

func TestTickSettlesAndFreezes(t *testing.T) {
	p := DefaultParams()
	rapid.Check(t, func(rt *rapid.T) {
		ds := drawDataset(rt, 40)
		seed := rapid.Int64().Draw(rt, "seed")
		st, _ := Build(ds, p, rand.New(rand.NewSource(seed)))

		allPinned := rapid.Bool().Draw(rt, "allPinned")
		for i := range st.Entities {
			st.Entities[i].Pinned = allPinned || rapid.Bool().Draw(rt, "pinned")
		}
		pinned := make([]Entity, len(st.Entities))
		copy(pinned, st.Entities)

		sv := NewSolver(p)
		ticks := 0
		for sv.Tick(st, nominalFrame, -1) {
			ticks++
			if ticks > 10000 {
				rt.Fatal("solver never froze")
			}
			if st.Alpha < 0 || st.Alpha > 1 {
				rt.Fatalf("alpha %v left [0,1]", st.Alpha)
			}
		}
		if st.Alpha >= p.AlphaMin {
			rt.Fatalf("alpha %v not below threshold", st.Alpha)
		}

		before := make([]Entity, len(st.Entities))
		copy(before, st.Entities)
		for i := 0; i < 50; i++ {
			if sv.Tick(st, 16*time.Millisecond, -1) {
				rt.Fatal("frozen solver reported work")
			}
		}
		for i, e := range st.Entities {
			if e.X != before[i].X || e.Y != before[i].Y {
				rt.Errorf("%s moved after freeze", e.Name)
			}
			if math.IsNaN(e.X) || math.IsNaN(e.Y) || math.IsInf(e.X, 0) || math.IsInf(e.Y, 0) {
				rt.Errorf("%s has non-finite position (%v,%v)", e.Name, e.X, e.Y)
			}
			if e.Pinned && (e.X != pinned[i].X || e.Y != pinned[i].Y) {
				rt.Errorf("pinned %s moved", e.Name)
			}
		}
	})
}

func TestTickPinnedAndDraggedStayPut(t *testing.T) {
	st, _ := Build(chain(4), DefaultParams(), rand.New(rand.NewSource(4)))
	st.Entities[0].Pinned = true
	st.Entities[1].VX = 5
	x0, y0 := st.Entities[0].X, st.Entities[0].Y
	x1, y1 := st.Entities[1].X, st.Entities[1].Y
	x2 := st.Entities[2].X

	sv := NewSolver(DefaultParams())
	for i := 0; i < 20; i++ {
		sv.Tick(st, nominalFrame, 1)
	}

	if st.Entities[0].X != x0 || st.Entities[0].Y != y0 {
		t.Error("pinned entity moved")
	}
	if st.Entities[1].X != x1 || st.Entities[1].Y != y1 || st.Entities[1].VX != 0 {
		t.Error("dragged entity moved or kept velocity")
	}
	if st.Entities[2].X == x2 {
		t.Error("free entity did not move")
	}
}

func TestTickDegenerateInputs(t *testing.T) {
	sv := NewSolver(DefaultParams())

	empty := &State{Alpha: 1}
	if !sv.Tick(empty, nominalFrame, -1) {
		t.Error("empty state should still integrate")
	}

	ds := model.Dataset{
		Entities:  []model.Entity{{ID: "a", Name: "a"}, {ID: "b", Name: "b"}},
		Relations: []model.Relation{{ID: "self", Source: "a", Target: "a"}},
	}
	st, _ := Build(ds, DefaultParams(), rand.New(rand.NewSource(5)))
	st.Entities[1].X, st.Entities[1].Y = st.Entities[0].X, st.Entities[0].Y
	for i := 0; i < 50; i++ {
		sv.Tick(st, 10*time.Second, -1)
	}
	for _, e := range st.Entities {
		if math.IsNaN(e.X) || math.IsNaN(e.Y) || math.IsInf(e.X, 0) {
			t.Fatalf("%s position not finite: (%v,%v)", e.Name, e.X, e.Y)
		}
	}
}

func TestClampStep(t *testing.T) {
	max := 50 * time.Millisecond
	tests := []struct {
		in, want time.Duration
	}{
		{0, nominalFrame},
		{-time.Second, nominalFrame},
		{10 * time.Millisecond, 10 * time.Millisecond},
		{2 * time.Second, max},
	}
	for _, tt := range tests {
		if got := clampStep(tt.in, max); got != tt.want {
			t.Errorf("clampStep(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestZoomAtPointPreservesWorldPoint(t *testing.T) {
	p := DefaultParams()
	rapid.Check(t, func(rt *rapid.T) {
		c := NewCamera(p)
		c.Resize(800, 600, 1)
		c.K = rapid.Float64Range(p.KMin, p.KMax).Draw(rt, "k")
		c.X = rapid.Float64Range(-2000, 2000).Draw(rt, "x")
		c.Y = rapid.Float64Range(-2000, 2000).Draw(rt, "y")
		c.TX, c.TY, c.TK = c.X, c.Y, c.K
		sx := rapid.Float64Range(0, 800).Draw(rt, "sx")
		sy := rapid.Float64Range(0, 600).Draw(rt, "sy")
		f := rapid.Float64Range(0.25, 4).Draw(rt, "factor")

		wx, wy := c.ScreenToWorld(sx, sy)
		c.ZoomAtPoint(sx, sy, f)
		if c.TK < p.KMin || c.TK > p.KMax {
			rt.Fatalf("target zoom %v out of range", c.TK)
		}
		c.Snap()
		ax, ay := c.ScreenToWorld(sx, sy)
		if !near(wx, ax, 1e-6) || !near(wy, ay, 1e-6) {
			rt.Fatalf("world point moved: (%v,%v) -> (%v,%v)", wx, wy, ax, ay)
		}
	})
}

func TestCameraAdvanceConverges(t *testing.T) {
	c := NewCamera(DefaultParams())
	c.Resize(400, 400, 2)
	c.TX, c.TY, c.TK = 10, -30, 2.5

	steps := 0
	for c.Advance() {
		steps++
		if steps > 1000 {
			t.Fatal("camera never converged")
		}
	}
	if c.X != 10 || c.Y != -30 || c.K != 2.5 {
		t.Errorf("camera = (%v,%v,%v), want target", c.X, c.Y, c.K)
	}

	c.SetZoom(100)
	if c.TK != DefaultParams().KMax {
		t.Errorf("SetZoom not clamped: %v", c.TK)
	}
}

func TestResizeCentresOnlyOnFirstLayout(t *testing.T) {
	c := NewCamera(DefaultParams())
	c.Resize(0, 0, 1)
	if c.X != 0 {
		t.Fatal("zero-size layout should not centre")
	}
	c.Resize(800, 600, 2)
	if c.X != 400 || c.Y != 300 {
		t.Fatalf("first layout pan = (%v,%v)", c.X, c.Y)
	}
	c.Pan(10, 10)
	c.Resize(1000, 1000, 2)
	if c.X != 410 || c.Y != 310 {
		t.Errorf("resize moved pan to (%v,%v)", c.X, c.Y)
	}
	if c.DPR != 2 || c.Width != 1000 {
		t.Errorf("viewport not updated")
	}
}

func TestFitToBoundsFormula(t *testing.T) {
	p := DefaultParams()
	rapid.Check(t, func(rt *rapid.T) {
		ds := drawDataset(rt, 40)
		w := rapid.Float64Range(1, 4000).Draw(rt, "width")
		h := rapid.Float64Range(1, 4000).Draw(rt, "height")
		dpr := rapid.Float64Range(1, 3).Draw(rt, "dpr")

		e := New(p, WithRand(rand.New(rand.NewSource(5))))
		e.Resize(w, h, dpr)
		e.Rebuild(ds)
		ents := e.State().Entities
		for i := range ents {
			ents[i].X = rapid.Float64Range(-5000, 5000).Draw(rt, "x")
			ents[i].Y = rapid.Float64Range(-5000, 5000).Draw(rt, "y")
		}

		minX, minY, maxX, maxY, ok := e.State().Bounds()
		if !ok {
			if e.FitToBounds() {
				rt.Fatal("fit on empty graph should report false")
			}
			return
		}
		if !e.FitToBounds() {
			rt.Fatal("FitToBounds failed")
		}
		boxW := maxX - minX + 2*p.FitMargin
		boxH := maxY - minY + 2*p.FitMargin
		want := math.Max(p.KMin, math.Min(p.KMax, math.Min(w/boxW, h/boxH)))

		cam := e.Camera()
		if !near(cam.TK, want, 1e-12) {
			rt.Errorf("TK = %v, want %v", cam.TK, want)
		}
		cx, cy := (minX+maxX)/2, (minY+maxY)/2
		if !near(cam.TX, w/2-cx*want, 1e-6) || !near(cam.TY, h/2-cy*want, 1e-6) {
			rt.Errorf("box not centred: TX=%v TY=%v", cam.TX, cam.TY)
		}
	})
}

func TestPickCentreAndMiss(t *testing.T) {
	p := DefaultParams()
	rapid.Check(t, func(rt *rapid.T) {
		ents := []Entity{{
			ID:     "a",
			X:      rapid.Float64Range(-500, 500).Draw(rt, "wx"),
			Y:      rapid.Float64Range(-500, 500).Draw(rt, "wy"),
			Radius: rapid.Float64Range(p.MinRadius, 60).Draw(rt, "r"),
		}}
		c := NewCamera(p)
		c.Resize(800, 600, 1)
		c.K = rapid.Float64Range(p.KMin, p.KMax).Draw(rt, "k")
		c.X = rapid.Float64Range(-1000, 1000).Draw(rt, "px")
		c.Y = rapid.Float64Range(-1000, 1000).Draw(rt, "py")

		sx, sy := c.WorldToScreen(ents[0].X, ents[0].Y)
		if got := Pick(ents, &c, sx, sy, p.HitPadding); got != 0 {
			rt.Fatalf("centre pick = %d, want 0", got)
		}

		angle := rapid.Float64Range(0, 2*math.Pi).Draw(rt, "angle")
		dist := ents[0].Radius + p.HitPadding/c.K + 1e-3
		mx, my := ents[0].X+dist*math.Cos(angle), ents[0].Y+dist*math.Sin(angle)
		sx, sy = c.WorldToScreen(mx, my)
		if got := Pick(ents, &c, sx, sy, p.HitPadding); got != -1 {
			rt.Fatalf("pick outside hit area = %d, want -1", got)
		}
	})
}

func TestPickPrefersTopmost(t *testing.T) {
	c := NewCamera(DefaultParams())
	ents := []Entity{
		{ID: "bottom", Radius: 20},
		{ID: "top", Radius: 20, X: 5},
	}
	if got := Pick(ents, &c, 2, 0, 0); got != 1 {
		t.Errorf("Pick = %d, want topmost 1", got)
	}
}

func screenOf(e *Engine, i int) (float64, float64) {
	ent := e.State().Entities[i]
	cam := e.Camera()
	return cam.WorldToScreen(ent.X, ent.Y)
}

func TestDragPinsAndStaysPinned(t *testing.T) {
	e := newTestEngine(t, chain(3))
	e.State().Entities[1].VX = 9
	e.State().Entities[1].VY = -9
	sx, sy := screenOf(e, 1)

	e.PointerDown(sx, sy)
	if m, ok := e.Mode().(DraggingNode); !ok || m.Index != 1 {
		t.Fatalf("mode = %v, want dragging 1", e.Mode())
	}
	ent := e.State().Entities[1]
	if !ent.Pinned || ent.VX != 0 || ent.VY != 0 {
		t.Fatalf("drag start: pinned=%v v=(%v,%v)", ent.Pinned, ent.VX, ent.VY)
	}
	if sel, ok := e.Selected(); !ok || sel.ID != "b" {
		t.Errorf("selected = %+v", sel)
	}
	if nb := e.Neighbors(); len(nb) != 2 {
		t.Errorf("neighbors = %d, want 2", len(nb))
	}

	e.PointerMove(sx+40, sy+20)
	cam := e.Camera()
	wx, wy := cam.ScreenToWorld(sx+40, sy+20)
	ent = e.State().Entities[1]
	if !near(ent.X, wx, 1e-9) || !near(ent.Y, wy, 1e-9) {
		t.Errorf("dragged entity at (%v,%v), want (%v,%v)", ent.X, ent.Y, wx, wy)
	}

	e.PointerUp(sx+40, sy+20)
	if _, ok := e.Mode().(Idle); !ok {
		t.Errorf("mode after up = %v", e.Mode())
	}
	if !e.State().Entities[1].Pinned {
		t.Error("pin cleared on release")
	}

	if !e.UnpinSelected() || e.State().Entities[1].Pinned {
		t.Error("UnpinSelected did not release the pin")
	}
}

func TestPanOnEmptySpace(t *testing.T) {
	e := newTestEngine(t, model.Dataset{Entities: []model.Entity{{ID: "a", Name: "a"}}})
	e.Select("a")

	e.PointerDown(10, 10)
	m, ok := e.Mode().(PanningCamera)
	if !ok {
		t.Fatalf("mode = %v, want panning", e.Mode())
	}
	if _, sel := e.Selected(); sel {
		t.Error("selection not cleared")
	}

	e.PointerMove(30, 5)
	cam := e.Camera()
	if cam.TX != m.PanX+20 || cam.TY != m.PanY-5 || cam.X != cam.TX {
		t.Errorf("pan = (%v,%v) target (%v,%v)", cam.X, cam.Y, cam.TX, cam.TY)
	}

	// A second pointer-down mid-gesture must not start a drag.
	sx, sy := screenOf(e, 0)
	e.PointerDown(sx, sy)
	if _, ok := e.Mode().(PanningCamera); !ok {
		t.Error("gesture switched while panning")
	}
	e.PointerUp(0, 0)
	if _, ok := e.Mode().(Idle); !ok {
		t.Error("not idle after release")
	}
}

func TestBatchModeToggles(t *testing.T) {
	e := newTestEngine(t, chain(3))
	e.ToggleBatchMode()
	sx, sy := screenOf(e, 2)

	e.PointerDown(sx, sy)
	e.PointerUp(sx, sy)
	if got := e.BatchSelection(); len(got) != 1 || got[0] != "c" {
		t.Fatalf("batch = %v", got)
	}
	if e.State().Entities[2].Pinned {
		t.Error("batch click pinned the entity")
	}
	if _, ok := e.Mode().(Idle); !ok {
		t.Error("batch click changed mode")
	}

	e.PointerDown(sx, sy)
	if len(e.BatchSelection()) != 0 {
		t.Error("second click did not toggle off")
	}

	e.PointerDown(-5000, -5000)
	if _, ok := e.Mode().(Idle); !ok {
		t.Error("batch miss should be a no-op")
	}

	e.PointerDown(sx, sy)
	e.ToggleBatchMode()
	if len(e.BatchSelection()) != 0 {
		t.Error("leaving batch mode kept the set")
	}
}

func TestWheelKeepsMode(t *testing.T) {
	e := newTestEngine(t, chain(2))
	e.PointerDown(-9000, -9000)
	before := e.Camera().TK
	e.Wheel(100, 100, -1)
	if e.Camera().TK <= before {
		t.Error("wheel up did not zoom in")
	}
	if _, ok := e.Mode().(PanningCamera); !ok {
		t.Error("wheel changed mode")
	}
}

func TestFocusOnEntitiesTargetsMidpoint(t *testing.T) {
	e := newTestEngine(t, chain(3))
	e.Settle(5000)
	alpha := e.State().Alpha

	a := e.State().Entities[0]
	b := e.State().Entities[2]
	if !e.FocusOnEntities("node-a", "node-c") {
		t.Fatal("focus failed")
	}
	cam := e.Camera()
	mx, my := (a.X+b.X)/2, (a.Y+b.Y)/2
	if !near(cam.TX, 400-mx*cam.TK, 1e-9) || !near(cam.TY, 300-my*cam.TK, 1e-9) {
		t.Errorf("target pan = (%v,%v)", cam.TX, cam.TY)
	}
	if e.State().Alpha <= alpha {
		t.Error("focus did not nudge alpha")
	}

	if !e.FocusOnEntities("node-b", "nobody") {
		t.Error("single resolved name should still focus")
	}
	if e.FocusOnEntities("nobody") {
		t.Error("no resolved names should report false")
	}
}

func TestFocusRequestHighlightsRelation(t *testing.T) {
	e := newTestEngine(t, model.Fallback())
	ok := e.Focus(model.FocusRequest{SourceName: "国务院", TargetName: "十四五规划", RelationLabel: "发布"})
	if !ok {
		t.Fatal("focus failed")
	}
	v := e.View()
	focusedRel := 0
	for i, rs := range v.RelationStates {
		if rs == RelationFocused {
			focusedRel++
			if v.Relations[i].Label != "发布" {
				t.Errorf("focused relation label = %q", v.Relations[i].Label)
			}
		}
	}
	if focusedRel != 1 {
		t.Errorf("focused relations = %d, want 1", focusedRel)
	}
	i, _ := e.State().LookupName("国务院")
	if v.EntityStates[i] != StateFocused {
		t.Errorf("endpoint state = %v", v.EntityStates[i])
	}

	e.ClearFocus()
	if e.Projection().Focused != "" {
		t.Error("focus not cleared")
	}
}

func TestViewPriority(t *testing.T) {
	e := newTestEngine(t, chain(4))
	e.SetSearch("node-a")
	e.Select("b")
	e.State().Entities[2].Pinned = true
	e.ToggleBatchMode()
	e.batch["a"] = true
	e.batch["d"] = true

	v := e.View()
	want := []EntityState{StateSearchHit, StateSelected, StatePinned, StateBatch}
	for i, w := range want {
		if v.EntityStates[i] != w {
			t.Errorf("entity %d state = %v, want %v", i, v.EntityStates[i], w)
		}
	}
	if v.RelationStates[0] != RelationNeighbor || v.RelationStates[2] != RelationDefault {
		t.Errorf("relation states = %v", v.RelationStates)
	}
}

func TestRebuildCarriesSelectionAndCancelsDrag(t *testing.T) {
	e := newTestEngine(t, chain(3))
	sx, sy := screenOf(e, 1)
	e.PointerDown(sx, sy)

	ds := chain(3)
	ds.Entities = ds.Entities[1:]
	ds.Relations = ds.Relations[1:]
	rep := e.Rebuild(ds)

	if rep.Entities != 2 || rep.Relations != 1 {
		t.Errorf("report = %+v", rep)
	}
	if _, ok := e.Mode().(Idle); !ok {
		t.Error("rebuild left a gesture active")
	}
	if sel, ok := e.Selected(); !ok || sel.ID != "b" {
		t.Errorf("selection not carried: %+v", sel)
	}
	if e.State().Alpha != 1 {
		t.Error("alpha not reset")
	}
}

func TestStepAdvancesFlowPhases(t *testing.T) {
	e := newTestEngine(t, chain(2))
	before := e.State().Relations[0].Phases[0]
	e.Step(40 * time.Millisecond)
	after := e.State().Relations[0].Phases[0]
	want := math.Mod(before+DefaultParams().FlowSpeed*0.04, 1)
	if !near(after, want, 1e-12) {
		t.Errorf("phase = %v, want %v", after, want)
	}
	e.Step(time.Hour)
	if got := e.View().Clock; got != 90*time.Millisecond {
		t.Errorf("clock = %v, want stalled frame clamped", got)
	}
}

func TestFlowPhasesStayInRange(t *testing.T) {
	p := DefaultParams()
	p.FlowSpeed = -0.35
	e := New(p, WithRand(rand.New(rand.NewSource(2))))
	e.Rebuild(chain(4))
	for i := 0; i < 30; i++ {
		e.Step(33 * time.Millisecond)
	}
	for _, r := range e.State().Relations {
		for _, ph := range r.Phases {
			if ph < 0 || ph >= 1 {
				t.Errorf("%s phase %v outside [0,1)", r.ID, ph)
			}
		}
	}

	p = DefaultParams()
	p.FlowParticles = -1
	st, _ := Build(chain(3), p, rand.New(rand.NewSource(1)))
	for _, r := range st.Relations {
		if len(r.Phases) != 0 {
			t.Errorf("%s has %d phases", r.ID, len(r.Phases))
		}
	}
}

func TestAlphaNeverExceedsOne(t *testing.T) {
	p := DefaultParams()
	p.AlphaDecay = 1.5
	st, _ := Build(chain(3), p, rand.New(rand.NewSource(1)))
	sv := NewSolver(p)
	for i := 0; i < 20; i++ {
		sv.Tick(st, nominalFrame, -1)
	}
	if st.Alpha > 1 {
		t.Errorf("alpha = %v", st.Alpha)
	}
}

func TestProjectionThrottle(t *testing.T) {
	now := time.Unix(0, 0)
	var got []Projection
	e := newTestEngine(t, chain(3),
		WithListener(func(p Projection) { got = append(got, p) }, 100*time.Millisecond),
		WithClock(func() time.Time { return now }),
	)

	e.Step(nominalFrame)
	if len(got) != 1 {
		t.Fatalf("initial projection count = %d", len(got))
	}

	e.Select("a")
	now = now.Add(10 * time.Millisecond)
	e.Step(nominalFrame)
	if len(got) != 1 {
		t.Fatal("projection delivered inside throttle window")
	}

	now = now.Add(200 * time.Millisecond)
	e.Step(nominalFrame)
	if len(got) != 2 || got[1].Selected != "a" {
		t.Fatalf("pending projection not flushed: %+v", got)
	}

	now = now.Add(time.Second)
	e.Step(nominalFrame)
	if len(got) != 2 {
		t.Error("unchanged projection re-sent")
	}
}

func TestCloseCancelsGesture(t *testing.T) {
	e := newTestEngine(t, chain(2))
	sx, sy := screenOf(e, 0)
	e.PointerDown(sx, sy)
	e.Close()

	if _, ok := e.Mode().(Idle); !ok {
		t.Error("close left drag active")
	}
	x := e.State().Entities[1].X
	e.Step(nominalFrame)
	e.PointerDown(sx, sy)
	if e.State().Entities[1].X != x {
		t.Error("closed engine still stepping")
	}
}

func TestFallbackDeleteScenario(t *testing.T) {
	ds := model.Fallback()
	e := newTestEngine(t, ds)
	e.Settle(5000)

	matches := ds.FindByName("国务院")
	if len(matches) != 1 || matches[0].Type != "组织" {
		t.Fatalf("lookup = %+v", matches)
	}
	i, ok := e.State().LookupName("国务院")
	if !ok || e.State().Entities[i].Type != "组织" {
		t.Fatal("engine lookup failed")
	}

	deleted := map[string]bool{matches[0].ID: true}
	var kept model.Dataset
	for _, ent := range ds.Entities {
		if !deleted[ent.ID] {
			kept.Entities = append(kept.Entities, ent)
		}
	}
	kept.Relations = ds.Relations

	rep := e.Rebuild(kept)
	if rep.Entities != 15 || rep.Relations != 15 || rep.Dropped != 2 {
		t.Errorf("after delete: %+v", rep)
	}
	for _, r := range e.State().Relations {
		if r.Source >= rep.Entities || r.Target >= rep.Entities {
			t.Errorf("relation %s references a missing entity", r.ID)
		}
	}
}
