package engine

import (
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"github.com/vanderheijden86/kgview/pkg/model"
	"golang.org/x/time/rate"
)

// Engine owns the simulation state, camera and interaction state. It is not
// safe for concurrent use: the host calls it from a single goroutine, once
// per frame for Step and in between frames for input.
type Engine struct {
	params Params
	state  *State
	solver *Solver
	cam    Camera
	rng    *rand.Rand

	mode      Mode
	batchMode bool
	batch     map[string]bool
	sel       int
	hovered   int
	query     string
	hits      map[int]bool
	focus     focusState
	clock     time.Duration
	closed    bool

	listener func(Projection)
	limiter  *rate.Limiter
	now      func() time.Time
	version  uint64
	emitted  uint64

	entityStates   []EntityState
	relationStates []RelationState
}

type focusState struct {
	req      model.FocusRequest
	ends     []int
	relation int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for initial placement.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithListener registers fn to receive projections of selection and
// highlight changes. Calls are throttled to at most one per interval.
func WithListener(fn func(Projection), interval time.Duration) Option {
	return func(e *Engine) {
		e.listener = fn
		if interval > 0 {
			e.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithClock replaces the wall clock used for listener throttling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine with an empty graph.
func New(p Params, opts ...Option) *Engine {
	p = p.WithDefaults()
	e := &Engine{
		params:  p,
		state:   &State{},
		solver:  NewSolver(p),
		cam:     NewCamera(p),
		mode:    Idle{},
		batch:   make(map[string]bool),
		hits:    make(map[int]bool),
		sel:     -1,
		hovered: -1,
		now:     time.Now,
		focus:   focusState{relation: -1},
	}
	e.state.index()
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.listener != nil && e.limiter == nil {
		e.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return e
}

// Params returns the engine tuning.
func (e *Engine) Params() Params {
	return e.params
}

// State exposes the arena for read-only use by renderers and tests.
func (e *Engine) State() *State {
	return e.state
}

// Camera returns a copy of the camera.
func (e *Engine) Camera() Camera {
	return e.cam
}

// Rebuild replaces the graph with a fresh state built from ds. Positions are
// re-randomised and alpha resets to 1. Selection, batch membership, search
// and focus are carried over by entity ID where the entity still exists;
// any gesture in progress is cancelled.
func (e *Engine) Rebuild(ds model.Dataset) BuildReport {
	var selID string
	if e.sel >= 0 {
		selID = e.state.Entities[e.sel].ID
	}

	st, rep := Build(ds, e.params, e.rng)
	e.state = st
	e.mode = Idle{}
	e.hovered = -1
	e.sel = -1
	if i, ok := st.byID[selID]; ok && selID != "" {
		e.sel = i
	}
	for id := range e.batch {
		if _, ok := st.byID[id]; !ok {
			delete(e.batch, id)
		}
	}
	e.applySearch()
	e.resolveFocus()
	e.touch()
	return rep
}

// Tick runs one solver step without advancing the camera or the flow
// animation.
func (e *Engine) Tick(dt time.Duration) bool {
	if e.closed {
		return false
	}
	return e.solver.Tick(e.state, dt, e.dragged())
}

// Step is the per-frame update: solver tick, camera smoothing and flow
// particle advance. It also delivers a pending projection to the listener
// when the throttle allows.
func (e *Engine) Step(dt time.Duration) {
	if e.closed {
		return
	}
	dt = clampStep(dt, e.params.MaxStep)
	e.solver.Tick(e.state, dt, e.dragged())
	e.cam.Advance()

	adv := e.params.FlowSpeed * dt.Seconds()
	for i := range e.state.Relations {
		ph := e.state.Relations[i].Phases
		for k := range ph {
			ph[k] = wrapPhase(ph[k] + adv)
		}
	}
	e.clock += dt
	e.flush()
}

// Settle ticks the solver until alpha freezes or maxTicks is reached and
// returns the number of ticks run.
func (e *Engine) Settle(maxTicks int) int {
	n := 0
	for n < maxTicks && e.Tick(nominalFrame) {
		n++
	}
	return n
}

// Settled reports whether the solver is frozen.
func (e *Engine) Settled() bool {
	return e.state.Alpha < e.params.AlphaMin
}

// Close tears the engine down: the gesture is cancelled, the listener is
// dropped and further frames and input are ignored.
func (e *Engine) Close() {
	e.Cancel()
	e.listener = nil
	e.closed = true
}

// Resize updates the viewport in logical pixels.
func (e *Engine) Resize(width, height, dpr float64) {
	e.cam.Resize(width, height, dpr)
}

// FitToBounds frames every entity.
func (e *Engine) FitToBounds() bool {
	minX, minY, maxX, maxY, ok := e.state.Bounds()
	if !ok {
		return false
	}
	return e.cam.FitToBounds(minX, minY, maxX, maxY, e.params.FitMargin)
}

// ZoomByFactor zooms about the viewport centre.
func (e *Engine) ZoomByFactor(f float64) {
	e.cam.ZoomByFactor(f)
}

// Pan shifts the camera by a screen-space delta.
func (e *Engine) Pan(dx, dy float64) {
	e.cam.Pan(dx, dy)
}

// SnapCamera jumps the camera to its target.
func (e *Engine) SnapCamera() {
	e.cam.Snap()
}

// Select makes the entity with the given ID or name the selection. An empty
// key clears it.
func (e *Engine) Select(key string) bool {
	if key == "" {
		e.selectIndex(-1)
		return true
	}
	i, ok := e.state.Lookup(key)
	if !ok {
		return false
	}
	e.selectIndex(i)
	return true
}

func (e *Engine) selectIndex(i int) {
	if e.sel == i {
		return
	}
	e.sel = i
	e.touch()
}

// Selected returns the selected entity.
func (e *Engine) Selected() (Entity, bool) {
	if e.sel < 0 {
		return Entity{}, false
	}
	return e.state.Entities[e.sel], true
}

// Neighbors returns the entities one relation away from the selection.
func (e *Engine) Neighbors() []Entity {
	if e.sel < 0 {
		return nil
	}
	adj := e.state.Neighbors(e.sel)
	out := make([]Entity, 0, len(adj))
	for _, j := range adj {
		out = append(out, e.state.Entities[j])
	}
	return out
}

// BatchSelection returns the batch set as sorted IDs.
func (e *Engine) BatchSelection() []string {
	ids := make([]string, 0, len(e.batch))
	for id := range e.batch {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ClearBatch empties the batch set without leaving batch mode.
func (e *Engine) ClearBatch() {
	if len(e.batch) == 0 {
		return
	}
	clear(e.batch)
	e.touch()
}

// SetSearch highlights entities whose name or type contains query, case
// insensitively, and returns the number of hits. An empty query clears.
func (e *Engine) SetSearch(query string) int {
	e.query = strings.TrimSpace(query)
	e.applySearch()
	e.touch()
	return len(e.hits)
}

func (e *Engine) applySearch() {
	clear(e.hits)
	if e.query == "" {
		return
	}
	q := strings.ToLower(e.query)
	for i, ent := range e.state.Entities {
		if strings.Contains(strings.ToLower(ent.Name), q) || strings.Contains(strings.ToLower(ent.Type), q) {
			e.hits[i] = true
		}
	}
}

// SearchHits returns the IDs of entities matching the current search.
func (e *Engine) SearchHits() []string {
	ids := make([]string, 0, len(e.hits))
	for i := range e.hits {
		ids = append(ids, e.state.Entities[i].ID)
	}
	slices.Sort(ids)
	return ids
}

// FocusOnEntities centres the camera target on the midpoint of the named
// entities (or the one that resolves) and nudges alpha so the layout
// reanimates. It reports false when neither name resolves.
func (e *Engine) FocusOnEntities(names ...string) bool {
	var pts []Point
	for _, name := range names {
		if i, ok := e.state.Lookup(name); ok {
			ent := e.state.Entities[i]
			pts = append(pts, Point{X: ent.X, Y: ent.Y})
		}
	}
	if !e.cam.FocusOn(pts...) {
		return false
	}
	e.state.Nudge(e.params.FocusNudge)
	return true
}

// Focus handles a request from the focus channel: it highlights both
// endpoints and the matching relation and centres the camera on them.
// A zero request clears the highlight.
func (e *Engine) Focus(req model.FocusRequest) bool {
	e.focus.req = req
	e.resolveFocus()
	e.touch()
	if req.IsZero() {
		return true
	}
	return e.FocusOnEntities(req.SourceName, req.TargetName)
}

// ClearFocus removes the focus highlight.
func (e *Engine) ClearFocus() {
	e.Focus(model.FocusRequest{})
}

func (e *Engine) resolveFocus() {
	e.focus.ends = e.focus.ends[:0]
	e.focus.relation = -1
	req := e.focus.req
	if req.IsZero() {
		return
	}
	a, okA := e.state.Lookup(req.SourceName)
	b, okB := e.state.Lookup(req.TargetName)
	if okA {
		e.focus.ends = append(e.focus.ends, a)
	}
	if okB && b != a {
		e.focus.ends = append(e.focus.ends, b)
	}
	if !okA || !okB {
		return
	}
	for i, r := range e.state.Relations {
		fwd := r.Source == a && r.Target == b
		rev := r.Source == b && r.Target == a
		if !fwd && !rev {
			continue
		}
		if req.RelationLabel == "" || r.Label == req.RelationLabel {
			e.focus.relation = i
			return
		}
		if e.focus.relation < 0 {
			e.focus.relation = i
		}
	}
}

// touch marks the projection stale.
func (e *Engine) touch() {
	e.version++
}

// flush delivers the projection if it changed since the last delivery and
// the throttle has a token. Otherwise the change stays pending for a later
// frame.
func (e *Engine) flush() {
	if e.listener == nil || e.version == e.emitted {
		return
	}
	if !e.limiter.AllowN(e.now(), 1) {
		return
	}
	e.emitted = e.version
	e.listener(e.Projection())
}

// wrapPhase maps x into [0, 1).
func wrapPhase(x float64) float64 {
	x = math.Mod(x, 1)
	if x < 0 {
		x++
	}
	if x >= 1 {
		x = 0
	}
	return x
}
