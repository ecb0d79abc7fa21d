package engine

import "math"

// Mode is the pointer interaction state. Exactly one of Idle, DraggingNode
// or PanningCamera is active at a time; batch selection is tracked
// separately because it can be on in any of them.
type Mode interface {
	isMode()
	String() string
}

// Idle means no pointer gesture is in progress.
type Idle struct{}

// DraggingNode means the entity at Index follows the pointer.
type DraggingNode struct {
	Index int
}

// PanningCamera means the camera follows the pointer. StartX/StartY are the
// screen position of the pointer-down and PanX/PanY the pan at that moment.
type PanningCamera struct {
	StartX, StartY float64
	PanX, PanY     float64
}

func (Idle) isMode()          {}
func (DraggingNode) isMode()  {}
func (PanningCamera) isMode() {}

func (Idle) String() string          { return "idle" }
func (DraggingNode) String() string  { return "dragging" }
func (PanningCamera) String() string { return "panning" }

// Mode returns the current interaction state.
func (e *Engine) Mode() Mode {
	return e.mode
}

// dragged returns the index of the entity being dragged, or -1.
func (e *Engine) dragged() int {
	if m, ok := e.mode.(DraggingNode); ok {
		return m.Index
	}
	return -1
}

// PointerDown starts a gesture at screen point (sx, sy). It is ignored while
// another gesture is active.
func (e *Engine) PointerDown(sx, sy float64) {
	if e.closed {
		return
	}
	if _, idle := e.mode.(Idle); !idle {
		return
	}
	hit := Pick(e.state.Entities, &e.cam, sx, sy, e.params.HitPadding)

	if e.batchMode {
		if hit >= 0 {
			e.toggleBatch(e.state.Entities[hit].ID)
		}
		return
	}

	if hit < 0 {
		e.selectIndex(-1)
		e.mode = PanningCamera{StartX: sx, StartY: sy, PanX: e.cam.X, PanY: e.cam.Y}
		e.touch()
		return
	}

	ent := &e.state.Entities[hit]
	ent.Pinned = true
	ent.VX, ent.VY = 0, 0
	e.selectIndex(hit)
	e.state.Reheat(e.params.DragAlpha)
	e.mode = DraggingNode{Index: hit}
	e.touch()
}

// PointerMove moves the active gesture, or updates hover when idle.
func (e *Engine) PointerMove(sx, sy float64) {
	if e.closed {
		return
	}
	switch m := e.mode.(type) {
	case DraggingNode:
		ent := &e.state.Entities[m.Index]
		ent.X, ent.Y = e.cam.ScreenToWorld(sx, sy)
		ent.VX, ent.VY = 0, 0
		e.state.Reheat(e.params.DragAlpha)
	case PanningCamera:
		e.cam.PanTo(m.PanX+sx-m.StartX, m.PanY+sy-m.StartY)
	default:
		hover := Pick(e.state.Entities, &e.cam, sx, sy, e.params.HitPadding)
		if hover != e.hovered {
			e.hovered = hover
			e.touch()
		}
	}
}

// PointerUp ends any gesture. A dragged entity stays pinned.
func (e *Engine) PointerUp(sx, sy float64) {
	if e.closed {
		return
	}
	if _, idle := e.mode.(Idle); idle {
		return
	}
	e.mode = Idle{}
	e.touch()
}

// Wheel zooms about the pointer. Positive delta zooms out. It never changes
// the interaction mode.
func (e *Engine) Wheel(sx, sy, delta float64) {
	if e.closed || delta == 0 {
		return
	}
	e.cam.ZoomAtPoint(sx, sy, math.Pow(e.params.WheelStep, -delta))
}

// Cancel abandons any gesture in progress.
func (e *Engine) Cancel() {
	if _, idle := e.mode.(Idle); !idle {
		e.mode = Idle{}
		e.touch()
	}
}

// ToggleBatchMode flips batch selection and reports the new setting.
func (e *Engine) ToggleBatchMode() bool {
	e.SetBatchMode(!e.batchMode)
	return e.batchMode
}

// SetBatchMode turns batch selection on or off. Leaving batch mode clears
// the batch set.
func (e *Engine) SetBatchMode(on bool) {
	if e.batchMode == on {
		return
	}
	e.batchMode = on
	if !on {
		clear(e.batch)
	}
	e.touch()
}

// BatchMode reports whether pointer-down toggles batch membership.
func (e *Engine) BatchMode() bool {
	return e.batchMode
}

func (e *Engine) toggleBatch(id string) {
	if e.batch[id] {
		delete(e.batch, id)
	} else {
		e.batch[id] = true
	}
	e.touch()
}

// UnpinSelected releases the pin on the selected entity. It is the only way
// a pin set by dragging is cleared.
func (e *Engine) UnpinSelected() bool {
	if e.sel < 0 || !e.state.Entities[e.sel].Pinned {
		return false
	}
	e.state.Entities[e.sel].Pinned = false
	e.state.Reheat(e.params.DragAlpha)
	e.touch()
	return true
}
