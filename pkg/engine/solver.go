package engine

import (
	"math"
	"time"
)

// Solver advances entity positions one time step. It keeps per-entity force
// buffers between ticks so a frame allocates nothing once warmed up.
type Solver struct {
	params Params
	fx, fy []float64
}

// NewSolver creates a solver for the given tuning.
func NewSolver(p Params) *Solver {
	return &Solver{params: p.WithDefaults()}
}

// Tick integrates one step of length dt (clamped to MaxStep). dragged is the
// arena index of the entity under the pointer, or -1. It reports whether any
// integration happened; once alpha is below AlphaMin the state is frozen and
// Tick returns false without touching it.
func (sv *Solver) Tick(st *State, dt time.Duration, dragged int) bool {
	p := sv.params
	if st == nil || st.Alpha < p.AlphaMin {
		return false
	}

	n := len(st.Entities)
	step := clampStep(dt, p.MaxStep).Seconds() / nominalFrame.Seconds()
	alpha := st.Alpha
	sv.reset(n)
	ents := st.Entities

	// Pairwise repulsion. Every entity contributes; fixed ones are skipped
	// at integration time.
	kr := p.Repulsion * alpha
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dx := ents[i].X - ents[j].X
			dy := ents[i].Y - ents[j].Y
			d2 := dx*dx + dy*dy
			f := kr / (d2 + 1)
			inv := 1 / math.Sqrt(d2+1)
			fx, fy := f*dx*inv, f*dy*inv
			sv.fx[i] += fx
			sv.fy[i] += fy
			sv.fx[j] -= fx
			sv.fy[j] -= fy
		}
	}

	// Springs along relations.
	ks := p.SpringK * alpha
	for _, r := range st.Relations {
		a, b := r.Source, r.Target
		dx := ents[b].X - ents[a].X
		dy := ents[b].Y - ents[a].Y
		d2 := dx*dx + dy*dy
		f := (math.Sqrt(d2) - p.RestLength) * ks
		norm := math.Sqrt(d2 + 1)
		ux, uy := dx/norm, dy/norm
		sv.fx[a] += f * ux
		sv.fy[a] += f * uy
		sv.fx[b] -= f * ux
		sv.fy[b] -= f * uy
	}

	// Centering.
	kc := p.Centering * alpha
	for i := range ents {
		sv.fx[i] -= ents[i].X * kc
		sv.fy[i] -= ents[i].Y * kc
	}

	for i := range ents {
		e := &ents[i]
		if e.Pinned || i == dragged {
			e.VX, e.VY = 0, 0
			continue
		}
		e.VX = (e.VX + sv.fx[i]*step) * p.Damping
		e.VY = (e.VY + sv.fy[i]*step) * p.Damping
		e.X += e.VX * step
		e.Y += e.VY * step
	}

	st.Alpha = min(1, st.Alpha*p.AlphaDecay)
	return true
}

func (sv *Solver) reset(n int) {
	if cap(sv.fx) < n {
		sv.fx = make([]float64, n)
		sv.fy = make([]float64, n)
	}
	sv.fx = sv.fx[:n]
	sv.fy = sv.fy[:n]
	clear(sv.fx)
	clear(sv.fy)
}
