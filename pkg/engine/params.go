// Package engine is the force-directed layout and interaction core: it owns
// the simulation arena, the camera and the pointer state machine, and is
// advanced once per animation frame by a single host goroutine.
package engine

import "time"

// Params tunes the force solver, the camera and picking.
type Params struct {
	// Force solver
	Repulsion  float64       `yaml:"repulsion,omitempty" json:"repulsion,omitempty"`     // pairwise repulsion constant (default 9000)
	SpringK    float64       `yaml:"spring_k,omitempty" json:"spring_k,omitempty"`       // spring stiffness along relations (default 0.02)
	RestLength float64       `yaml:"rest_length,omitempty" json:"rest_length,omitempty"` // target relation length (default 120)
	Centering  float64       `yaml:"centering,omitempty" json:"centering,omitempty"`     // pull toward the origin (default 0.002)
	Damping    float64       `yaml:"damping,omitempty" json:"damping,omitempty"`         // velocity multiplier per tick (default 0.88)
	AlphaDecay float64       `yaml:"alpha_decay,omitempty" json:"alpha_decay,omitempty"` // alpha multiplier per tick (default 0.998)
	AlphaMin   float64       `yaml:"alpha_min,omitempty" json:"alpha_min,omitempty"`     // freeze threshold (default 0.005)
	MaxStep    time.Duration `yaml:"max_step,omitempty" json:"max_step,omitempty"`       // elapsed-time clamp (default 50ms)

	// Entities
	MinRadius     float64 `yaml:"min_radius,omitempty" json:"min_radius,omitempty"`         // default 10
	RadiusScale   float64 `yaml:"radius_scale,omitempty" json:"radius_scale,omitempty"`     // radius per unit of weight (default 3)
	InitialSpread float64 `yaml:"initial_spread,omitempty" json:"initial_spread,omitempty"` // side of the random placement box (default 400)

	// Flow particles
	FlowParticles int     `yaml:"flow_particles,omitempty" json:"flow_particles,omitempty"` // phases per relation (default 3)
	FlowSpeed     float64 `yaml:"flow_speed,omitempty" json:"flow_speed,omitempty"`         // phase units per second (default 0.35)

	// Interaction
	DragAlpha  float64 `yaml:"drag_alpha,omitempty" json:"drag_alpha,omitempty"`   // alpha floor while dragging (default 0.3)
	FocusNudge float64 `yaml:"focus_nudge,omitempty" json:"focus_nudge,omitempty"` // alpha added by a focus request (default 0.05)
	HitPadding float64 `yaml:"hit_padding,omitempty" json:"hit_padding,omitempty"` // screen pixels added to hit radius (default 6)
	WheelStep  float64 `yaml:"wheel_step,omitempty" json:"wheel_step,omitempty"`   // zoom factor per wheel notch (default 1.1)

	// Camera
	KMin      float64 `yaml:"k_min,omitempty" json:"k_min,omitempty"`           // default 0.08
	KMax      float64 `yaml:"k_max,omitempty" json:"k_max,omitempty"`           // default 6
	Smoothing float64 `yaml:"smoothing,omitempty" json:"smoothing,omitempty"`   // fraction of the gap closed per frame (default 0.12)
	FitMargin float64 `yaml:"fit_margin,omitempty" json:"fit_margin,omitempty"` // world units around fitted bounds (default 60)
}

// DefaultParams returns the tuning used by the viewer.
func DefaultParams() Params {
	return Params{
		Repulsion:     9000,
		SpringK:       0.02,
		RestLength:    120,
		Centering:     0.002,
		Damping:       0.88,
		AlphaDecay:    0.998,
		AlphaMin:      0.005,
		MaxStep:       50 * time.Millisecond,
		MinRadius:     10,
		RadiusScale:   3,
		InitialSpread: 400,
		FlowParticles: 3,
		FlowSpeed:     0.35,
		DragAlpha:     0.3,
		FocusNudge:    0.05,
		HitPadding:    6,
		WheelStep:     1.1,
		KMin:          0.08,
		KMax:          6,
		Smoothing:     0.12,
		FitMargin:     60,
	}
}

// WithDefaults fills every zero field from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if p.Repulsion != 0 {
		d.Repulsion = p.Repulsion
	}
	if p.SpringK != 0 {
		d.SpringK = p.SpringK
	}
	if p.RestLength != 0 {
		d.RestLength = p.RestLength
	}
	if p.Centering != 0 {
		d.Centering = p.Centering
	}
	if p.Damping != 0 {
		d.Damping = p.Damping
	}
	if p.AlphaDecay != 0 {
		d.AlphaDecay = p.AlphaDecay
	}
	if p.AlphaMin != 0 {
		d.AlphaMin = p.AlphaMin
	}
	if p.MaxStep != 0 {
		d.MaxStep = p.MaxStep
	}
	if p.MinRadius != 0 {
		d.MinRadius = p.MinRadius
	}
	if p.RadiusScale != 0 {
		d.RadiusScale = p.RadiusScale
	}
	if p.InitialSpread != 0 {
		d.InitialSpread = p.InitialSpread
	}
	if p.FlowParticles != 0 {
		d.FlowParticles = p.FlowParticles
	}
	if p.FlowSpeed != 0 {
		d.FlowSpeed = p.FlowSpeed
	}
	if p.DragAlpha != 0 {
		d.DragAlpha = p.DragAlpha
	}
	if p.FocusNudge != 0 {
		d.FocusNudge = p.FocusNudge
	}
	if p.HitPadding != 0 {
		d.HitPadding = p.HitPadding
	}
	if p.WheelStep != 0 {
		d.WheelStep = p.WheelStep
	}
	if p.KMin != 0 {
		d.KMin = p.KMin
	}
	if p.KMax != 0 {
		d.KMax = p.KMax
	}
	if p.Smoothing != 0 {
		d.Smoothing = p.Smoothing
	}
	if p.FitMargin != 0 {
		d.FitMargin = p.FitMargin
	}
	if d.KMin > d.KMax {
		d.KMin, d.KMax = d.KMax, d.KMin
	}
	return d
}

// nominalFrame is the frame length the force constants are tuned for.
const nominalFrame = time.Second / 60

// clampStep bounds dt to (0, max]. A non-positive dt counts as one nominal frame.
func clampStep(dt, max time.Duration) time.Duration {
	if dt <= 0 {
		dt = nominalFrame
	}
	if max > 0 && dt > max {
		dt = max
	}
	return dt
}
