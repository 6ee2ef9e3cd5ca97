package signal

import (
	"fmt"
	"math"
)

// MotionState is the gate's view of the tracked subject.
type MotionState int

const (
	Idle MotionState = iota
	Active
)

func (s MotionState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("MotionState(%d)", int(s))
	}
}

// MarshalText lets the state appear by name in JSON status payloads.
func (s MotionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *MotionState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "active":
		*s = Active
	default:
		return fmt.Errorf("unknown motion state %q", b)
	}
	return nil
}

// GateConfig tunes the motion gate.
type GateConfig struct {
	Threshold      float64 `json:"threshold"`       // |velocity| above this is motion
	Approach       float64 `json:"approach"`        // lerp factor per tick, 1 is a hard cut
	MinOpacity     float64 `json:"min_opacity"`     // faded out
	MaxOpacity     float64 `json:"max_opacity"`     // fully visible
	InitialOpacity float64 `json:"initial_opacity"` // opacity before the first tick
}

// DefaultGateConfig matches the fade experience: 2px threshold, 10% approach, 8-bit alpha.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		Threshold:      2,
		Approach:       0.1,
		MinOpacity:     0,
		MaxOpacity:     255,
		InitialOpacity: 255,
	}
}

// GateStep is the result of one gate tick.
type GateStep struct {
	State   MotionState
	Opacity float64
	Playing bool
	Changed bool // state flipped on this tick
}

// MotionGate is a single-threshold Active/Idle state machine. There is no
// hysteresis band; the opacity lerp is the only smoothing near the threshold.
type MotionGate struct {
	cfg GateConfig

	state          MotionState
	opacity        float64
	tick           uint64
	lastTransition uint64
}

// NewMotionGate creates a gate in the Idle state.
func NewMotionGate(cfg GateConfig) *MotionGate {
	if cfg.Approach <= 0 || cfg.Approach > 1 || !Finite(cfg.Approach) {
		cfg.Approach = DefaultGateConfig().Approach
	}
	if cfg.MinOpacity > cfg.MaxOpacity {
		cfg.MinOpacity, cfg.MaxOpacity = cfg.MaxOpacity, cfg.MinOpacity
	}
	g := &MotionGate{cfg: cfg}
	g.opacity = Clamp(cfg.InitialOpacity, cfg.MinOpacity, cfg.MaxOpacity)
	if !Finite(g.opacity) {
		g.opacity = cfg.MaxOpacity
	}
	return g
}

// Update advances the gate by one tick using the smoothed velocity.
// A non-finite velocity counts as no motion.
func (g *MotionGate) Update(velocity float64) GateStep {
	next := Idle
	if Finite(velocity) && math.Abs(velocity) > g.cfg.Threshold {
		next = Active
	}
	return g.advance(next)
}

// Lost advances the gate for a tick without a valid sample: it forces Idle.
func (g *MotionGate) Lost() GateStep {
	return g.advance(Idle)
}

func (g *MotionGate) advance(next MotionState) GateStep {
	g.tick++
	changed := next != g.state
	if changed {
		g.state = next
		g.lastTransition = g.tick
	}

	target := g.cfg.MinOpacity
	if g.state == Active {
		target = g.cfg.MaxOpacity
	}
	g.opacity = Clamp(Lerp(g.opacity, target, g.cfg.Approach), g.cfg.MinOpacity, g.cfg.MaxOpacity)

	step := g.Snapshot()
	step.Changed = changed
	return step
}

// Snapshot reports the gate's current outputs without advancing it.
func (g *MotionGate) Snapshot() GateStep {
	return GateStep{
		State:   g.state,
		Opacity: g.opacity,
		Playing: g.state == Active,
	}
}

// State returns the current motion state.
func (g *MotionGate) State() MotionState { return g.state }

// Opacity returns the current opacity.
func (g *MotionGate) Opacity() float64 { return g.opacity }

// LastTransitionTick returns the tick number of the last state change, 0 if none.
func (g *MotionGate) LastTransitionTick() uint64 { return g.lastTransition }

// Config returns the gate configuration in use.
func (g *MotionGate) Config() GateConfig { return g.cfg }
