// Package pipeline composes the signal stages into one per-subject control
// pipeline and runs it once per tick.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/signal"
)

// MediaInfo is queried every tick for the domains that depend on the media.
type MediaInfo interface {
	// Duration is the video length in seconds, 0 when unknown.
	Duration() float64
	Viewport() (width, height float64)
	// Ready reports whether all media are loaded and playable.
	Ready() bool
}

// Sink receives every tick's output.
type Sink interface {
	Apply(Output)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Output)

// Apply calls f(out).
func (f SinkFunc) Apply(out Output) { f(out) }

// Sample is one tick of input: raw scalars keyed by channel, or no detection.
type Sample struct {
	Valid  bool
	Values map[string]float64
}

// Invalid is the sample for a tick with no detection.
var Invalid = Sample{}

// Output is the full control set produced by one tick. Every field is finite.
type Output struct {
	Tick     uint64 `json:"tick"`
	Started  bool   `json:"started"`
	Tracking bool   `json:"tracking"`
	Warm     bool   `json:"warm"` // velocity has two consecutive samples

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Velocity float64 `json:"velocity"`

	AudioRate   float64 `json:"audio_rate"`
	AudioVolume float64 `json:"audio_volume"`
	VideoTime   float64 `json:"video_time"`
	VideoRate   float64 `json:"video_rate"`

	Opacity float64            `json:"opacity"`
	Playing bool               `json:"playing"`
	State   signal.MotionState `json:"state"`
	Changed bool               `json:"changed"`
}

// Pipeline owns the filter state of one tracked subject. It is not safe for
// concurrent use: one goroutine calls Tick and Start.
type Pipeline struct {
	cfg   Config
	media MediaInfo
	log   *slog.Logger

	positions *signal.PositionTracker
	velocity  *signal.VelocityEstimator
	controls  *signal.Generator
	gate      *signal.MotionGate

	tick     uint64
	started  bool
	tracking bool
	x, y     float64
	last     Output
}

// New validates cfg and builds a pipeline.
func New(cfg Config, media MediaInfo) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if media == nil {
		return nil, fmt.Errorf("pipeline: media info is required")
	}

	p := &Pipeline{
		cfg:       cfg,
		media:     media,
		log:       log.With("component", "pipeline", "profile", cfg.Name),
		positions: signal.NewPositionTracker(cfg.Alpha),
		velocity:  signal.NewVelocityEstimator(cfg.VelocityBeta),
		controls:  signal.NewGenerator(),
		gate:      signal.NewMotionGate(cfg.Gate),
		started:   !cfg.StartGated,
	}
	for key, a := range cfg.ChannelAlpha {
		p.positions.SetAlpha(key, a)
	}
	for _, name := range RequiredChannels {
		p.controls.Add(name, cfg.Channels[name])
	}
	p.last = p.output(false, p.idleStep())
	return p, nil
}

// Config returns the profile the pipeline was built from.
func (p *Pipeline) Config() Config { return p.cfg }

// Started reports whether outputs are being applied to media.
func (p *Pipeline) Started() bool { return p.started }

// Start opens the start gate. It fails while media are still loading.
func (p *Pipeline) Start() bool {
	if p.started {
		return true
	}
	if !p.media.Ready() {
		return false
	}
	p.started = true
	p.log.Info("experience started", "tick", p.tick)
	return true
}

// Last returns the most recent output.
func (p *Pipeline) Last() Output { return p.last }

// Tick runs one update pass in dependency order and returns the outputs.
func (p *Pipeline) Tick(s Sample) Output {
	p.tick++

	x, okX := p.smoothAverage(p.cfg.PositionKeys, s)
	y, okY := p.smoothAverage(p.cfg.AuxKeys, s)
	if !s.Valid || !okX || !okY {
		return p.lost()
	}

	if !p.tracking {
		p.log.Debug("tracking acquired", "tick", p.tick, "x", x)
	}
	p.tracking = true
	p.x, p.y = x, y

	v := p.velocity.Update(x)
	warm := p.velocity.Ready()
	speed := math.Abs(v)

	// The first reading after (re)acquisition is a cold start, not a velocity.
	if warm {
		p.controls.Update(ChannelAudioRate, speed)
		p.controls.Update(ChannelAudioVolume, speed)
	}

	if duration := p.media.Duration(); signal.Finite(duration) && duration > 0 {
		width, _ := p.media.Viewport()
		p.controls.Channel(ChannelVideoTime).Rebind(
			signal.Range{Min: 0, Max: width},
			signal.Range{Min: 0, Max: duration},
		)
		p.controls.Update(ChannelVideoTime, x)
		if warm {
			p.controls.Update(ChannelVideoRate, speed)
		}
	}

	step := p.idleStep()
	if p.cfg.GateEnabled {
		step = p.gate.Update(v)
		if step.Changed {
			p.log.Debug("motion gate", "state", step.State, "tick", p.tick, "velocity", v)
		}
	}

	p.last = p.output(warm, step)
	return p.last
}

// lost handles a tick with no valid sample: reference state is dropped so the
// reacquired position is not read as a jump, and the gate fades toward idle.
func (p *Pipeline) lost() Output {
	if p.tracking {
		p.log.Debug("tracking lost", "tick", p.tick)
	}
	p.tracking = false
	p.velocity.Reset()
	p.positions.ResetAll()
	p.controls.TrackingLost()

	step := p.lostStep()
	if p.cfg.GateEnabled {
		step = p.gate.Lost()
	}
	p.last = p.output(false, step)
	return p.last
}

// lostStep is the ungated output with no hand in view: a hard cut to hidden and paused.
func (p *Pipeline) lostStep() signal.GateStep {
	return signal.GateStep{State: signal.Idle, Opacity: p.cfg.Gate.MinOpacity, Playing: false}
}

// idleStep is the gate output used when gating is disabled: visible and playing while tracked.
func (p *Pipeline) idleStep() signal.GateStep {
	if p.cfg.GateEnabled {
		return p.gate.Snapshot()
	}
	return signal.GateStep{State: signal.Active, Opacity: p.cfg.Gate.MaxOpacity, Playing: true}
}

// smoothAverage feeds each key's raw value to its EMA channel and averages the results.
// Every key must be present and finite.
func (p *Pipeline) smoothAverage(keys []string, s Sample) (float64, bool) {
	if len(keys) == 0 {
		return 0, true
	}
	if !s.Valid {
		return 0, false
	}
	for _, key := range keys {
		raw, ok := s.Values[key]
		if !ok || !signal.Finite(raw) {
			return 0, false
		}
	}

	n := float64(len(keys))
	var mean float64
	for _, key := range keys {
		v, _ := p.positions.Update(key, s.Values[key])
		mean += v / n
	}
	return mean, signal.Finite(mean)
}

func (p *Pipeline) output(warm bool, step signal.GateStep) Output {
	value := func(name string) float64 {
		v, _ := p.controls.Value(name)
		return v
	}
	return Output{
		Tick:        p.tick,
		Started:     p.started,
		Tracking:    p.tracking,
		Warm:        warm,
		X:           p.x,
		Y:           p.y,
		Velocity:    p.velocity.Value(),
		AudioRate:   value(ChannelAudioRate),
		AudioVolume: value(ChannelAudioVolume),
		VideoTime:   value(ChannelVideoTime),
		VideoRate:   value(ChannelVideoRate),
		Opacity:     step.Opacity,
		Playing:     step.Playing,
		State:       step.State,
		Changed:     step.Changed,
	}
}
