package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/satindergrewal/gesturecast/internal/signal"
)

// Output channel names.
const (
	ChannelAudioRate   = "audio.rate"
	ChannelAudioVolume = "audio.volume"
	ChannelVideoTime   = "video.time"
	ChannelVideoRate   = "video.rate"
)

// RequiredChannels lists the channels every profile must declare.
var RequiredChannels = []string{ChannelAudioRate, ChannelAudioVolume, ChannelVideoTime, ChannelVideoRate}

// ErrInvalidConfig is returned by Validate for any out-of-range parameter.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config is one experience profile: smoothing, channel mappings and gating.
type Config struct {
	Name string `json:"name"`

	// Smoothing
	Alpha        float64            `json:"alpha"`                   // EMA factor for raw landmark scalars
	ChannelAlpha map[string]float64 `json:"channel_alpha,omitempty"` // per-key overrides
	VelocityBeta float64            `json:"velocity_beta"`           // EMA factor for displacement

	// Inputs
	PositionKeys []string `json:"position_keys"`      // averaged into the driving position
	AuxKeys      []string `json:"aux_keys,omitempty"` // averaged into the secondary axis

	// Outputs
	Channels map[string]signal.MappingSpec `json:"channels"`

	// Gating
	Gate        signal.GateConfig `json:"gate"`
	GateEnabled bool              `json:"gate_enabled"` // false: video always visible and playing
	StartGated  bool              `json:"start_gated"`  // true: outputs wait for Start
}

func ptr(v float64) *float64 { return &v }

// DefaultConfig is the momentum experience: start-gated, coasting video rate, no fade.
func DefaultConfig() Config {
	return Config{
		Name:         "momentum",
		Alpha:        signal.DefaultPositionAlpha,
		VelocityBeta: signal.DefaultVelocityBeta,
		PositionKeys: []string{"RWX", "RPX", "RIX"},
		AuxKeys:      []string{"RWY", "RPY", "RIY"},
		Channels: map[string]signal.MappingSpec{
			ChannelAudioRate: {
				In:       signal.Range{Min: 5, Max: 40},
				Out:      signal.Range{Min: 1, Max: 3},
				Fallback: 1,
			},
			ChannelAudioVolume: {
				In:       signal.Range{Min: 0, Max: 20},
				Out:      signal.Range{Min: 0, Max: 3},
				Limit:    &signal.Range{Min: 0.05, Max: 3},
				Fallback: 0.05,
			},
			// Domains are rebound every tick from the viewport width and media duration.
			ChannelVideoTime: {
				In:       signal.Range{Min: 0, Max: 1},
				Out:      signal.Range{Min: 0, Max: 0},
				Fallback: 0,
			},
			ChannelVideoRate: {
				In:          signal.Range{Min: 0, Max: 20},
				Out:         signal.Range{Min: 0.1, Max: 1},
				Momentum:    0.1,
				Initial:     ptr(1),
				Fallback:    1,
				ResetOnLoss: true,
			},
		},
		Gate:        signal.DefaultGateConfig(),
		GateEnabled: false,
		StartGated:  true,
	}
}

// FadeConfig fades and pauses the video when the hand is still. Video rate stays neutral.
func FadeConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "fade"
	cfg.Channels = cloneChannels(cfg.Channels)
	cfg.Channels[ChannelVideoRate] = signal.MappingSpec{
		In:       signal.Range{Min: 0, Max: 20},
		Out:      signal.Range{Min: 1, Max: 1},
		Fallback: 1,
	}
	cfg.GateEnabled = true
	cfg.StartGated = false
	return cfg
}

// SmoothConfig plays immediately and lets the video rate rise from its floor.
func SmoothConfig() Config {
	cfg := DefaultConfig()
	cfg.Name = "smooth"
	cfg.Channels = cloneChannels(cfg.Channels)
	rate := cfg.Channels[ChannelVideoRate]
	rate.Initial = ptr(0)
	cfg.Channels[ChannelVideoRate] = rate
	cfg.StartGated = false
	return cfg
}

var profiles = map[string]func() Config{
	"momentum": DefaultConfig,
	"fade":     FadeConfig,
	"smooth":   SmoothConfig,
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns a built-in profile by name.
func Profile(name string) (Config, error) {
	fn, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("unknown profile %q (have %s)", name, strings.Join(ProfileNames(), ", "))
	}
	return fn(), nil
}

// Validate checks every tunable against its allowed range.
func (c Config) Validate() error {
	if !unitInterval(c.Alpha) {
		return fmt.Errorf("%w: alpha %v outside (0, 1]", ErrInvalidConfig, c.Alpha)
	}
	for key, a := range c.ChannelAlpha {
		if !unitInterval(a) {
			return fmt.Errorf("%w: channel_alpha[%s] %v outside (0, 1]", ErrInvalidConfig, key, a)
		}
	}
	if !unitInterval(c.VelocityBeta) {
		return fmt.Errorf("%w: velocity_beta %v outside (0, 1]", ErrInvalidConfig, c.VelocityBeta)
	}
	if len(c.PositionKeys) == 0 {
		return fmt.Errorf("%w: position_keys is empty", ErrInvalidConfig)
	}

	for _, name := range RequiredChannels {
		spec, ok := c.Channels[name]
		if !ok {
			return fmt.Errorf("%w: channel %s missing", ErrInvalidConfig, name)
		}
		if err := validateSpec(name, spec); err != nil {
			return err
		}
	}

	g := c.Gate
	if !signal.Finite(g.Threshold) || g.Threshold < 0 {
		return fmt.Errorf("%w: gate threshold %v", ErrInvalidConfig, g.Threshold)
	}
	if !unitInterval(g.Approach) {
		return fmt.Errorf("%w: gate approach %v outside (0, 1]", ErrInvalidConfig, g.Approach)
	}
	if !signal.Finite(g.MinOpacity) || !signal.Finite(g.MaxOpacity) || g.MinOpacity >= g.MaxOpacity {
		return fmt.Errorf("%w: gate opacity range [%v, %v]", ErrInvalidConfig, g.MinOpacity, g.MaxOpacity)
	}
	return nil
}

func validateSpec(name string, s signal.MappingSpec) error {
	for _, v := range []float64{s.In.Min, s.In.Max, s.Out.Min, s.Out.Max, s.Fallback} {
		if !signal.Finite(v) {
			return fmt.Errorf("%w: channel %s has a non-finite bound", ErrInvalidConfig, name)
		}
	}
	if s.Momentum < 0 || s.Momentum > 1 || !signal.Finite(s.Momentum) {
		return fmt.Errorf("%w: channel %s momentum %v outside [0, 1]", ErrInvalidConfig, name, s.Momentum)
	}
	if s.Limit != nil && (!s.Out.Contains(s.Limit.Min) || !s.Out.Contains(s.Limit.Max)) {
		return fmt.Errorf("%w: channel %s limit %v not inside out %v", ErrInvalidConfig, name, *s.Limit, s.Out)
	}
	if s.Initial != nil && !signal.Finite(*s.Initial) {
		return fmt.Errorf("%w: channel %s initial is not finite", ErrInvalidConfig, name)
	}
	// video.time bounds are rebound at runtime, so its fallback is checked then.
	if name != ChannelVideoTime && !s.Bounds().Contains(s.Fallback) {
		return fmt.Errorf("%w: channel %s fallback %v outside %v", ErrInvalidConfig, name, s.Fallback, s.Bounds())
	}
	return nil
}

func unitInterval(v float64) bool {
	return signal.Finite(v) && v > 0 && v <= 1
}

func cloneChannels(in map[string]signal.MappingSpec) map[string]signal.MappingSpec {
	out := make(map[string]signal.MappingSpec, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
