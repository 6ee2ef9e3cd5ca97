package pipeline

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satindergrewal/gesturecast/internal/signal"
)

func TestProfiles(t *testing.T) {
	assert.Equal(t, []string{"fade", "momentum", "smooth"}, ProfileNames())

	for _, name := range ProfileNames() {
		cfg, err := Profile(name)
		require.NoError(t, err)
		assert.Equal(t, name, cfg.Name)
		assert.NoError(t, cfg.Validate(), name)
	}

	cfg, err := Profile("  Fade ")
	require.NoError(t, err)
	assert.True(t, cfg.GateEnabled)

	_, err = Profile("strobe")
	assert.ErrorContains(t, err, "unknown profile")
}

func TestProfilesDoNotShareChannels(t *testing.T) {
	fade := FadeConfig()
	def := DefaultConfig()
	assert.Equal(t, 0.1, def.Channels[ChannelVideoRate].Momentum)
	assert.Equal(t, 0.0, fade.Channels[ChannelVideoRate].Momentum)

	smooth := SmoothConfig()
	assert.Equal(t, 0.0, *smooth.Channels[ChannelVideoRate].Initial)
	assert.Equal(t, 1.0, *DefaultConfig().Channels[ChannelVideoRate].Initial)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero alpha", func(c *Config) { c.Alpha = 0 }},
		{"alpha above one", func(c *Config) { c.Alpha = 1.5 }},
		{"bad channel alpha", func(c *Config) { c.ChannelAlpha = map[string]float64{"RWX": -1} }},
		{"bad beta", func(c *Config) { c.VelocityBeta = 2 }},
		{"no position keys", func(c *Config) { c.PositionKeys = nil }},
		{"missing channel", func(c *Config) { delete(c.Channels, ChannelAudioVolume) }},
		{"momentum out of range", func(c *Config) {
			s := c.Channels[ChannelVideoRate]
			s.Momentum = 1.5
			c.Channels[ChannelVideoRate] = s
		}},
		{"limit wider than out", func(c *Config) {
			s := c.Channels[ChannelAudioVolume]
			s.Limit = &signal.Range{Min: -1, Max: 3}
			c.Channels[ChannelAudioVolume] = s
		}},
		{"fallback outside bounds", func(c *Config) {
			s := c.Channels[ChannelAudioRate]
			s.Fallback = 9
			c.Channels[ChannelAudioRate] = s
		}},
		{"negative threshold", func(c *Config) { c.Gate.Threshold = -1 }},
		{"zero approach", func(c *Config) { c.Gate.Approach = 0 }},
		{"inverted opacity", func(c *Config) { c.Gate.MinOpacity, c.Gate.MaxOpacity = 255, 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Channels = cloneChannels(cfg.Channels)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)

			_, err = New(cfg, newMedia())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestConfigJSONOverlay(t *testing.T) {
	cfg := DefaultConfig()
	raw := `{
		"name": "custom",
		"alpha": 0.5,
		"channels": {
			"audio.rate": {"in": [0, 10], "out": {"min": 1, "max": 2}, "fallback": 1}
		},
		"gate": {"threshold": 4, "approach": 0.2, "min_opacity": 0, "max_opacity": 255, "initial_opacity": 0},
		"gate_enabled": true
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, 0.5, cfg.Alpha)
	assert.Equal(t, signal.Range{Min: 0, Max: 10}, cfg.Channels[ChannelAudioRate].In)
	assert.Equal(t, signal.Range{Min: 1, Max: 2}, cfg.Channels[ChannelAudioRate].Out)
	assert.Contains(t, cfg.Channels, ChannelVideoRate, "maps merge into the defaults")
	assert.True(t, cfg.GateEnabled)
	assert.NoError(t, cfg.Validate())
}
