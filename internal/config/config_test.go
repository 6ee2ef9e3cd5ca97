package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/satindergrewal/gesturecast/internal/pipeline"
	"github.com/satindergrewal/gesturecast/internal/signal"
)

var envVars = []string{
	"GESTURECAST_PORT", "GESTURECAST_LANDMARK_ADDR", "GESTURECAST_READ_BUFFER",
	"GESTURECAST_STALE_AFTER", "GESTURECAST_SOUND", "GESTURECAST_VIDEO",
	"GESTURECAST_CANVAS_WIDTH", "GESTURECAST_CANVAS_HEIGHT", "GESTURECAST_FADE_IN",
	"GESTURECAST_PROFILE", "GESTURECAST_PROFILE_FILE", "GESTURECAST_LOG_LEVEL",
}

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LandmarkAddr != ":9870" {
		t.Errorf("LandmarkAddr = %q, want :9870", cfg.LandmarkAddr)
	}
	if cfg.ReadBuffer != 2048 {
		t.Errorf("ReadBuffer = %d, want 2048", cfg.ReadBuffer)
	}
	if cfg.StaleAfter != 250*time.Millisecond {
		t.Errorf("StaleAfter = %v, want 250ms", cfg.StaleAfter)
	}
	if cfg.CanvasWidth != 1280 || cfg.CanvasHeight != 720 {
		t.Errorf("Canvas = %vx%v, want 1280x720", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.FadeIn != 500*time.Millisecond {
		t.Errorf("FadeIn = %v, want 500ms", cfg.FadeIn)
	}
	if cfg.Profile != "momentum" {
		t.Errorf("Profile = %q, want momentum", cfg.Profile)
	}
	if cfg.ProfileFile != "" {
		t.Errorf("ProfileFile = %q, want empty default", cfg.ProfileFile)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GESTURECAST_PORT", "3000")
	t.Setenv("GESTURECAST_LANDMARK_ADDR", "127.0.0.1:7000")
	t.Setenv("GESTURECAST_READ_BUFFER", "512")
	t.Setenv("GESTURECAST_STALE_AFTER", "1s")
	t.Setenv("GESTURECAST_SOUND", "/tmp/a.mp3")
	t.Setenv("GESTURECAST_VIDEO", "/tmp/v.mp4")
	t.Setenv("GESTURECAST_CANVAS_WIDTH", "1920")
	t.Setenv("GESTURECAST_CANVAS_HEIGHT", "1080")
	t.Setenv("GESTURECAST_FADE_IN", "200")
	t.Setenv("GESTURECAST_PROFILE", "fade")
	t.Setenv("GESTURECAST_LOG_LEVEL", "debug")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.LandmarkAddr != "127.0.0.1:7000" {
		t.Errorf("LandmarkAddr = %q, want env override", cfg.LandmarkAddr)
	}
	if cfg.ReadBuffer != 512 {
		t.Errorf("ReadBuffer = %d, want 512", cfg.ReadBuffer)
	}
	if cfg.StaleAfter != time.Second {
		t.Errorf("StaleAfter = %v, want 1s", cfg.StaleAfter)
	}
	if cfg.SoundPath != "/tmp/a.mp3" || cfg.VideoPath != "/tmp/v.mp4" {
		t.Errorf("media paths = %q, %q, want env overrides", cfg.SoundPath, cfg.VideoPath)
	}
	if cfg.CanvasWidth != 1920 || cfg.CanvasHeight != 1080 {
		t.Errorf("Canvas = %vx%v, want 1920x1080", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	if cfg.FadeIn != 200*time.Millisecond {
		t.Errorf("FadeIn = %v, want 200ms from plain milliseconds", cfg.FadeIn)
	}
	if cfg.Profile != "fade" {
		t.Errorf("Profile = %q, want fade", cfg.Profile)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestEnvInvalidFallsBack(t *testing.T) {
	t.Setenv("GESTURECAST_PORT", "not-a-number")
	t.Setenv("GESTURECAST_STALE_AFTER", "soon")
	t.Setenv("GESTURECAST_CANVAS_WIDTH", "wide")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
	if cfg.StaleAfter != 250*time.Millisecond {
		t.Errorf("Invalid duration env should fallback: got %v", cfg.StaleAfter)
	}
	if cfg.CanvasWidth != 1280 {
		t.Errorf("Invalid float env should fallback: got %v", cfg.CanvasWidth)
	}
}

func TestPipelineProfile(t *testing.T) {
	cfg := Config{Profile: "smooth"}
	p, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline() error: %v", err)
	}
	if p.Name != "smooth" {
		t.Errorf("Name = %q, want smooth", p.Name)
	}

	cfg.Profile = "disco"
	if _, err := cfg.Pipeline(); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("unknown profile error = %v, want ErrInvalidProfile", err)
	}
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfileOverlay(t *testing.T) {
	path := writeProfile(t, `{
		"name": "gallery",
		"velocity_beta": 0.4,
		"channels": {"audio.volume": {"in": [0, 40], "out": [0, 2], "limit": [0.1, 2], "fallback": 0.1}},
		"gate": {"threshold": 3, "approach": 0.05, "min_opacity": 0, "max_opacity": 255, "initial_opacity": 255},
		"gate_enabled": true
	}`)

	base := pipeline.DefaultConfig()
	cfg, err := LoadProfile(path, base)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if cfg.Name != "gallery" || cfg.VelocityBeta != 0.4 || !cfg.GateEnabled {
		t.Errorf("overlay not applied: %+v", cfg)
	}
	if cfg.Alpha != base.Alpha {
		t.Errorf("Alpha = %v, want base %v", cfg.Alpha, base.Alpha)
	}
	vol := cfg.Channels[pipeline.ChannelAudioVolume]
	if vol.Out != (signal.Range{Min: 0, Max: 2}) {
		t.Errorf("audio.volume out = %v, want [0, 2]", vol.Out)
	}
	if _, ok := cfg.Channels[pipeline.ChannelVideoRate]; !ok {
		t.Error("channels missing from the file should keep their base spec")
	}
	if base.Channels[pipeline.ChannelAudioVolume].Out.Max != 3 {
		t.Error("overlay mutated the base profile")
	}
}

func TestLoadProfileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"syntax", `{"alpha": `},
		{"unknown field", `{"alhpa": 0.3}`},
		{"invalid value", `{"alpha": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadProfile(writeProfile(t, tt.body), pipeline.DefaultConfig())
			if !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("err = %v, want ErrInvalidProfile", err)
			}
		})
	}

	_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.json"), pipeline.DefaultConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v, want ErrNotExist", err)
	}

	_, err = LoadProfile(writeProfile(t, `{"alpha": 2}`), pipeline.DefaultConfig())
	if !errors.Is(err, pipeline.ErrInvalidConfig) {
		t.Errorf("validation err = %v, want to wrap ErrInvalidConfig", err)
	}
}
