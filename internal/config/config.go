package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/satindergrewal/gesturecast/internal/pipeline"
	"github.com/satindergrewal/gesturecast/internal/signal"
)

// ErrInvalidProfile is returned when a profile name or file cannot be used.
var ErrInvalidProfile = errors.New("invalid profile")

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Landmark input
	LandmarkAddr string
	ReadBuffer   int           // UDP read buffer in bytes
	StaleAfter   time.Duration // no datagram for this long counts as tracking lost

	// Media
	SoundPath    string
	VideoPath    string
	CanvasWidth  float64 // initial viewport until the browser reports its own
	CanvasHeight float64
	FadeIn       time.Duration // audio fade-in after start

	// Experience
	Profile     string // built-in profile name
	ProfileFile string // optional JSON overlay on top of Profile

	LogLevel string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("GESTURECAST_PORT", 8080),

		LandmarkAddr: envStr("GESTURECAST_LANDMARK_ADDR", ":9870"),
		ReadBuffer:   envInt("GESTURECAST_READ_BUFFER", 2048),
		StaleAfter:   envDuration("GESTURECAST_STALE_AFTER", 250*time.Millisecond),

		SoundPath:    envStr("GESTURECAST_SOUND", "assets/sounds/les-gens.mp3"),
		VideoPath:    envStr("GESTURECAST_VIDEO", "assets/videos/sunset_03.mp4"),
		CanvasWidth:  envFloat("GESTURECAST_CANVAS_WIDTH", 1280),
		CanvasHeight: envFloat("GESTURECAST_CANVAS_HEIGHT", 720),
		FadeIn:       envDuration("GESTURECAST_FADE_IN", 500*time.Millisecond),

		Profile:     envStr("GESTURECAST_PROFILE", "momentum"),
		ProfileFile: envStr("GESTURECAST_PROFILE_FILE", ""),

		LogLevel: envStr("GESTURECAST_LOG_LEVEL", "info"),
	}
}

// Pipeline resolves the built-in profile and applies the overlay file, if any.
func (c Config) Pipeline() (pipeline.Config, error) {
	base, err := pipeline.Profile(c.Profile)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if c.ProfileFile == "" {
		return base, nil
	}
	return LoadProfile(c.ProfileFile, base)
}

// LoadProfile overlays the JSON file at path on base and validates the result.
// Fields missing from the file keep their base values; channels named in the
// file replace the base channel entirely.
func LoadProfile(path string, base pipeline.Config) (pipeline.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	cfg := base
	cfg.PositionKeys = append([]string(nil), base.PositionKeys...)
	cfg.AuxKeys = append([]string(nil), base.AuxKeys...)
	cfg.Channels = make(map[string]signal.MappingSpec, len(base.Channels))
	for k, v := range base.Channels {
		cfg.Channels[k] = v
	}
	if base.ChannelAlpha != nil {
		cfg.ChannelAlpha = make(map[string]float64, len(base.ChannelAlpha))
		for k, v := range base.ChannelAlpha {
			cfg.ChannelAlpha[k] = v
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: parse %s: %v", ErrInvalidProfile, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidProfile, path, err)
	}
	return cfg, nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go durations ("250ms") or plain milliseconds ("250").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}
