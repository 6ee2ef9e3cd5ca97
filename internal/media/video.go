// Package media tracks the state of the driven video and exposes what the
// control pipeline needs to know about the loaded media.
package media

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
)

// ProbeDuration runs FFprobe to read a media file's duration in seconds.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(string(out))
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, fmt.Errorf("unusable duration %v", d)
	}
	return d, nil
}

// VideoState is what the browser applies to its video element.
type VideoState struct {
	Path     string  `json:"path"`
	Name     string  `json:"name"`
	Loaded   bool    `json:"loaded"`
	Duration float64 `json:"duration"`
	Time     float64 `json:"time"`
	Rate     float64 `json:"rate"`
	Opacity  float64 `json:"opacity"`
	Paused   bool    `json:"paused"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Video holds the remote video's state. The browser renders it; this side
// decides time, rate, opacity and play/pause.
type Video struct {
	mu    sync.RWMutex
	state VideoState
}

// NewVideo creates an unloaded video with the given initial viewport.
func NewVideo(width, height float64) *Video {
	return &Video{state: VideoState{
		Rate:    1,
		Opacity: 255,
		Paused:  true,
		Width:   width,
		Height:  height,
	}}
}

// Load probes path for its duration.
func (v *Video) Load(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	d, err := ProbeDuration(ctx, path)
	if err != nil {
		return err
	}
	v.SetSource(path, d)
	log.Info("video loaded", "path", path, "duration", d)
	return nil
}

// SetSource marks the video loaded with a known duration.
func (v *Video) SetSource(path string, duration float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Path = path
	v.state.Name = filepath.Base(path)
	v.state.Duration = duration
	v.state.Loaded = duration > 0
}

// SetViewport records the canvas size reported by the browser.
func (v *Video) SetViewport(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("invalid viewport %vx%v", width, height)
	}
	v.mu.Lock()
	v.state.Width, v.state.Height = width, height
	v.mu.Unlock()
	return nil
}

// Duration is the video length in seconds, 0 until loaded.
func (v *Video) Duration() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.Duration
}

// Viewport returns the canvas size.
func (v *Video) Viewport() (width, height float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.Width, v.state.Height
}

// Ready reports whether the video is loaded.
func (v *Video) Ready() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state.Loaded
}

// State returns a snapshot.
func (v *Video) State() VideoState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Apply takes the video controls from a started output. Time only moves
// while tracking; a lost hand leaves the video where it was.
func (v *Video) Apply(out pipeline.Output) {
	if !out.Started {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if out.Tracking && v.state.Duration > 0 {
		v.state.Time = out.VideoTime
	}
	v.state.Rate = out.VideoRate
	v.state.Opacity = out.Opacity
	v.state.Paused = !out.Playing
}
