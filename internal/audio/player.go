package audio

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
)

// Player loops one decoded sound and renders it at real-time rate with the
// playback rate and volume set by the control pipeline. It stays silent until
// the first started output arrives, then fades in.
type Player struct {
	frameCh    chan []int16
	fadeFrames int

	mu       sync.RWMutex
	status   Status
	samples  []int16
	pos      float64 // read head in sample frames, fractional
	fadeDone int
}

// Status describes the player for the API.
type Status struct {
	Path     string        `json:"path"`
	Name     string        `json:"name"`
	Loaded   bool          `json:"loaded"`
	Playing  bool          `json:"playing"`
	Rate     float64       `json:"rate"`
	Volume   float64       `json:"volume"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
}

// NewPlayer creates a player that fades in over fadeIn once started.
func NewPlayer(fadeIn time.Duration) *Player {
	return &Player{
		frameCh:    make(chan []int16, 100),
		fadeFrames: int(fadeIn / FrameDuration),
		status:     Status{Rate: 1, Volume: 1},
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Player) Frames() <-chan []int16 {
	return p.frameCh
}

// Load decodes the sound at path.
func (p *Player) Load(ctx context.Context, path string) error {
	samples, err := DecodeFile(ctx, path)
	if err != nil {
		return err
	}
	if err := p.LoadSamples(samples); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	p.mu.Lock()
	p.status.Path = path
	p.status.Name = filepath.Base(path)
	p.mu.Unlock()
	log.Info("sound loaded", "path", path, "duration", p.Status().Duration)
	return nil
}

// LoadSamples replaces the sound with interleaved stereo PCM at SampleRate.
func (p *Player) LoadSamples(samples []int16) error {
	samples = samples[:len(samples)-len(samples)%Channels]
	if len(samples) == 0 {
		return fmt.Errorf("no audio samples")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = samples
	p.pos = 0
	p.status.Loaded = true
	p.status.Position = 0
	p.status.Duration = time.Duration(len(samples)/Channels) * time.Second / SampleRate
	return nil
}

// Ready reports whether a sound is loaded.
func (p *Player) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.Loaded
}

// Status returns current playback info.
func (p *Player) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Apply follows the pipeline: playback starts with the first started output and
// rate and volume track every output after that.
func (p *Player) Apply(out pipeline.Output) {
	if !out.Started {
		return
	}
	p.mu.Lock()
	if !p.status.Playing && p.status.Loaded {
		p.status.Playing = true
		p.fadeDone = 0
		log.Info("sound playing", "name", p.status.Name)
	}
	p.mu.Unlock()
	p.SetRate(out.AudioRate)
	p.SetVolume(out.AudioVolume)
}

// SetRate sets the playback rate; pitch follows. Non-positive rates are ignored.
func (p *Player) SetRate(rate float64) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return
	}
	p.mu.Lock()
	p.status.Rate = rate
	p.mu.Unlock()
}

// SetVolume sets the linear gain. Negative volumes are ignored.
func (p *Player) SetVolume(volume float64) {
	if math.IsNaN(volume) || math.IsInf(volume, 0) || volume < 0 {
		return
	}
	p.mu.Lock()
	p.status.Volume = volume
	p.mu.Unlock()
}

// Run renders frames until ctx is cancelled.
func (p *Player) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		select {
		case p.frameCh <- p.render():
		case <-ctx.Done():
			return
		}
	}
}

// render produces the next 20ms frame: linear-interpolated resampling at the
// current rate, looping at the end of the sound, then gain with int16 clipping.
func (p *Player) render() []int16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	frame := make([]int16, FrameSamples)
	if !p.status.Playing || len(p.samples) == 0 {
		return frame
	}

	n := len(p.samples) / Channels
	gain := p.status.Volume
	for i := 0; i < FrameSize; i++ {
		idx := int(p.pos)
		frac := p.pos - float64(idx)
		a := (idx % n) * Channels
		b := ((idx + 1) % n) * Channels
		for c := 0; c < Channels; c++ {
			s := float64(p.samples[a+c])*(1-frac) + float64(p.samples[b+c])*frac
			frame[i*Channels+c] = clip(s * gain)
		}
		p.pos = math.Mod(p.pos+p.status.Rate, float64(n))
	}
	p.status.Position = time.Duration(p.pos * float64(time.Second) / SampleRate)

	if p.fadeDone < p.fadeFrames {
		progress := float64(p.fadeDone) / float64(p.fadeFrames)
		frame = FadeIn(frame, progress)
		p.fadeDone++
	}
	return frame
}

func clip(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
