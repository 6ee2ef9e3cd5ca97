// Package signal turns noisy per-tick scalar samples into bounded control values:
// exponential smoothing, velocity estimation, range mapping with momentum, and
// the motion gate that fades and pauses the driven media.
//
// Nothing in this package blocks or returns errors. Every value it emits is
// finite once it has been fed at least one finite sample.
package signal

// DefaultPositionAlpha is the smoothing factor used when none is configured.
const DefaultPositionAlpha = 0.2

type smoothedChannel struct {
	alpha float64
	value float64
	seen  bool
}

// PositionTracker keeps an exponential moving average per named channel.
type PositionTracker struct {
	alpha    float64
	channels map[string]*smoothedChannel
}

// NewPositionTracker creates a tracker whose channels default to alpha.
// Alpha outside (0, 1] falls back to DefaultPositionAlpha.
func NewPositionTracker(alpha float64) *PositionTracker {
	return &PositionTracker{
		alpha:    validAlpha(alpha, DefaultPositionAlpha),
		channels: make(map[string]*smoothedChannel),
	}
}

// SetAlpha overrides the smoothing factor of a single channel.
func (p *PositionTracker) SetAlpha(key string, alpha float64) {
	p.channel(key).alpha = validAlpha(alpha, p.alpha)
}

// Update feeds raw into the channel and returns the smoothed value.
// The first finite sample is returned unchanged. Non-finite samples leave the
// channel untouched. The boolean is false until a finite sample has been seen.
func (p *PositionTracker) Update(key string, raw float64) (float64, bool) {
	ch := p.channel(key)
	if !Finite(raw) {
		return ch.value, ch.seen
	}
	if !ch.seen {
		ch.value = raw
		ch.seen = true
		return ch.value, true
	}
	ch.value = ch.alpha*raw + (1-ch.alpha)*ch.value
	return ch.value, true
}

// Value returns the current smoothed value of key without updating it.
func (p *PositionTracker) Value(key string) (float64, bool) {
	ch, ok := p.channels[key]
	if !ok {
		return 0, false
	}
	return ch.value, ch.seen
}

// Reset forgets the history of key. Its alpha is kept.
func (p *PositionTracker) Reset(key string) {
	if ch, ok := p.channels[key]; ok {
		ch.value = 0
		ch.seen = false
	}
}

// ResetAll forgets the history of every channel.
func (p *PositionTracker) ResetAll() {
	for key := range p.channels {
		p.Reset(key)
	}
}

func (p *PositionTracker) channel(key string) *smoothedChannel {
	ch, ok := p.channels[key]
	if !ok {
		ch = &smoothedChannel{alpha: p.alpha}
		p.channels[key] = ch
	}
	return ch
}

func validAlpha(alpha, fallback float64) float64 {
	if !Finite(alpha) || alpha <= 0 || alpha > 1 {
		return fallback
	}
	return alpha
}
