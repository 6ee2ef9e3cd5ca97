package signal

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func audioRateSpec() MappingSpec {
	return MappingSpec{In: Range{5, 40}, Out: Range{1, 3}, Fallback: 1}
}

func volumeSpec() MappingSpec {
	return MappingSpec{In: Range{0, 20}, Out: Range{0, 3}, Limit: &Range{0.05, 3}, Fallback: 0.05}
}

func videoRateSpec() MappingSpec {
	return MappingSpec{
		In:          Range{0, 20},
		Out:         Range{0.1, 1},
		Momentum:    0.1,
		Initial:     ptr(1),
		Fallback:    1,
		ResetOnLoss: true,
	}
}

func TestControlChannelPassThrough(t *testing.T) {
	ch := NewControlChannel("audio.rate", audioRateSpec())
	assert.Equal(t, 1.0, ch.Current(), "starts at out min")

	tests := []struct {
		input float64
		want  float64
	}{
		{0, 1},
		{5, 1},
		{22.5, 2},
		{40, 3},
		{400, 3},
		{-30, 1}, // magnitude is the caller's job; negative input clamps low
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ch.Update(tt.input), 1e-12, "input=%v", tt.input)
	}
}

func TestControlChannelLimit(t *testing.T) {
	ch := NewControlChannel("audio.volume", volumeSpec())
	assert.Equal(t, 0.05, ch.Current(), "initial value is clamped into the limit")
	assert.Equal(t, 0.05, ch.Update(0))
	assert.InDelta(t, 1.5, ch.Update(10), 1e-12)
	assert.Equal(t, 3.0, ch.Update(100))
}

func TestControlChannelFallbackOnNonFinite(t *testing.T) {
	ch := NewControlChannel("audio.rate", audioRateSpec())
	ch.Update(22.5)

	assert.Equal(t, 1.0, ch.Update(math.NaN()))

	// Infinities clamp to the nearest bound rather than falling back.
	assert.Equal(t, 3.0, ch.Update(math.Inf(1)))
	assert.Equal(t, 1.0, ch.Update(math.Inf(-1)))

	vol := NewControlChannel("audio.volume", volumeSpec())
	assert.Equal(t, 0.05, vol.Update(math.NaN()))
}

func TestControlChannelMomentumCoasts(t *testing.T) {
	ch := NewControlChannel("video.rate", videoRateSpec())
	require.Equal(t, 1.0, ch.Current())

	var got []float64
	for i := 0; i < 3; i++ {
		got = append(got, ch.Update(0))
	}
	want := []float64{0.91, 0.829, 0.7561}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("coasting mismatch (-want +got):\n%s", diff)
	}

	// Many idle ticks settle on the floor but never below it.
	for i := 0; i < 500; i++ {
		ch.Update(0)
	}
	assert.InDelta(t, 0.1, ch.Current(), 1e-9)
	assert.GreaterOrEqual(t, ch.Current(), 0.1)
}

func TestControlChannelMomentumKeepsStateOnFallback(t *testing.T) {
	ch := NewControlChannel("video.rate", videoRateSpec())
	ch.Update(0)
	ch.Update(0) // 0.829

	assert.Equal(t, 1.0, ch.Update(math.NaN()), "fallback is emitted")
	assert.InDelta(t, 0.7561, ch.Update(0), 1e-9, "momentum resumes from the last finite value")
}

func TestControlChannelDegenerateDomain(t *testing.T) {
	ch := NewControlChannel("odd", MappingSpec{In: Range{5, 5}, Out: Range{2, 4}, Fallback: 3})
	for _, v := range []float64{5, 0, 1e6} {
		assert.Equal(t, 2.0, ch.Update(v))
	}
}

func TestControlChannelRebind(t *testing.T) {
	ch := NewControlChannel("video.time", MappingSpec{In: Range{0, 1}, Out: Range{0, 1}})
	ch.Rebind(Range{0, 1280}, Range{0, 20})
	assert.InDelta(t, 10, ch.Update(640), 1e-12)

	ch.Rebind(Range{0, 1280}, Range{0, 5})
	assert.Equal(t, 5.0, ch.Current(), "current is pulled inside the new bounds")
	assert.Equal(t, 5.0, ch.Update(1280))
}

func TestMappingSpecBounds(t *testing.T) {
	assert.Equal(t, Range{0.05, 3}, volumeSpec().Bounds())
	assert.Equal(t, Range{1, 3}, audioRateSpec().Bounds())

	inverted := MappingSpec{Out: Range{3, 1}}
	assert.Equal(t, Range{1, 3}, inverted.Bounds())

	wide := MappingSpec{Out: Range{0, 1}, Limit: &Range{-5, 5}}
	assert.Equal(t, Range{0, 1}, wide.Bounds(), "limit cannot widen the out domain")
}

func TestGeneratorOrderAndLookup(t *testing.T) {
	g := NewGenerator()
	g.Add("audio.rate", audioRateSpec())
	g.Add("audio.volume", volumeSpec())
	g.Add("video.rate", videoRateSpec())
	g.Add("audio.rate", audioRateSpec())

	assert.Equal(t, []string{"audio.rate", "audio.volume", "video.rate"}, g.Names())

	v, ok := g.Update("audio.rate", 40)
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	_, ok = g.Update("missing", 1)
	assert.False(t, ok)

	v, ok = g.Value("audio.volume")
	require.True(t, ok)
	assert.Equal(t, 0.05, v)
	assert.Nil(t, g.Channel("missing"))
}

func TestGeneratorTrackingLost(t *testing.T) {
	g := NewGenerator()
	g.Add("audio.rate", audioRateSpec())
	g.Add("video.rate", videoRateSpec())

	g.Update("audio.rate", 40)
	g.Update("video.rate", 0)
	g.TrackingLost()

	rate, _ := g.Value("audio.rate")
	vrate, _ := g.Value("video.rate")
	assert.Equal(t, 3.0, rate, "channels without reset_on_loss hold")
	assert.Equal(t, 1.0, vrate, "video rate returns to its initial value")
}

func TestOutputsAlwaysBoundedAndFinite(t *testing.T) {
	specs := map[string]MappingSpec{
		"audio.rate":   audioRateSpec(),
		"audio.volume": volumeSpec(),
		"video.rate":   videoRateSpec(),
	}
	inputs := []float64{0, 1, -7, 19.99, 1e300, -1e300, math.NaN(), math.Inf(1), math.Inf(-1), 3}
	for name, spec := range specs {
		ch := NewControlChannel(name, spec)
		b := spec.Bounds()
		for _, in := range inputs {
			out := ch.Update(in)
			assert.True(t, Finite(out), "%s(%v) not finite", name, in)
			assert.True(t, b.Contains(out), "%s(%v)=%v outside %v", name, in, out, b)
		}
	}
}
