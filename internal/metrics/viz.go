// Package metrics exposes live pipeline values via expvar for plotting.
package metrics

import (
	"expvar"

	"github.com/satindergrewal/gesturecast/internal/pipeline"
)

// CounterSource is a source of monotonically increasing counts.
type CounterSource func() map[string]uint64

// Viz holds the expvar maps for the latest input, output and counters.
type Viz struct {
	input   *expvar.Map
	output  *expvar.Map
	ticks   expvar.Int
	sources []CounterSource
}

// NewViz creates unpublished maps; call Publish to expose them under /debug/vars.
func NewViz() *Viz {
	v := &Viz{
		input:  new(expvar.Map).Init(),
		output: new(expvar.Map).Init(),
	}
	for _, k := range []string{"x", "y", "velocity", "tracking", "warm"} {
		v.input.Set(k, new(expvar.Float))
	}
	for _, k := range []string{"audio_rate", "audio_volume", "video_time", "video_rate", "opacity", "playing", "state", "started"} {
		v.output.Set(k, new(expvar.Float))
	}
	return v
}

// Publish registers the maps as prefix_input, prefix_output and prefix_counters.
// expvar names are process-global, so Publish must be called once per prefix.
func (v *Viz) Publish(prefix string) {
	expvar.Publish(prefix+"_input", v.input)
	expvar.Publish(prefix+"_output", v.output)
	expvar.Publish(prefix+"_counters", expvar.Func(func() any {
		return v.Counters()
	}))
}

// AddCounters adds a counter source, read on every /debug/vars request.
func (v *Viz) AddCounters(c CounterSource) {
	v.sources = append(v.sources, c)
}

// Apply records one pipeline output. It satisfies pipeline.Sink.
func (v *Viz) Apply(out pipeline.Output) {
	if v == nil {
		return
	}
	setFloat(v.input, "x", out.X)
	setFloat(v.input, "y", out.Y)
	setFloat(v.input, "velocity", out.Velocity)
	setFloat(v.input, "tracking", boolFloat(out.Tracking))
	setFloat(v.input, "warm", boolFloat(out.Warm))

	setFloat(v.output, "audio_rate", out.AudioRate)
	setFloat(v.output, "audio_volume", out.AudioVolume)
	setFloat(v.output, "video_time", out.VideoTime)
	setFloat(v.output, "video_rate", out.VideoRate)
	setFloat(v.output, "opacity", out.Opacity)
	setFloat(v.output, "playing", boolFloat(out.Playing))
	setFloat(v.output, "state", float64(out.State))
	setFloat(v.output, "started", boolFloat(out.Started))
	v.ticks.Add(1)
}

// Float returns a recorded value, for tests and the status API.
func (v *Viz) Float(group, key string) (float64, bool) {
	var m *expvar.Map
	switch group {
	case "input":
		m = v.input
	case "output":
		m = v.output
	default:
		return 0, false
	}
	f, ok := m.Get(key).(*expvar.Float)
	if !ok {
		return 0, false
	}
	return f.Value(), true
}

// Counters returns the tick count and every source's counters.
func (v *Viz) Counters() map[string]int64 {
	out := map[string]int64{"ticks": v.ticks.Value()}
	for _, src := range v.sources {
		for k, n := range src() {
			out[k] = int64(n)
		}
	}
	return out
}

// setFloat updates an expvar.Float stored inside a map.
func setFloat(m *expvar.Map, key string, value float64) {
	if v := m.Get(key); v != nil {
		if f, ok := v.(*expvar.Float); ok {
			f.Set(value)
			return
		}
	}
	f := new(expvar.Float)
	f.Set(value)
	m.Set(key, f)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
