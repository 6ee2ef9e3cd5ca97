package signal

// MappingSpec declares how one output channel follows its input.
type MappingSpec struct {
	In  Range `json:"in"`
	Out Range `json:"out"`

	// Limit narrows the clamp interval inside Out. Nil clamps to Out.
	Limit *Range `json:"limit,omitempty"`

	// Momentum in (0, 1] blends each target into the previous value. Zero
	// passes the clamped target straight through.
	Momentum float64 `json:"momentum,omitempty"`

	// Initial seeds the channel. Nil starts at Out.Min.
	Initial *float64 `json:"initial,omitempty"`

	// Fallback is emitted whenever the computed value is not finite.
	Fallback float64 `json:"fallback"`

	// ResetOnLoss returns the channel to Initial when tracking is lost.
	ResetOnLoss bool `json:"reset_on_loss,omitempty"`
}

// Bounds returns the interval every emitted value lies in.
func (s MappingSpec) Bounds() Range {
	out := Range{Min: s.Out.Lo(), Max: s.Out.Hi()}
	if s.Limit == nil {
		return out
	}
	return Range{
		Min: out.Clamp(s.Limit.Lo()),
		Max: out.Clamp(s.Limit.Hi()),
	}
}

// InitialValue returns the clamped starting value.
func (s MappingSpec) InitialValue() float64 {
	v := s.Out.Min
	if s.Initial != nil {
		v = *s.Initial
	}
	b := s.Bounds()
	if !Finite(v) {
		return b.Clamp(s.Fallback)
	}
	return b.Clamp(v)
}

// ControlChannel is the live state of one mapped output.
type ControlChannel struct {
	name    string
	spec    MappingSpec
	state   float64 // last finite value, feeds momentum
	current float64 // last emitted value
}

// NewControlChannel creates a channel seeded at spec's initial value.
func NewControlChannel(name string, spec MappingSpec) *ControlChannel {
	c := &ControlChannel{name: name, spec: spec}
	c.Reset()
	return c
}

// Name returns the channel identifier.
func (c *ControlChannel) Name() string { return c.name }

// Current returns the last emitted value.
func (c *ControlChannel) Current() float64 { return c.current }

// Update maps input through the channel and returns the value to apply.
func (c *ControlChannel) Update(input float64) float64 {
	bounds := c.spec.Bounds()

	target := Map(input, c.spec.In.Min, c.spec.In.Max, c.spec.Out.Min, c.spec.Out.Max)
	next := bounds.Clamp(target)

	if m := c.spec.Momentum; m > 0 {
		next = bounds.Clamp(m*next + (1-m)*c.state)
	}

	if !Finite(next) {
		c.current = bounds.Clamp(c.spec.Fallback)
		return c.current
	}

	c.state = next
	c.current = next
	return next
}

// Reset returns the channel to its initial value.
func (c *ControlChannel) Reset() {
	c.state = c.spec.InitialValue()
	c.current = c.state
}

// Rebind replaces the input and output domains, keeping momentum state inside
// the new bounds. Used for domains queried each tick such as media duration.
func (c *ControlChannel) Rebind(in, out Range) {
	c.spec.In = in
	c.spec.Out = out
	b := c.spec.Bounds()
	c.state = b.Clamp(c.state)
	c.current = b.Clamp(c.current)
}

// Generator owns the set of control channels of one pipeline.
type Generator struct {
	channels map[string]*ControlChannel
	order    []string
}

// NewGenerator creates an empty generator.
func NewGenerator() *Generator {
	return &Generator{channels: make(map[string]*ControlChannel)}
}

// Add registers a channel, replacing any channel of the same name.
func (g *Generator) Add(name string, spec MappingSpec) *ControlChannel {
	if _, exists := g.channels[name]; !exists {
		g.order = append(g.order, name)
	}
	ch := NewControlChannel(name, spec)
	g.channels[name] = ch
	return ch
}

// Channel returns the named channel or nil.
func (g *Generator) Channel(name string) *ControlChannel {
	return g.channels[name]
}

// Names returns channel names in registration order.
func (g *Generator) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Update feeds input to the named channel. It reports false for unknown channels.
func (g *Generator) Update(name string, input float64) (float64, bool) {
	ch, ok := g.channels[name]
	if !ok {
		return 0, false
	}
	return ch.Update(input), true
}

// Value returns the last emitted value of the named channel.
func (g *Generator) Value(name string) (float64, bool) {
	ch, ok := g.channels[name]
	if !ok {
		return 0, false
	}
	return ch.Current(), true
}

// TrackingLost resets every channel whose spec asks for it.
func (g *Generator) TrackingLost() {
	for _, name := range g.order {
		if ch := g.channels[name]; ch.spec.ResetOnLoss {
			ch.Reset()
		}
	}
}
