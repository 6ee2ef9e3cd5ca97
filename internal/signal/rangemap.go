package signal

import (
	"encoding/json"
	"fmt"
	"math"
)

// Range is a closed numeric interval. Min may exceed Max for inverted mappings.
type Range struct {
	Min float64
	Max float64
}

// Lo returns the smaller bound.
func (r Range) Lo() float64 { return math.Min(r.Min, r.Max) }

// Hi returns the larger bound.
func (r Range) Hi() float64 { return math.Max(r.Min, r.Max) }

// Degenerate reports whether the interval has zero width.
func (r Range) Degenerate() bool { return r.Min == r.Max }

// Contains reports whether v lies inside the interval, bounds included.
func (r Range) Contains(v float64) bool {
	return v >= r.Lo() && v <= r.Hi()
}

// Clamp restricts v to the interval.
func (r Range) Clamp(v float64) float64 {
	return Clamp(v, r.Lo(), r.Hi())
}

// MarshalJSON encodes a range as a two element array.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON accepts either [min, max] or {"min": .., "max": ..}.
func (r *Range) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("range: expected 2 values, got %d", len(pair))
		}
		r.Min, r.Max = pair[0], pair[1]
		return nil
	}

	var obj struct {
		Min *float64 `json:"min"`
		Max *float64 `json:"max"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if obj.Min == nil || obj.Max == nil {
		return fmt.Errorf("range: both min and max are required")
	}
	r.Min, r.Max = *obj.Min, *obj.Max
	return nil
}

// Map linearly maps value from [inMin, inMax] onto [outMin, outMax].
// The result is not clamped and may extrapolate. A zero-width input domain
// yields outMin. Non-finite values propagate.
func Map(value, inMin, inMax, outMin, outMax float64) float64 {
	if inMin == inMax {
		return outMin
	}
	if value == inMin {
		return outMin
	}
	if value == inMax {
		return outMax
	}
	return outMin + (value-inMin)*(outMax-outMin)/(inMax-inMin)
}

// Clamp keeps value inside [lo, hi]. NaN passes through unchanged.
func Clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Lerp moves a toward b by fraction t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Finite reports whether v is neither NaN nor ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
