package signal

import "math"

// DefaultVelocityBeta is the smoothing factor applied to frame-to-frame displacement.
const DefaultVelocityBeta = 0.2

// VelocityEstimator converts a position sequence into a smoothed velocity.
//
// The first position after construction or Reset only primes the estimator and
// yields 0. Callers must invoke Reset when tracking is lost so the jump between
// the last known and the reacquired position is never read as motion.
type VelocityEstimator struct {
	beta float64

	previous    float64
	hasPrevious bool
	warm        bool

	raw      float64
	smoothed float64
}

// NewVelocityEstimator creates an estimator. Beta outside (0, 1] uses the default.
func NewVelocityEstimator(beta float64) *VelocityEstimator {
	return &VelocityEstimator{beta: validAlpha(beta, DefaultVelocityBeta)}
}

// Update feeds the next position and returns the smoothed velocity.
// Non-finite positions are ignored.
func (v *VelocityEstimator) Update(position float64) float64 {
	if !Finite(position) {
		return v.smoothed
	}
	if !v.hasPrevious {
		v.previous = position
		v.hasPrevious = true
		return 0
	}

	v.raw = position - v.previous
	v.smoothed = v.beta*v.raw + (1-v.beta)*v.smoothed
	v.previous = position
	v.warm = true
	return v.smoothed
}

// Reset drops the reference position and zeroes the velocity.
func (v *VelocityEstimator) Reset() {
	v.previous = 0
	v.hasPrevious = false
	v.warm = false
	v.raw = 0
	v.smoothed = 0
}

// Ready reports whether two consecutive positions have been observed since the last reset.
func (v *VelocityEstimator) Ready() bool { return v.warm }

// Value returns the last smoothed velocity.
func (v *VelocityEstimator) Value() float64 { return v.smoothed }

// Magnitude returns the absolute smoothed velocity.
func (v *VelocityEstimator) Magnitude() float64 { return math.Abs(v.smoothed) }

// Raw returns the last unsmoothed displacement.
func (v *VelocityEstimator) Raw() float64 { return v.raw }
