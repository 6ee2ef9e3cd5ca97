package audio

// Smoothstep returns 3t^2 - 2t^3 for t clamped to [0,1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeIn scales frame in place by the smoothstep gain at progress
// (0 silent, 1 untouched) and returns it.
func FadeIn(frame []int16, progress float64) []int16 {
	gain := Smoothstep(progress)
	if gain == 1 {
		return frame
	}
	for i, s := range frame {
		frame[i] = clip(float64(s) * gain)
	}
	return frame
}
