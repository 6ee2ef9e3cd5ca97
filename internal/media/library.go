package media

// Readier is any media source that finishes loading asynchronously.
type Readier interface {
	Ready() bool
}

// Library is the pair of media one experience drives. It answers the control
// pipeline's questions about duration, viewport and readiness.
type Library struct {
	Video *Video
	Sound Readier
}

// Duration is the video duration in seconds.
func (l *Library) Duration() float64 { return l.Video.Duration() }

// Viewport is the canvas size the video is mapped onto.
func (l *Library) Viewport() (width, height float64) { return l.Video.Viewport() }

// Ready reports whether both sound and video are loaded.
func (l *Library) Ready() bool {
	return l.Video.Ready() && l.Sound != nil && l.Sound.Ready()
}
