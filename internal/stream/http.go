package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/exec"

	"github.com/satindergrewal/gesturecast/internal/audio"
	"github.com/satindergrewal/gesturecast/internal/log"
)

// FrameBuffer is the per-listener PCM buffer: ~3 seconds at 20ms/frame.
const FrameBuffer = 150

// HTTPHandler serves the driven sound as a chunked MP3 stream.
// Each connection spawns an FFmpeg process to encode PCM -> MP3 in real-time.
type HTTPHandler struct {
	frames *Broadcaster[[]int16]
	name   string
}

// NewHTTPHandler creates an HTTP stream handler.
func NewHTTPHandler(frames *Broadcaster[[]int16], name string) *HTTPHandler {
	return &HTTPHandler{frames: frames, name: name}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", h.name)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// FFmpeg: PCM stdin -> MP3 stdout
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "s16le",
		"-ar", "48000",
		"-ac", "2",
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Error("http stream: stdin pipe", "error", err)
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Error("http stream: stdout pipe", "error", err)
		return
	}

	if err := cmd.Start(); err != nil {
		log.Error("http stream: ffmpeg start", "error", err)
		http.Error(w, "encoder unavailable", http.StatusServiceUnavailable)
		return
	}

	listener := h.frames.Subscribe()
	defer h.frames.Unsubscribe(listener)

	log.Info("http listener connected", "remote", r.RemoteAddr, "total", h.frames.ListenerCount())
	defer log.Info("http listener disconnected", "remote", r.RemoteAddr)

	// Feed PCM frames to FFmpeg
	go func() {
		defer stdin.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Done():
				return
			case frame, ok := <-listener.C:
				if !ok {
					return
				}
				if _, err := stdin.Write(audio.SamplesToBytes(frame)); err != nil {
					return
				}
			}
		}
	}()

	// Read MP3 from FFmpeg and write to HTTP response
	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Warn("http stream: ffmpeg read", "error", err)
			}
			break
		}
	}

	cancel()
	cmd.Wait()
}
