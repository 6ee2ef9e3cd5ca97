package main

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"
	"time"

	"github.com/satindergrewal/gesturecast/internal/audio"
	"github.com/satindergrewal/gesturecast/internal/landmark"
	"github.com/satindergrewal/gesturecast/internal/media"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
	"github.com/satindergrewal/gesturecast/internal/stream"
)

// server holds what the HTTP routes read and drive.
type server struct {
	runID    string
	engine   *pipeline.Engine
	video    *media.Video
	player   *audio.Player
	frames   *stream.Broadcaster[[]int16]
	controls *stream.Broadcaster[pipeline.Output]
	webrtc   *stream.WebRTCHandler
	stats    func() landmark.Stats
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Audio streams and control feeds
	mux.Handle("/stream", stream.NewHTTPHandler(s.frames, "gesturecast"))
	mux.Handle("/offer", s.webrtc)
	mux.Handle("/ws/controls", stream.NewControlsHandler(s.controls))
	mux.Handle("/debug/vars", expvar.Handler())

	// API endpoints
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/viewport", s.handleViewport)
	return mux
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	var lm landmark.Stats
	if s.stats != nil {
		lm = s.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":   s.runID,
		"profile":  cfg.Name,
		"profiles": pipeline.ProfileNames(),
		"output":   s.engine.Last(),
		"video":    s.video.State(),
		"sound":    s.player.Status(),
		"listeners": map[string]any{
			"http":     s.frames.ListenerCount(),
			"webrtc":   s.webrtc.PeerCount(),
			"controls": s.controls.ListenerCount(),
		},
		"landmarks": lm,
		"dropped":   s.engine.Dropped(),
	})
}

func (s *server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ok, err := s.engine.RequestStart(ctx)
	if err != nil {
		http.Error(w, "engine not responding", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "media still loading", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "started": true})
}

func (s *server) handleViewport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := s.video.SetViewport(req.Width, req.Height); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "width": req.Width, "height": req.Height})
}

// frameSample converts a landmark frame into a pipeline sample on the current viewport.
func frameSample(f landmark.Frame, video *media.Video) pipeline.Sample {
	if !f.Valid() {
		return pipeline.Invalid
	}
	width, height := video.Viewport()
	return pipeline.Sample{Valid: true, Values: f.Values(width, height)}
}
