package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/gesturecast/internal/audio"
	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
)

// ControlsLabel is the data channel the browser opens to receive control outputs.
const ControlsLabel = "controls"

// WebRTCHandler serves WebRTC SDP negotiation: an Opus track carrying the
// driven sound and a data channel carrying every control output.
type WebRTCHandler struct {
	frames   *Broadcaster[[]int16]
	controls *Broadcaster[pipeline.Output]
	mu       sync.Mutex
	peers    map[string]*webrtc.PeerConnection
}

// NewWebRTCHandler creates a WebRTC stream handler.
func NewWebRTCHandler(frames *Broadcaster[[]int16], controls *Broadcaster[pipeline.Output]) *WebRTCHandler {
	return &WebRTCHandler{
		frames:   frames,
		controls: controls,
		peers:    make(map[string]*webrtc.PeerConnection),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	id := uuid.NewString()
	plog := log.With("component", "webrtc", "peer", id)

	audioTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio",
		"gesturecast-"+id,
	)
	if err != nil {
		pc.Close()
		http.Error(w, "create audio track failed", http.StatusInternalServerError)
		return
	}

	if _, err := pc.AddTrack(audioTrack); err != nil {
		pc.Close()
		http.Error(w, "add track failed", http.StatusInternalServerError)
		return
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ControlsLabel {
			plog.Debug("ignoring data channel", "label", dc.Label())
			return
		}
		closed := make(chan struct{})
		var once sync.Once
		dc.OnClose(func() { once.Do(func() { close(closed) }) })
		dc.OnOpen(func() {
			go h.streamControls(dc, closed, plog)
		})
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	// Wait for ICE gathering to complete
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	select {
	case <-gatherComplete:
	case <-r.Context().Done():
		pc.Close()
		return
	}

	h.mu.Lock()
	h.peers[id] = pc
	h.mu.Unlock()

	plog.Info("peer connected", "total", h.PeerCount())

	// Stream audio in background
	go h.streamToPeer(pc, audioTrack, plog)

	// Clean up on disconnect
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			if h.removePeer(id) {
				pc.Close()
				plog.Info("peer disconnected", "remaining", h.PeerCount())
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Peer-ID", id)
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

func (h *WebRTCHandler) streamToPeer(pc *webrtc.PeerConnection, track *webrtc.TrackLocalStaticSample, plog *slog.Logger) {
	listener := h.frames.Subscribe()
	defer h.frames.Unsubscribe(listener)

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		plog.Error("opus encoder", "error", err)
		return
	}
	enc.SetBitrate(128000)

	opusBuf := make([]byte, 4000)

	for {
		select {
		case <-listener.Done():
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, opusBuf)
			if err != nil {
				plog.Warn("opus encode", "error", err)
				continue
			}
			if err := track.WriteSample(media.Sample{
				Data:     opusBuf[:n],
				Duration: audio.FrameDuration,
			}); err != nil {
				return
			}
			if pc.ConnectionState() == webrtc.PeerConnectionStateClosed {
				return
			}
		}
	}
}

// streamControls sends every output as JSON until the channel closes.
// textSender is the part of a data channel streamControls writes to.
type textSender interface {
	SendText(s string) error
}

// streamControls sends every published output as JSON until closed fires or
// a send fails.
func (h *WebRTCHandler) streamControls(dc textSender, closed <-chan struct{}, plog *slog.Logger) {
	select {
	case <-closed:
		return
	default:
	}
	listener := h.controls.Subscribe()
	defer h.controls.Unsubscribe(listener)

	for {
		select {
		case <-closed:
			return
		case <-listener.Done():
			return
		case out := <-listener.C:
			data, err := json.Marshal(out)
			if err != nil {
				plog.Warn("encode controls", "error", err)
				continue
			}
			if err := dc.SendText(string(data)); err != nil {
				plog.Debug("controls channel send", "error", err)
				return
			}
		}
	}
}

func (h *WebRTCHandler) removePeer(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[id]; !ok {
		return false
	}
	delete(h.peers, id)
	return true
}
