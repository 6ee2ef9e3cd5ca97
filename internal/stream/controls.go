package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/satindergrewal/gesturecast/internal/log"
	"github.com/satindergrewal/gesturecast/internal/pipeline"
)

const (
	// writeWait is how long to wait for a write to complete
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong response
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds client messages; clients only send pongs and close frames
	maxMessageSize = 512

	// ControlsBuffer is the per-client output buffer: ~1 second at 60 ticks/s.
	ControlsBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ControlsHandler streams every control output to browser clients over a websocket.
type ControlsHandler struct {
	controls *Broadcaster[pipeline.Output]
}

// NewControlsHandler creates a websocket control feed.
func NewControlsHandler(controls *Broadcaster[pipeline.Output]) *ControlsHandler {
	return &ControlsHandler{controls: controls}
}

// ClientCount returns the number of connected feeds, websocket and data channel alike.
func (h *ControlsHandler) ClientCount() int {
	return h.controls.ListenerCount()
}

func (h *ControlsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.Debug("controls upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	listener := h.controls.Subscribe()
	log.Info("controls client connected", "client", id, "total", h.controls.ListenerCount())

	go h.writePump(conn, listener)
	h.readPump(conn)

	h.controls.Unsubscribe(listener)
	log.Info("controls client disconnected", "client", id)
}

// readPump keeps the read deadline fresh and returns when the client goes away.
func (h *ControlsHandler) readPump(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine that writes to conn.
func (h *ControlsHandler) writePump(conn *websocket.Conn, listener *Listener[pipeline.Output]) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-listener.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case out := <-listener.C:
			data, err := json.Marshal(out)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
