package landmark

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/satindergrewal/gesturecast/internal/log"
)

// Stats counts listener activity.
type Stats struct {
	Packets     uint64 `json:"packets"`
	Frames      uint64 `json:"frames"`
	Commands    uint64 `json:"commands"`
	ParseErrors uint64 `json:"parse_errors"`
}

// Listener receives landmark datagrams over UDP.
type Listener struct {
	// OnFrame is called for every decoded frame, from the read goroutine.
	OnFrame func(Frame)
	// OnCommand is called for control datagrams.
	OnCommand func(Command)

	conn       *net.UDPConn
	bufferSize int

	packets     atomic.Uint64
	frames      atomic.Uint64
	commands    atomic.Uint64
	parseErrors atomic.Uint64
}

// Listen binds addr. A bufferSize <= 0 uses 2048 bytes.
func Listen(addr string, bufferSize int) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if bufferSize <= 0 {
		bufferSize = 2048
	}
	return &Listener{conn: conn, bufferSize: bufferSize}, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.conn.LocalAddr() }

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Packets:     l.packets.Load(),
		Frames:      l.frames.Load(),
		Commands:    l.commands.Load(),
		ParseErrors: l.parseErrors.Load(),
	}
}

// Run reads datagrams until ctx is cancelled, then closes the socket.
func (l *Listener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	log.Info("landmark listener started", "addr", l.Addr().String())
	buf := make([]byte, l.bufferSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("landmark read failed", "error", err)
			continue
		}
		l.packets.Add(1)
		l.handle(buf[:n])
	}
}

func (l *Listener) handle(b []byte) {
	msg, err := ParseDatagram(b)
	if err != nil {
		if l.parseErrors.Add(1) == 1 {
			log.Warn("bad landmark datagram", "error", err)
		}
		return
	}
	if msg.Command != "" {
		if l.OnCommand != nil {
			l.OnCommand(msg.Command)
		}
		l.commands.Add(1)
		return
	}
	if l.OnFrame != nil {
		l.OnFrame(msg.Frame)
	}
	l.frames.Add(1)
}
