// Package landmark decodes hand landmark datagrams from the pose tracker and
// maps them into canvas coordinates.
package landmark

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tracked landmark indices (MediaPipe pose model).
const (
	RightWrist = 16
	RightPinky = 18
	RightIndex = 20
)

// Indices lists the landmarks carried by every datagram, in wire order.
var Indices = []int{RightWrist, RightPinky, RightIndex}

// Keys names the smoothing channels each landmark feeds.
var Keys = map[int][2]string{
	RightWrist: {"RWX", "RWY"},
	RightPinky: {"RPX", "RPY"},
	RightIndex: {"RIX", "RIY"},
}

// ErrEmptyPayload is returned for a blank datagram.
var ErrEmptyPayload = errors.New("empty payload")

// Point is a landmark in normalized camera coordinates (0..1).
type Point struct {
	X, Y float64
}

// Frame is one detection result.
type Frame struct {
	T        float64
	HasT     bool
	Detected bool
	Points   map[int]Point
}

// Valid reports whether a hand was detected and every tracked point is finite.
func (f Frame) Valid() bool {
	if !f.Detected {
		return false
	}
	for _, idx := range Indices {
		p, ok := f.Points[idx]
		if !ok || !finite(p.X) || !finite(p.Y) {
			return false
		}
	}
	return true
}

// Values maps the frame onto a width x height canvas. X is mirrored so moving
// the hand right moves it right on screen.
func (f Frame) Values(width, height float64) map[string]float64 {
	out := make(map[string]float64, 2*len(f.Points))
	for idx, p := range f.Points {
		keys, ok := Keys[idx]
		if !ok {
			continue
		}
		out[keys[0]] = (1 - p.X) * width
		out[keys[1]] = p.Y * height
	}
	return out
}

// Command is a control datagram.
type Command string

// CommandStart asks the experience to start.
const CommandStart Command = "start"

// Message is a decoded datagram: either a frame or a command.
type Message struct {
	Frame   Frame
	Command Command
}

// ParseDatagram decodes "[t,]detected,x16,y16,x18,y18,x20,y20" or a bare command.
// Blank or "nan" coordinates decode as NaN; the frame is then invalid rather
// than a parse error.
func ParseDatagram(b []byte) (Message, error) {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return Message{}, ErrEmptyPayload
	}
	if cmd := Command(strings.ToLower(s)); cmd == CommandStart {
		return Message{Command: cmd}, nil
	}

	parts := strings.Split(s, ",")
	n := 1 + 2*len(Indices)
	if len(parts) != n && len(parts) != n+1 {
		return Message{}, fmt.Errorf("expected %d or %d fields, got %d", n, n+1, len(parts))
	}

	var f Frame
	idx := 0
	if len(parts) == n+1 {
		t, err := parseF64(parts[0])
		if err != nil {
			return Message{}, fmt.Errorf("t: %w", err)
		}
		f.T, f.HasT = t, true
		idx = 1
	}

	detected, err := parseBoolLoose(parts[idx])
	if err != nil {
		return Message{}, fmt.Errorf("detected: %w", err)
	}
	f.Detected = detected
	f.Points = make(map[int]Point, len(Indices))

	for i, lm := range Indices {
		x, err := parseCoord(parts[idx+1+2*i])
		if err != nil {
			return Message{}, fmt.Errorf("landmark %d x: %w", lm, err)
		}
		y, err := parseCoord(parts[idx+2+2*i])
		if err != nil {
			return Message{}, fmt.Errorf("landmark %d y: %w", lm, err)
		}
		f.Points[lm] = Point{X: x, Y: y}
	}
	return Message{Frame: f}, nil
}

// parseF64 parses a float from a CSV field.
func parseF64(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}

// parseCoord is parseF64 that reads a missing coordinate as NaN.
func parseCoord(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return math.NaN(), nil
	}
	return parseF64(v)
}

// parseBoolLoose parses booleans from common telemetry encodings.
func parseBoolLoose(value string) (bool, error) {
	norm := strings.ToLower(strings.TrimSpace(value))
	switch norm {
	case "1", "true", "yes", "y", "t":
		return true, nil
	case "0", "false", "no", "n", "f":
		return false, nil
	default:
		f, err := strconv.ParseFloat(norm, 64)
		if err != nil {
			return false, err
		}
		return f != 0, nil
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
