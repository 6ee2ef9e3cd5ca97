package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strings"
)

// DecodeFile runs ffmpeg to decode a sound file to interleaved stereo int16
// PCM at SampleRate. The process is killed when ctx is cancelled.
func DecodeFile(ctx context.Context, path string) ([]int16, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprint(SampleRate),
		"-ac", fmt.Sprint(Channels),
		"-loglevel", "error",
		"pipe:1",
	)
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, msg)
		}
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}
	return BytesToSamples(out), nil
}

// BytesToSamples reads little-endian int16 samples; a trailing odd byte is dropped.
func BytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
