// Package capture provides microphone audio capture for realtime
// sessions.
//
// A Source yields fixed-duration frames of 16-bit little-endian mono PCM.
// The transport session owns the Source exclusively: it is acquired
// during negotiation and released during teardown, and no other component
// touches it.
package capture

import (
	"fmt"
	"io"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Source yields PCM16 mono audio frames.
type Source interface {
	// ReadChunk returns the next audio frame as little-endian int16 bytes.
	// Returns io.EOF after Close.
	ReadChunk() ([]byte, error)

	// SampleRate returns the frame sample rate in Hz.
	SampleRate() int

	// Close releases the underlying device or stream.
	Close() error
}

// Opener acquires an audio source. Acquisition failure (device missing,
// permission denied) is fatal to session negotiation.
type Opener func() (Source, error)

// Resample wraps src so frames come out at outRate. Useful when the
// capture device cannot open at the peer's required rate (24 kHz).
func Resample(src Source, outRate int) (Source, error) {
	if src.SampleRate() == outRate {
		return src, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(outRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("capture: creating resampler: %w", err)
	}
	return &resampled{src: src, rs: rs, rate: outRate}, nil
}

// resampled converts frames from the wrapped source's rate to rate.
type resampled struct {
	src  Source
	rs   resampling.Resampler
	rate int
}

func (r *resampled) ReadChunk() ([]byte, error) {
	raw, err := r.src.ReadChunk()
	if err != nil {
		return nil, err
	}

	// int16 LE bytes -> normalized float64.
	samples := make([]float64, len(raw)/2)
	for i := range samples {
		s := int16(raw[i*2]) | int16(raw[i*2+1])<<8
		samples[i] = float64(s) / 32768.0
	}

	out, err := r.rs.Process(samples)
	if err != nil {
		return nil, fmt.Errorf("capture: resample: %w", err)
	}

	buf := make([]byte, len(out)*2)
	for i, s := range out {
		v := int16(s * 32767.0)
		if s > 1.0 {
			v = 32767
		} else if s < -1.0 {
			v = -32768
		}
		buf[i*2] = byte(v)
		buf[i*2+1] = byte(v >> 8)
	}
	return buf, nil
}

func (r *resampled) SampleRate() int { return r.rate }

func (r *resampled) Close() error { return r.src.Close() }

// Static returns a Source that replays pre-recorded PCM in frame-sized
// chunks. Used by tests and the device-less dry-run mode.
func Static(pcm []byte, rate int, frameBytes int) Source {
	return &static{pcm: pcm, rate: rate, frame: frameBytes}
}

type static struct {
	pcm    []byte
	rate   int
	frame  int
	off    int
	closed bool
}

func (s *static) ReadChunk() ([]byte, error) {
	if s.closed || s.off >= len(s.pcm) {
		return nil, io.EOF
	}
	end := s.off + s.frame
	if end > len(s.pcm) {
		end = len(s.pcm)
	}
	chunk := s.pcm[s.off:end]
	s.off = end
	return chunk, nil
}

func (s *static) SampleRate() int { return s.rate }

func (s *static) Close() error {
	s.closed = true
	return nil
}
