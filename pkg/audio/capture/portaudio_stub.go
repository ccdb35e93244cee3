//go:build !cgo

package capture

import (
	"errors"
	"time"
)

// Microphone requires the PortAudio cgo bindings. Without cgo the opener
// fails at negotiate time, which surfaces as a microphone negotiation
// error rather than a build break.
func Microphone(rate int, frame time.Duration) Opener {
	return func() (Source, error) {
		return nil, errors.New("capture: microphone requires a cgo build (portaudio)")
	}
}
