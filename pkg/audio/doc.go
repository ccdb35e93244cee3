// Package audio is the umbrella for audio sub-packages.
//
//   - capture: microphone capture sources (PCM16 mono) and rate
//     conversion to the peer's expected sample rate
package audio
