package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Wire event types exchanged on the peer event channel. Every message is
// a JSON object with a `type` discriminator.
const (
	// Server → client.
	EventTypeSessionConfigured = "session.configured"
	EventTypeUtteranceFinal    = "utterance.final"
	EventTypeUtteranceDelta    = "utterance.delta"
	EventTypeIdleTimeout       = "idle.timeout"
	EventTypeError             = "error"

	// Client → server.
	EventTypeSessionConfigure = "session.configure"
	EventTypeInputAudioAppend = "input_audio.append"
)

// Role attributes an utterance to a speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PeerEvent is one parsed message from the peer's event channel.
type PeerEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Delta   string `json:"delta,omitempty"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message,omitempty"`

	// Raw is the original JSON message.
	Raw []byte `json:"-"`
}

// parsePeerEvent decodes a raw message from the event channel.
func parsePeerEvent(message []byte) (PeerEvent, error) {
	var ev PeerEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		return PeerEvent{}, fmt.Errorf("realtime: parse event: %w", err)
	}
	ev.Raw = message
	return ev, nil
}

// EventKind identifies a session event delivered to the consumer.
type EventKind int

const (
	// EventUtteranceFinal carries one finalized utterance.
	EventUtteranceFinal EventKind = iota + 1

	// EventUtteranceDelta carries a streamed partial assistant reply.
	EventUtteranceDelta

	// EventPeerError reports an unrecoverable transport or peer failure.
	// The session closes itself after emitting it.
	EventPeerError

	// EventIdleTimeout fires when no user speech followed the peer's last
	// response within the idle window. Informational only; the session
	// stays open.
	EventIdleTimeout
)

// String returns the kind name for logs and tests.
func (k EventKind) String() string {
	switch k {
	case EventUtteranceFinal:
		return "utterance_final"
	case EventUtteranceDelta:
		return "utterance_delta"
	case EventPeerError:
		return "peer_error"
	case EventIdleTimeout:
		return "idle_timeout"
	}
	return "unknown"
}

// Event is a generation-stamped session event.
type Event struct {
	Kind EventKind

	// Generation is the session generation the event belongs to. Stale
	// transport callbacks are discarded before delivery; failure events
	// carry the generation that failed.
	Generation uint64

	// Text is the utterance text for final and delta events.
	Text string

	// Role is the speaker for utterance events.
	Role Role

	// Message is the human-readable failure for peer error events.
	Message string
}

// newEventID generates a client event identifier.
func newEventID() string {
	return "evt_" + uuid.New().String()[:12]
}
