package realtime

import (
	"context"
	"errors"
	"io"

	"github.com/fieldvoice/fieldvoice/pkg/token"
)

// Transport establishes one connection to the remote peer for one session
// generation. Implementations: WebRTC (primary) and WebSocket.
type Transport interface {
	// Negotiate acquires audio capture, opens the event channel and
	// exchanges the session handshake using a single-use credential.
	// Failure is fatal to the attempt; Negotiate never retries.
	Negotiate(ctx context.Context, cred *token.Credential) (*Link, error)
}

// Link holds an established connection's resources. They are kept
// separate so teardown can release them in the required order: event
// channel first, then audio capture, then the negotiation handle. An
// in-flight callback that fires during teardown then observes the
// already-invalidated generation instead of racing a fresh negotiate.
type Link struct {
	// Events is the ordered, reliable event stream from the peer. The
	// channel closes when the connection ends, for any reason.
	Events <-chan PeerEvent

	// EventChannel closes the event channel.
	EventChannel io.Closer

	// Audio releases the microphone capture.
	Audio io.Closer

	// Peer releases the negotiation handle (peer connection or socket).
	Peer io.Closer
}

// release closes the link's resources in teardown order.
func (l *Link) release() error {
	var errs []error
	for _, c := range []io.Closer{l.EventChannel, l.Audio, l.Peer} {
		if c != nil {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }
