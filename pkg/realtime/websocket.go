package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fieldvoice/fieldvoice/pkg/audio/capture"
	"github.com/fieldvoice/fieldvoice/pkg/token"
)

// WebSocketTransport negotiates sessions over a WebSocket. The handshake
// carries the single-use credential as a bearer token; the socket then
// serves as the event channel and the audio path at once.
type WebSocketTransport struct {
	url         string
	openCapture capture.Opener
	dialer      *websocket.Dialer
	configure   map[string]any
}

// WebSocketOption configures a WebSocketTransport.
type WebSocketOption func(*WebSocketTransport)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) WebSocketOption {
	return func(t *WebSocketTransport) { t.dialer = d }
}

// WithWSConfigurePayload sets extra fields sent in the session.configure
// event after the handshake.
func WithWSConfigurePayload(fields map[string]any) WebSocketOption {
	return func(t *WebSocketTransport) { t.configure = fields }
}

// NewWebSocketTransport creates the WebSocket transport.
func NewWebSocketTransport(url string, openCapture capture.Opener, opts ...WebSocketOption) *WebSocketTransport {
	t := &WebSocketTransport{
		url:         url,
		openCapture: openCapture,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Negotiate implements Transport.
func (t *WebSocketTransport) Negotiate(ctx context.Context, cred *token.Credential) (*Link, error) {
	src, err := t.openCapture()
	if err != nil {
		return nil, &NegotiationError{Reason: "microphone", Err: err}
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+cred.Secret)

	conn, resp, err := t.dialer.DialContext(ctx, t.url, headers)
	if err != nil {
		src.Close()
		if resp != nil {
			return nil, &NegotiationError{
				Reason: "peer rejected handshake",
				Err:    fmt.Errorf("status %d: %w", resp.StatusCode, err),
			}
		}
		return nil, &NegotiationError{Reason: "dial", Err: err}
	}

	ws := &wsLink{conn: conn}

	if err := sendConfigure(ws.send, t.configure); err != nil {
		conn.Close()
		src.Close()
		return nil, &NegotiationError{Reason: "session configure", Err: err}
	}

	events := make(chan PeerEvent, 100)
	stopPump := make(chan struct{})
	var stopOnce sync.Once

	go ws.readLoop(events)
	go pumpAudio(ws.send, src, stopPump)

	return &Link{
		Events: events,
		EventChannel: closerFunc(func() error {
			stopOnce.Do(func() { close(stopPump) })
			// Best-effort close frame; the read loop closes the events
			// channel when the socket drops.
			ws.mu.Lock()
			err := conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			ws.mu.Unlock()
			return err
		}),
		Audio: src,
		Peer:  closerFunc(conn.Close),
	}, nil
}

// wsLink serializes writes to one socket.
type wsLink struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsLink) send(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop parses incoming messages until the socket ends, then closes
// the events channel.
func (w *wsLink) readLoop(events chan<- PeerEvent) {
	defer close(events)
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", "err", err)
			}
			return
		}
		ev, err := parsePeerEvent(data)
		if err != nil {
			slog.Debug("discarding unparsable peer message", "err", err)
			continue
		}
		select {
		case events <- ev:
		default:
			slog.Warn("peer event buffer full, dropping", "type", ev.Type)
		}
	}
}

var _ Transport = (*WebSocketTransport)(nil)
