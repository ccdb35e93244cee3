package realtime

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"

	"github.com/fieldvoice/fieldvoice/pkg/audio/capture"
	"github.com/fieldvoice/fieldvoice/pkg/token"
)

const dataChannelLabel = "fv-events"

// WebRTCTransport negotiates sessions over a WebRTC peer connection. The
// SDP offer/answer exchange runs over HTTP authenticated with the
// single-use credential; session events travel on a data channel.
type WebRTCTransport struct {
	offerURL    string
	openCapture capture.Opener
	httpClient  *http.Client
	iceServers  []webrtc.ICEServer
	configure   map[string]any
}

// WebRTCOption configures a WebRTCTransport.
type WebRTCOption func(*WebRTCTransport)

// WithWebRTCHTTPClient overrides the HTTP client used for the SDP
// exchange.
func WithWebRTCHTTPClient(c *http.Client) WebRTCOption {
	return func(t *WebRTCTransport) { t.httpClient = c }
}

// WithICEServers overrides the ICE server set.
func WithICEServers(servers []webrtc.ICEServer) WebRTCOption {
	return func(t *WebRTCTransport) { t.iceServers = servers }
}

// WithConfigurePayload sets extra fields sent in the session.configure
// event once the event channel opens.
func WithConfigurePayload(fields map[string]any) WebRTCOption {
	return func(t *WebRTCTransport) { t.configure = fields }
}

// NewWebRTCTransport creates the WebRTC transport. offerURL is the peer's
// SDP answer endpoint; openCapture acquires the microphone per session.
func NewWebRTCTransport(offerURL string, openCapture capture.Opener, opts ...WebRTCOption) *WebRTCTransport {
	t := &WebRTCTransport{
		offerURL:    offerURL,
		openCapture: openCapture,
		httpClient:  http.DefaultClient,
		iceServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Negotiate implements Transport.
func (t *WebRTCTransport) Negotiate(ctx context.Context, cred *token.Credential) (*Link, error) {
	src, err := t.openCapture()
	if err != nil {
		return nil, &NegotiationError{Reason: "microphone", Err: err}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: t.iceServers})
	if err != nil {
		src.Close()
		return nil, &NegotiationError{Reason: "peer connection", Err: err}
	}

	link, err := t.negotiate(ctx, cred, pc, src)
	if err != nil {
		pc.Close()
		src.Close()
		return nil, err
	}
	return link, nil
}

func (t *WebRTCTransport) negotiate(ctx context.Context, cred *token.Credential, pc *webrtc.PeerConnection, src capture.Source) (*Link, error) {
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return nil, &NegotiationError{Reason: "audio transceiver", Err: err}
	}

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		return nil, &NegotiationError{Reason: "data channel", Err: err}
	}

	events := make(chan PeerEvent, 100)
	var closeEvents sync.Once
	stopPump := make(chan struct{})
	var stopOnce sync.Once

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		ev, err := parsePeerEvent(msg.Data)
		if err != nil {
			slog.Debug("discarding unparsable peer message", "err", err)
			return
		}
		select {
		case events <- ev:
		default:
			slog.Warn("peer event buffer full, dropping", "type", ev.Type)
		}
	})
	dc.OnClose(func() {
		closeEvents.Do(func() { close(events) })
	})
	dc.OnOpen(func() {
		if err := sendConfigure(dc.Send, t.configure); err != nil {
			slog.Warn("session.configure send failed", "err", err)
		}
		go pumpAudio(dc.Send, src, stopPump)
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		slog.Debug("remote track", "kind", track.Kind(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeAudio {
			go drainRemoteAudio(track)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, &NegotiationError{Reason: "create offer", Err: err}
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return nil, &NegotiationError{Reason: "local description", Err: err}
	}

	select {
	case <-webrtc.GatheringCompletePromise(pc):
	case <-ctx.Done():
		return nil, &NegotiationError{Reason: "ice gathering", Err: ctx.Err()}
	}

	answer, err := t.exchangeSDP(ctx, cred, pc.LocalDescription().SDP)
	if err != nil {
		return nil, err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return nil, &NegotiationError{Reason: "remote description", Err: err}
	}

	return &Link{
		Events: events,
		EventChannel: closerFunc(func() error {
			stopOnce.Do(func() { close(stopPump) })
			err := dc.Close()
			closeEvents.Do(func() { close(events) })
			return err
		}),
		Audio: src,
		Peer:  pc,
	}, nil
}

// exchangeSDP posts the local offer and returns the peer's answer SDP.
func (t *WebRTCTransport) exchangeSDP(ctx context.Context, cred *token.Credential, sdp string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.offerURL, bytes.NewReader([]byte(sdp)))
	if err != nil {
		return "", &NegotiationError{Reason: "offer request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", &NegotiationError{Reason: "offer exchange", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &NegotiationError{
			Reason: "peer rejected offer",
			Err:    fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body)),
		}
	}

	answer, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NegotiationError{Reason: "read answer", Err: err}
	}
	return string(answer), nil
}

// sendFunc sends one message on the established event channel.
type sendFunc func([]byte) error

// sendConfigure sends the initial session.configure event.
func sendConfigure(send sendFunc, extra map[string]any) error {
	payload := map[string]any{
		"event_id": newEventID(),
		"type":     EventTypeSessionConfigure,
	}
	for k, v := range extra {
		payload[k] = v
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return send(data)
}

// pumpAudio streams captured PCM to the peer as base64 append events
// until the source drains or stop closes.
func pumpAudio(send sendFunc, src capture.Source, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		chunk, err := src.ReadChunk()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("audio capture ended", "err", err)
			}
			return
		}
		payload := map[string]any{
			"event_id": newEventID(),
			"type":     EventTypeInputAudioAppend,
			"audio":    base64.StdEncoding.EncodeToString(chunk),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			slog.Warn("encode audio append", "err", err)
			return
		}
		if err := send(data); err != nil {
			slog.Debug("audio send ended", "err", err)
			return
		}
	}
}

// drainRemoteAudio reads the peer's RTP audio and discards the payload.
// The event channel carries everything we act on; leaving the track
// unread would stall the receiver. Sequence gaps are logged to help
// diagnose choppy peer audio.
func drainRemoteAudio(track *webrtc.TrackRemote) {
	buf := make([]byte, 1500)
	var pkt rtp.Packet
	var lastSeq uint16
	var seen bool
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			slog.Debug("undecodable rtp packet from peer", "err", err)
			continue
		}
		if seen && seqGap(lastSeq, pkt.SequenceNumber) {
			slog.Debug("remote audio sequence gap",
				"from", lastSeq, "to", pkt.SequenceNumber, "ssrc", pkt.SSRC)
		}
		lastSeq, seen = pkt.SequenceNumber, true
	}
}

// seqGap reports a break in RTP sequence numbering, wrap-aware.
func seqGap(last, next uint16) bool {
	return next != last+1
}

var _ Transport = (*WebRTCTransport)(nil)
