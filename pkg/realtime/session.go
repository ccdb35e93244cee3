package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fieldvoice/fieldvoice/pkg/token"
)

// State is the transport session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateNegotiating
	StateActive
	StateClosing
	StateClosed
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DefaultIdleTimeout is the default idle window after the peer's last
// response.
const DefaultIdleTimeout = 30 * time.Second

// Session is the generation-stamped lifecycle over a Transport.
//
// The generation counter and the audio capture (held inside the Link) are
// the only cross-callback mutable resources, and both are owned here.
// Every callback compares its stamped generation against the current one
// before touching state; a mismatch means the callback belongs to a
// superseded lifecycle and is dropped.
type Session struct {
	transport   Transport
	idleTimeout time.Duration
	events      chan Event

	gen atomic.Uint64

	mu        sync.Mutex
	state     State
	link      *Link
	idleTimer *time.Timer
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIdleTimeout overrides the idle window.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.idleTimeout = d }
}

// NewSession creates a session over the given transport.
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport:   t,
		idleTimeout: DefaultIdleTimeout,
		events:      make(chan Event, 128),
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Events returns the stream of generation-stamped session events.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the current session generation.
func (s *Session) Generation() uint64 {
	return s.gen.Load()
}

// Negotiate establishes a new session lifecycle with a fresh generation.
// The credential is single-use; callers acquire a new one per attempt.
// Returns ErrSessionBusy if a lifecycle is already under way and
// ErrSuperseded if Close arrived while negotiation was in flight.
func (s *Session) Negotiate(ctx context.Context, cred *token.Credential) error {
	s.mu.Lock()
	switch s.state {
	case StateNegotiating, StateActive, StateClosing:
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrSessionBusy, s.state)
	}
	gen := s.gen.Add(1)
	s.state = StateNegotiating
	s.mu.Unlock()

	slog.Debug("negotiating session", "generation", gen)
	link, err := s.transport.Negotiate(ctx, cred)

	s.mu.Lock()
	if s.gen.Load() != gen {
		// Close superseded this negotiation. State already belongs to the
		// newer lifecycle; release whatever we built and mutate nothing.
		s.mu.Unlock()
		if link != nil {
			link.release()
		}
		slog.Debug("negotiation superseded", "generation", gen)
		return ErrSuperseded
	}
	if err != nil {
		s.state = StateClosed
		s.mu.Unlock()
		if _, ok := err.(*NegotiationError); ok {
			return err
		}
		return &NegotiationError{Reason: "transport", Err: err}
	}
	s.link = link
	s.state = StateActive
	s.mu.Unlock()

	slog.Info("session active", "generation", gen)
	go s.pump(gen, link)
	return nil
}

// Close tears the session down. Idempotent and callable from any state,
// including mid-negotiation. The generation is invalidated before any
// resource is released, in order: event channel, audio capture,
// negotiation handle.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.link == nil && s.state != StateNegotiating {
		// A failure teardown may still be in flight; invalidate its
		// generation so nothing started before this Close can resurface.
		if s.state == StateFailed {
			s.gen.Add(1)
		}
		s.state = StateClosed
		s.stopIdleLocked()
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	s.gen.Add(1)
	link := s.link
	s.link = nil
	s.stopIdleLocked()
	s.mu.Unlock()

	var err error
	if link != nil {
		err = link.release()
	}

	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	slog.Debug("session closed", "generation", s.gen.Load())
	return err
}

// pump routes peer events for one generation until the event channel
// closes or the generation is superseded.
func (s *Session) pump(gen uint64, link *Link) {
	for ev := range link.Events {
		if s.gen.Load() != gen {
			return
		}
		switch ev.Type {
		case EventTypeSessionConfigured:
			slog.Debug("session configured", "generation", gen)
		case EventTypeUtteranceFinal:
			if Role(ev.Role) == RoleAssistant {
				s.resetIdle(gen)
			} else {
				s.stopIdle()
			}
			s.emit(Event{Kind: EventUtteranceFinal, Generation: gen, Text: ev.Text, Role: Role(ev.Role)})
		case EventTypeUtteranceDelta:
			s.resetIdle(gen)
			s.emit(Event{Kind: EventUtteranceDelta, Generation: gen, Text: ev.Delta, Role: RoleAssistant})
		case EventTypeIdleTimeout:
			s.emit(Event{Kind: EventIdleTimeout, Generation: gen})
		case EventTypeError:
			s.fail(gen, ev.Message)
			return
		default:
			slog.Debug("ignoring peer event", "type", ev.Type)
		}
	}
	// Channel closed. If this generation is still current, the peer
	// dropped us mid-session.
	if s.gen.Load() == gen {
		s.fail(gen, "event channel closed by peer")
	}
}

// fail handles an unrecoverable mid-session error: emit once, then
// auto-transition Failed → Closed.
func (s *Session) fail(gen uint64, message string) {
	s.mu.Lock()
	if s.gen.Load() != gen {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.gen.Add(1)
	link := s.link
	s.link = nil
	s.stopIdleLocked()
	s.mu.Unlock()

	slog.Warn("session failed", "generation", gen, "message", message)
	s.emit(Event{Kind: EventPeerError, Generation: gen, Message: message})

	if link != nil {
		link.release()
	}

	// A restart or Close may have begun while the link was being
	// released; finish the transition only if this failure still owns
	// the session.
	s.mu.Lock()
	if s.state == StateFailed && s.gen.Load() == gen+1 {
		s.state = StateClosed
	}
	s.mu.Unlock()
}

// emit delivers an event to the consumer. The buffer absorbs bursts,
// and delivery blocks when it fills: the channel is ordered and
// lossless, and teardown never depends on the pump exiting.
func (s *Session) emit(ev Event) {
	s.events <- ev
}

// resetIdle (re)arms the idle timer for the given generation. The timer
// callback is itself generation-checked.
func (s *Session) resetIdle(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		if s.gen.Load() != gen {
			return
		}
		s.mu.Lock()
		active := s.state == StateActive
		s.mu.Unlock()
		if active {
			s.emit(Event{Kind: EventIdleTimeout, Generation: gen})
		}
	})
}

func (s *Session) stopIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopIdleLocked()
}

func (s *Session) stopIdleLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}
