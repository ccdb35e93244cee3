package realtime

import (
	"errors"
	"fmt"
)

// ErrSuperseded is returned by Negotiate when a Close arrived while
// negotiation was in flight. The attempt mutated nothing; it is not a
// failure to surface to the user.
var ErrSuperseded = errors.New("realtime: negotiation superseded by close")

// ErrSessionBusy is returned by Negotiate when the session is already
// negotiating or active.
var ErrSessionBusy = errors.New("realtime: session busy")

// NegotiationError is a failure to establish the session: peer rejection,
// microphone denial, or a broken offer/answer exchange. Fatal to the
// start attempt; never retried internally.
type NegotiationError struct {
	Reason string
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("realtime: negotiation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("realtime: negotiation failed: %s", e.Reason)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// TransportError is an unrecoverable mid-session failure. The session
// closes itself; any accumulated draft is preserved by the caller.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("realtime: transport failed: %s", e.Message)
}
