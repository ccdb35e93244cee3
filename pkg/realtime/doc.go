// Package realtime owns the bidirectional audio/event connection to the
// remote speech/dialogue peer.
//
// A Session is a generation-stamped state machine
// (Idle → Negotiating → Active → Closing → Closed, Failed from
// Negotiating/Active) over a Transport. Each negotiate→close lifecycle
// gets a fresh generation; any callback carrying a superseded generation
// is discarded before it can touch state. Teardown invalidates the
// generation first and then releases resources in order: event channel,
// audio capture, negotiation handle.
//
// Two Transport implementations are provided: WebRTC (pion, SDP
// offer/answer plus a data channel for events) and WebSocket (gorilla).
// Both speak the same JSON event protocol with a `type` discriminator.
package realtime
