package draft

import "sync"

// Role attributes a conversation message to a speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one display entry in the conversation log.
type Message struct {
	Role Role
	Text string
}

// Log is the session-scoped conversation transcript shown to the user.
// It is never persisted and does not survive the session.
type Log struct {
	mu      sync.Mutex
	msgs    []Message
	partial bool // last message is a streaming assistant reply
}

// NewLog creates an empty conversation log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a finalized message.
func (l *Log) Append(role Role, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, Message{Role: role, Text: text})
	l.partial = false
}

// AppendDelta extends the trailing streamed assistant reply, starting one
// if the last message is not an open assistant reply. Only assistant
// output streams; user speech arrives finalized.
func (l *Log) AppendDelta(delta string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partial && len(l.msgs) > 0 {
		l.msgs[len(l.msgs)-1].Text += delta
		return
	}
	l.msgs = append(l.msgs, Message{Role: RoleAssistant, Text: delta})
	l.partial = true
}

// FinalizeAssistant replaces the open streamed reply with its final text,
// or appends a new assistant message if nothing was streaming.
func (l *Log) FinalizeAssistant(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.partial && len(l.msgs) > 0 {
		l.msgs[len(l.msgs)-1].Text = text
		l.partial = false
		return
	}
	l.msgs = append(l.msgs, Message{Role: RoleAssistant, Text: text})
}

// Messages returns a copy of the log in display order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Reset clears the log. Called when a new session starts.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = nil
	l.partial = false
}
