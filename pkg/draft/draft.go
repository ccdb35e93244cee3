// Package draft accumulates transcribed speech into a diary entry in
// progress, and keeps the session-scoped conversation log shown to the
// user.
//
// The draft buffer is a strict append-only log of text fragments: never
// reordered, never coalesced. Every mutation checkpoints the full text to
// durable local storage so a crashed or torn-down session can be resumed,
// but only within a bounded staleness window. The conversation log is
// display-only and never persisted.
package draft

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/fieldvoice/fieldvoice/pkg/kv"
)

// DefaultMaxAge is the default staleness window for checkpoint restore.
const DefaultMaxAge = 24 * time.Hour

// checkpointPrefix namespaces checkpoint keys in the kv store.
var checkpointPrefix = kv.Key{"checkpoint", "draft"}

// checkpoint is the durable record written on every mutation.
type checkpoint struct {
	Text    string    `msgpack:"text"`
	SavedAt time.Time `msgpack:"saved_at"`
}

// Buffer is the diary draft: an ordered, append-only sequence of text
// fragments. Exactly one live Buffer exists per session. It survives
// transport teardown; only a successful submit or an explicit discard
// clears it.
type Buffer struct {
	store  kv.Store
	key    kv.Key
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	frags []string
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithMaxAge overrides the checkpoint staleness window.
func WithMaxAge(d time.Duration) BufferOption {
	return func(b *Buffer) { b.maxAge = d }
}

// WithClock overrides the time source. For tests.
func WithClock(now func() time.Time) BufferOption {
	return func(b *Buffer) { b.now = now }
}

// NewBuffer creates a draft buffer checkpointing into store under the
// given owner identifier.
func NewBuffer(store kv.Store, owner string, opts ...BufferOption) *Buffer {
	b := &Buffer{
		store:  store,
		key:    append(append(kv.Key{}, checkpointPrefix...), owner),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds one fragment to the end of the draft and checkpoints.
// Fragments are kept in arrival order.
func (b *Buffer) Append(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	b.mu.Lock()
	b.frags = append(b.frags, text)
	b.mu.Unlock()
	return b.Checkpoint(ctx)
}

// Text returns the draft so far: the appended fragments in order,
// separated by single spaces.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.frags, " ")
}

// Len returns the number of appended fragments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frags)
}

// Checkpoint persists the current text with a timestamp.
func (b *Buffer) Checkpoint(ctx context.Context) error {
	cp := checkpoint{Text: b.Text(), SavedAt: b.now()}
	data, err := msgpack.Marshal(&cp)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, b.key, data)
}

// Restore loads the checkpointed draft if one exists and is within the
// staleness window. On success the in-memory draft is replaced with the
// restored text and ok is true. A stale or missing checkpoint restores
// nothing.
func (b *Buffer) Restore(ctx context.Context) (text string, ok bool, err error) {
	data, err := b.store.Get(ctx, b.key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	var cp checkpoint
	if err := msgpack.Unmarshal(data, &cp); err != nil {
		return "", false, err
	}
	if cp.Text == "" || b.now().Sub(cp.SavedAt) > b.maxAge {
		return "", false, nil
	}
	b.mu.Lock()
	b.frags = []string{cp.Text}
	b.mu.Unlock()
	return cp.Text, true, nil
}

// Clear wipes the in-memory draft and its checkpoint. Called on a
// successful submit or an explicit discard, never as a side effect of
// transport teardown.
func (b *Buffer) Clear(ctx context.Context) error {
	b.mu.Lock()
	b.frags = nil
	b.mu.Unlock()
	return b.store.Delete(ctx, b.key)
}
