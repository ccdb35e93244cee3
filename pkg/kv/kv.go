// Package kv provides the small key-value store behind local session
// state: draft checkpoints and anything else that must survive a process
// restart without a remote round trip.
//
// Keys are hierarchical path segments (e.g. ["checkpoint", "draft",
// userID]) joined with ':' for storage. A BadgerDB-backed implementation
// persists to disk; an in-memory implementation backs tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// separator joins key segments in the encoded form. Segments must not
// contain it.
const separator = ":"

// Key is a hierarchical path represented as string segments.
type Key []string

// String returns the encoded key, e.g. "checkpoint:draft:u123".
func (k Key) String() string {
	return strings.Join(k, separator)
}

// parseKey splits an encoded key back into segments.
func parseKey(s string) Key {
	return Key(strings.Split(s, separator))
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries whose key starts with the given prefix, in
	// lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases any resources held by the store.
	Close() error
}
