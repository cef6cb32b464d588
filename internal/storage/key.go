// Package storage implements the hierarchical key/value façade of spec §4.2:
// a small set of typed operations (read, write, update, remove, list) over
// whichever Backend is wired in, with MultiSqliteBackend as the production
// backend and a legacy JSON tree kept only for migration.
package storage

import (
	"strings"

	"github.com/hazyhaar/goclode/internal/coreerr"
)

// Type identifies the first segment of a Key, which in turn selects which
// backing table/file a Key routes to.
type Type string

const (
	TypeSession     Type = "session"
	TypeMessage     Type = "message"
	TypePart        Type = "part"
	TypeSessionDiff Type = "session_diff"
	TypeProject     Type = "project"
)

// Key is an ordered, non-empty sequence of URL-safe path segments. The
// first segment is always the record Type.
type Key struct {
	segments []string
}

// ParseKey validates and wraps a raw key string such as
// "message/ses_1/msg_1". It rejects empty keys and empty segments.
func ParseKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, coreerr.Invalid("storage key must not be empty")
	}
	segments := strings.Split(raw, "/")
	for _, s := range segments {
		if s == "" {
			return Key{}, coreerr.Invalid("storage key must not contain empty segments", raw)
		}
	}
	return Key{segments: segments}, nil
}

// NewKey builds a Key directly from segments, skipping string parsing. It
// panics if segments is empty or contains an empty segment — a programmer
// error, since callers build these from known-good literals and ids.
func NewKey(segments ...string) Key {
	if len(segments) == 0 {
		panic("storage: NewKey requires at least one segment")
	}
	for _, s := range segments {
		if s == "" {
			panic("storage: NewKey segment must not be empty")
		}
	}
	return Key{segments: append([]string(nil), segments...)}
}

// Type returns the key's first segment.
func (k Key) Type() Type { return Type(k.segments[0]) }

// Segment returns the i-th segment (0-indexed), or "" if out of range.
func (k Key) Segment(i int) string {
	if i < 0 || i >= len(k.segments) {
		return ""
	}
	return k.segments[i]
}

// Len reports how many segments the key has.
func (k Key) Len() int { return len(k.segments) }

// String renders the key back to its canonical "a/b/c" form.
func (k Key) String() string { return strings.Join(k.segments, "/") }

// HasPrefix reports whether k is prefix or equal to other (segment-wise).
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix.segments) > len(k.segments) {
		return false
	}
	for i, s := range prefix.segments {
		if k.segments[i] != s {
			return false
		}
	}
	return true
}

// ChildPrefix returns the string used to match this key's descendants in a
// SQL LIKE clause: "key/%".
func (k Key) ChildPrefix() string { return k.String() + "/%" }
