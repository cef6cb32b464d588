package storage

import "testing"

func TestParseKeyRejectsEmptySegments(t *testing.T) {
	if _, err := ParseKey(""); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, err := ParseKey("message//part1"); err == nil {
		t.Fatal("expected error for empty segment")
	}
}

func TestKeyStringRoundTrips(t *testing.T) {
	k := NewKey("part", "ses1", "msg1", "part1")
	if got, want := k.String(), "part/ses1/msg1/part1"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if k.Type() != TypePart {
		t.Fatalf("Type() = %q, want %q", k.Type(), TypePart)
	}
	if k.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", k.Len())
	}
}

func TestHasPrefix(t *testing.T) {
	k := NewKey("message", "ses1", "msg1")
	if !k.HasPrefix(NewKey("message", "ses1")) {
		t.Fatal("expected message/ses1 to be a prefix")
	}
	if k.HasPrefix(NewKey("message", "ses2")) {
		t.Fatal("did not expect message/ses2 to be a prefix")
	}
}

func TestChildPrefix(t *testing.T) {
	k := NewKey("session", "proj1", "ses1")
	if got, want := k.ChildPrefix(), "session/proj1/ses1/%"; got != want {
		t.Fatalf("ChildPrefix() = %q, want %q", got, want)
	}
}
