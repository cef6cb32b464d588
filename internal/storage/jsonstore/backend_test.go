package jsonstore

import (
	"context"
	"testing"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/storage"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := storage.NewKey("session", "ses1")
	if err := b.Write(ctx, key, []byte(`{"id":"ses1"}`)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := b.Read(ctx, key)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"id":"ses1"}` {
		t.Fatalf("unexpected data: %s", got)
	}
}

func TestReadMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = b.Read(ctx, storage.NewKey("session", "missing"))
	if !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListFindsNestedKeys(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.Write(ctx, storage.NewKey("message", "ses1", "msg1"), []byte(`{}`)); err != nil {
		t.Fatalf("write msg1: %v", err)
	}
	if err := b.Write(ctx, storage.NewKey("message", "ses1", "msg2"), []byte(`{}`)); err != nil {
		t.Fatalf("write msg2: %v", err)
	}

	keys, err := b.List(ctx, storage.NewKey("message"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestRemoveDeletesFileAndChildren(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	key := storage.NewKey("session", "ses1")
	if err := b.Write(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := b.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := b.Read(ctx, key); !coreerr.Is(err, coreerr.KindNotFound) {
		t.Fatalf("expected removed key to be NotFound, got %v", err)
	}
}

func TestConcurrentReadsDoNotBlockEachOther(t *testing.T) {
	ctx := context.Background()
	b, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key := storage.NewKey("session", "ses1")
	if err := b.Write(ctx, key, []byte(`{}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := b.Read(ctx, key)
			done <- err
		}()
	}
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent read: %v", err)
		}
	}
}
