package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/goclode/internal/bus"
	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/instance"
)

func TestGetReturnsCompiledDefaultsWhenNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	info, err := Get(ctx, dir)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Theme != "system" || info.Share != "manual" {
		t.Fatalf("unexpected defaults: %+v", info)
	}
}

func TestGetMergesProjectFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writeJSON(t, filepath.Join(dir, fileName), `{
		// trailing comment, tolerated by the JSONC reader
		"theme": "dracula",
		"agent": {"build": {"model": "big-model"}},
	}`)

	info, err := Get(ctx, dir)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info.Theme != "dracula" {
		t.Fatalf("expected project theme to win, got %q", info.Theme)
	}
	if info.Share != "manual" {
		t.Fatalf("expected default share to survive merge, got %q", info.Share)
	}
	if info.Agent["build"].Model != "big-model" {
		t.Fatalf("expected agent override, got %+v", info.Agent)
	}
}

func TestGetReturnsConfigDirTypoWhenOnlyMisspelledFileExists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	writeJSON(t, filepath.Join(dir, ".opencode.json"), `{"theme": "dracula"}`)

	_, err := Get(ctx, dir)
	if !coreerr.Is(err, coreerr.KindConfigDirTypo) {
		t.Fatalf("expected ConfigDirTypo, got %v", err)
	}
}

func TestUpdateDeepMergesWritesBackAndPublishes(t *testing.T) {
	dir := t.TempDir()
	b := bus.New()

	var received Updated
	unsub := bus.Subscribe(b, Event, func(ctx context.Context, u Updated) {
		received = u
	})
	defer unsub()

	_, err := instance.Provide(context.Background(), dir, func(ctx context.Context) (struct{}, error) {
		merged, err := Update(ctx, b, dir, Info{Theme: "dracula"})
		if err != nil {
			return struct{}{}, err
		}
		if merged.Theme != "dracula" {
			t.Fatalf("expected merged theme, got %q", merged.Theme)
		}

		if _, err := instance.State(ctx, instance.NewKey[string](), func(context.Context, instance.Register) (string, error) {
			return "x", nil
		}); !coreerr.Is(err, coreerr.KindScopeDisposed) {
			t.Fatalf("expected scope disposed after Update, got %v", err)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("Provide: %v", err)
	}

	if received.Config.Theme != "dracula" {
		t.Fatalf("expected published event with merged config, got %+v", received)
	}

	onDisk, _, err := readFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("readFile: %v", err)
	}
	if onDisk.Theme != "dracula" {
		t.Fatalf("expected theme written to disk, got %+v", onDisk)
	}
}

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
