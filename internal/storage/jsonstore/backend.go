// Package jsonstore implements the legacy file-tree storage.Backend used
// only by migrate.Migrator to read a project's pre-sqlite data. It maps a
// key directly to a file path and reads/writes whole JSON files, the way
// dive's DiskRepository maps a thread id to its own file.
package jsonstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/lockset"
	"github.com/hazyhaar/goclode/internal/storage"
)

// Backend roots a hierarchical key space at a directory on disk:
// key "session/p1/s1" lives at "{root}/session/p1/s1.json". Every operation
// takes a per-path advisory lock from locks before touching the
// filesystem: reads and lists take a shared lock, writes and removes take
// an exclusive one.
type Backend struct {
	root  string
	locks *lockset.Set
}

// New returns a Backend rooted at root, creating it if necessary.
func New(root string) (*Backend, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, coreerr.IO("jsonstore.mkdir", err)
	}
	return &Backend{root: root, locks: lockset.New()}, nil
}

var _ storage.Backend = (*Backend)(nil)

func (b *Backend) path(key storage.Key) string {
	return filepath.Join(b.root, filepath.FromSlash(key.String())) + ".json"
}

func (b *Backend) Read(ctx context.Context, key storage.Key) ([]byte, error) {
	path := b.path(key)
	var data []byte
	err := b.locks.Read(path, func() error {
		raw, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return coreerr.NotFound(string(key.Type()), key.String())
		}
		if err != nil {
			return coreerr.IO("jsonstore.read", err)
		}
		data = raw
		return nil
	})
	return data, err
}

func (b *Backend) Write(ctx context.Context, key storage.Key, data []byte) error {
	path := b.path(key)
	return b.locks.Write(path, func() error {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return coreerr.IO("jsonstore.mkdir", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return coreerr.IO("jsonstore.write", err)
		}
		return nil
	})
}

func (b *Backend) Remove(ctx context.Context, key storage.Key) error {
	path := b.path(key)
	return b.locks.Write(path, func() error {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return coreerr.IO("jsonstore.remove", err)
		}
		dir := strings.TrimSuffix(path, ".json")
		if err := os.RemoveAll(dir); err != nil {
			return coreerr.IO("jsonstore.remove.children", err)
		}
		return nil
	})
}

func (b *Backend) List(ctx context.Context, prefix storage.Key) ([]storage.Key, error) {
	dir := filepath.Join(b.root, filepath.FromSlash(prefix.String()))

	var keys []string
	err := b.locks.Read(dir, func() error {
		return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == dir {
					return nil
				}
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".json") {
				return nil
			}
			rel, err := filepath.Rel(b.root, path)
			if err != nil {
				return err
			}
			rel = strings.TrimSuffix(rel, ".json")
			keys = append(keys, filepath.ToSlash(rel))
			return nil
		})
	})
	if err != nil {
		return nil, coreerr.IO("jsonstore.list", err)
	}

	sort.Strings(keys)
	result := make([]storage.Key, 0, len(keys))
	for _, k := range keys {
		parsed, err := storage.ParseKey(k)
		if err != nil {
			return nil, err
		}
		result = append(result, parsed)
	}
	return result, nil
}

func (b *Backend) Close() error { return nil }
