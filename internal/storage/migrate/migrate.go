// Package migrate implements the two one-shot storage upgrades of spec
// §4.2: lifting a project's legacy JSON file tree into MultiSqliteBackend,
// and extracting each session's embedded diff list into a standalone
// session_diff record. Both steps are gated by a sentinel file recording
// the highest migration version already applied to a project, so a
// Migrator can be invoked on every process start without redoing work.
package migrate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/storage"
)

const (
	versionLegacyImport = 1
	versionDiffExtract  = 2
	latestVersion       = versionDiffExtract
)

// Migrator upgrades one project's storage from legacy to current, or from
// current-without-diff-extraction to fully current.
type Migrator struct {
	legacy       storage.Backend // nil if this project never had a legacy tree
	target       storage.Backend
	projectID    string
	sentinelPath string
}

// New returns a Migrator for one project. legacy may be nil when the
// project has no pre-sqlite data to import (Migration 1 is then skipped).
func New(legacy, target storage.Backend, projectID, sentinelPath string) *Migrator {
	return &Migrator{
		legacy:       legacy,
		target:       target,
		projectID:    projectID,
		sentinelPath: sentinelPath,
	}
}

// Run applies whichever migrations this project's sentinel says are still
// pending, in order, persisting the sentinel after each one succeeds.
func (m *Migrator) Run(ctx context.Context) error {
	applied, err := m.sentinelVersion()
	if err != nil {
		return err
	}

	if applied < versionLegacyImport && m.legacy != nil {
		if err := m.importLegacyTree(ctx); err != nil {
			return err
		}
		if err := m.writeSentinel(versionLegacyImport); err != nil {
			return err
		}
		applied = versionLegacyImport
	}

	if applied < versionDiffExtract {
		if err := m.extractSessionDiffs(ctx); err != nil {
			return err
		}
		if err := m.writeSentinel(versionDiffExtract); err != nil {
			return err
		}
	}

	return nil
}

func (m *Migrator) sentinelVersion() (int, error) {
	data, err := os.ReadFile(m.sentinelPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, coreerr.IO("migrate.sentinel.read", err)
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, coreerr.IO("migrate.sentinel.parse", err)
	}
	return v, nil
}

func (m *Migrator) writeSentinel(version int) error {
	if err := os.MkdirAll(filepath.Dir(m.sentinelPath), 0o755); err != nil {
		return coreerr.IO("migrate.sentinel.mkdir", err)
	}
	if err := os.WriteFile(m.sentinelPath, []byte(strconv.Itoa(version)), 0o644); err != nil {
		return coreerr.IO("migrate.sentinel.write", err)
	}
	return nil
}

// importLegacyTree walks the legacy JSON tree and rewrites every record
// into the new per-project layout. Legacy session keys carry no project id
// segment (the legacy tree is already rooted at one project's directory),
// so sessions gain m.projectID on the way in; message and part keys are
// copied unchanged.
func (m *Migrator) importLegacyTree(ctx context.Context) error {
	sessionKeys, err := storage.List(ctx, m.legacy, storage.NewKey("session"))
	if err != nil {
		return err
	}
	for _, key := range sessionKeys {
		raw, err := m.legacy.Read(ctx, key)
		if err != nil {
			return err
		}
		sessionID := key.Segment(key.Len() - 1)
		targetKey := storage.NewKey("session", m.projectID, sessionID)
		if err := m.target.Write(ctx, targetKey, raw); err != nil {
			return err
		}
	}

	for _, typ := range []string{"message", "part", "session_diff"} {
		keys, err := storage.List(ctx, m.legacy, storage.NewKey(typ))
		if err != nil {
			return err
		}
		for _, key := range keys {
			raw, err := m.legacy.Read(ctx, key)
			if err != nil {
				return err
			}
			if err := m.target.Write(ctx, key, raw); err != nil {
				return err
			}
		}
	}

	return nil
}

type legacyFileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// extractSessionDiffs pulls summary.diffs out of every session record
// already in the target backend and replaces it with a compact
// {additions, deletions} count, moving the full per-file list to a
// standalone session_diff/{sessionID} record.
func (m *Migrator) extractSessionDiffs(ctx context.Context) error {
	keys, err := storage.List(ctx, m.target, storage.NewKey("session", m.projectID))
	if err != nil {
		return err
	}

	for _, key := range keys {
		raw, err := m.target.Read(ctx, key)
		if err != nil {
			return err
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return coreerr.JSON(err)
		}

		summary, ok := doc["summary"].(map[string]any)
		if !ok {
			continue
		}
		diffsAny, ok := summary["diffs"].([]any)
		if !ok || len(diffsAny) == 0 {
			delete(summary, "diffs")
			continue
		}

		diffsRaw, err := json.Marshal(diffsAny)
		if err != nil {
			return coreerr.JSON(err)
		}
		var files []legacyFileDiff
		if err := json.Unmarshal(diffsRaw, &files); err != nil {
			return coreerr.JSON(err)
		}

		var additions, deletions int
		for _, f := range files {
			additions += f.Additions
			deletions += f.Deletions
		}

		sessionID := key.Segment(key.Len() - 1)
		diffDoc := map[string]any{"session_id": sessionID, "files": diffsAny}
		diffRaw, err := json.Marshal(diffDoc)
		if err != nil {
			return coreerr.JSON(err)
		}
		if err := m.target.Write(ctx, storage.NewKey("session_diff", sessionID), diffRaw); err != nil {
			return err
		}

		delete(summary, "diffs")
		summary["additions"] = additions
		summary["deletions"] = deletions
		doc["summary"] = summary

		newRaw, err := json.Marshal(doc)
		if err != nil {
			return coreerr.JSON(err)
		}
		if err := m.target.Write(ctx, key, newRaw); err != nil {
			return err
		}
	}

	return nil
}
