// Package sqlitestore implements storage.Backend as MultiSqliteBackend:
// one metadata database per project plus one database per session, adapted
// from the hot-reloadable single-file engine the core package used to open
// its database with.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const metadataSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER DEFAULT (unixepoch()),
	updated_at INTEGER DEFAULT (unixepoch())
);
CREATE INDEX IF NOT EXISTS idx_project_id ON sessions(project_id);
CREATE INDEX IF NOT EXISTS idx_updated_at ON sessions(updated_at DESC);

CREATE TABLE IF NOT EXISTS session_diffs (
	session_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at INTEGER DEFAULT (unixepoch()),
	updated_at INTEGER DEFAULT (unixepoch())
);
`

const sessionSchema = `
CREATE TABLE IF NOT EXISTS storage (
	key        TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at INTEGER DEFAULT (unixepoch()),
	updated_at INTEGER DEFAULT (unixepoch())
);
CREATE INDEX IF NOT EXISTS idx_type ON storage(type);
`

func openDB(path string, schema string) (*sql.DB, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema %s: %w", path, err)
	}
	return db, nil
}

// Engine owns the per-project root directory: the metadata database and a
// lazily populated, process-lifetime cache of per-session database handles.
type Engine struct {
	root string // {instance.directory}/.opencode

	metaDB *sql.DB

	mu       sync.Mutex
	sessions map[string]*sql.DB
}

// Open creates {root}/.opencode if needed, opens sessions.db, and returns a
// ready Engine. Per-session databases are opened lazily by Session.
func Open(root string) (*Engine, error) {
	dir := filepath.Join(root, ".opencode")
	if err := os.MkdirAll(filepath.Join(dir, "sessions"), 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	metaDB, err := openDB(filepath.Join(dir, "sessions.db"), metadataSchema)
	if err != nil {
		return nil, err
	}

	return &Engine{
		root:     dir,
		metaDB:   metaDB,
		sessions: make(map[string]*sql.DB),
	}, nil
}

// Meta returns the metadata database handle.
func (e *Engine) Meta() *sql.DB { return e.metaDB }

// sessionPath returns the on-disk path of a session database file.
func (e *Engine) sessionPath(sessionID string) string {
	return filepath.Join(e.root, "sessions", sessionID+".db")
}

// Session returns the database handle for sessionID, opening and caching it
// on first use. The handle is reused for the life of the Engine.
func (e *Engine) Session(sessionID string) (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if db, ok := e.sessions[sessionID]; ok {
		return db, nil
	}

	db, err := openDB(e.sessionPath(sessionID), sessionSchema)
	if err != nil {
		return nil, err
	}
	e.sessions[sessionID] = db
	return db, nil
}

// DropSession closes and deletes sessionID's database file along with its
// WAL/SHM sidecars. It is a no-op if the session was never opened on disk.
func (e *Engine) DropSession(sessionID string) error {
	e.mu.Lock()
	db, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	if ok {
		db.Close()
	}

	path := e.sessionPath(sessionID)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s%s: %w", path, suffix, err)
		}
	}
	return nil
}

// Close checkpoints and closes the metadata database and every cached
// session database.
func (e *Engine) Close() error {
	e.mu.Lock()
	sessions := e.sessions
	e.sessions = make(map[string]*sql.DB)
	e.mu.Unlock()

	var firstErr error
	for _, db := range sessions {
		db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.metaDB.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := e.metaDB.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
