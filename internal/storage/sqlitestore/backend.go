package sqlitestore

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/storage"
)

// Backend implements storage.Backend as spec §4.2's MultiSqliteBackend: a
// per-project metadata database plus one database per session, with a
// process-lifetime messageID→sessionID map for routing legacy 3-segment
// part keys. Callers that mint keys as
// part/{sessionID}/{messageID}/{partID} bypass the map entirely.
type Backend struct {
	engine    *Engine
	projectID string

	mu         sync.RWMutex
	msgSession map[string]string
}

// New wraps engine as a storage.Backend scoped to projectID.
func New(engine *Engine, projectID string) *Backend {
	return &Backend{
		engine:     engine,
		projectID:  projectID,
		msgSession: make(map[string]string),
	}
}

var _ storage.Backend = (*Backend)(nil)

func (b *Backend) Read(ctx context.Context, key storage.Key) ([]byte, error) {
	switch key.Type() {
	case storage.TypeSession:
		sessionID := key.Segment(2)
		var data string
		err := b.engine.Meta().QueryRowContext(ctx,
			`SELECT data FROM sessions WHERE session_id = ?`, sessionID).Scan(&data)
		if err == sql.ErrNoRows {
			return nil, coreerr.NotFound("session", sessionID)
		}
		if err != nil {
			return nil, coreerr.IO("sessions.read", err)
		}
		return []byte(data), nil

	case storage.TypeSessionDiff:
		sessionID := key.Segment(1)
		var data string
		err := b.engine.Meta().QueryRowContext(ctx,
			`SELECT data FROM session_diffs WHERE session_id = ?`, sessionID).Scan(&data)
		if err == sql.ErrNoRows {
			return nil, coreerr.NotFound("session_diff", sessionID)
		}
		if err != nil {
			return nil, coreerr.IO("session_diffs.read", err)
		}
		return []byte(data), nil

	case storage.TypeMessage:
		return b.readRow(ctx, key.Segment(1), key)

	case storage.TypePart:
		sessionID, err := b.resolvePartSession(key)
		if err != nil {
			return nil, err
		}
		return b.readRow(ctx, sessionID, key)

	default:
		return nil, coreerr.Invalid("unsupported storage key type", string(key.Type()))
	}
}

func (b *Backend) readRow(ctx context.Context, sessionID string, key storage.Key) ([]byte, error) {
	db, err := b.engine.Session(sessionID)
	if err != nil {
		return nil, coreerr.IO("session.open", err)
	}
	var data string
	err = db.QueryRowContext(ctx, `SELECT data FROM storage WHERE key = ?`, key.String()).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, coreerr.NotFound(string(key.Type()), key.String())
	}
	if err != nil {
		return nil, coreerr.IO("storage.read", err)
	}
	return []byte(data), nil
}

func (b *Backend) Write(ctx context.Context, key storage.Key, data []byte) error {
	switch key.Type() {
	case storage.TypeSession:
		sessionID := key.Segment(2)
		_, err := b.engine.Meta().ExecContext(ctx, `
			INSERT INTO sessions (session_id, project_id, data)
			VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = unixepoch()
		`, sessionID, b.projectID, string(data))
		if err != nil {
			return coreerr.IO("sessions.write", err)
		}
		return nil

	case storage.TypeSessionDiff:
		sessionID := key.Segment(1)
		_, err := b.engine.Meta().ExecContext(ctx, `
			INSERT INTO session_diffs (session_id, data)
			VALUES (?, ?)
			ON CONFLICT(session_id) DO UPDATE SET data = excluded.data, updated_at = unixepoch()
		`, sessionID, string(data))
		if err != nil {
			return coreerr.IO("session_diffs.write", err)
		}
		return nil

	case storage.TypeMessage:
		sessionID := key.Segment(1)
		messageID := key.Segment(2)
		if err := b.writeRow(ctx, sessionID, key, data); err != nil {
			return err
		}
		b.mu.Lock()
		b.msgSession[messageID] = sessionID
		b.mu.Unlock()
		return nil

	case storage.TypePart:
		sessionID, err := b.partSessionForWrite(key)
		if err != nil {
			return err
		}
		return b.writeRow(ctx, sessionID, key, data)

	default:
		return coreerr.Invalid("unsupported storage key type", string(key.Type()))
	}
}

func (b *Backend) writeRow(ctx context.Context, sessionID string, key storage.Key, data []byte) error {
	db, err := b.engine.Session(sessionID)
	if err != nil {
		return coreerr.IO("session.open", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO storage (key, type, data)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = unixepoch()
	`, key.String(), string(key.Type()), string(data))
	if err != nil {
		return coreerr.IO("storage.write", err)
	}
	return nil
}

func (b *Backend) Remove(ctx context.Context, key storage.Key) error {
	switch key.Type() {
	case storage.TypeSession:
		sessionID := key.Segment(2)
		if _, err := b.engine.Meta().ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
			return coreerr.IO("sessions.remove", err)
		}
		if err := b.engine.DropSession(sessionID); err != nil {
			return coreerr.IO("session.drop", err)
		}
		return nil

	case storage.TypeSessionDiff:
		sessionID := key.Segment(1)
		if _, err := b.engine.Meta().ExecContext(ctx, `DELETE FROM session_diffs WHERE session_id = ?`, sessionID); err != nil {
			return coreerr.IO("session_diffs.remove", err)
		}
		return nil

	case storage.TypeMessage:
		return b.removeRows(ctx, key.Segment(1), key)

	case storage.TypePart:
		sessionID, err := b.resolvePartSession(key)
		if err != nil {
			if coreerr.Is(err, coreerr.KindSessionUnknown) {
				return nil // remove is silent on an absent key
			}
			return err
		}
		return b.removeRows(ctx, sessionID, key)

	default:
		return coreerr.Invalid("unsupported storage key type", string(key.Type()))
	}
}

func (b *Backend) removeRows(ctx context.Context, sessionID string, key storage.Key) error {
	db, err := b.engine.Session(sessionID)
	if err != nil {
		return coreerr.IO("session.open", err)
	}
	_, err = db.ExecContext(ctx, `DELETE FROM storage WHERE key = ? OR key LIKE ?`,
		key.String(), key.ChildPrefix())
	if err != nil {
		return coreerr.IO("storage.remove", err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix storage.Key) ([]storage.Key, error) {
	switch prefix.Type() {
	case storage.TypeSession:
		projectID := prefix.Segment(1)
		rows, err := b.engine.Meta().QueryContext(ctx,
			`SELECT session_id FROM sessions WHERE project_id = ? ORDER BY updated_at DESC`, projectID)
		if err != nil {
			return nil, coreerr.IO("sessions.list", err)
		}
		defer rows.Close()

		var keys []storage.Key
		for rows.Next() {
			var sessionID string
			if err := rows.Scan(&sessionID); err != nil {
				return nil, coreerr.IO("sessions.list.scan", err)
			}
			keys = append(keys, storage.NewKey("session", projectID, sessionID))
		}
		return keys, rows.Err()

	case storage.TypeMessage, storage.TypePart:
		sessionID := prefix.Segment(1)
		db, err := b.engine.Session(sessionID)
		if err != nil {
			return nil, coreerr.IO("session.open", err)
		}

		rows, err := db.QueryContext(ctx, `SELECT key FROM storage WHERE key LIKE ?`, prefix.ChildPrefix())
		if err != nil {
			return nil, coreerr.IO("storage.list", err)
		}
		defer rows.Close()

		var raw []string
		for rows.Next() {
			var k string
			if err := rows.Scan(&k); err != nil {
				return nil, coreerr.IO("storage.list.scan", err)
			}
			raw = append(raw, k)
		}
		if err := rows.Err(); err != nil {
			return nil, coreerr.IO("storage.list.rows", err)
		}
		sort.Strings(raw)

		keys := make([]storage.Key, 0, len(raw))
		for _, k := range raw {
			parsed, err := storage.ParseKey(k)
			if err != nil {
				return nil, err
			}
			keys = append(keys, parsed)
		}
		return keys, nil

	default:
		return nil, coreerr.Invalid("unsupported list prefix type", string(prefix.Type()))
	}
}

func (b *Backend) Close() error {
	return b.engine.Close()
}

// resolvePartSession returns the session a part key belongs to. A
// part/{sessionID}/{messageID}/{partID} key (4 segments) carries its
// session directly; a legacy part/{messageID}/{partID} key (3 segments) is
// resolved through the in-memory message→session map, which fails if no
// message write has routed that messageID yet in this process.
func (b *Backend) resolvePartSession(key storage.Key) (string, error) {
	if key.Len() == 4 {
		return key.Segment(1), nil
	}
	messageID := key.Segment(1)
	b.mu.RLock()
	sessionID, ok := b.msgSession[messageID]
	b.mu.RUnlock()
	if !ok {
		return "", coreerr.SessionUnknown(messageID)
	}
	return sessionID, nil
}

// partSessionForWrite is like resolvePartSession but is used on the write
// path, where a 3-segment part key with an unresolved message is a hard
// failure (the part cannot be stored anywhere) rather than a silent no-op.
func (b *Backend) partSessionForWrite(key storage.Key) (string, error) {
	return b.resolvePartSession(key)
}
