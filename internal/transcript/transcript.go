// Package transcript provides typed convenience wrappers over the storage
// façade for the four record kinds a project's conversation history is made
// of: sessions, messages, parts, and session diffs. It plays the role the
// teacher's session.Manager played directly against *sql.DB, but every
// operation now goes through storage.Backend so it works the same whether
// that backend is sqlitestore or (during a migration) jsonstore.
package transcript

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/goclode/internal/bus"
	"github.com/hazyhaar/goclode/internal/coreerr"
	"github.com/hazyhaar/goclode/internal/storage"
)

// Summary is a session's compact diff rollup, kept on the session record
// itself once the full per-file diff has been extracted to a SessionDiff.
type Summary struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Session is the opaque-JSON record stored under session/{projectID}/{sessionID}.
type Session struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	GitBranch      string            `json:"git_branch,omitempty"`
	GitCommitStart string            `json:"git_commit_start,omitempty"`
	ProviderID     string            `json:"provider_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	Summary        *Summary          `json:"summary,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActiveAt   time.Time         `json:"last_active_at"`
}

// Message is the record stored under message/{sessionID}/{messageID}.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Role       string    `json:"role"`
	Content    string    `json:"content"`
	ProviderID string    `json:"provider_id,omitempty"`
	Model      string    `json:"model,omitempty"`
	TokensIn   int       `json:"tokens_in"`
	TokensOut  int       `json:"tokens_out"`
	LatencyMS  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Part is a message's child record, stored under the preferred
// part/{sessionID}/{messageID}/{partID} key so routing never depends on the
// process-lifetime message→session map.
type Part struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
}

// FileDiff is one file's contribution to a SessionDiff.
type FileDiff struct {
	Path      string `json:"path"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// SessionDiff is the record stored under session_diff/{sessionID}.
type SessionDiff struct {
	SessionID string     `json:"session_id"`
	Files     []FileDiff `json:"files"`
}

type sessionRemoved struct {
	SessionID string `json:"session_id" validate:"required"`
}

var (
	// SessionCreated fires once a new session record has been written.
	SessionCreated = bus.Declare[Session]("session.created")
	// SessionUpdated fires after Store.UpdateSession writes the mutated record.
	SessionUpdated = bus.Declare[Session]("session.updated")
	// SessionRemoved fires after a session and its database file are gone.
	SessionRemoved = bus.Declare[sessionRemoved]("session.removed")
	// SessionDiffUpdated fires after Store.SetSessionDiff writes a diff.
	SessionDiffUpdated = bus.Declare[SessionDiff]("session.diff.updated")
)

// Store is the typed façade over a project's storage.Backend.
type Store struct {
	backend   storage.Backend
	projectID string
	bus       *bus.Bus
}

// New returns a Store scoped to projectID, publishing change events on b.
func New(backend storage.Backend, projectID string, b *bus.Bus) *Store {
	return &Store{backend: backend, projectID: projectID, bus: b}
}

func (s *Store) sessionKey(sessionID string) storage.Key {
	return storage.NewKey("session", s.projectID, sessionID)
}

// CreateSession writes a new session record with a fresh id.
func (s *Store) CreateSession(ctx context.Context, providerID string) (Session, error) {
	now := time.Now()
	session := Session{
		ID:           uuid.New().String(),
		ProjectID:    s.projectID,
		ProviderID:   providerID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := storage.Write(ctx, s.backend, s.sessionKey(session.ID), session); err != nil {
		return Session{}, err
	}
	bus.Publish(ctx, s.bus, SessionCreated, session)
	return session, nil
}

// GetSession reads a session record by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, error) {
	return storage.Read[Session](ctx, s.backend, s.sessionKey(sessionID))
}

// UpdateSession applies mutate to the session record and writes it back,
// bumping LastActiveAt and publishing SessionUpdated.
func (s *Store) UpdateSession(ctx context.Context, sessionID string, mutate func(*Session)) (Session, error) {
	session, err := storage.Update(ctx, s.backend, s.sessionKey(sessionID), func(sess *Session) {
		mutate(sess)
		sess.LastActiveAt = time.Now()
	})
	if err != nil {
		return Session{}, err
	}
	bus.Publish(ctx, s.bus, SessionUpdated, session)
	return session, nil
}

// RemoveSession deletes the session record and its session database file.
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	if err := storage.Remove(ctx, s.backend, s.sessionKey(sessionID)); err != nil {
		return err
	}
	bus.Publish(ctx, s.bus, SessionRemoved, sessionRemoved{SessionID: sessionID})
	return nil
}

// ListSessions returns this project's sessions, most recently active first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	keys, err := storage.List(ctx, s.backend, storage.NewKey("session", s.projectID))
	if err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(keys))
	for _, k := range keys {
		session, err := storage.Read[Session](ctx, s.backend, k)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func messageKey(sessionID, messageID string) storage.Key {
	return storage.NewKey("message", sessionID, messageID)
}

// AddMessage writes msg under a fresh id within sessionID.
func (s *Store) AddMessage(ctx context.Context, sessionID string, msg Message) (Message, error) {
	msg.ID = uuid.New().String()
	msg.SessionID = sessionID
	msg.CreatedAt = time.Now()

	if err := storage.Write(ctx, s.backend, messageKey(sessionID, msg.ID), msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// GetMessages returns every message in sessionID, oldest first.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	keys, err := storage.List(ctx, s.backend, storage.NewKey("message", sessionID))
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(keys))
	for _, k := range keys {
		msg, err := storage.Read[Message](ctx, s.backend, k)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	return messages, nil
}

func partKey(sessionID, messageID, partID string) storage.Key {
	return storage.NewKey("part", sessionID, messageID, partID)
}

// AddPart writes part under a fresh id within sessionID/messageID, using the
// preferred 4-segment key so it never depends on a prior message write
// having primed the message→session map in this process.
func (s *Store) AddPart(ctx context.Context, sessionID, messageID string, part Part) (Part, error) {
	part.ID = uuid.New().String()
	part.SessionID = sessionID
	part.MessageID = messageID

	if err := storage.Write(ctx, s.backend, partKey(sessionID, messageID, part.ID), part); err != nil {
		return Part{}, err
	}
	return part, nil
}

// GetParts returns every part of messageID within sessionID, in key order.
func (s *Store) GetParts(ctx context.Context, sessionID, messageID string) ([]Part, error) {
	keys, err := storage.List(ctx, s.backend, storage.NewKey("part", sessionID, messageID))
	if err != nil {
		return nil, err
	}

	parts := make([]Part, 0, len(keys))
	for _, k := range keys {
		part, err := storage.Read[Part](ctx, s.backend, k)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func sessionDiffKey(sessionID string) storage.Key {
	return storage.NewKey("session_diff", sessionID)
}

// GetSessionDiff reads sessionID's standalone diff record.
func (s *Store) GetSessionDiff(ctx context.Context, sessionID string) (SessionDiff, error) {
	return storage.Read[SessionDiff](ctx, s.backend, sessionDiffKey(sessionID))
}

// SetSessionDiff writes sessionID's diff record and publishes SessionDiffUpdated.
func (s *Store) SetSessionDiff(ctx context.Context, sessionID string, diff SessionDiff) error {
	diff.SessionID = sessionID
	if err := storage.Write(ctx, s.backend, sessionDiffKey(sessionID), diff); err != nil {
		return err
	}
	bus.Publish(ctx, s.bus, SessionDiffUpdated, diff)
	return nil
}

// IsNotFound reports whether err is the storage layer's NotFound kind.
func IsNotFound(err error) bool {
	return coreerr.Is(err, coreerr.KindNotFound)
}
