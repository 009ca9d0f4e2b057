// Package store persists chat sessions to a single JSON file.
//
// The whole mapping is kept in memory and rewritten to disk on every
// mutation. Writes go through a temp file and rename so a crash never
// leaves a half-written store behind. There is no cross-process locking:
// two processes sharing the same file will race and the last writer wins.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/raphaelgruber/ragweb/internal/models"
)

// ErrSessionNotFound is returned when a session id is not in the store.
var ErrSessionNotFound = errors.New("session not found")

// Store is the durable session mapping. Pure data access; all business
// logic lives in the orchestrator and services.
type Store struct {
	path     string
	log      *slog.Logger
	sessions map[string]*models.Session
}

// Open loads the session file at path, creating the parent directory if
// needed. An unreadable or malformed file is replaced by an empty mapping:
// the previous content is kept next to the store as sessions.json.corrupt
// and a warning is logged, but no error is surfaced.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		path:     path,
		log:      log,
		sessions: make(map[string]*models.Session),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		log.Warn("session file unreadable, starting empty", "file", path, "error", err)
		return s, nil
	}

	if err := json.Unmarshal(data, &s.sessions); err != nil {
		log.Warn("session file malformed, starting empty", "file", path, "error", err)
		if renameErr := os.Rename(path, path+".corrupt"); renameErr != nil {
			log.Warn("failed to preserve corrupt session file", "error", renameErr)
		}
		s.sessions = make(map[string]*models.Session)
		return s, nil
	}

	for id, sess := range s.sessions {
		sess.ID = id
	}
	return s, nil
}

// List returns all sessions ordered by creation time.
func (s *Store) List() []*models.Session {
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Create adds a new session with a fresh id, a title derived from the
// current session count, and empty message and URL lists, then persists.
func (s *Store) Create() (*models.Session, error) {
	sess := &models.Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		Title:       fmt.Sprintf("Chat %d", len(s.sessions)+1),
		Messages:    []models.Message{},
		ScrapedURLs: []string{},
	}
	s.sessions[sess.ID] = sess
	if err := s.Persist(); err != nil {
		delete(s.sessions, sess.ID)
		return nil, err
	}
	s.log.Debug("session created", "session", sess.ID, "title", sess.Title)
	return sess, nil
}

// Load returns the session with the given id.
func (s *Store) Load(id string) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// AppendMessage appends a message to the session transcript and persists.
// When persisting fails the in-memory transcript is reverted, so memory
// and disk never disagree about what was appended.
func (s *Store) AppendMessage(id string, msg models.Message) error {
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	sess.Messages = append(sess.Messages, msg)
	if err := s.Persist(); err != nil {
		sess.Messages = sess.Messages[:len(sess.Messages)-1]
		return err
	}
	return nil
}

// RemoveLastMessage removes the most recent message from the session and
// persists. This exists solely for the orchestrator's turn rollback after
// a failed generation; the transcript is append-only otherwise.
func (s *Store) RemoveLastMessage(id string) error {
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	if len(sess.Messages) == 0 {
		return nil
	}
	last := sess.Messages[len(sess.Messages)-1]
	sess.Messages = sess.Messages[:len(sess.Messages)-1]
	if err := s.Persist(); err != nil {
		sess.Messages = append(sess.Messages, last)
		return err
	}
	return nil
}

// AppendURLs records ingested source URLs on the session and persists.
func (s *Store) AppendURLs(id string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	sess, err := s.Load(id)
	if err != nil {
		return err
	}
	prev := len(sess.ScrapedURLs)
	sess.ScrapedURLs = append(sess.ScrapedURLs, urls...)
	if err := s.Persist(); err != nil {
		sess.ScrapedURLs = sess.ScrapedURLs[:prev]
		return err
	}
	return nil
}

// DeleteAll wipes every session and persists the empty mapping.
func (s *Store) DeleteAll() error {
	prev := s.sessions
	s.sessions = make(map[string]*models.Session)
	if err := s.Persist(); err != nil {
		s.sessions = prev
		return err
	}
	return nil
}

// Persist rewrites the whole mapping via temp file + rename.
func (s *Store) Persist() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}
