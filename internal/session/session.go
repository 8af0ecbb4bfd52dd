// Package session persists conversations as one JSON file per session.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/collig/internal/logging"
)

// Roles stored in a session.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrInvalidID is returned for ids that cannot name a session file.
	ErrInvalidID = errors.New("invalid session id")
	// ErrNotFound is returned by Get for an unknown session.
	ErrNotFound = errors.New("session not found")
)

// Message is one stored turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the on-disk record.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Summary describes a session for listings.
type Summary struct {
	ID           string
	CreatedAt    time.Time
	MessageCount int
	LastActivity time.Time
}

// FileStore keeps sessions under a directory as <id>.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
	log *logging.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, log *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now, log: log.Sub("session")}, nil
}

// Dir returns the sessions directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

// Create persists a new empty session and returns its id.
func (s *FileStore) Create() (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(&Session{ID: id, CreatedAt: s.now(), Messages: []Message{}}); err != nil {
		return "", err
	}
	s.log.Debug().Str("sessionId", id).Msg("session created")
	return id, nil
}

// Append adds a message. A missing or unreadable record is replaced with a
// fresh one carrying the same id, so a turn is never lost to bad state.
func (s *FileStore) Append(id, role, content string) error {
	if _, err := s.path(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.load(id)
	if err != nil {
		s.log.Warn().Err(err).Str("sessionId", id).Msg("session record unreadable; starting fresh")
	}
	if sess == nil {
		sess = &Session{ID: id, CreatedAt: s.now(), Messages: []Message{}}
	}

	ts := s.now()
	if n := len(sess.Messages); n > 0 && ts.Before(sess.Messages[n-1].Timestamp) {
		ts = sess.Messages[n-1].Timestamp
	}
	sess.Messages = append(sess.Messages, Message{Role: role, Content: content, Timestamp: ts})
	return s.save(sess)
}

// Load returns the session, or nil with no error when it does not exist.
func (s *FileStore) Load(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(id)
}

// Get is Load with absence reported as ErrNotFound.
func (s *FileStore) Get(id string) (*Session, error) {
	sess, err := s.Load(id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// History returns the messages in order; empty when absent or unreadable.
func (s *FileStore) History(id string) []Message {
	sess, err := s.Load(id)
	if err != nil || sess == nil {
		return []Message{}
	}
	return sess.Messages
}

// Clear empties the message list, keeping the id and creation time.
func (s *FileStore) Clear(id string) error {
	if _, err := s.path(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, _ := s.load(id)
	if sess == nil {
		sess = &Session{ID: id, CreatedAt: s.now()}
	}
	sess.Messages = []Message{}
	return s.save(sess)
}

// Delete removes the session file. Deleting an absent session is not an error.
func (s *FileStore) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List summarises every readable session, newest first.
func (s *FileStore) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		sess, err := s.load(id)
		if err != nil || sess == nil {
			s.log.Debug().Err(err).Str("file", e.Name()).Msg("skipping unreadable session")
			continue
		}
		sum := Summary{ID: sess.ID, CreatedAt: sess.CreatedAt, MessageCount: len(sess.Messages), LastActivity: sess.CreatedAt}
		if sum.ID == "" {
			sum.ID = id
		}
		if n := len(sess.Messages); n > 0 {
			sum.LastActivity = sess.Messages[n-1].Timestamp
		}
		out = append(out, sum)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStore) load(id string) (*Session, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Messages == nil {
		sess.Messages = []Message{}
	}
	return &sess, nil
}

func (s *FileStore) save(sess *Session) error {
	path, err := s.path(sess.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+sess.ID+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
