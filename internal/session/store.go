package session

import (
	"fmt"
	"io"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store holds live sessions. Sessions expire after ttl or when the store
// is full; either way their files are removed.
type Store struct {
	dir      string
	sessions *expirable.LRU[string, *Session]
}

func NewStore(dir string, size int, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	onEvict := func(id string, s *Session) {
		log.Debug("Clearing session", "id", id)
		s.clear()
	}
	return &Store{
		dir:      dir,
		sessions: expirable.NewLRU[string, *Session](size, onEvict, ttl),
	}, nil
}

// Create stores the uploaded content under a fresh id and opens a session
// for it.
func (st *Store) Create(fileName string, r io.Reader) (*Session, error) {
	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(fileName))
	path := filepath.Join(st.dir, "scribe-"+id+ext)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("write upload: %w", err)
	}

	s := newSession(id, filepath.Base(fileName), path)
	st.sessions.Add(id, s)
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.sessions.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete clears the session and forgets it.
func (st *Store) Delete(id string) error {
	if !st.sessions.Remove(id) {
		return ErrNotFound
	}
	return nil
}

func (st *Store) Len() int {
	return st.sessions.Len()
}

// Close clears every session.
func (st *Store) Close() {
	st.sessions.Purge()
}
