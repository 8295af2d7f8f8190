// Package session owns the authenticated session: its persistence and
// the automatic token renewal that keeps it alive.
package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fccur/portal/pkg/protocol"
)

// Session is the full set of credentials and metadata for an
// authenticated user. It is persisted and cleared only as a whole;
// a partially written session never exists.
type Session struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         *protocol.User `json:"user"`
	ExpiresIn    int64          `json:"expires_in"` // seconds
	LoginTime    time.Time      `json:"login_time"`
}

// FromAuthResponse builds a Session from a server auth response,
// stamping the login time.
func FromAuthResponse(ar *protocol.AuthResponse, now time.Time) *Session {
	return &Session{
		AccessToken:  ar.Token,
		RefreshToken: ar.RefreshToken,
		User:         ar.User,
		ExpiresIn:    ar.ExpiresIn,
		LoginTime:    now,
	}
}

// complete reports whether every required field is present.
func (s *Session) complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.ExpiresIn > 0
}

// TokenExpiry extracts the exp claim from the access token without
// verifying the signature. Display only; the client never gates on it.
func (s *Session) TokenExpiry() (time.Time, bool) {
	if s == nil || s.AccessToken == "" {
		return time.Time{}, false
	}
	token, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Store persists at most one Session. Writes and clears are
// all-or-nothing; readers of a Store never observe a partial session.
type Store interface {
	// Load returns the persisted session, or nil if none exists.
	Load() (*Session, error)
	// Replace atomically overwrites the persisted session.
	Replace(*Session) error
	// Clear removes the persisted session. Clearing an empty store is
	// not an error.
	Clear() error
}

// FileStore keeps the session in a single JSON file, written
// atomically via temp file and rename.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file location.
func (fs *FileStore) Path() string { return fs.path }

// Load reads the persisted session. An incomplete record (e.g. from a
// different client version) is treated as absent.
func (fs *FileStore) Load() (*Session, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, nil
	}
	if !s.complete() {
		return nil, nil
	}
	return &s, nil
}

// Replace writes the session atomically.
func (fs *FileStore) Replace(s *Session) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Clear removes the session file.
func (fs *FileStore) Clear() error {
	err := os.Remove(fs.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemoryStore is an in-memory Store for tests and ephemeral use.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

func (ms *MemoryStore) Load() (*Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.s, nil
}

func (ms *MemoryStore) Replace(s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	copied := *s
	ms.s = &copied
	return nil
}

func (ms *MemoryStore) Clear() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.s = nil
	return nil
}
