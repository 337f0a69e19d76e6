package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TokenStore keeps the session token between invocations.
type TokenStore interface {
	Load() (string, error)
	Save(token string, expiresAt time.Time) error
	Clear() error
}

type tokenState struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileTokenStore saves the token as JSON, readable by the owner only.
type FileTokenStore struct {
	path string
	now  func() time.Time
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, now: time.Now}
}

// DefaultTokenPath is $XDG_DATA_HOME/faturactl/session.json, falling back to
// ~/.local/share.
func DefaultTokenPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "faturactl", "session.json"), nil
}

// Load returns "" without error when no usable token is saved.
func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	var st tokenState
	if err := json.Unmarshal(data, &st); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	if !st.ExpiresAt.IsZero() && !s.now().Before(st.ExpiresAt) {
		return "", nil
	}
	return st.Token, nil
}

func (s *FileTokenStore) Save(token string, expiresAt time.Time) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.MarshalIndent(tokenState{Token: token, ExpiresAt: expiresAt}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore is a TokenStore for a single process.
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryTokenStore) Save(token string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	return m.Save("", time.Time{})
}
