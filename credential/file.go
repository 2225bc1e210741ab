package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the token encrypted on disk. The file contents are
// cached after the first read and decrypted on every Get.
type FileStore struct {
	path   string
	box    *sealer
	logger *slog.Logger

	mu     sync.Mutex
	loaded bool
	sealed []byte // raw file contents, nil when no token is stored
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) FileOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore creates a FileStore at path. The passphrase must be non-empty.
func NewFileStore(path, passphrase string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("credential path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("credential passphrase is required")
	}

	s := &FileStore{
		path:   path,
		box:    newSealer(passphrase),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		data, err := os.ReadFile(s.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			s.sealed = nil
		case err != nil:
			return "", fmt.Errorf("read credential file: %w", err)
		default:
			s.sealed = data
		}
		s.loaded = true
	}

	if len(s.sealed) == 0 {
		return "", nil
	}
	return s.box.open(s.sealed)
}

// Set implements Store.
func (s *FileStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return s.clearLocked()
	}

	sealed, err := s.box.seal([]byte(token))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, sealed, 0600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace credential file: %w", err)
	}

	s.sealed = sealed
	s.loaded = true
	s.logger.Debug("Stored credential", "path", s.path)
	return nil
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *FileStore) clearLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	s.sealed = nil
	s.loaded = true
	s.logger.Debug("Cleared credential", "path", s.path)
	return nil
}

// invalidate drops the cached file contents so the next Get rereads the disk.
func (s *FileStore) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.sealed = nil
}
