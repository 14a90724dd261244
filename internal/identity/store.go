package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoIdentity means nothing usable is persisted: the file is missing, malformed
// or holds an empty identifier.
var ErrNoIdentity = errors.New("no persisted identity")

// FileStore persists the identifier as a single JSON document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the persisted identifier. Every read or parse failure is
// reported as ErrNoIdentity, wrapping the cause.
func (s *FileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoIdentity, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return "", fmt.Errorf("%w: malformed %s: %v", ErrNoIdentity, s.path, err)
	}
	id := strings.TrimSpace(rec.DID)
	if id == "" {
		return "", fmt.Errorf("%w: %s has no did", ErrNoIdentity, s.path)
	}
	return id, nil
}

// Save writes the identifier atomically (temp file then rename), readable only
// by the owner.
func (s *FileStore) Save(did string) error {
	raw, err := json.Marshal(Record{DID: did})
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".did-*.json")
	if err != nil {
		return fmt.Errorf("create temp identity file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write identity: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod identity: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync identity: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close identity: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("persist identity: %w", err)
	}
	return nil
}
