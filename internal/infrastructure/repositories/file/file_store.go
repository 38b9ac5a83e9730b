// Package file persists the durable client documents as a single JSON file on
// disk, the headless-client equivalent of browser local storage.
package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/digisapp/digis-app-sub003/internal/core/domain"
)

// document is everything the client persists across restarts.
type document struct {
	Hint     *domain.RoleHint      `json:"hint,omitempty"`
	Snapshot *domain.StateSnapshot `json:"snapshot,omitempty"`
}

// Store serializes the document to one file. Writes go through a temp file
// and rename so a crash mid-write never corrupts the previous state.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("file store path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// read loads the current document; a missing file is an empty document.
func (s *Store) read() (document, error) {
	var doc document
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse state file: %w", err)
	}
	return doc, nil
}

func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// update applies fn to the document under the lock and writes it back.
func (s *Store) update(fn func(*document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	fn(&doc)
	return s.write(doc)
}
