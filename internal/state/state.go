// Package state persists pull-mode scan bookkeeping between runs.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// State records the outcome of the most recent inbox scan.
type State struct {
	LastScan  time.Time `json:"last_scan"`
	LastFiles []string  `json:"last_files"`
}

// Store reads and writes State to a JSON file. All methods are safe
// for concurrent use.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store backed by the file at path. The file is
// created on first save.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load returns the persisted state, or a zero state if the file does
// not exist yet.
func (s *Store) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{LastFiles: []string{}}, nil
		}
		return State{}, fmt.Errorf("state: read %s: %w", s.path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("state: decode %s: %w", s.path, err)
	}
	if st.LastFiles == nil {
		st.LastFiles = []string{}
	}
	return st, nil
}

// Save overwrites the persisted state atomically.
func (s *Store) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *Store) save(st State) error {
	if st.LastFiles == nil {
		st.LastFiles = []string{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".othala-state-*")
	if err != nil {
		return fmt.Errorf("state: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("state: sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("state: replace %s: %w", s.path, err)
	}
	return nil
}

// MarkScan records that a scan just completed over the given files.
func (s *Store) MarkScan(files []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return err
	}
	st.LastScan = time.Now().UTC()
	st.LastFiles = files
	return s.save(st)
}
