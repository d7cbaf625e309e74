// Package state persists provisioning records for one module-run as a single
// JSON document. The file is the durable ownership boundary: it is only ever
// replaced wholesale via temp-file + atomic rename, so the state observed
// after a crash is always either the pre-step or post-step content, never a
// torn write.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/agentrig/agentrig/internal/resource"
)

// CurrentVersion is the state file schema version.
const CurrentVersion = 1

// File is the serialized form of all provisioning records for one module.
type File struct {
	Version   int                         `json:"version"`
	Lineage   string                      `json:"lineage"`
	Module    string                      `json:"module"`
	Serial    int                         `json:"serial"`
	Resources map[string]*resource.Record `json:"resources"`
}

// Store handles reading and writing of one module's state file.
type Store struct {
	path string
	file *File
}

// NewStore returns a store backed by the given path. Call Load before use.
func NewStore(path, module string) *Store {
	return &Store{
		path: path,
		file: &File{
			Version:   CurrentVersion,
			Lineage:   uuid.NewString(),
			Module:    module,
			Resources: make(map[string]*resource.Record),
		},
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the state file from disk. A missing file is a first run and
// yields an empty record set.
func (s *Store) Load() error {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var f File
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("state file %s is not valid JSON: %w", s.path, err)
	}
	if f.Version > CurrentVersion {
		return fmt.Errorf("state file %s has version %d, this build understands up to %d", s.path, f.Version, CurrentVersion)
	}
	if f.Resources == nil {
		f.Resources = make(map[string]*resource.Record)
	}
	s.file = &f
	return nil
}

// Save atomically replaces the state file with the current record set.
// The document is written to a temp file in the same directory and renamed
// into place, so a concurrent crash never leaves a half-written file.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	s.file.Serial++
	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace state file %s: %w", s.path, err)
	}
	return nil
}

// Get returns the record for a key, or nil if none exists.
func (s *Store) Get(key string) *resource.Record {
	return s.file.Resources[key]
}

// Upsert stores a record and immediately persists the full file, so state is
// durable after each individual step rather than only at run end.
func (s *Store) Upsert(key string, rec *resource.Record) error {
	s.file.Resources[key] = rec
	return s.Save()
}

// Remove drops a record and persists. Removing an absent key is a no-op.
func (s *Store) Remove(key string) error {
	if _, ok := s.file.Resources[key]; !ok {
		return nil
	}
	delete(s.file.Resources, key)
	return s.Save()
}

// Records returns a copy of the record map.
func (s *Store) Records() map[string]*resource.Record {
	out := make(map[string]*resource.Record, len(s.file.Resources))
	for k, v := range s.file.Resources {
		out[k] = v
	}
	return out
}

// Keys returns all record keys in stable order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.file.Resources))
	for k := range s.file.Resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Module returns the module name this store was opened for.
func (s *Store) Module() string { return s.file.Module }

// Empty reports whether the store holds no records.
func (s *Store) Empty() bool { return len(s.file.Resources) == 0 }
