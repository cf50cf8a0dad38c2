// Package dirstore implements the directory-per-record layout backing the
// run store: every record owns a subdirectory under a common base holding a
// meta.json plus companion files such as the turns.jsonl transcript.
package dirstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const metaFile = "meta.json"

// DirStore manages a flat directory of record subdirectories and serializes
// access to them. The label names the record kind in error messages ("run").
type DirStore struct {
	mu      sync.RWMutex
	baseDir string
	label   string
}

// NewDirStore creates a DirStore rooted at baseDir.
func NewDirStore(baseDir, label string) *DirStore {
	return &DirStore{baseDir: baseDir, label: label}
}

// Lock acquires the exclusive store lock. Callers hold it across
// read-modify-write cycles on a record's metadata.
func (ds *DirStore) Lock() { ds.mu.Lock() }

// Unlock releases the exclusive store lock.
func (ds *DirStore) Unlock() { ds.mu.Unlock() }

// RLock acquires the shared store lock.
func (ds *DirStore) RLock() { ds.mu.RLock() }

// RUnlock releases the shared store lock.
func (ds *DirStore) RUnlock() { ds.mu.RUnlock() }

// Dir returns the directory holding the record with the given ID.
func (ds *DirStore) Dir(id string) string {
	return filepath.Join(ds.baseDir, id)
}

// FilePath returns the path of a named file inside a record's directory.
func (ds *DirStore) FilePath(id, name string) string {
	return filepath.Join(ds.baseDir, id, name)
}

// EnsureDir creates the record's directory, and the base above it, as needed.
func (ds *DirStore) EnsureDir(id string) error {
	if err := os.MkdirAll(ds.Dir(id), 0o755); err != nil {
		return fmt.Errorf("create %s dir: %w", ds.label, err)
	}
	return nil
}

// RemoveDir deletes a record's directory and everything in it.
func (ds *DirStore) RemoveDir(id string) error {
	return os.RemoveAll(ds.Dir(id))
}

// ListDirs returns the IDs present in the store. A missing base directory
// means an empty store, not an error.
func (ds *DirStore) ListDirs() ([]string, error) {
	entries, err := os.ReadDir(ds.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %ss dir: %w", ds.label, err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	return ids, nil
}

// WriteMeta writes the record's meta.json through a tmp file and rename, so
// concurrent readers never observe a partial document.
func (ds *DirStore) WriteMeta(id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s meta: %w", ds.label, err)
	}

	path := ds.FilePath(id, metaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s meta: %w", ds.label, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s meta: %w", ds.label, err)
	}
	return nil
}

// ReadMeta unmarshals the record's meta.json into out.
func (ds *DirStore) ReadMeta(id string, out any) error {
	data, err := os.ReadFile(ds.FilePath(id, metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s not found: %s", ds.label, id)
		}
		return fmt.Errorf("read %s meta: %w", ds.label, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s meta: %w", ds.label, err)
	}
	return nil
}

// AppendJSONL appends v as one JSON line to a companion file of the record.
func (ds *DirStore) AppendJSONL(id, filename string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s line: %w", filename, err)
	}

	f, err := os.OpenFile(ds.FilePath(id, filename), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", filename, err)
	}
	return nil
}

// LoadJSONL decodes every line of a record's companion file into T. Lines
// that fail to decode are skipped: appends are not atomic, so a crash can
// leave a torn final line behind and it must not poison the whole transcript.
func LoadJSONL[T any](ds *DirStore, id, filename string) ([]T, error) {
	f, err := os.Open(ds.FilePath(id, filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", filename, err)
	}
	return items, nil
}
