package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medibook-dev/medibook/pkg/schema"
)

// FileStore keeps every collection in memory behind a RWMutex and mirrors it
// to one JSON file per collection. Writes go to a temporary file first and
// are swapped in with an atomic rename: if the power fails mid-write we have
// either the old file or the new one, never a corrupt one.
type FileStore struct {
	mu   sync.RWMutex
	dir  string
	data map[string][]schema.Record
}

// NewFileStore opens (or creates) the data directory and loads every
// existing collection file. Unreadable files are skipped with a warning so
// one corrupt collection does not take the whole store down.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "create data dir", Err: err}
	}

	data := make(map[string][]schema.Record)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, &StorageError{Op: "read data dir", Err: err}
	}
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}
		name := file.Name()[:len(file.Name())-5] // strip .json

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			slog.Warn("could not read collection file", "file", file.Name(), "err", err)
			continue
		}
		var recs []schema.Record
		if err := json.Unmarshal(content, &recs); err != nil {
			slog.Warn("could not unmarshal collection file", "file", file.Name(), "err", err)
			continue
		}
		data[name] = recs
	}
	return &FileStore{dir: dir, data: data}, nil
}

// save writes a collection's full contents to disk. Must be called while
// holding f.mu.
func (f *FileStore) save(collection string, recs []schema.Record) error {
	filePath := filepath.Join(f.dir, fmt.Sprintf("%s.json", collection))
	tempPath := filePath + ".tmp"

	bytes, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return &StorageError{Op: "marshal " + collection, Err: err}
	}
	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return &StorageError{Op: "write " + collection, Err: err}
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return &StorageError{Op: "swap " + collection, Err: err}
	}
	return nil
}

func (f *FileStore) Append(collection string, rec schema.Record) (schema.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec = rec.Clone()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	next := append(append([]schema.Record{}, f.data[collection]...), rec)
	if err := f.save(collection, next); err != nil {
		// Disk rejected the write; memory stays on the old contents.
		return schema.Record{}, err
	}
	f.data[collection] = next
	return rec.Clone(), nil
}

func (f *FileStore) List(collection string) ([]schema.Record, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	recs := make([]schema.Record, 0, len(f.data[collection]))
	for _, r := range f.data[collection] {
		recs = append(recs, r.Clone())
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs, nil
}

func (f *FileStore) ReplaceAll(collection string, recs []schema.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make([]schema.Record, 0, len(recs))
	for _, r := range recs {
		next = append(next, r.Clone())
	}
	if err := f.save(collection, next); err != nil {
		return err
	}
	f.data[collection] = next
	return nil
}

func (f *FileStore) UpdateField(collection, id string, patch map[string]any) (schema.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.data[collection]
	idx := -1
	for i, r := range current {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return schema.Record{}, ErrNotFound
	}

	updated := current[idx].Clone()
	for k, v := range patch {
		switch k {
		case "id":
			// Identity is never patchable.
		case "createdAt":
			if s, ok := v.(string); ok {
				if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
					updated.CreatedAt = ts
				}
			}
		default:
			updated.Fields[k] = v
		}
	}

	next := append([]schema.Record{}, current...)
	next[idx] = updated
	if err := f.save(collection, next); err != nil {
		return schema.Record{}, err
	}
	f.data[collection] = next
	return updated.Clone(), nil
}

func (f *FileStore) RemoveAll(collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.save(collection, []schema.Record{}); err != nil {
		return err
	}
	f.data[collection] = nil
	return nil
}
