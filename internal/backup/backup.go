// Package backup creates and retrieves point-in-time snapshots of a record
// collection. A snapshot is written once and never touched again; undo only
// ever consults the most recent one.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/medibook-dev/medibook/internal/store"
	"github.com/medibook-dev/medibook/pkg/schema"
)

// ErrNoBackup is returned when a collection has never been snapshotted.
var ErrNoBackup = errors.New("no backup available")

// Snapshot is an immutable capture of a collection's full contents.
type Snapshot struct {
	Collection string          `json:"collection"`
	CreatedAt  time.Time       `json:"createdAt"`
	Note       string          `json:"note,omitempty"`
	Seq        uint64          `json:"seq"`
	Records    []schema.Record `json:"records"`
}

// Manager persists snapshots as one JSON file each, named
// <collection>-<unixnano>-<seq>.json. The seq counter breaks ties between
// snapshots taken within the same nanosecond: highest seq wins. Snapshot
// and Latest hold a per-collection lock, so work on different collections
// never waits on a shared one.
type Manager struct {
	dir   string
	store store.Store
	seq   atomic.Uint64

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager opens (or creates) the snapshot directory and resumes the seq
// counter past anything already on disk.
func NewManager(dir string, st store.Store) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &store.StorageError{Op: "create backup dir", Err: err}
	}

	m := &Manager{dir: dir, store: st, locks: make(map[string]*sync.Mutex)}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, &store.StorageError{Op: "read backup dir", Err: err}
	}
	var next uint64
	for _, file := range files {
		if _, seq, ok := parseName(file.Name()); ok && seq >= next {
			next = seq + 1
		}
	}
	m.seq.Store(next)
	return m, nil
}

func (m *Manager) lockFor(collection string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		m.locks[collection] = l
	}
	return l
}

// parseName extracts the timestamp and seq from a snapshot file name.
// Collection names never contain '-', but we parse from the right anyway.
func parseName(name string) (ts int64, seq uint64, ok bool) {
	if filepath.Ext(name) != ".json" {
		return 0, 0, false
	}
	parts := strings.Split(strings.TrimSuffix(name, ".json"), "-")
	if len(parts) < 3 {
		return 0, 0, false
	}
	ts, err := strconv.ParseInt(parts[len(parts)-2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	seq, err = strconv.ParseUint(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return ts, seq, true
}

// Snapshot reads the collection's full current contents and persists them
// durably. The read happens here, before the caller removes anything, so the
// snapshot is an exact copy of the pre-clear state. Nothing is removed by
// this method; a failed write leaves no file behind.
func (m *Manager) Snapshot(collection, note string) (Snapshot, error) {
	l := m.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	recs, err := m.store.List(collection)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Collection: collection,
		CreatedAt:  time.Now().UTC(),
		Note:       note,
		Seq:        m.seq.Add(1) - 1,
		Records:    recs,
	}

	bytes, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return Snapshot{}, &store.StorageError{Op: "marshal snapshot " + collection, Err: err}
	}

	filePath := filepath.Join(m.dir, fmt.Sprintf("%s-%d-%d.json", collection, snap.CreatedAt.UnixNano(), snap.Seq))
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0644); err != nil {
		return Snapshot{}, &store.StorageError{Op: "write snapshot " + collection, Err: err}
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return Snapshot{}, &store.StorageError{Op: "swap snapshot " + collection, Err: err}
	}

	return snap, nil
}

// Latest returns the snapshot for collection with the greatest creation
// timestamp, ties broken by highest seq. ErrNoBackup if none exists.
func (m *Manager) Latest(collection string) (Snapshot, error) {
	l := m.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	files, err := os.ReadDir(m.dir)
	if err != nil {
		return Snapshot{}, &store.StorageError{Op: "read backup dir", Err: err}
	}

	best := ""
	bestTS := int64(-1)
	var bestSeq uint64
	prefix := collection + "-"
	for _, file := range files {
		if !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		ts, seq, ok := parseName(file.Name())
		if !ok {
			continue
		}
		if ts > bestTS || (ts == bestTS && seq > bestSeq) {
			best, bestTS, bestSeq = file.Name(), ts, seq
		}
	}
	if best == "" {
		return Snapshot{}, ErrNoBackup
	}

	content, err := os.ReadFile(filepath.Join(m.dir, best))
	if err != nil {
		return Snapshot{}, &store.StorageError{Op: "read snapshot " + best, Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(content, &snap); err != nil {
		return Snapshot{}, &store.StorageError{Op: "unmarshal snapshot " + best, Err: err}
	}
	return snap, nil
}
