// Package undo orchestrates the clear/backup/undo lifecycle: a clear always
// snapshots the pre-clear state first, and an undo re-applies the most
// recent snapshot wholesale.
package undo

import (
	"fmt"
	"sync"

	"github.com/medibook-dev/medibook/internal/backup"
	"github.com/medibook-dev/medibook/internal/store"
)

// RestoreResult reports the outcome of an undo.
type RestoreResult struct {
	Restored int
}

// Engine serializes clear and undo per collection. Clear and undo on the
// same collection are mutually exclusive; different collections proceed
// independently.
type Engine struct {
	store   store.Store
	backups *backup.Manager

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(st store.Store, backups *backup.Manager) *Engine {
	return &Engine{
		store:   st,
		backups: backups,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockFor(collection string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[collection]
	if !ok {
		l = &sync.Mutex{}
		e.locks[collection] = l
	}
	return l
}

// Clear snapshots the collection and then empties it, returning how many
// records were cleared. A failed snapshot aborts the whole clear: no record
// is removed unless the pre-clear state has been captured durably first.
func (e *Engine) Clear(collection, note string) (int, error) {
	l := e.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	snap, err := e.backups.Snapshot(collection, note)
	if err != nil {
		return 0, fmt.Errorf("snapshot before clear: %w", err)
	}
	if err := e.store.RemoveAll(collection); err != nil {
		return 0, fmt.Errorf("purge after snapshot: %w", err)
	}
	return len(snap.Records), nil
}

// Undo replaces the collection's entire contents with the latest snapshot.
// It does not merge and does not chain: running it twice in a row re-applies
// the same snapshot both times. backup.ErrNoBackup propagates untouched.
func (e *Engine) Undo(collection string) (RestoreResult, error) {
	l := e.lockFor(collection)
	l.Lock()
	defer l.Unlock()

	snap, err := e.backups.Latest(collection)
	if err != nil {
		return RestoreResult{}, err
	}
	if err := e.store.ReplaceAll(collection, snap.Records); err != nil {
		return RestoreResult{}, fmt.Errorf("restore snapshot: %w", err)
	}
	return RestoreResult{Restored: len(snap.Records)}, nil
}
