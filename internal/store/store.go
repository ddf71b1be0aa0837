// Package store defines the Record Store contract and its backends.
package store

import (
	"errors"
	"fmt"

	"github.com/medibook-dev/medibook/pkg/schema"
)

// ErrNotFound is returned when a referenced record id does not exist.
var ErrNotFound = errors.New("record not found")

// Well-known collection names.
const (
	Appointments = "appointments"
	Feedbacks    = "feedbacks"
	Payments     = "payments"
)

// StorageError reports a failed durable read or write. The caller decides
// whether to abort the surrounding operation; the store never retries.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Store is the primary interface for keeping clinic records. Both the
// JSON-file backend and the Mongo backend implement this contract.
type Store interface {
	// Append assigns an id and creation timestamp if absent, persists the
	// record durably and returns it as stored.
	Append(collection string, rec schema.Record) (schema.Record, error)

	// List returns all current records ordered by creation timestamp
	// descending. An empty or unknown collection yields an empty slice.
	List(collection string) ([]schema.Record, error)

	// ReplaceAll atomically discards the current contents and installs recs.
	// On failure the previous contents must still be readable.
	ReplaceAll(collection string, recs []schema.Record) error

	// UpdateField merges patch into the record matching id. The record's
	// identity and original creation timestamp survive unless the patch
	// carries an explicit, well-formed createdAt.
	UpdateField(collection, id string, patch map[string]any) (schema.Record, error)

	// RemoveAll empties the collection. Only ever called after a successful
	// snapshot of the pre-clear state.
	RemoveAll(collection string) error
}
