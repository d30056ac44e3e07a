// Package store persists session transcripts so a conversation can be
// resumed by a later process.
//
//	db, err := store.OpenSQLite(".loom/sessions.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	transcripts := store.NewTranscripts(db)
//
//	t, ok, err := transcripts.Load(ctx, id)
//	...
//	err = transcripts.Save(ctx, id, store.FromSession(sess))
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound indicates the requested key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Adapter is a key-value persistence backend. Implementations must be
// safe for concurrent use.
type Adapter interface {
	// Get retrieves a value. It returns nil, false, nil if key is absent.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key in ascending order.
	Keys(ctx context.Context) ([]string, error)
}

// SerializationError wraps JSON encoding failures with the key involved.
type SerializationError struct {
	Key string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: serialization error for key %q: %v", e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
