// Package attach defines the consumed interface of the external attachment
// store. The core never performs upload I/O itself; the surrounding media
// pipeline implements Store and hands back durable URLs and metadata.
package attach

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnavailable means no attachment store is wired; inline uploads
// must be resolved by the caller instead.
var ErrStoreUnavailable = errors.New("attachment store not configured")

// StoredObject is the durable result of storing a byte buffer.
type StoredObject struct {
	URL      string
	StoreID  string
	Size     int64
	Width    *int
	Height   *int
	Duration *float64
}

// Store accepts a byte buffer with a declared media kind and returns a
// durable URL plus metadata. A failure blocks the send outright; there is
// no message without its content.
type Store interface {
	Store(ctx context.Context, data []byte, declaredKind, mimeType string) (*StoredObject, error)
}

// StoreError wraps a failure from the external store so callers can surface
// it as a send failure without partial persistence.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("attachment store failure: %v", e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Unavailable is the default Store when no media pipeline is wired.
type Unavailable struct{}

// Store implements Store.
func (Unavailable) Store(ctx context.Context, data []byte, declaredKind, mimeType string) (*StoredObject, error) {
	return nil, ErrStoreUnavailable
}
