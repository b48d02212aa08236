package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no object exists under the given name.
var ErrNotFound = errors.New("storage: object not found")

// Metadata accompanies a stored segment.
type Metadata struct {
	ClientID  string
	Timestamp time.Time
}

// Store is the durable blob storage collaborator: named byte objects with
// optional metadata.
type Store interface {
	Put(ctx context.Context, name string, data []byte, meta *Metadata) error
	Get(ctx context.Context, name string) ([]byte, error)
}
