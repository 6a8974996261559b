// Package store provides the blob storage interface and SQLite implementation.
package store

import (
	"context"
	"errors"

	"github.com/rcliao/canvas-state/internal/model"
)

// ErrNotFound is returned when a key or revision does not exist.
var ErrNotFound = errors.New("not found")

// PutParams holds parameters for writing a blob.
type PutParams struct {
	Key   string
	Value string
}

// Store defines the string-keyed blob storage interface.
type Store interface {
	// Put replaces the value under a key and records a revision.
	Put(ctx context.Context, p PutParams) (*model.Blob, error)

	// Get returns the current value under a key, or ErrNotFound.
	Get(ctx context.Context, key string) (*model.Blob, error)

	// Rm deletes a key and its history.
	Rm(ctx context.Context, key string) error

	// Close closes the store.
	Close() error
}
