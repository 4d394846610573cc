// Package store persists which instances exist and their coarse
// authentication status, so the fleet can be rebuilt after a restart.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for an instance.
var ErrNotFound = errors.New("session record not found")

// ErrStoreUnavailable is returned when the backing database cannot be reached.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Status is the durable projection of a session's state.
type Status string

const (
	StatusAuthenticated Status = "Authenticated"
	StatusInactive      Status = "Inactive"
)

// Record is one row of the session table.
type Record struct {
	InstanceID string    `json:"instanceId"`
	Status     Status    `json:"status"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store is the durable record of known instances.
type Store interface {
	// ListInstanceIDs returns every known instance ID. An ErrStoreUnavailable
	// error is fatal to startup.
	ListInstanceIDs(ctx context.Context) ([]string, error)
	// UpsertStatus inserts or updates the record for instanceID.
	UpsertStatus(ctx context.Context, instanceID string, status Status) error
	// Get returns the record for instanceID or ErrNotFound.
	Get(ctx context.Context, instanceID string) (*Record, error)
	// Delete removes the record; deleting a missing record is not an error.
	Delete(ctx context.Context, instanceID string) error
	Close() error
}
