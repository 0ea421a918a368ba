// Package ledger defines the ports of the transaction ledger store.
package ledger

import (
	"context"
	"errors"

	"teampower/internal/core"
)

var (
	// ErrStoreUnavailable wraps any persistence failure. Callers must not
	// render views from a snapshot read that failed with it.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrNotFound         = errors.New("transaction not found")
)

// Ports for outbound adapters.
type (
	// Appender adds one record and returns the identifier assigned by the store.
	// Appends are serialized by the implementation.
	Appender interface {
		Append(ctx context.Context, t core.Transaction) (id string, err error)
	}

	// Lister returns a consistent snapshot of every record. Order is not
	// significant; the returned slice is owned by the caller.
	Lister interface {
		ListAll(ctx context.Context) ([]core.Transaction, error)
	}

	Store interface {
		Appender
		Lister
	}

	// Versioned stores expose a counter that changes on every append so that
	// derived views can be cached per version.
	Versioned interface {
		Version(ctx context.Context) (int64, error)
	}
)
