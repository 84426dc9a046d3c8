// Package store defines the persistent ledger ports and the snapshot fan-out
// shared by the store implementations.
package store

import (
	"context"
	"errors"

	"caja/internal/core"
)

var (
	ErrNotFound = errors.New("entry not found")
	ErrClosed   = errors.New("store closed")
)

// Snapshot is the full current collection, ordered by date descending.
// Revision increases with every committed change.
type Snapshot struct {
	Revision uint64
	Entries  []core.Entry
}

// Observer receives snapshots and subscription errors. Callbacks for a
// single subscription are never invoked concurrently.
type Observer struct {
	Snapshot func(Snapshot)
	Error    func(error)
}

// Subscription is cancelled with Unsubscribe; further calls are no-ops.
type Subscription interface {
	Unsubscribe()
}

// Ports implemented by ledger stores.
type (
	Inserter interface {
		// Insert persists the entry fields (ID is ignored) and returns the new id.
		Insert(ctx context.Context, e core.Entry) (id string, err error)
	}

	Deleter interface {
		Delete(ctx context.Context, id string) error
	}

	// BatchInserter persists all entries or none of them.
	BatchInserter interface {
		BatchInsert(ctx context.Context, entries []core.Entry) error
	}

	// Subscriber delivers the current snapshot first, then a new snapshot
	// after every change, including changes made by the subscriber itself.
	Subscriber interface {
		Subscribe(obs Observer) Subscription
	}

	Store interface {
		Inserter
		Deleter
		BatchInserter
		Subscriber
		Close() error
	}
)
