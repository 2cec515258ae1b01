// Package store defines the persistence boundary of the issuance ledger:
// an append-only journal of committed entries plus periodic snapshots.
// Backends return the issuance sentinel errors: ErrNotFound for missing
// entries or snapshots and ErrAlreadyExists when a sequence number is
// appended twice.
package store

import (
	"context"

	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
)

// EntryStore persists the journal.
type EntryStore interface {
	// AppendEntry stores e. Sequence numbers are unique.
	AppendEntry(ctx context.Context, e *journal.Entry) error
	// GetEntry returns one entry by id.
	GetEntry(ctx context.Context, entryID id.EntryID) (*journal.Entry, error)
	// ListEntries returns entries in ascending sequence order.
	ListEntries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error)
	// LastSequence returns the highest stored sequence, or zero.
	LastSequence(ctx context.Context) (uint64, error)
}

// SnapshotStore persists snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *journal.Snapshot) error
	// LatestSnapshot returns the snapshot with the highest sequence.
	LatestSnapshot(ctx context.Context) (*journal.Snapshot, error)
}

// Store is the unified storage interface.
type Store interface {
	EntryStore
	SnapshotStore

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
