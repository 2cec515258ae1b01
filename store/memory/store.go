// Package memory provides an in-process store. It keeps every entry and
// snapshot in maps and is intended for tests and single-process use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/store"
)

var _ store.Store = (*Store)(nil)

// Store is an in-memory store.
type Store struct {
	mu sync.RWMutex

	entries    []*journal.Entry
	bySequence map[uint64]*journal.Entry
	byID       map[string]*journal.Entry

	snapshots []*journal.Snapshot

	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{
		bySequence: make(map[uint64]*journal.Entry),
		byID:       make(map[string]*journal.Entry),
	}
}

// Entry Store implementation
func (s *Store) AppendEntry(_ context.Context, e *journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return issuance.ErrStoreClosed
	}
	if _, exists := s.bySequence[e.Sequence]; exists {
		return issuance.ErrAlreadyExists
	}

	cp := *e
	s.entries = append(s.entries, &cp)
	s.bySequence[e.Sequence] = &cp
	s.byID[e.ID.String()] = &cp

	if n := len(s.entries); n > 1 && s.entries[n-2].Sequence > cp.Sequence {
		sort.Slice(s.entries, func(i, j int) bool { return s.entries[i].Sequence < s.entries[j].Sequence })
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.byID[entryID.String()]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, issuance.ErrNotFound
}

func (s *Store) ListEntries(_ context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := sort.Search(len(s.entries), func(i int) bool { return s.entries[i].Sequence > opts.After })

	var result []*journal.Entry
	for _, e := range s.entries[start:] {
		if opts.Operation != "" && e.Operation != opts.Operation {
			continue
		}
		cp := *e
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return 0, nil
	}
	return s.entries[len(s.entries)-1].Sequence, nil
}

// Snapshot Store implementation
func (s *Store) SaveSnapshot(_ context.Context, snap *journal.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return issuance.ErrStoreClosed
	}
	cp := *snap
	s.snapshots = append(s.snapshots, &cp)
	return nil
}

func (s *Store) LatestSnapshot(_ context.Context) (*journal.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *journal.Snapshot
	for _, snap := range s.snapshots {
		if latest == nil || snap.Sequence >= latest.Sequence {
			latest = snap
		}
	}
	if latest == nil {
		return nil, issuance.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return issuance.ErrStoreClosed
	}
	return nil
}

// Close marks the store closed. The data stays in memory so a ledger can
// be restarted on the same store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
