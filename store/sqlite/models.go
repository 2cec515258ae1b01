package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
)

type entryModel struct {
	grove.BaseModel `grove:"table:issuance_entries"`

	ID        string    `grove:"id,pk"`
	Sequence  int64     `grove:"sequence"`
	Operation string    `grove:"operation"`
	Caller    string    `grove:"caller"`
	Timestamp time.Time `grove:"timestamp"`
	Changes   string    `grove:"changes"`
	Records   string    `grove:"records"`
}

func toEntryModel(e *journal.Entry) (*entryModel, error) {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return nil, fmt.Errorf("encode changes: %w", err)
	}
	records, err := json.Marshal(e.Records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return &entryModel{
		ID:        e.ID.String(),
		Sequence:  int64(e.Sequence), //nolint:gosec // sequences fit int64
		Operation: e.Operation,
		Caller:    e.Caller.Hex(),
		Timestamp: e.Timestamp.UTC(),
		Changes:   string(changes),
		Records:   string(records),
	}, nil
}

func fromEntryModel(m *entryModel) (*journal.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	e := &journal.Entry{
		ID:        entryID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // stored from uint64
		Operation: m.Operation,
		Caller:    common.HexToAddress(m.Caller),
		Timestamp: m.Timestamp.UTC(),
	}
	if err := json.Unmarshal([]byte(m.Changes), &e.Changes); err != nil {
		return nil, fmt.Errorf("decode changes of entry %d: %w", m.Sequence, err)
	}
	if err := json.Unmarshal([]byte(m.Records), &e.Records); err != nil {
		return nil, fmt.Errorf("decode records of entry %d: %w", m.Sequence, err)
	}
	return e, nil
}

type snapshotModel struct {
	grove.BaseModel `grove:"table:issuance_snapshots"`

	ID        string    `grove:"id,pk"`
	Sequence  int64     `grove:"sequence"`
	Timestamp time.Time `grove:"timestamp"`
	Changes   string    `grove:"changes"`
}

func toSnapshotModel(s *journal.Snapshot) (*snapshotModel, error) {
	changes, err := json.Marshal(s.Changes)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return &snapshotModel{
		ID:        s.ID.String(),
		Sequence:  int64(s.Sequence), //nolint:gosec // sequences fit int64
		Timestamp: s.Timestamp.UTC(),
		Changes:   string(changes),
	}, nil
}

func fromSnapshotModel(m *snapshotModel) (*journal.Snapshot, error) {
	snapID, err := id.ParseSnapshotID(m.ID)
	if err != nil {
		return nil, err
	}
	s := &journal.Snapshot{
		ID:        snapID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // stored from uint64
		Timestamp: m.Timestamp.UTC(),
	}
	if err := json.Unmarshal([]byte(m.Changes), &s.Changes); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", m.ID, err)
	}
	return s, nil
}
