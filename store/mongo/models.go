package mongo

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xraph/grove"

	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/types"
)

// ==================== Entry models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:issuance_entries"`

	ID        string        `grove:"id,pk"     bson:"_id"`
	Sequence  int64         `grove:"sequence"  bson:"sequence"`
	Operation string        `grove:"operation" bson:"operation"`
	Caller    string        `grove:"caller"    bson:"caller"`
	Timestamp time.Time     `grove:"timestamp" bson:"timestamp"`
	Changes   []changeModel `grove:"changes"   bson:"changes"`
	Records   []recordModel `grove:"records"   bson:"records,omitempty"`
}

// changeModel keeps the value as JSON text so replay decodes it exactly
// as the other backends do.
type changeModel struct {
	Kind  string `bson:"kind"`
	Key   string `bson:"key"`
	Value string `bson:"value,omitempty"`
}

// recordModel stores amounts as decimal strings so records stay
// queryable without losing 256-bit precision.
type recordModel struct {
	Kind         string            `bson:"kind"`
	Account      string            `bson:"account"`
	Counterparty string            `bson:"counterparty,omitempty"`
	Amount       string            `bson:"amount"`
	Locked       string            `bson:"locked"`
	Native       string            `bson:"native"`
	Attrs        map[string]string `bson:"attrs,omitempty"`
}

func toChangeModels(changes []journal.Change) []changeModel {
	out := make([]changeModel, len(changes))
	for i, c := range changes {
		out[i] = changeModel{Kind: string(c.Kind), Key: c.Key, Value: string(c.Value)}
	}
	return out
}

func fromChangeModels(models []changeModel) []journal.Change {
	out := make([]journal.Change, len(models))
	for i, m := range models {
		c := journal.Change{Kind: journal.Kind(m.Kind), Key: m.Key}
		if m.Value != "" {
			c.Value = json.RawMessage(m.Value)
		}
		out[i] = c
	}
	return out
}

func toEntryModel(e *journal.Entry) *entryModel {
	records := make([]recordModel, len(e.Records))
	for i, r := range e.Records {
		records[i] = recordModel{
			Kind:    string(r.Kind),
			Account: r.Account.Hex(),
			Amount:  r.Amount.String(),
			Locked:  r.Locked.String(),
			Native:  r.Native.String(),
			Attrs:   r.Attrs,
		}
		if r.Counterparty != (common.Address{}) {
			records[i].Counterparty = r.Counterparty.Hex()
		}
	}
	return &entryModel{
		ID:        e.ID.String(),
		Sequence:  int64(e.Sequence), //nolint:gosec // sequences fit int64
		Operation: e.Operation,
		Caller:    e.Caller.Hex(),
		Timestamp: e.Timestamp.UTC(),
		Changes:   toChangeModels(e.Changes),
		Records:   records,
	}
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
		Changes:   fromChangeModels(m.Changes),
	}
	for _, rm := range m.Records {
		r := journal.Record{
			Kind:    journal.RecordKind(rm.Kind),
			Account: common.HexToAddress(rm.Account),
			Attrs:   rm.Attrs,
		}
		if rm.Counterparty != "" {
			r.Counterparty = common.HexToAddress(rm.Counterparty)
		}
		for _, f := range []struct {
			dst *types.Amount
			src string
		}{
			{&r.Amount, rm.Amount},
			{&r.Locked, rm.Locked},
			{&r.Native, rm.Native},
		} {
			if f.src == "" {
				continue
			}
			if *f.dst, err = types.ParseAmount(f.src); err != nil {
				return nil, fmt.Errorf("decode record of entry %d: %w", m.Sequence, err)
			}
		}
		e.Records = append(e.Records, r)
	}
	return e, nil
}

// ==================== Snapshot models ====================

type snapshotModel struct {
	grove.BaseModel `grove:"table:issuance_snapshots"`

	ID        string        `grove:"id,pk"     bson:"_id"`
	Sequence  int64         `grove:"sequence"  bson:"sequence"`
	Timestamp time.Time     `grove:"timestamp" bson:"timestamp"`
	Changes   []changeModel `grove:"changes"   bson:"changes"`
}

func toSnapshotModel(s *journal.Snapshot) *snapshotModel {
	return &snapshotModel{
		ID:        s.ID.String(),
		Sequence:  int64(s.Sequence), //nolint:gosec // sequences fit int64
		Timestamp: s.Timestamp.UTC(),
		Changes:   toChangeModels(s.Changes),
	}
}

func fromSnapshotModel(m *snapshotModel) (*journal.Snapshot, error) {
	snapID, err := id.ParseSnapshotID(m.ID)
	if err != nil {
		return nil, err
	}
	return &journal.Snapshot{
		ID:        snapID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // stored from uint64
		Timestamp: m.Timestamp.UTC(),
		Changes:   fromChangeModels(m.Changes),
	}, nil
}
