// Package journal defines the unit of durability for the issuance ledger.
//
// Every successful operation produces exactly one Entry. An entry carries
// the replayable Changes the operation wrote and the Records it emitted
// for observers. Replaying the changes of all entries in sequence order
// rebuilds the ledger state exactly.
package journal

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/id"
)

// Kind names the state component a Change belongs to.
type Kind string

// Change is one replayable state write. A nil Value deletes Key.
type Change struct {
	Kind  Kind            `json:"kind"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// IsDelete reports whether the change removes its key.
func (c Change) IsDelete() bool { return len(c.Value) == 0 }

// State is a component whose writes go through a Txn.
type State interface {
	// Kinds lists the change kinds the component owns.
	Kinds() []Kind
	// Apply writes a previously recorded change without journaling it.
	Apply(c Change) error
	// Dump returns changes that rebuild the component's current state
	// from empty.
	Dump() ([]Change, error)
}

// Entry is one committed operation.
type Entry struct {
	ID        id.EntryID     `json:"id"`
	Sequence  uint64         `json:"sequence"`
	Operation string         `json:"operation"`
	Caller    common.Address `json:"caller"`
	Timestamp time.Time      `json:"timestamp"`
	Changes   []Change       `json:"changes"`
	Records   []Record       `json:"records,omitempty"`
}

// Snapshot is the full state as of Sequence, expressed as changes.
type Snapshot struct {
	ID        id.SnapshotID `json:"id"`
	Sequence  uint64        `json:"sequence"`
	Timestamp time.Time     `json:"timestamp"`
	Changes   []Change      `json:"changes"`
}

// ListOpts filters entry listings. Entries are always returned in
// ascending sequence order.
type ListOpts struct {
	// After returns only entries with a sequence strictly greater.
	After uint64
	// Operation restricts results to one operation name.
	Operation string
	// Limit caps the number of entries; zero means no limit.
	Limit int
}

// Marshal encodes v as a Change value.
func Marshal(kind Kind, key string, v any) (Change, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Change{}, err
	}
	return Change{Kind: kind, Key: key, Value: data}, nil
}
