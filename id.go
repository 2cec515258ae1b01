package issuance

import "github.com/xraph/issuance/id"

// ID is the primary identifier type for journal entries, requests and
// snapshots.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// EntryID identifies a committed journal entry.
type EntryID = id.EntryID
