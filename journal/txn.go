package journal

import "time"

// Txn collects the writes of one operation. Components register an undo
// closure with every write so that a failed operation can be reverted in
// memory, and a replayable Change so that a successful one can be
// persisted.
//
// A Txn is used by a single goroutine and is not reusable after Commit or
// Rollback.
type Txn struct {
	at      time.Time
	undo    []func()
	changes []Change
	records []Record
	closed  bool
}

// Begin starts a transaction executing at time at, the ambient
// timestamp every time-gated rule in the operation compares against.
func Begin(at time.Time) *Txn {
	return &Txn{at: at.UTC()}
}

// Time returns the transaction timestamp.
func (tx *Txn) Time() time.Time { return tx.at }

// Write records a change to kind/key with value v. The undo closure is
// kept even when encoding fails, so callers that already mutated memory
// can return the error and rely on Rollback.
func (tx *Txn) Write(kind Kind, key string, v any, undo func()) error {
	tx.mustBeOpen()
	tx.undo = append(tx.undo, undo)
	c, err := Marshal(kind, key, v)
	if err != nil {
		return err
	}
	tx.changes = append(tx.changes, c)
	return nil
}

// Delete records the removal of kind/key.
func (tx *Txn) Delete(kind Kind, key string, undo func()) {
	tx.mustBeOpen()
	tx.undo = append(tx.undo, undo)
	tx.changes = append(tx.changes, Change{Kind: kind, Key: key})
}

// Emit records an event for observers.
func (tx *Txn) Emit(r Record) {
	tx.mustBeOpen()
	tx.records = append(tx.records, r)
}

// Changes returns the changes written so far.
func (tx *Txn) Changes() []Change { return tx.changes }

// Records returns the records emitted so far.
func (tx *Txn) Records() []Record { return tx.records }

// Empty reports whether nothing was written.
func (tx *Txn) Empty() bool { return len(tx.changes) == 0 }

// Rollback reverts every write in reverse order and closes the
// transaction.
func (tx *Txn) Rollback() {
	if tx.closed {
		return
	}
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo, tx.changes, tx.records = nil, nil, nil
	tx.closed = true
}

// Commit closes the transaction, discarding the undo log.
func (tx *Txn) Commit() {
	tx.mustBeOpen()
	tx.undo = nil
	tx.closed = true
}

func (tx *Txn) mustBeOpen() {
	if tx.closed {
		panic("journal: use of closed transaction")
	}
}
