// Package dualcontrol implements the two-administrator gate that guards
// every privileged operation.
//
// Each operation key has at most one pending request. A request executes
// only when the second, distinct administrator submits the same operation
// with identical arguments:
//
//	Empty ──submit(A, args)──▶ Pending(A, args)
//	Pending(A, args) ──submit(B, args)──▶ execute, Empty
//	Pending(A, args) ──submit(A, args)──▶ ErrDuplicateConfirmation
//	Pending(A, args) ──submit(X, other)──▶ Pending(X, other)
//
// A mismatched submission from either administrator replaces the pending
// request (last write wins). There is no expiry.
package dualcontrol

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
)

// KindPending is the change kind for pending requests, keyed by operation.
const KindPending journal.Kind = "pending"

// Errors returned by the gate.
var (
	ErrUnauthorized          = errors.New("dualcontrol: caller is not an administrator")
	ErrDuplicateConfirmation = errors.New("dualcontrol: administrator cannot confirm own request")
	ErrInvalidAdmins         = errors.New("dualcontrol: need two distinct non-zero administrators")
)

// Outcome is the result of a successful submission.
type Outcome int

const (
	// Recorded means the request is pending a second administrator.
	Recorded Outcome = iota + 1
	// Executed means the request was confirmed and the operation ran.
	Executed
)

// String returns "recorded" or "executed".
func (o Outcome) String() string {
	switch o {
	case Recorded:
		return "recorded"
	case Executed:
		return "executed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request is a privileged request waiting for confirmation.
type Request struct {
	ID        id.RequestID   `json:"id"`
	Operation string         `json:"operation"`
	Digest    common.Hash    `json:"digest"`
	Args      []string       `json:"args"`
	Initiator common.Address `json:"initiator"`
	CreatedAt time.Time      `json:"created_at"`
}

// Result describes a successful submission.
type Result struct {
	Outcome Outcome
	Request Request
}

var _ journal.State = (*Gate)(nil)

// Gate holds the fixed administrator pair and the pending requests.
type Gate struct {
	admins  [2]common.Address
	pending map[string]Request
}

// New returns a gate for two distinct, non-zero administrators.
func New(first, second common.Address) (*Gate, error) {
	if first == (common.Address{}) || second == (common.Address{}) || first == second {
		return nil, ErrInvalidAdmins
	}
	return &Gate{
		admins:  [2]common.Address{first, second},
		pending: make(map[string]Request),
	}, nil
}

// Admins returns the administrator pair.
func (g *Gate) Admins() [2]common.Address { return g.admins }

// IsAdmin reports whether addr is one of the administrators.
func (g *Gate) IsAdmin(addr common.Address) bool {
	return addr == g.admins[0] || addr == g.admins[1]
}

// Submit records or confirms a request for operation op with args. When
// the submission confirms a matching request from the other administrator,
// exec runs inside the same transaction; if it fails the error is
// returned and the caller rolls the transaction back, which also restores
// the pending request.
func (g *Gate) Submit(tx *journal.Txn, caller common.Address, op string, args []any, exec func() error) (Result, error) {
	if !g.IsAdmin(caller) {
		return Result{}, ErrUnauthorized
	}

	digest, rendered, err := Digest(op, args...)
	if err != nil {
		return Result{}, err
	}

	if p, ok := g.pending[op]; ok && p.Digest == digest {
		if p.Initiator == caller {
			return Result{}, ErrDuplicateConfirmation
		}
		g.clear(tx, op)
		if err := exec(); err != nil {
			return Result{}, err
		}
		tx.Emit(journal.Record{
			Kind:         journal.RecordRequestExecuted,
			Account:      caller,
			Counterparty: p.Initiator,
			Attrs: map[string]string{
				journal.AttrOperation: op,
				journal.AttrRequestID: p.ID.String(),
			},
		})
		return Result{Outcome: Executed, Request: p}, nil
	}

	req := Request{
		ID:        id.NewRequestID(),
		Operation: op,
		Digest:    digest,
		Args:      rendered,
		Initiator: caller,
		CreatedAt: tx.Time(),
	}
	if err := g.put(tx, req); err != nil {
		return Result{}, err
	}
	tx.Emit(journal.Record{
		Kind:    journal.RecordRequestPending,
		Account: caller,
		Attrs: map[string]string{
			journal.AttrOperation: op,
			journal.AttrRequestID: req.ID.String(),
		},
	})
	return Result{Outcome: Recorded, Request: req}, nil
}

// Pending returns all pending requests ordered by operation.
func (g *Gate) Pending() []Request {
	out := make([]Request, 0, len(g.pending))
	for _, r := range g.pending {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Request) int { return strings.Compare(a.Operation, b.Operation) })
	return out
}

// PendingFor returns the pending request for op, if any.
func (g *Gate) PendingFor(op string) (Request, bool) {
	r, ok := g.pending[op]
	return r, ok
}

func (g *Gate) put(tx *journal.Txn, r Request) error {
	prev, existed := g.pending[r.Operation]
	g.pending[r.Operation] = r
	return tx.Write(KindPending, r.Operation, r, func() {
		if existed {
			g.pending[r.Operation] = prev
		} else {
			delete(g.pending, r.Operation)
		}
	})
}

func (g *Gate) clear(tx *journal.Txn, op string) {
	prev := g.pending[op]
	delete(g.pending, op)
	tx.Delete(KindPending, op, func() { g.pending[op] = prev })
}

// Kinds implements journal.State.
func (g *Gate) Kinds() []journal.Kind { return []journal.Kind{KindPending} }

// Apply implements journal.State.
func (g *Gate) Apply(c journal.Change) error {
	if c.Kind != KindPending {
		return fmt.Errorf("dualcontrol: unknown change kind %q", c.Kind)
	}
	if c.IsDelete() {
		delete(g.pending, c.Key)
		return nil
	}
	var r Request
	if err := json.Unmarshal(c.Value, &r); err != nil {
		return fmt.Errorf("dualcontrol: decode %s: %w", c.Key, err)
	}
	g.pending[c.Key] = r
	return nil
}

// Dump implements journal.State.
func (g *Gate) Dump() ([]journal.Change, error) {
	out := make([]journal.Change, 0, len(g.pending))
	for _, r := range g.Pending() {
		c, err := journal.Marshal(KindPending, r.Operation, r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
