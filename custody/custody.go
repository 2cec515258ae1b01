// Package custody tracks balance delegated to external custody funds.
//
// Moving balance into a fund burns it from the account and records the
// locked and free parts as the fund's position for that account. A
// return re-mints from the position, locked part first, so the split
// that was delegated is the split that comes back.
package custody

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/types"
)

// KindPosition is the change kind for positions, keyed "<fund>/<account>".
const KindPosition journal.Kind = "position"

// ErrExceedsPosition is returned when a return is larger than what the
// fund holds for the account.
var ErrExceedsPosition = errors.New("custody: amount exceeds position")

// Fund is an external custody program. Deposit notifies it of the
// locked and free parts delegated on behalf of account.
type Fund interface {
	Deposit(ctx context.Context, account common.Address, locked, free types.Amount) error
}

// Directory resolves a fund address to its program.
type Directory interface {
	Fund(addr common.Address) (Fund, bool)
}

// Funds is a Directory backed by a map.
type Funds map[common.Address]Fund

// Fund implements Directory.
func (f Funds) Fund(addr common.Address) (Fund, bool) {
	fund, ok := f[addr]
	return fund, ok
}

// FundFunc adapts a function to Fund.
type FundFunc func(ctx context.Context, account common.Address, locked, free types.Amount) error

// Deposit implements Fund.
func (f FundFunc) Deposit(ctx context.Context, account common.Address, locked, free types.Amount) error {
	return f(ctx, account, locked, free)
}

// Position is what a fund holds for one account.
type Position struct {
	Fund    common.Address `json:"fund"`
	Account common.Address `json:"account"`
	Locked  types.Amount   `json:"locked"`
	Free    types.Amount   `json:"free"`
}

// Total returns locked plus free.
func (p Position) Total() types.Amount {
	total, _ := p.Locked.Add(p.Free) //nolint:errcheck // bounded by supply
	return total
}

// Split divides amount into a locked part, taken first up to locked,
// and a free remainder.
func Split(locked, amount types.Amount) (fromLocked, fromFree types.Amount) {
	fromLocked = types.Min(locked, amount)
	fromFree, _ = amount.Sub(fromLocked) //nolint:errcheck // fromLocked <= amount
	return fromLocked, fromFree
}

var _ journal.State = (*Book)(nil)

// Book holds every position.
type Book struct {
	positions map[string]Position
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{positions: make(map[string]Position)}
}

// Position returns the position of fund for account.
func (b *Book) Position(fund, account common.Address) Position {
	if p, ok := b.positions[key(fund, account)]; ok {
		return p
	}
	return Position{Fund: fund, Account: account}
}

// Positions returns every non-empty position ordered by fund, then
// account.
func (b *Book) Positions() []Position {
	out := make([]Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y Position) int {
		if c := bytes.Compare(x.Fund[:], y.Fund[:]); c != 0 {
			return c
		}
		return bytes.Compare(x.Account[:], y.Account[:])
	})
	return out
}

// Delegate adds locked and free to the position of fund for account.
func (b *Book) Delegate(tx *journal.Txn, fund, account common.Address, locked, free types.Amount) (Position, error) {
	p := b.Position(fund, account)
	var err error
	if p.Locked, err = p.Locked.Add(locked); err != nil {
		return Position{}, err
	}
	if p.Free, err = p.Free.Add(free); err != nil {
		return Position{}, err
	}
	return p, b.put(tx, p)
}

// Return takes amount out of the position, locked part first, and
// reports the split.
func (b *Book) Return(tx *journal.Txn, fund, account common.Address, amount types.Amount) (locked, free types.Amount, err error) {
	p := b.Position(fund, account)
	if amount.GreaterThan(p.Total()) {
		return types.Zero, types.Zero, fmt.Errorf("%w: %s holds %s for %s, asked %s",
			ErrExceedsPosition, fund.Hex(), p.Total(), account.Hex(), amount)
	}
	locked, free = Split(p.Locked, amount)
	p.Locked, _ = p.Locked.Sub(locked) //nolint:errcheck // split bounded by position
	p.Free, _ = p.Free.Sub(free)       //nolint:errcheck // split bounded by position
	return locked, free, b.put(tx, p)
}

func (b *Book) put(tx *journal.Txn, p Position) error {
	k := key(p.Fund, p.Account)
	prev, existed := b.positions[k]
	undo := func() {
		if existed {
			b.positions[k] = prev
		} else {
			delete(b.positions, k)
		}
	}
	if p.Total().IsZero() {
		delete(b.positions, k)
		tx.Delete(KindPosition, k, undo)
		return nil
	}
	b.positions[k] = p
	return tx.Write(KindPosition, k, p, undo)
}

func key(fund, account common.Address) string {
	return fund.Hex() + "/" + account.Hex()
}

// Kinds implements journal.State.
func (b *Book) Kinds() []journal.Kind { return []journal.Kind{KindPosition} }

// Apply implements journal.State.
func (b *Book) Apply(c journal.Change) error {
	if c.Kind != KindPosition {
		return fmt.Errorf("custody: unknown change kind %q", c.Kind)
	}
	if !strings.Contains(c.Key, "/") {
		return fmt.Errorf("custody: malformed key %q", c.Key)
	}
	if c.IsDelete() {
		delete(b.positions, c.Key)
		return nil
	}
	var p Position
	if err := json.Unmarshal(c.Value, &p); err != nil {
		return fmt.Errorf("custody: decode %s: %w", c.Key, err)
	}
	b.positions[key(p.Fund, p.Account)] = p
	return nil
}

// Dump implements journal.State.
func (b *Book) Dump() ([]journal.Change, error) {
	positions := b.Positions()
	out := make([]journal.Change, 0, len(positions))
	for _, p := range positions {
		c, err := journal.Marshal(KindPosition, key(p.Fund, p.Account), p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
