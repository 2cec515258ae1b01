package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/types"
)

// Change kinds owned by the book.
const (
	KindAccount journal.Kind = "account"
	KindSupply  journal.Kind = "supply"
)

var _ journal.State = (*Book)(nil)

// Book holds every account and the total supply.
type Book struct {
	accounts map[common.Address]Account
	supply   types.Amount
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{accounts: make(map[common.Address]Account)}
}

// Get returns the account for addr.
func (b *Book) Get(addr common.Address) Account {
	if a, ok := b.accounts[addr]; ok {
		return a
	}
	return Account{Address: addr}
}

// Supply returns the total issued units.
func (b *Book) Supply() types.Amount { return b.supply }

// Len returns the number of known accounts.
func (b *Book) Len() int { return len(b.accounts) }

// Accounts returns every known account ordered by address.
func (b *Book) Accounts() []Account {
	out := make([]Account, 0, len(b.accounts))
	for _, a := range b.accounts {
		out = append(out, a)
	}
	slices.SortFunc(out, func(x, y Account) int {
		return bytes.Compare(x.Address[:], y.Address[:])
	})
	return out
}

// ──────────────────────────────────────────────────
// Primitives
// ──────────────────────────────────────────────────

// Mint credits amount to addr's free or locked balance and raises the
// supply.
func (b *Book) Mint(tx *journal.Txn, addr common.Address, amount types.Amount, locked bool) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}

	supply, err := b.supply.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: supply", ErrOverflow)
	}

	a := b.Get(addr)
	if locked {
		a.Locked, err = a.Locked.Add(amount)
	} else {
		a.Free, err = a.Free.Add(amount)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrOverflow, addr.Hex())
	}

	if err := b.setSupply(tx, supply); err != nil {
		return err
	}
	if err := b.Put(tx, a); err != nil {
		return err
	}

	tx.Emit(journal.Record{
		Kind:         journal.RecordTransfer,
		Account:      common.Address{},
		Counterparty: addr,
		Amount:       amount,
		Locked:       lockedPart(amount, locked),
	})
	return nil
}

// Burn removes amount from addr's free or locked balance and lowers the
// supply.
func (b *Book) Burn(tx *journal.Txn, addr common.Address, amount types.Amount, fromLocked bool) error {
	a := b.Get(addr)

	var err error
	if fromLocked {
		a.Locked, err = a.Locked.Sub(amount)
	} else {
		a.Free, err = a.Free.Sub(amount)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, addr.Hex())
	}

	// Supply covers every balance, so this cannot underflow once the
	// account check passed.
	supply, err := b.supply.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: supply", ErrConservation)
	}

	if err := b.setSupply(tx, supply); err != nil {
		return err
	}
	if err := b.Put(tx, a); err != nil {
		return err
	}

	tx.Emit(journal.Record{
		Kind:         journal.RecordTransfer,
		Account:      addr,
		Counterparty: common.Address{},
		Amount:       amount,
		Locked:       lockedPart(amount, fromLocked),
	})
	return nil
}

// Transfer moves amount of free balance from one account to another.
// Locked balance never moves here.
func (b *Book) Transfer(tx *journal.Txn, from, to common.Address, amount types.Amount) error {
	if to == (common.Address{}) {
		return ErrZeroAddress
	}

	src := b.Get(from)
	free, err := src.Free.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, from.Hex())
	}
	src.Free = free
	if err := b.Put(tx, src); err != nil {
		return err
	}

	dst := b.Get(to)
	if dst.Free, err = dst.Free.Add(amount); err != nil {
		return fmt.Errorf("%w: %s", ErrOverflow, to.Hex())
	}
	if err := b.Put(tx, dst); err != nil {
		return err
	}

	tx.Emit(journal.Record{
		Kind:         journal.RecordTransfer,
		Account:      from,
		Counterparty: to,
		Amount:       amount,
	})
	return nil
}

// Release moves addr's entire locked balance into free and returns the
// amount moved. Releasing an empty locked balance writes nothing.
// Whether release is allowed yet is the caller's decision.
func (b *Book) Release(tx *journal.Txn, addr common.Address) (types.Amount, error) {
	a := b.Get(addr)
	if a.Locked.IsZero() {
		return types.Zero, nil
	}

	released := a.Locked
	free, err := a.Free.Add(released)
	if err != nil {
		return types.Zero, fmt.Errorf("%w: %s", ErrOverflow, addr.Hex())
	}
	a.Free, a.Locked = free, types.Zero
	if err := b.Put(tx, a); err != nil {
		return types.Zero, err
	}

	tx.Emit(journal.Record{
		Kind:    journal.RecordLockedReleased,
		Account: addr,
		Amount:  released,
	})
	return released, nil
}

// Update applies fn to addr's account and stores the result. fn must not
// change balances; use the primitives for that.
func (b *Book) Update(tx *journal.Txn, addr common.Address, fn func(*Account) error) error {
	a := b.Get(addr)
	free, locked := a.Free, a.Locked
	if err := fn(&a); err != nil {
		return err
	}
	if !a.Free.Equal(free) || !a.Locked.Equal(locked) || a.Address != addr {
		panic("account: Update changed balances or address")
	}
	return b.Put(tx, a)
}

// Put stores a as is, stamping it with the transaction time.
func (b *Book) Put(tx *journal.Txn, a Account) error {
	prev, existed := b.accounts[a.Address]
	a.Touch(tx.Time())
	b.accounts[a.Address] = a
	return tx.Write(KindAccount, a.Address.Hex(), a, func() {
		if existed {
			b.accounts[a.Address] = prev
		} else {
			delete(b.accounts, a.Address)
		}
	})
}

func (b *Book) setSupply(tx *journal.Txn, v types.Amount) error {
	prev := b.supply
	b.supply = v
	return tx.Write(KindSupply, "", v, func() { b.supply = prev })
}

// Check verifies the conservation invariant.
func (b *Book) Check() error {
	total := types.Zero
	for _, a := range b.accounts {
		var err error
		if total, err = total.Add(a.Balance()); err != nil {
			return fmt.Errorf("%w: balances overflow", ErrConservation)
		}
	}
	if !total.Equal(b.supply) {
		return fmt.Errorf("%w: supply %s, balances %s", ErrConservation, b.supply, total)
	}
	return nil
}

// ──────────────────────────────────────────────────
// journal.State
// ──────────────────────────────────────────────────

// Kinds implements journal.State.
func (b *Book) Kinds() []journal.Kind { return []journal.Kind{KindAccount, KindSupply} }

// Apply implements journal.State.
func (b *Book) Apply(c journal.Change) error {
	switch c.Kind {
	case KindSupply:
		return json.Unmarshal(c.Value, &b.supply)
	case KindAccount:
		if c.IsDelete() {
			delete(b.accounts, common.HexToAddress(c.Key))
			return nil
		}
		var a Account
		if err := json.Unmarshal(c.Value, &a); err != nil {
			return fmt.Errorf("account: decode %s: %w", c.Key, err)
		}
		b.accounts[a.Address] = a
		return nil
	default:
		return fmt.Errorf("account: unknown change kind %q", c.Kind)
	}
}

// Dump implements journal.State.
func (b *Book) Dump() ([]journal.Change, error) {
	out := make([]journal.Change, 0, len(b.accounts)+1)
	c, err := journal.Marshal(KindSupply, "", b.supply)
	if err != nil {
		return nil, err
	}
	out = append(out, c)
	for _, a := range b.Accounts() {
		c, err := journal.Marshal(KindAccount, a.Address.Hex(), a)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func lockedPart(amount types.Amount, locked bool) types.Amount {
	if locked {
		return amount
	}
	return types.Zero
}
