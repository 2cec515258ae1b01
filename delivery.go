package issuance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/types"
)

// Delivery is one vendor grant. Hundredths is the quantity in
// hundredths of a unit: 100 delivers one unit.
type Delivery struct {
	Account    common.Address `json:"account"`
	Hundredths uint64         `json:"hundredths"`
	Locked     bool           `json:"locked"`
	Reference  string         `json:"reference,omitempty"`
}

// ZipDeliveries builds deliveries from parallel sequences sharing one
// reference. The sequences must have equal length.
func ZipDeliveries(accounts []common.Address, hundredths []uint64, locked []bool, reference string) ([]Delivery, error) {
	if len(accounts) != len(hundredths) || len(accounts) != len(locked) {
		return nil, fmt.Errorf("%w: %d accounts, %d amounts, %d locked flags",
			ErrInvalidInput, len(accounts), len(hundredths), len(locked))
	}
	out := make([]Delivery, len(accounts))
	for i := range accounts {
		out[i] = Delivery{Account: accounts[i], Hundredths: hundredths[i], Locked: locked[i], Reference: reference}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Vesting & custody
// ──────────────────────────────────────────────────

// Deliver mints one vendor grant. The caller must be a vendor.
func (l *Ledger) Deliver(ctx context.Context, d Delivery) error {
	return l.DeliverBatch(ctx, []Delivery{d})
}

// DeliverBatch mints every grant in one entry. If any grant fails none
// is applied.
func (l *Ledger) DeliverBatch(ctx context.Context, deliveries []Delivery) error {
	_, err := l.execute(ctx, "deliver", func(_ context.Context, tx *journal.Txn, vendor common.Address) error {
		if err := l.requireRole(vendor, registry.Vendor); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpDeliver); err != nil {
			return err
		}
		if len(deliveries) == 0 {
			return fmt.Errorf("%w: empty batch", ErrInvalidInput)
		}

		for i, d := range deliveries {
			amount, err := l.hundredths(d.Hundredths)
			if err != nil {
				return fmt.Errorf("delivery %d: %w", i, err)
			}
			if err := l.accounts.Mint(tx, d.Account, amount, d.Locked); err != nil {
				return fmt.Errorf("delivery %d: %w", i, err)
			}
			rec := journal.Record{
				Kind:         journal.RecordDelivery,
				Account:      d.Account,
				Counterparty: vendor,
				Amount:       amount,
				Attrs:        map[string]string{journal.AttrReference: d.Reference},
			}
			if d.Locked {
				rec.Locked = amount
			}
			tx.Emit(rec)
		}
		return nil
	})
	return err
}

// MoveToFund delegates amount of the caller's balance to a registered
// custody fund. Locked balance is consumed first, even before the unlock
// time, then free balance. The consumed units are burned and the fund
// is told the locked and free parts.
func (l *Ledger) MoveToFund(ctx context.Context, fund common.Address, amount types.Amount) (custody.Position, error) {
	var pos custody.Position
	_, err := l.execute(ctx, "custody.move", func(ctx context.Context, tx *journal.Txn, owner common.Address) error {
		if err := requireCaller(owner); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpMoveToFund); err != nil {
			return err
		}
		if !l.members.Has(registry.Fund, fund) {
			return fmt.Errorf("%w: %s", ErrFundNotRegistered, fund.Hex())
		}
		if err := positive("amount", amount); err != nil {
			return err
		}
		if err := l.releaseIfDue(tx, owner); err != nil {
			return err
		}

		a := l.accounts.Get(owner)
		if amount.GreaterThan(a.Balance()) {
			return fmt.Errorf("%w: %s holds %s, move %s", ErrInsufficientBalance, owner.Hex(), a.Balance(), amount)
		}
		locked, free := custody.Split(a.Locked, amount)
		if !locked.IsZero() {
			if err := l.accounts.Burn(tx, owner, locked, true); err != nil {
				return err
			}
		}
		if !free.IsZero() {
			if err := l.accounts.Burn(tx, owner, free, false); err != nil {
				return err
			}
		}

		var err error
		if pos, err = l.custody.Delegate(tx, fund, owner, locked, free); err != nil {
			return err
		}

		if l.funds != nil {
			program, ok := l.funds.Fund(fund)
			if !ok {
				return fmt.Errorf("%w: no custody program for %s", ErrFundNotRegistered, fund.Hex())
			}
			if err := program.Deposit(ctx, owner, locked, free); err != nil {
				return fmt.Errorf("%w: notify fund: %w", ErrCollaborator, err)
			}
		}

		tx.Emit(journal.Record{
			Kind:         journal.RecordCustodyMoved,
			Account:      owner,
			Counterparty: fund,
			Amount:       amount,
			Locked:       locked,
		})
		return nil
	})
	if err != nil {
		return custody.Position{}, err
	}
	return pos, nil
}

// ReturnFromFund re-credits amount to addr from the calling fund's
// position, locked part first, so the delegated split is restored.
// Returned locked units stay locked until released.
func (l *Ledger) ReturnFromFund(ctx context.Context, addr common.Address, amount types.Amount) error {
	_, err := l.execute(ctx, "custody.return", func(_ context.Context, tx *journal.Txn, fund common.Address) error {
		if err := l.requireRole(fund, registry.Fund); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpReturnFromFund); err != nil {
			return err
		}
		if err := positive("amount", amount); err != nil {
			return err
		}

		locked, free, err := l.custody.Return(tx, fund, addr, amount)
		if err != nil {
			return err
		}
		if !locked.IsZero() {
			if err := l.accounts.Mint(tx, addr, locked, true); err != nil {
				return err
			}
		}
		if !free.IsZero() {
			if err := l.accounts.Mint(tx, addr, free, false); err != nil {
				return err
			}
		}

		tx.Emit(journal.Record{
			Kind:         journal.RecordCustodyReturned,
			Account:      addr,
			Counterparty: fund,
			Amount:       amount,
			Locked:       locked,
		})
		return nil
	})
	return err
}
