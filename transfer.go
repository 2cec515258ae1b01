package issuance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/types"
)

// Transfer moves amount of the caller's free balance to to. Only an
// approved sender may transfer; the recipient's status is not checked.
// Once the unlock time has passed the sender's locked balance is
// released first, so it can take part.
func (l *Ledger) Transfer(ctx context.Context, to common.Address, amount types.Amount) error {
	_, err := l.execute(ctx, "transfer", func(_ context.Context, tx *journal.Txn, from common.Address) error {
		if err := requireCaller(from); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpTransfer); err != nil {
			return err
		}
		if err := positive("amount", amount); err != nil {
			return err
		}
		if err := kyc.CanSend(l.accounts.Get(from).KYC); err != nil {
			return err
		}
		if err := l.releaseIfDue(tx, from); err != nil {
			return err
		}
		return l.accounts.Transfer(tx, from, to, amount)
	})
	return err
}

// ReleaseLocked moves addr's locked balance into free. Anyone may call
// it once the unlock time has passed; before that it fails with
// ErrTooEarly. Releasing an empty locked balance is a no-op.
func (l *Ledger) ReleaseLocked(ctx context.Context, addr common.Address) (types.Amount, error) {
	released := types.Zero
	_, err := l.execute(ctx, "locked.release", func(_ context.Context, tx *journal.Txn, _ common.Address) error {
		if err := l.phase.Allows(lifecycle.OpReleaseLocked); err != nil {
			return err
		}
		if !l.unlocked(tx.Time()) {
			return fmt.Errorf("%w: locked balances release at %s", ErrTooEarly, l.cfg.LockedRelease)
		}
		var err error
		released, err = l.accounts.Release(tx, addr)
		return err
	})
	if err != nil {
		return types.Zero, err
	}
	return released, nil
}

// ReleaseAll releases every locked balance in one entry and returns how
// many accounts changed. It is the eager counterpart of ReleaseLocked.
func (l *Ledger) ReleaseAll(ctx context.Context) (int, error) {
	count := 0
	_, err := l.execute(ctx, "locked.release_all", func(_ context.Context, tx *journal.Txn, _ common.Address) error {
		count = 0
		if err := l.phase.Allows(lifecycle.OpReleaseLocked); err != nil {
			return err
		}
		if !l.unlocked(tx.Time()) {
			return fmt.Errorf("%w: locked balances release at %s", ErrTooEarly, l.cfg.LockedRelease)
		}
		for _, a := range l.accounts.Accounts() {
			if a.Locked.IsZero() {
				continue
			}
			if _, err := l.accounts.Release(tx, a.Address); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
