package issuance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/account"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/types"
)

// ──────────────────────────────────────────────────
// KYC
// ──────────────────────────────────────────────────

// Approve marks addr as verified. The caller must be a KYC officer.
// Approving an approved account changes nothing.
func (l *Ledger) Approve(ctx context.Context, addr common.Address) error {
	_, err := l.execute(ctx, "kyc.approve", func(_ context.Context, tx *journal.Txn, officer common.Address) error {
		if err := l.requireRole(officer, registry.KYCOfficer); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpKYC); err != nil {
			return err
		}
		current := l.accounts.Get(addr).KYC
		if err := kyc.Transition(current, kyc.Approved); err != nil {
			return err
		}
		if current == kyc.Approved {
			return nil
		}
		if err := l.accounts.Update(tx, addr, func(a *account.Account) error {
			a.KYC = kyc.Approved
			return nil
		}); err != nil {
			return err
		}
		tx.Emit(journal.Record{
			Kind:         journal.RecordKYCApproved,
			Account:      addr,
			Counterparty: officer,
		})
		return nil
	})
	return err
}

// Refuse marks addr as refused, burns the free units it bought through
// the sale and forwards compensation, supplied by the officer, to addr
// as a refund. Units delivered by vendors are not touched; use
// CancelDelivery for those.
func (l *Ledger) Refuse(ctx context.Context, addr common.Address, compensation types.Amount) (types.Amount, error) {
	burned := types.Zero
	_, err := l.execute(ctx, "kyc.refuse", func(ctx context.Context, tx *journal.Txn, officer common.Address) error {
		if err := l.requireRole(officer, registry.KYCOfficer); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpKYC); err != nil {
			return err
		}
		a := l.accounts.Get(addr)
		if err := kyc.Transition(a.KYC, kyc.Refused); err != nil {
			return err
		}
		if !compensation.IsZero() && l.disburser == nil {
			return fmt.Errorf("%w: compensation needs a disburser", ErrInvalidInput)
		}

		burn := kyc.RefusalBurn(a.Purchased, a.Free)
		if !burn.IsZero() {
			if err := l.accounts.Burn(tx, addr, burn, false); err != nil {
				return err
			}
		}
		if err := l.accounts.Update(tx, addr, func(a *account.Account) error {
			a.KYC = kyc.Refused
			a.Purchased = types.Zero
			return nil
		}); err != nil {
			return err
		}

		if !compensation.IsZero() {
			if err := l.disburser.Pay(ctx, addr, compensation); err != nil {
				return fmt.Errorf("%w: pay compensation: %w", ErrCollaborator, err)
			}
		}

		tx.Emit(journal.Record{
			Kind:         journal.RecordKYCRefused,
			Account:      addr,
			Counterparty: officer,
			Amount:       burn,
			Native:       compensation,
		})
		burned = burn
		return nil
	})
	if err != nil {
		return types.Zero, err
	}
	return burned, nil
}

// CancelDelivery reverses hundredths of a unit previously delivered to
// addr. Locked balance is burned first, then free. No currency is
// refunded. The caller must be a KYC officer.
func (l *Ledger) CancelDelivery(ctx context.Context, addr common.Address, hundredths uint64, reference string) error {
	_, err := l.execute(ctx, "delivery.cancel", func(_ context.Context, tx *journal.Txn, officer common.Address) error {
		if err := l.requireRole(officer, registry.KYCOfficer); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpKYC); err != nil {
			return err
		}
		amount, err := l.hundredths(hundredths)
		if err != nil {
			return err
		}

		a := l.accounts.Get(addr)
		if amount.GreaterThan(a.Balance()) {
			return fmt.Errorf("%w: %s holds %s, cancel %s", ErrInsufficientBalance, addr.Hex(), a.Balance(), amount)
		}
		fromLocked, fromFree := custody.Split(a.Locked, amount)
		if !fromLocked.IsZero() {
			if err := l.accounts.Burn(tx, addr, fromLocked, true); err != nil {
				return err
			}
		}
		if !fromFree.IsZero() {
			if err := l.accounts.Burn(tx, addr, fromFree, false); err != nil {
				return err
			}
		}

		tx.Emit(journal.Record{
			Kind:         journal.RecordDeliveryCanceled,
			Account:      addr,
			Counterparty: officer,
			Amount:       amount,
			Locked:       fromLocked,
			Attrs:        map[string]string{journal.AttrReference: reference},
		})
		return nil
	})
	return err
}

// hundredths converts a delivery quantity to units.
func (l *Ledger) hundredths(n uint64) (types.Amount, error) {
	if n == 0 {
		return types.Zero, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return types.Hundredths(n, l.cfg.Tariff.UnitDecimals)
}
