package issuance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/dualcontrol"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/types"
)

// Operation keys guarded by the dual-control gate.
const (
	OpSaleEnable       = "sale.enable"
	OpTreasuryWithdraw = "treasury.withdraw"
	OpPause            = "lifecycle.pause"
	OpResume           = "lifecycle.resume"
	OpFinalize         = "lifecycle.finalize"
)

// membershipOp returns the gate key for adding or removing a member of
// role, such as "registry.vendor.add".
func membershipOp(role registry.Role, add bool) string {
	verb := "remove"
	if add {
		verb = "add"
	}
	return "registry." + string(role) + "." + verb
}

// ──────────────────────────────────────────────────
// Dual-control operations
// ──────────────────────────────────────────────────

// privileged submits op with args to the gate on behalf of the caller.
// exec runs only when the submission confirms the other
// administrator's identical request.
func (l *Ledger) privileged(ctx context.Context, op string, args []any, exec func(ctx context.Context, tx *journal.Txn) error) (Result, error) {
	var res Result
	_, err := l.execute(ctx, op, func(ctx context.Context, tx *journal.Txn, caller common.Address) error {
		if err := requireCaller(caller); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpGovernance); err != nil {
			return err
		}
		var err error
		res, err = l.gate.Submit(tx, caller, op, args, func() error { return exec(ctx, tx) })
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// SetSaleEnabled turns purchases on or off.
func (l *Ledger) SetSaleEnabled(ctx context.Context, enabled bool) (Result, error) {
	return l.privileged(ctx, OpSaleEnable, []any{enabled}, func(_ context.Context, tx *journal.Txn) error {
		return l.sale.SetEnabled(tx, enabled)
	})
}

// Withdraw pays amount of the treasury to to.
func (l *Ledger) Withdraw(ctx context.Context, to common.Address, amount types.Amount) (Result, error) {
	if err := positive("amount", amount); err != nil {
		return Result{}, err
	}
	if to == (common.Address{}) {
		return Result{}, fmt.Errorf("%w: zero recipient", ErrInvalidInput)
	}
	return l.privileged(ctx, OpTreasuryWithdraw, []any{to, amount}, func(ctx context.Context, tx *journal.Txn) error {
		if l.disburser == nil {
			return fmt.Errorf("%w: withdrawal needs a disburser", ErrInvalidInput)
		}
		if err := l.sale.Withdraw(tx, amount); err != nil {
			return err
		}
		if err := l.disburser.Pay(ctx, to, amount); err != nil {
			return fmt.Errorf("%w: pay withdrawal: %w", ErrCollaborator, err)
		}
		tx.Emit(journal.Record{
			Kind:    journal.RecordWithdrawal,
			Account: to,
			Native:  amount,
		})
		return nil
	})
}

// Pause blocks purchases, transfers, deliveries and custody moves.
func (l *Ledger) Pause(ctx context.Context) (Result, error) {
	return l.transition(ctx, OpPause, lifecycle.Pause)
}

// Resume returns a paused campaign to fundraising.
func (l *Ledger) Resume(ctx context.Context) (Result, error) {
	return l.transition(ctx, OpResume, lifecycle.Resume)
}

// Finalize ends the sale. It fails with ErrTooEarly before the funding
// end time.
func (l *Ledger) Finalize(ctx context.Context) (Result, error) {
	return l.transition(ctx, OpFinalize, lifecycle.Finalize)
}

func (l *Ledger) transition(ctx context.Context, op string, tr lifecycle.Transition) (Result, error) {
	return l.privileged(ctx, op, nil, func(_ context.Context, tx *journal.Txn) error {
		_, err := l.phase.Do(tx, tr)
		return err
	})
}

// AddVendor allows addr to deliver units.
func (l *Ledger) AddVendor(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.Vendor, addr, true)
}

// RemoveVendor revokes addr's vendor role.
func (l *Ledger) RemoveVendor(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.Vendor, addr, false)
}

// AddKYCOfficer allows addr to approve, refuse and cancel deliveries.
func (l *Ledger) AddKYCOfficer(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.KYCOfficer, addr, true)
}

// RemoveKYCOfficer revokes addr's officer role.
func (l *Ledger) RemoveKYCOfficer(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.KYCOfficer, addr, false)
}

// AddFund approves addr as a custody fund.
func (l *Ledger) AddFund(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.Fund, addr, true)
}

// RemoveFund withdraws approval of a custody fund. Existing positions
// remain but the fund can no longer return them.
func (l *Ledger) RemoveFund(ctx context.Context, addr common.Address) (Result, error) {
	return l.membership(ctx, registry.Fund, addr, false)
}

func (l *Ledger) membership(ctx context.Context, role registry.Role, addr common.Address, add bool) (Result, error) {
	if addr == (common.Address{}) {
		return Result{}, fmt.Errorf("%w: zero address", ErrInvalidInput)
	}
	return l.privileged(ctx, membershipOp(role, add), []any{addr}, func(_ context.Context, tx *journal.Txn) error {
		var err error
		if add {
			_, err = l.members.Add(tx, role, addr)
		} else {
			_, err = l.members.Remove(tx, role, addr)
		}
		return err
	})
}

// Result reports whether a privileged submission was recorded or
// executed.
type Result = dualcontrol.Result

// Submission outcomes.
const (
	Recorded = dualcontrol.Recorded
	Executed = dualcontrol.Executed
)
