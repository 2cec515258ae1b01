package issuance

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/account"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/dualcontrol"
	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/types"
)

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// BalanceOf returns free plus locked units of addr.
func (l *Ledger) BalanceOf(addr common.Address) types.Amount {
	defer l.rlock()()
	return l.accounts.Get(addr).Balance()
}

// Account returns the full position of addr. Unknown addresses read as
// an empty, unverified account.
func (l *Ledger) Account(addr common.Address) account.Account {
	defer l.rlock()()
	return l.accounts.Get(addr)
}

// Accounts returns every known account ordered by address.
func (l *Ledger) Accounts() []account.Account {
	defer l.rlock()()
	return l.accounts.Accounts()
}

// TotalSupply returns the units in circulation.
func (l *Ledger) TotalSupply() types.Amount {
	defer l.rlock()()
	return l.accounts.Supply()
}

// Treasury returns the native currency held from purchases.
func (l *Ledger) Treasury() types.Amount {
	defer l.rlock()()
	return l.sale.Treasury()
}

// Phase returns the campaign phase.
func (l *Ledger) Phase() lifecycle.Phase {
	defer l.rlock()()
	return l.phase.Phase()
}

// SaleEnabled reports whether purchases are switched on.
func (l *Ledger) SaleEnabled() bool {
	defer l.rlock()()
	return l.sale.Enabled()
}

// ExchangeRate returns the last accepted rate and the next expected
// feed request id.
func (l *Ledger) ExchangeRate() sale.Rate {
	defer l.rlock()()
	return l.sale.Rate()
}

// Schedule returns the sale boundaries.
func (l *Ledger) Schedule() sale.Schedule { return l.cfg.Schedule }

// LockedRelease returns when locked balances become transferable.
func (l *Ledger) LockedRelease() time.Time { return l.cfg.LockedRelease }

// ActiveTier returns the bonus round at the current time.
func (l *Ledger) ActiveTier() sale.Tier {
	return l.cfg.Schedule.TierAt(l.clock())
}

// Quote prices payment at the current time without buying.
func (l *Ledger) Quote(payment types.Amount) (sale.Quote, error) {
	defer l.rlock()()
	q, err := l.sale.Quote(payment, l.clock())
	return q, publicError(err)
}

// Pending returns the privileged requests awaiting confirmation.
func (l *Ledger) Pending() []dualcontrol.Request {
	defer l.rlock()()
	return l.gate.Pending()
}

// Admins returns the administrator pair.
func (l *Ledger) Admins() [2]common.Address { return l.gate.Admins() }

// IsVendor reports whether addr may deliver units.
func (l *Ledger) IsVendor(addr common.Address) bool { return l.hasRole(registry.Vendor, addr) }

// IsKYCOfficer reports whether addr may approve and refuse accounts.
func (l *Ledger) IsKYCOfficer(addr common.Address) bool {
	return l.hasRole(registry.KYCOfficer, addr)
}

// IsFund reports whether addr is an approved custody fund.
func (l *Ledger) IsFund(addr common.Address) bool { return l.hasRole(registry.Fund, addr) }

// Members returns the members of role ordered by address.
func (l *Ledger) Members(role registry.Role) []common.Address {
	defer l.rlock()()
	return l.members.Members(role)
}

func (l *Ledger) hasRole(role registry.Role, addr common.Address) bool {
	defer l.rlock()()
	return l.members.Has(role, addr)
}

// Position returns what fund holds in custody for addr.
func (l *Ledger) Position(fund, addr common.Address) custody.Position {
	defer l.rlock()()
	return l.custody.Position(fund, addr)
}

// Positions returns every open custody position.
func (l *Ledger) Positions() []custody.Position {
	defer l.rlock()()
	return l.custody.Positions()
}

// Sequence returns the sequence of the last committed entry.
func (l *Ledger) Sequence() uint64 {
	defer l.rlock()()
	return l.seq
}

// Entries lists committed entries from the store.
func (l *Ledger) Entries(ctx context.Context, opts journal.ListOpts) ([]*journal.Entry, error) {
	return l.store.ListEntries(ctx, opts)
}

// Entry returns one committed entry.
func (l *Ledger) Entry(ctx context.Context, entryID id.EntryID) (*journal.Entry, error) {
	return l.store.GetEntry(ctx, entryID)
}

// CheckConservation verifies that the supply equals the sum of all
// balances.
func (l *Ledger) CheckConservation() error {
	defer l.rlock()()
	return publicError(l.accounts.Check())
}

// Ping checks the store.
func (l *Ledger) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}
