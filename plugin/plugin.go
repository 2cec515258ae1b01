// Package plugin provides an extensible plugin system for the issuance
// ledger. Plugins observe committed journal entries through optional
// hook interfaces; they never take part in the operation itself.
package plugin

import (
	"context"

	"github.com/xraph/issuance/journal"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once the ledger has replayed its journal.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// OnEntryCommitted is called for every entry after it is persisted,
// before the per-record hooks.
type OnEntryCommitted interface {
	Plugin
	OnEntryCommitted(ctx context.Context, e *journal.Entry) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every balance movement. Mints come from the
// zero address and burns go to it.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnPurchase is called when a payment buys units.
type OnPurchase interface {
	Plugin
	OnPurchase(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnDelivery is called when a vendor grants units.
type OnDelivery interface {
	Plugin
	OnDelivery(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnDeliveryCanceled is called when an officer reverses a delivery.
type OnDeliveryCanceled interface {
	Plugin
	OnDeliveryCanceled(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnLockedReleased is called when locked units become free.
type OnLockedReleased interface {
	Plugin
	OnLockedReleased(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// ──────────────────────────────────────────────────
// KYC hooks
// ──────────────────────────────────────────────────

// OnKYCApproved is called when an account is approved.
type OnKYCApproved interface {
	Plugin
	OnKYCApproved(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnKYCRefused is called when an account is refused.
type OnKYCRefused interface {
	Plugin
	OnKYCRefused(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// ──────────────────────────────────────────────────
// Custody hooks
// ──────────────────────────────────────────────────

// OnCustodyMoved is called when balance is delegated to a fund.
type OnCustodyMoved interface {
	Plugin
	OnCustodyMoved(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnCustodyReturned is called when a fund returns balance.
type OnCustodyReturned interface {
	Plugin
	OnCustodyReturned(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// ──────────────────────────────────────────────────
// Sale and governance hooks
// ──────────────────────────────────────────────────

// OnRateUpdated is called when the price feed updates the rate.
type OnRateUpdated interface {
	Plugin
	OnRateUpdated(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnRequestPending is called when a privileged request awaits a second
// administrator.
type OnRequestPending interface {
	Plugin
	OnRequestPending(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnRequestExecuted is called when a privileged request is confirmed.
type OnRequestExecuted interface {
	Plugin
	OnRequestExecuted(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnPhaseChanged is called on pause, resume and finalize.
type OnPhaseChanged interface {
	Plugin
	OnPhaseChanged(ctx context.Context, e *journal.Entry, r *journal.Record) error
}

// OnWithdrawal is called when native currency leaves the treasury.
type OnWithdrawal interface {
	Plugin
	OnWithdrawal(ctx context.Context, e *journal.Entry, r *journal.Record) error
}
