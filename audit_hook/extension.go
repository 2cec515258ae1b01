// Package audithook bridges committed ledger records to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnPurchase         = (*Extension)(nil)
	_ plugin.OnTransfer         = (*Extension)(nil)
	_ plugin.OnLockedReleased   = (*Extension)(nil)
	_ plugin.OnDelivery         = (*Extension)(nil)
	_ plugin.OnDeliveryCanceled = (*Extension)(nil)
	_ plugin.OnKYCApproved      = (*Extension)(nil)
	_ plugin.OnKYCRefused       = (*Extension)(nil)
	_ plugin.OnCustodyMoved     = (*Extension)(nil)
	_ plugin.OnCustodyReturned  = (*Extension)(nil)
	_ plugin.OnRateUpdated      = (*Extension)(nil)
	_ plugin.OnRequestPending   = (*Extension)(nil)
	_ plugin.OnRequestExecuted  = (*Extension)(nil)
	_ plugin.OnPhaseChanged     = (*Extension)(nil)
	_ plugin.OnWithdrawal       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audited ledger event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Sequence   uint64         `json:"sequence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	SpanID     string         `json:"span_id,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension turns committed ledger records into audit events.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Holder hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (e *Extension) OnPurchase(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionUnitsPurchased, SeverityInfo,
		ResourceAccount, r.Account.Hex(), CategoryIssuance,
		"units", r.Amount.String(),
		"payment", r.Native.String(),
		"tier", r.Attr(journal.AttrTier),
		"rate_cents", r.Attr(journal.AttrRate),
	)
}

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionUnitsTransferred, SeverityInfo,
		ResourceAccount, r.Account.Hex(), CategoryIssuance,
		"to", r.Counterparty.Hex(),
		"units", r.Amount.String(),
	)
}

// OnLockedReleased implements plugin.OnLockedReleased.
func (e *Extension) OnLockedReleased(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionLockedReleased, SeverityInfo,
		ResourceAccount, r.Account.Hex(), CategoryIssuance,
		"units", r.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Vendor and compliance hooks
// ──────────────────────────────────────────────────

// OnDelivery implements plugin.OnDelivery.
func (e *Extension) OnDelivery(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionUnitsDelivered, SeverityInfo,
		ResourceAccount, r.Account.Hex(), CategoryIssuance,
		"vendor", r.Counterparty.Hex(),
		"units", r.Amount.String(),
		"locked", r.Locked.String(),
		"reference", r.Attr(journal.AttrReference),
	)
}

// OnDeliveryCanceled implements plugin.OnDeliveryCanceled.
func (e *Extension) OnDeliveryCanceled(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionDeliveryCanceled, SeverityWarning,
		ResourceAccount, r.Account.Hex(), CategoryCompliance,
		"officer", r.Counterparty.Hex(),
		"units", r.Amount.String(),
		"reference", r.Attr(journal.AttrReference),
	)
}

// OnKYCApproved implements plugin.OnKYCApproved.
func (e *Extension) OnKYCApproved(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionKYCApproved, SeverityInfo,
		ResourceAccount, r.Account.Hex(), CategoryCompliance,
		"officer", r.Counterparty.Hex(),
	)
}

// OnKYCRefused implements plugin.OnKYCRefused. Refusals reverse
// purchases, so they are audited at warning level.
func (e *Extension) OnKYCRefused(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionKYCRefused, SeverityWarning,
		ResourceAccount, r.Account.Hex(), CategoryCompliance,
		"officer", r.Counterparty.Hex(),
		"burned", r.Amount.String(),
		"compensation", r.Native.String(),
	)
}

// ──────────────────────────────────────────────────
// Custody hooks
// ──────────────────────────────────────────────────

// OnCustodyMoved implements plugin.OnCustodyMoved.
func (e *Extension) OnCustodyMoved(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionCustodyMoved, SeverityInfo,
		ResourcePosition, positionID(r.Counterparty, r.Account), CategoryCustody,
		"units", r.Amount.String(),
		"locked", r.Locked.String(),
	)
}

// OnCustodyReturned implements plugin.OnCustodyReturned.
func (e *Extension) OnCustodyReturned(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionCustodyReturned, SeverityInfo,
		ResourcePosition, positionID(r.Counterparty, r.Account), CategoryCustody,
		"units", r.Amount.String(),
		"locked", r.Locked.String(),
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnRateUpdated implements plugin.OnRateUpdated.
func (e *Extension) OnRateUpdated(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionRateUpdated, SeverityInfo,
		ResourceSale, "rate", CategoryGovernance,
		"rate_cents", r.Attr(journal.AttrRate),
		"feed_request_id", r.Attr(journal.AttrFeedID),
	)
}

// OnRequestPending implements plugin.OnRequestPending.
func (e *Extension) OnRequestPending(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionRequestPending, SeverityInfo,
		ResourceRequest, r.Attr(journal.AttrRequestID), CategoryGovernance,
		"operation", r.Attr(journal.AttrOperation),
	)
}

// OnRequestExecuted implements plugin.OnRequestExecuted.
func (e *Extension) OnRequestExecuted(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionRequestExecuted, SeverityWarning,
		ResourceRequest, r.Attr(journal.AttrRequestID), CategoryGovernance,
		"operation", r.Attr(journal.AttrOperation),
		"initiator", r.Counterparty.Hex(),
	)
}

// OnPhaseChanged implements plugin.OnPhaseChanged.
func (e *Extension) OnPhaseChanged(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionPhaseChanged, SeverityWarning,
		ResourceCampaign, "", CategoryGovernance,
		"from", r.Attr(journal.AttrFrom),
		"to", r.Attr(journal.AttrTo),
	)
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (e *Extension) OnWithdrawal(ctx context.Context, en *journal.Entry, r *journal.Record) error {
	return e.record(ctx, en, ActionTreasuryWithdrawn, SeverityCritical,
		ResourceTreasury, "", CategoryPayment,
		"to", r.Account.Hex(),
		"amount", r.Native.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func positionID(fund, account common.Address) string {
	return fund.Hex() + "/" + account.Hex()
}

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged, never returned.
func (e *Extension) record(
	ctx context.Context,
	en *journal.Entry,
	action, severity string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}
	meta["operation"] = en.Operation

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Sequence:   en.Sequence,
		Metadata:   meta,
		Outcome:    OutcomeSuccess,
		Severity:   severity,
	}
	if en.Caller != (common.Address{}) {
		evt.Actor = en.Caller.Hex()
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		evt.TraceID = sc.TraceID().String()
		evt.SpanID = sc.SpanID().String()
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"sequence", en.Sequence,
			"error", recErr,
		)
	}
	return nil
}
