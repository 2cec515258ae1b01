// Package observability provides a metrics extension for the issuance
// ledger that counts committed records through a MetricFactory.
package observability

import (
	"context"
	"strconv"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnEntryCommitted   = (*MetricsExtension)(nil)
	_ plugin.OnPurchase         = (*MetricsExtension)(nil)
	_ plugin.OnTransfer         = (*MetricsExtension)(nil)
	_ plugin.OnLockedReleased   = (*MetricsExtension)(nil)
	_ plugin.OnDelivery         = (*MetricsExtension)(nil)
	_ plugin.OnDeliveryCanceled = (*MetricsExtension)(nil)
	_ plugin.OnKYCApproved      = (*MetricsExtension)(nil)
	_ plugin.OnKYCRefused       = (*MetricsExtension)(nil)
	_ plugin.OnCustodyMoved     = (*MetricsExtension)(nil)
	_ plugin.OnCustodyReturned  = (*MetricsExtension)(nil)
	_ plugin.OnRateUpdated      = (*MetricsExtension)(nil)
	_ plugin.OnRequestPending   = (*MetricsExtension)(nil)
	_ plugin.OnRequestExecuted  = (*MetricsExtension)(nil)
	_ plugin.OnPhaseChanged     = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawal       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity metrics.
// Register it as a ledger plugin to track them automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Journal metrics
	EntriesCommitted Counter
	EntryRecords     Histogram

	// Sale metrics
	Purchases    Counter
	PurchaseTier Histogram
	RateUpdates  Counter
	RateCents    Histogram
	Withdrawals  Counter

	// Holder metrics
	Transfers      Counter
	LockedReleased Counter

	// Vendor metrics
	Deliveries         Counter
	DeliveryBatchSize  Histogram
	DeliveriesCanceled Counter

	// Compliance metrics
	KYCApproved Counter
	KYCRefused  Counter

	// Custody metrics
	CustodyMoves   Counter
	CustodyReturns Counter

	// Governance metrics
	RequestsPending  Counter
	RequestsExecuted Counter
	PhaseChanges     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		EntriesCommitted: factory.Counter("issuance.entries.committed"),
		EntryRecords:     factory.Histogram("issuance.entries.records"),

		Purchases:    factory.Counter("issuance.sale.purchases"),
		PurchaseTier: factory.Histogram("issuance.sale.purchase.tier"),
		RateUpdates:  factory.Counter("issuance.sale.rate.updates"),
		RateCents:    factory.Histogram("issuance.sale.rate.cents"),
		Withdrawals:  factory.Counter("issuance.treasury.withdrawals"),

		Transfers:      factory.Counter("issuance.transfers"),
		LockedReleased: factory.Counter("issuance.locked.released"),

		Deliveries:         factory.Counter("issuance.deliveries"),
		DeliveryBatchSize:  factory.Histogram("issuance.deliveries.batch.size"),
		DeliveriesCanceled: factory.Counter("issuance.deliveries.canceled"),

		KYCApproved: factory.Counter("issuance.kyc.approved"),
		KYCRefused:  factory.Counter("issuance.kyc.refused"),

		CustodyMoves:   factory.Counter("issuance.custody.moves"),
		CustodyReturns: factory.Counter("issuance.custody.returns"),

		RequestsPending:  factory.Counter("issuance.requests.pending"),
		RequestsExecuted: factory.Counter("issuance.requests.executed"),
		PhaseChanges:     factory.Counter("issuance.phase.changes"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnEntryCommitted implements plugin.OnEntryCommitted.
func (m *MetricsExtension) OnEntryCommitted(_ context.Context, e *journal.Entry) error {
	m.EntriesCommitted.Inc()
	m.EntryRecords.Observe(float64(len(e.Records)))

	deliveries := 0
	for _, r := range e.Records {
		if r.Kind == journal.RecordDelivery {
			deliveries++
		}
	}
	if deliveries > 0 {
		m.DeliveryBatchSize.Observe(float64(deliveries))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (m *MetricsExtension) OnPurchase(_ context.Context, _ *journal.Entry, r *journal.Record) error {
	m.Purchases.Inc()
	if tier, err := strconv.Atoi(r.Attr(journal.AttrTier)); err == nil {
		m.PurchaseTier.Observe(float64(tier))
	}
	return nil
}

// OnRateUpdated implements plugin.OnRateUpdated.
func (m *MetricsExtension) OnRateUpdated(_ context.Context, _ *journal.Entry, r *journal.Record) error {
	m.RateUpdates.Inc()
	if rate, err := strconv.ParseFloat(r.Attr(journal.AttrRate), 64); err == nil {
		m.RateCents.Observe(rate * 100)
	}
	return nil
}

// OnWithdrawal implements plugin.OnWithdrawal.
func (m *MetricsExtension) OnWithdrawal(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.Withdrawals.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Holder and vendor hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.Transfers.Inc()
	return nil
}

// OnLockedReleased implements plugin.OnLockedReleased.
func (m *MetricsExtension) OnLockedReleased(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.LockedReleased.Inc()
	return nil
}

// OnDelivery implements plugin.OnDelivery.
func (m *MetricsExtension) OnDelivery(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.Deliveries.Inc()
	return nil
}

// OnDeliveryCanceled implements plugin.OnDeliveryCanceled.
func (m *MetricsExtension) OnDeliveryCanceled(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.DeliveriesCanceled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Compliance and custody hooks
// ──────────────────────────────────────────────────

// OnKYCApproved implements plugin.OnKYCApproved.
func (m *MetricsExtension) OnKYCApproved(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.KYCApproved.Inc()
	return nil
}

// OnKYCRefused implements plugin.OnKYCRefused.
func (m *MetricsExtension) OnKYCRefused(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.KYCRefused.Inc()
	return nil
}

// OnCustodyMoved implements plugin.OnCustodyMoved.
func (m *MetricsExtension) OnCustodyMoved(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.CustodyMoves.Inc()
	return nil
}

// OnCustodyReturned implements plugin.OnCustodyReturned.
func (m *MetricsExtension) OnCustodyReturned(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.CustodyReturns.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnRequestPending implements plugin.OnRequestPending.
func (m *MetricsExtension) OnRequestPending(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.RequestsPending.Inc()
	return nil
}

// OnRequestExecuted implements plugin.OnRequestExecuted.
func (m *MetricsExtension) OnRequestExecuted(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.RequestsExecuted.Inc()
	return nil
}

// OnPhaseChanged implements plugin.OnPhaseChanged.
func (m *MetricsExtension) OnPhaseChanged(_ context.Context, _ *journal.Entry, _ *journal.Record) error {
	m.PhaseChanges.Inc()
	return nil
}
