package observability

import (
	"context"
	"testing"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/plugin"
)

type counter struct{ n float64 }

func (c *counter) Inc()          { c.n++ }
func (c *counter) Add(v float64) { c.n += v }

type histogram struct{ values []float64 }

func (h *histogram) Observe(v float64) { h.values = append(h.values, v) }

type factory struct {
	counters   map[string]*counter
	histograms map[string]*histogram
}

func newFactory() *factory {
	return &factory{counters: map[string]*counter{}, histograms: map[string]*histogram{}}
}

func (f *factory) Counter(name string) Counter {
	c := &counter{}
	f.counters[name] = c
	return c
}

func (f *factory) Histogram(name string) Histogram {
	h := &histogram{}
	f.histograms[name] = h
	return h
}

func TestMetricsFromEntries(t *testing.T) {
	f := newFactory()
	r := plugin.NewRegistry()
	if err := r.Register(NewMetricsExtension(f)); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	r.EmitEntry(ctx, &journal.Entry{Sequence: 1, Records: []journal.Record{
		{Kind: journal.RecordDelivery},
		{Kind: journal.RecordDelivery},
		{Kind: journal.RecordDelivery},
	}})
	r.EmitEntry(ctx, &journal.Entry{Sequence: 2, Records: []journal.Record{
		{Kind: journal.RecordPurchase, Attrs: map[string]string{journal.AttrTier: "2"}},
	}})
	r.EmitEntry(ctx, &journal.Entry{Sequence: 3, Records: []journal.Record{
		{Kind: journal.RecordRateUpdated, Attrs: map[string]string{journal.AttrRate: "203.38"}},
		{Kind: journal.RecordRequestExecuted},
		{Kind: journal.RecordPhaseChanged},
	}})

	counts := map[string]float64{
		"issuance.entries.committed": 3,
		"issuance.deliveries":        3,
		"issuance.sale.purchases":    1,
		"issuance.sale.rate.updates": 1,
		"issuance.requests.executed": 1,
		"issuance.phase.changes":     1,
		"issuance.transfers":         0,
	}
	for name, want := range counts {
		if got := f.counters[name].n; got != want {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}

	if got := f.histograms["issuance.deliveries.batch.size"].values; len(got) != 1 || got[0] != 3 {
		t.Errorf("batch sizes = %v", got)
	}
	if got := f.histograms["issuance.sale.purchase.tier"].values; len(got) != 1 || got[0] != 2 {
		t.Errorf("tiers = %v", got)
	}
	if got := f.histograms["issuance.sale.rate.cents"].values; len(got) != 1 || got[0] < 20337.9 || got[0] > 20338.1 {
		t.Errorf("rates = %v", got)
	}
}
