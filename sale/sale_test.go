package sale_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/types"
)

var start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testSchedule() sale.Schedule {
	return sale.Schedule{
		FundingStart: start,
		RoundTwo:     start.Add(24 * time.Hour),
		RoundThree:   start.Add(48 * time.Hour),
		RoundFour:    start.Add(72 * time.Hour),
		FundingEnd:   start.Add(96 * time.Hour),
	}
}

func newSale(t *testing.T) *sale.Sale {
	t.Helper()
	s, err := sale.New(testSchedule(), sale.DefaultTariff())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestScheduleValidate(t *testing.T) {
	good := testSchedule()
	if err := good.Validate(); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}

	equal := good
	equal.RoundThree = equal.RoundTwo
	if err := equal.Validate(); !errors.Is(err, sale.ErrInvalidPlan) {
		t.Errorf("equal boundaries: expected ErrInvalidPlan, got %v", err)
	}

	reversed := good
	reversed.FundingEnd = start.Add(-time.Hour)
	if err := reversed.Validate(); !errors.Is(err, sale.ErrInvalidPlan) {
		t.Errorf("reversed: expected ErrInvalidPlan, got %v", err)
	}
}

func TestTierAt(t *testing.T) {
	s := testSchedule()
	tests := []struct {
		name string
		at   time.Time
		want sale.Tier
	}{
		{"before start", start.Add(-time.Nanosecond), sale.NoTier},
		{"start", start, sale.Round1},
		{"inside round 1", start.Add(time.Hour), sale.Round1},
		{"just before round 2", s.RoundTwo.Add(-time.Nanosecond), sale.Round1},
		{"round 2 boundary", s.RoundTwo, sale.Round2},
		{"round 3 boundary", s.RoundThree, sale.Round3},
		{"round 4 boundary", s.RoundFour, sale.Round4},
		{"just before end", s.FundingEnd.Add(-time.Nanosecond), sale.Round4},
		{"end", s.FundingEnd, sale.NoTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.TierAt(tt.at); got != tt.want {
				t.Errorf("TierAt = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTariffPrice(t *testing.T) {
	tariff := sale.DefaultTariff()
	want := map[sale.Tier]types.Cents{sale.Round1: 70, sale.Round2: 80, sale.Round3: 90, sale.Round4: 100}
	for tier, price := range want {
		got, err := tariff.Price(tier)
		if err != nil || got != price {
			t.Errorf("tier %d: got %d (%v), want %d", tier, got, err, price)
		}
	}
	if _, err := tariff.Price(sale.NoTier); !errors.Is(err, sale.ErrSaleNotActive) {
		t.Errorf("expected ErrSaleNotActive, got %v", err)
	}
}

func TestTariffValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sale.Tariff)
		ok     bool
	}{
		{"default", func(*sale.Tariff) {}, true},
		{"zero base price", func(tr *sale.Tariff) { tr.BasePrice = 0 }, false},
		{"full discount", func(tr *sale.Tariff) { tr.Discounts[2] = 100 }, false},
		{"discounted price rounds to zero", func(tr *sale.Tariff) { tr.BasePrice = 1 }, false},
		{"smallest positive round price", func(tr *sale.Tariff) { tr.BasePrice = 2; tr.Discounts = [4]uint8{50, 0, 0, 0} }, true},
		{"too many decimals", func(tr *sale.Tariff) { tr.UnitDecimals = 37 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tariff := sale.DefaultTariff()
			tt.mutate(&tariff)
			err := tariff.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, sale.ErrInvalidPlan) {
				t.Fatalf("expected ErrInvalidPlan, got %v", err)
			}
		})
	}
}

func TestQuoteRounds(t *testing.T) {
	s := newSale(t)
	tx := journal.Begin(start)
	if _, err := s.UpdateRate(tx, 0, "200.00"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetEnabled(tx, true); err != nil {
		t.Fatal(err)
	}

	sched := s.Schedule()
	oneNative := types.Pow10(18)
	tests := []struct {
		at   time.Time
		tier sale.Tier
		want string
	}{
		{sched.FundingStart, sale.Round1, "285.71"},
		{sched.RoundTwo, sale.Round2, "250.00"},
		{sched.RoundThree, sale.Round3, "222.22"},
		{sched.RoundFour, sale.Round4, "200.00"},
	}
	for _, tt := range tests {
		q, err := s.Quote(oneNative, tt.at)
		if err != nil {
			t.Fatalf("round %d: %v", tt.tier, err)
		}
		if q.Tier != tt.tier {
			t.Errorf("tier = %d, want %d", q.Tier, tt.tier)
		}
		if got := q.Units.Format(18, 2); got != tt.want {
			t.Errorf("round %d: units %s, want %s", tt.tier, got, tt.want)
		}
	}

	q, _ := s.Quote(oneNative, sched.RoundFour)
	if !q.Units.Equal(types.MustParseAmount("200000000000000000000")) {
		t.Errorf("round 4 should be exact, got %s", q.Units)
	}
}

func TestQuotePreconditions(t *testing.T) {
	s := newSale(t)
	one := types.NewAmount(1)

	if _, err := s.Quote(one, start.Add(-time.Second)); !errors.Is(err, sale.ErrSaleNotActive) {
		t.Errorf("before start: %v", err)
	}
	if _, err := s.Quote(one, start); !errors.Is(err, sale.ErrSaleDisabled) {
		t.Errorf("disabled: %v", err)
	}

	tx := journal.Begin(start)
	_ = s.SetEnabled(tx, true)
	if _, err := s.Quote(one, start); !errors.Is(err, sale.ErrRateUnset) {
		t.Errorf("no rate: %v", err)
	}
	if _, err := s.Quote(one, testSchedule().FundingEnd); !errors.Is(err, sale.ErrSaleNotActive) {
		t.Errorf("at end: %v", err)
	}
}

func TestUpdateRate(t *testing.T) {
	s := newSale(t)
	tx := journal.Begin(start)

	if _, err := s.UpdateRate(tx, 1, "200"); !errors.Is(err, sale.ErrStaleRequest) {
		t.Fatalf("out of order: %v", err)
	}
	cents, err := s.UpdateRate(tx, 0, "203.389")
	if err != nil || cents != 20338 {
		t.Fatalf("got %d, %v", cents, err)
	}
	if _, err := s.UpdateRate(tx, 0, "210"); !errors.Is(err, sale.ErrStaleRequest) {
		t.Errorf("replayed id: %v", err)
	}
	for _, bad := range []string{"0", "0.00", "abc", "-1", ""} {
		if _, err := s.UpdateRate(tx, 1, bad); !errors.Is(err, sale.ErrInvalidRate) {
			t.Errorf("%q: expected ErrInvalidRate, got %v", bad, err)
		}
	}
	if s.Rate().NextRequest != 1 {
		t.Errorf("rejected updates must not advance the request id")
	}

	tx.Rollback()
	if s.Rate().Set {
		t.Error("rollback should clear the rate")
	}
}

func TestTreasury(t *testing.T) {
	s := newSale(t)
	tx := journal.Begin(start)
	if err := s.Deposit(tx, types.NewAmount(10)); err != nil {
		t.Fatal(err)
	}
	if err := s.Withdraw(tx, types.NewAmount(11)); !errors.Is(err, sale.ErrTreasury) {
		t.Errorf("expected ErrTreasury, got %v", err)
	}
	if err := s.Withdraw(tx, types.NewAmount(4)); err != nil {
		t.Fatal(err)
	}
	if !s.Treasury().Equal(types.NewAmount(6)) {
		t.Errorf("treasury = %s", s.Treasury())
	}
}

func TestReplay(t *testing.T) {
	s := newSale(t)
	tx := journal.Begin(start)
	_, _ = s.UpdateRate(tx, 0, "150.5")
	_ = s.SetEnabled(tx, true)
	_ = s.Deposit(tx, types.NewAmount(99))
	tx.Commit()

	dump, err := s.Dump()
	if err != nil {
		t.Fatal(err)
	}
	for _, changes := range [][]journal.Change{tx.Changes(), dump} {
		r := newSale(t)
		for _, c := range changes {
			if err := r.Apply(c); err != nil {
				t.Fatal(err)
			}
		}
		if r.Rate() != s.Rate() || !r.Enabled() || !r.Treasury().Equal(s.Treasury()) {
			t.Errorf("replayed state differs: %+v", r.Rate())
		}
	}
}
