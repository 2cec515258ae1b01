package issuance_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/store/memory"
	"github.com/xraph/issuance/types"
)

func addr(n uint64) common.Address {
	return common.BigToAddress(new(big.Int).SetUint64(n))
}

var (
	admin1   = addr(0xa1)
	admin2   = addr(0xa2)
	vendor   = addr(0xb1)
	officer  = addr(0xc1)
	feed     = addr(0xd1)
	fund     = addr(0xe1)
	alice    = addr(0x1001)
	bob      = addr(0x1002)
	carol    = addr(0x1003)
	stranger = addr(0xdead)
)

var start = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testConfig() issuance.Config {
	cfg := issuance.DefaultConfig()
	cfg.Admins = []common.Address{admin1, admin2}
	cfg.Vendors = []common.Address{vendor, addr(0xb2), addr(0xb3)}
	cfg.KYCOfficers = []common.Address{officer, addr(0xc2), addr(0xc3)}
	cfg.Funds = []common.Address{fund}
	cfg.PriceFeed = feed
	cfg.Schedule = sale.Schedule{
		FundingStart: start,
		RoundTwo:     start.Add(24 * time.Hour),
		RoundThree:   start.Add(48 * time.Hour),
		RoundFour:    start.Add(72 * time.Hour),
		FundingEnd:   start.Add(96 * time.Hour),
	}
	cfg.LockedRelease = start.Add(30 * 24 * time.Hour)
	return cfg
}

// units returns n whole units at 18 decimals.
func units(n uint64) types.Amount {
	a, err := types.Whole(n, 18)
	if err != nil {
		panic(err)
	}
	return a
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type payment struct {
	to     common.Address
	amount types.Amount
}

type recordingDisburser struct {
	mu       sync.Mutex
	payments []payment
	fail     error
}

func (d *recordingDisburser) Pay(_ context.Context, to common.Address, amount types.Amount) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.payments = append(d.payments, payment{to, amount})
	return nil
}

type deposit struct {
	account      common.Address
	locked, free types.Amount
}

type recordingFund struct {
	mu       sync.Mutex
	deposits []deposit
}

func (f *recordingFund) Deposit(_ context.Context, account common.Address, locked, free types.Amount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deposits = append(f.deposits, deposit{account, locked, free})
	return nil
}

// flakyStore fails appends while fail is set.
type flakyStore struct {
	*memory.Store
	fail bool
}

var errDiskFull = errors.New("disk full")

func (s *flakyStore) AppendEntry(ctx context.Context, e *journal.Entry) error {
	if s.fail {
		return errDiskFull
	}
	return s.Store.AppendEntry(ctx, e)
}

type harness struct {
	t     *testing.T
	l     *issuance.Ledger
	store *flakyStore
	clock *fakeClock
	pay   *recordingDisburser
	fund  *recordingFund
}

func newHarness(t *testing.T, opts ...issuance.Option) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		store: &flakyStore{Store: memory.New()},
		clock: &fakeClock{now: start},
		pay:   &recordingDisburser{},
		fund:  &recordingFund{},
	}
	h.l = h.open(opts...)
	return h
}

// open starts a ledger on the harness store.
func (h *harness) open(opts ...issuance.Option) *issuance.Ledger {
	h.t.Helper()
	base := []issuance.Option{
		issuance.WithClock(h.clock.Now),
		issuance.WithDisburser(h.pay),
		issuance.WithFundDirectory(custody.Funds{fund: h.fund}),
		issuance.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	l, err := issuance.New(testConfig(), h.store, append(base, opts...)...)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := l.Start(context.Background()); err != nil {
		h.t.Fatal(err)
	}
	return l
}

func as(caller common.Address) context.Context {
	return issuance.WithCaller(context.Background(), caller)
}

// both submits a privileged operation from each administrator and
// expects it to execute on the second submission.
func (h *harness) both(op func(ctx context.Context) (issuance.Result, error)) {
	h.t.Helper()
	res, err := op(as(admin1))
	if err != nil {
		h.t.Fatalf("first administrator: %v", err)
	}
	if res.Outcome != issuance.Recorded {
		h.t.Fatalf("first submission %s, want recorded", res.Outcome)
	}
	res, err = op(as(admin2))
	if err != nil {
		h.t.Fatalf("second administrator: %v", err)
	}
	if res.Outcome != issuance.Executed {
		h.t.Fatalf("second submission %s, want executed", res.Outcome)
	}
}

// openSale enables the sale and sets the rate.
func (h *harness) openSale(rate string) {
	h.t.Helper()
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.SetSaleEnabled(ctx, true) })
	next := h.l.ExchangeRate().NextRequest
	if _, err := h.l.UpdateExchangeRate(as(feed), next, rate); err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) approve(accounts ...common.Address) {
	h.t.Helper()
	for _, a := range accounts {
		if err := h.l.Approve(as(officer), a); err != nil {
			h.t.Fatal(err)
		}
	}
}

func (h *harness) deliver(to common.Address, hundredths uint64, locked bool) {
	h.t.Helper()
	err := h.l.Deliver(as(vendor), issuance.Delivery{Account: to, Hundredths: hundredths, Locked: locked, Reference: "test"})
	if err != nil {
		h.t.Fatal(err)
	}
}

func (h *harness) conserved() {
	h.t.Helper()
	if err := h.l.CheckConservation(); err != nil {
		h.t.Fatal(err)
	}
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("got error %v, want %v", err, want)
	}
}

func expectAmount(t *testing.T, what string, got, want types.Amount) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", what, got, want)
	}
}
