package issuance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/types"
)

var oneNative = types.Pow10(18)

func TestRoundPricing(t *testing.T) {
	h := newHarness(t)
	h.openSale("200.00")

	sched := h.l.Schedule()
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
	for i, tt := range tests {
		buyer := addr(uint64(0x2000 + i))
		h.clock.Set(tt.at)
		q, err := h.l.Buy(as(buyer), oneNative)
		if err != nil {
			t.Fatalf("round %d: %v", tt.tier, err)
		}
		if q.Tier != tt.tier {
			t.Errorf("tier = %d, want %d", q.Tier, tt.tier)
		}
		if got := h.l.BalanceOf(buyer).Format(18, 2); got != tt.want {
			t.Errorf("round %d: balance %s, want %s", tt.tier, got, tt.want)
		}
	}

	expectAmount(t, "round 4 balance", h.l.BalanceOf(addr(0x2003)), units(200))
	expectAmount(t, "treasury", h.l.Treasury(), units(4))
	h.conserved()
}

func TestReceiveIsBuy(t *testing.T) {
	h := newHarness(t)
	h.openSale("200")
	h.clock.Set(h.l.Schedule().RoundFour)

	if _, err := h.l.Receive(as(alice), oneNative); err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "balance", h.l.BalanceOf(alice), units(200))
	a := h.l.Account(alice)
	expectAmount(t, "purchased", a.Purchased, units(200))
	expectAmount(t, "paid", a.Paid, oneNative)
}

func TestBuyPreconditions(t *testing.T) {
	h := newHarness(t)

	_, err := h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrSaleDisabled)

	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.SetSaleEnabled(ctx, true) })
	_, err = h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrRateUnset)

	if _, err := h.l.UpdateExchangeRate(as(feed), 0, "200"); err != nil {
		t.Fatal(err)
	}

	_, err = h.l.Buy(as(alice), types.Zero)
	expectErr(t, err, issuance.ErrInvalidInput)

	_, err = h.l.Buy(context.Background(), oneNative)
	expectErr(t, err, issuance.ErrUnauthorized)

	h.clock.Set(start.Add(-time.Second))
	_, err = h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrSaleNotActive)

	h.clock.Set(h.l.Schedule().FundingEnd)
	_, err = h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrSaleNotActive)

	h.clock.Set(start)
	h.both(h.l.Pause)
	_, err = h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrSaleNotActive)

	if !h.l.Treasury().IsZero() || !h.l.TotalSupply().IsZero() {
		t.Error("failed purchases must leave no trace")
	}
	if !issuance.IsPrecondition(err) {
		t.Error("sale not active is a precondition error")
	}
}

func TestNoUnilateralPrivilege(t *testing.T) {
	h := newHarness(t)

	res, err := h.l.Pause(as(admin1))
	if err != nil || res.Outcome != issuance.Recorded {
		t.Fatalf("got %v, %v", res.Outcome, err)
	}
	if h.l.Phase() != issuance.Fundraising {
		t.Fatal("a single administrator changed the phase")
	}
	if len(h.l.Pending()) != 1 {
		t.Fatal("expected one pending request")
	}

	_, err = h.l.Pause(as(admin1))
	expectErr(t, err, issuance.ErrDuplicateConfirmation)
	if !issuance.IsAuthorization(err) {
		t.Error("duplicate confirmation is an authorization error")
	}

	_, err = h.l.Pause(as(stranger))
	expectErr(t, err, issuance.ErrUnauthorized)

	_, err = h.l.Pause(as(vendor))
	expectErr(t, err, issuance.ErrUnauthorized)

	res, err = h.l.Pause(as(admin2))
	if err != nil || res.Outcome != issuance.Executed {
		t.Fatalf("got %v, %v", res.Outcome, err)
	}
	if h.l.Phase() != issuance.Paused {
		t.Errorf("phase = %s", h.l.Phase())
	}
	if len(h.l.Pending()) != 0 {
		t.Error("executed request should be cleared")
	}
}

func TestMismatchedRequestOverwrites(t *testing.T) {
	h := newHarness(t)

	if _, err := h.l.AddVendor(as(admin1), alice); err != nil {
		t.Fatal(err)
	}
	// The other administrator proposes a different vendor instead.
	res, err := h.l.AddVendor(as(admin2), bob)
	if err != nil || res.Outcome != issuance.Recorded {
		t.Fatalf("got %v, %v", res.Outcome, err)
	}
	// Confirming the original proposal now only re-records it.
	res, _ = h.l.AddVendor(as(admin2), alice)
	if res.Outcome != issuance.Recorded {
		t.Errorf("stale proposal executed")
	}
	res, _ = h.l.AddVendor(as(admin1), alice)
	if res.Outcome != issuance.Executed {
		t.Errorf("matching proposal did not execute")
	}
	if !h.l.IsVendor(alice) || h.l.IsVendor(bob) {
		t.Error("unexpected vendor set")
	}
}

func TestTransferGating(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 10000, false)
	h.deliver(bob, 10000, false)

	err := h.l.Transfer(as(alice), carol, units(1))
	expectErr(t, err, issuance.ErrSenderNotVerified)

	h.approve(alice)
	if err := h.l.Transfer(as(alice), carol, units(1)); err != nil {
		t.Fatalf("approved sender to unverified recipient: %v", err)
	}
	expectAmount(t, "carol", h.l.BalanceOf(carol), units(1))

	err = h.l.Transfer(as(carol), alice, units(1))
	expectErr(t, err, issuance.ErrSenderNotVerified)

	err = h.l.Transfer(as(alice), carol, units(1000))
	expectErr(t, err, issuance.ErrInsufficientBalance)

	err = h.l.Transfer(as(alice), carol, types.Zero)
	expectErr(t, err, issuance.ErrInvalidInput)

	if _, err := h.l.Refuse(as(officer), bob, types.Zero); err != nil {
		t.Fatal(err)
	}
	err = h.l.Transfer(as(bob), carol, units(1))
	expectErr(t, err, issuance.ErrSenderNotVerified)
	h.conserved()
}

func TestLockedBalanceImmobility(t *testing.T) {
	h := newHarness(t)
	h.approve(alice)
	h.deliver(alice, 10000, true)

	err := h.l.Transfer(as(alice), bob, units(1))
	expectErr(t, err, issuance.ErrInsufficientBalance)

	_, err = h.l.ReleaseLocked(as(alice), alice)
	expectErr(t, err, issuance.ErrTooEarly)

	h.clock.Set(h.l.LockedRelease())
	if err := h.l.Transfer(as(alice), bob, units(40)); err != nil {
		t.Fatalf("transfer after unlock: %v", err)
	}
	a := h.l.Account(alice)
	expectAmount(t, "alice free", a.Free, units(60))
	expectAmount(t, "alice locked", a.Locked, types.Zero)

	released, err := h.l.ReleaseLocked(as(alice), alice)
	if err != nil || !released.IsZero() {
		t.Errorf("second release should be a no-op, got %s, %v", released, err)
	}
	h.conserved()
}

func TestReleaseAll(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 100, true)
	h.deliver(bob, 200, true)
	h.deliver(carol, 300, false)

	_, err := h.l.ReleaseAll(context.Background())
	expectErr(t, err, issuance.ErrTooEarly)

	h.clock.Set(h.l.LockedRelease().Add(time.Minute))
	n, err := h.l.ReleaseAll(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("released %d accounts, %v", n, err)
	}
	for _, a := range h.l.Accounts() {
		if !a.Locked.IsZero() {
			t.Errorf("%s still locked", a.Address.Hex())
		}
	}

	seq := h.l.Sequence()
	n, err = h.l.ReleaseAll(context.Background())
	if err != nil || n != 0 || h.l.Sequence() != seq {
		t.Errorf("empty release should commit nothing")
	}
}

func TestRefusalReversal(t *testing.T) {
	h := newHarness(t)
	h.openSale("200")

	if _, err := h.l.Buy(as(alice), oneNative); err != nil {
		t.Fatal(err)
	}
	h.deliver(alice, 10000, true)
	supplyBefore := h.l.TotalSupply()
	purchased := h.l.Account(alice).Purchased

	compensation := types.NewAmount(5e17)
	burned, err := h.l.Refuse(as(officer), alice, compensation)
	if err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "burned", burned, purchased)

	a := h.l.Account(alice)
	if a.KYC != kyc.Refused {
		t.Errorf("status = %s", a.KYC)
	}
	expectAmount(t, "free", a.Free, types.Zero)
	expectAmount(t, "locked", a.Locked, units(100))
	expectAmount(t, "purchased", a.Purchased, types.Zero)
	expectAmount(t, "balance", h.l.BalanceOf(alice), units(100))

	wantSupply, err := supplyBefore.Sub(purchased)
	if err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "supply", h.l.TotalSupply(), wantSupply)

	if len(h.pay.payments) != 1 || h.pay.payments[0].to != alice || !h.pay.payments[0].amount.Equal(compensation) {
		t.Errorf("payments = %+v", h.pay.payments)
	}

	_, err = h.l.Refuse(as(officer), alice, types.Zero)
	expectErr(t, err, issuance.ErrInvalidTransition)
	expectErr(t, h.l.Approve(as(officer), alice), issuance.ErrInvalidTransition)

	_, err = h.l.Buy(as(alice), oneNative)
	expectErr(t, err, issuance.ErrAccountRefused)

	_, err = h.l.Refuse(as(stranger), bob, types.Zero)
	expectErr(t, err, issuance.ErrUnauthorized)
	h.conserved()
}

func TestRefusalRollsBackWhenRefundFails(t *testing.T) {
	h := newHarness(t)
	h.openSale("200")
	if _, err := h.l.Buy(as(alice), oneNative); err != nil {
		t.Fatal(err)
	}
	before := h.l.Account(alice)
	supply := h.l.TotalSupply()

	h.pay.fail = errors.New("payout rejected")
	_, err := h.l.Refuse(as(officer), alice, types.NewAmount(1))
	expectErr(t, err, issuance.ErrCollaborator)
	after := h.l.Account(alice)
	if after.KYC != before.KYC || !after.Free.Equal(before.Free) || !h.l.TotalSupply().Equal(supply) {
		t.Error("failed refusal changed state")
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.approve(alice)
	seq := h.l.Sequence()
	h.approve(alice)
	if h.l.Sequence() != seq {
		t.Error("approving an approved account should commit nothing")
	}
	expectErr(t, h.l.Approve(as(vendor), bob), issuance.ErrUnauthorized)
}

func TestCancelDelivery(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 10000, true)
	h.deliver(alice, 5000, false)

	if err := h.l.CancelDelivery(as(officer), alice, 10000, "INV-1"); err != nil {
		t.Fatal(err)
	}
	a := h.l.Account(alice)
	expectAmount(t, "locked", a.Locked, types.Zero)
	expectAmount(t, "free", a.Free, units(50))
	expectAmount(t, "supply", h.l.TotalSupply(), units(50))

	err := h.l.CancelDelivery(as(officer), alice, 10000, "INV-2")
	expectErr(t, err, issuance.ErrInsufficientBalance)
	expectErr(t, h.l.CancelDelivery(as(vendor), alice, 100, ""), issuance.ErrUnauthorized)
	expectErr(t, h.l.CancelDelivery(as(officer), alice, 0, ""), issuance.ErrInvalidInput)

	entries, err := h.l.Entries(context.Background(), journal.ListOpts{Operation: "delivery.cancel"})
	if err != nil || len(entries) != 1 {
		t.Fatalf("entries: %d, %v", len(entries), err)
	}
	var found bool
	for _, r := range entries[0].Records {
		if r.Kind == journal.RecordDeliveryCanceled && r.Attr(journal.AttrReference) == "INV-1" {
			found = true
		}
	}
	if !found {
		t.Error("cancellation record with reference not found")
	}
}

func TestBatchDelivery(t *testing.T) {
	h := newHarness(t)

	batch, err := issuance.ZipDeliveries(
		[]common.Address{alice, bob},
		[]uint64{100, 200},
		[]bool{true, false},
		"batch-1",
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.l.DeliverBatch(as(vendor), batch); err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "alice locked", h.l.Account(alice).Locked, units(1))
	expectAmount(t, "bob free", h.l.Account(bob).Free, units(2))
	if h.l.Sequence() != 1 {
		t.Errorf("batch should be one entry, sequence %d", h.l.Sequence())
	}

	bad := []issuance.Delivery{
		{Account: carol, Hundredths: 100},
		{Account: alice, Hundredths: 0},
	}
	expectErr(t, h.l.DeliverBatch(as(vendor), bad), issuance.ErrInvalidInput)
	if !h.l.BalanceOf(carol).IsZero() {
		t.Error("partial batch applied")
	}

	zero := []issuance.Delivery{{Account: common.Address{}, Hundredths: 100}}
	expectErr(t, h.l.DeliverBatch(as(vendor), zero), issuance.ErrInvalidInput)

	_, err = issuance.ZipDeliveries([]common.Address{alice}, []uint64{1, 2}, []bool{true}, "")
	expectErr(t, err, issuance.ErrInvalidInput)

	expectErr(t, h.l.DeliverBatch(as(officer), batch), issuance.ErrUnauthorized)
	expectAmount(t, "supply", h.l.TotalSupply(), units(3))
	h.conserved()
}

func TestCustodyRoundTrip(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 10000, false)
	h.deliver(alice, 5000, true)
	supply := h.l.TotalSupply()

	if _, err := h.l.MoveToFund(as(alice), fund, units(10)); err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "locked after 10", h.l.Account(alice).Locked, units(40))

	pos, err := h.l.MoveToFund(as(alice), fund, units(90))
	if err != nil {
		t.Fatal(err)
	}
	a := h.l.Account(alice)
	expectAmount(t, "locked after 90", a.Locked, types.Zero)
	expectAmount(t, "balance after 90", a.Balance(), units(50))
	expectAmount(t, "position locked", pos.Locked, units(50))
	expectAmount(t, "position free", pos.Free, units(50))

	if len(h.fund.deposits) != 2 {
		t.Fatalf("fund saw %d deposits", len(h.fund.deposits))
	}
	expectAmount(t, "first deposit locked", h.fund.deposits[0].locked, units(10))
	expectAmount(t, "second deposit locked", h.fund.deposits[1].locked, units(40))
	expectAmount(t, "second deposit free", h.fund.deposits[1].free, units(50))

	steps := []struct {
		amount, locked, balance uint64
	}{
		{10, 10, 60},
		{80, 50, 140},
		{10, 50, 150},
	}
	for _, s := range steps {
		if err := h.l.ReturnFromFund(as(fund), alice, units(s.amount)); err != nil {
			t.Fatal(err)
		}
		a := h.l.Account(alice)
		expectAmount(t, "locked", a.Locked, units(s.locked))
		expectAmount(t, "balance", a.Balance(), units(s.balance))
	}
	expectAmount(t, "supply after round trip", h.l.TotalSupply(), supply)
	if !h.l.Position(fund, alice).Total().IsZero() {
		t.Error("position should be empty")
	}
	h.conserved()
}

func TestCustodyFailures(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 1000, false)

	_, err := h.l.MoveToFund(as(alice), stranger, units(1))
	expectErr(t, err, issuance.ErrFundNotRegistered)

	_, err = h.l.MoveToFund(as(alice), fund, units(11))
	expectErr(t, err, issuance.ErrInsufficientBalance)

	if _, err := h.l.MoveToFund(as(alice), fund, units(5)); err != nil {
		t.Fatal(err)
	}
	expectErr(t, h.l.ReturnFromFund(as(stranger), alice, units(1)), issuance.ErrUnauthorized)
	expectErr(t, h.l.ReturnFromFund(as(fund), alice, units(6)), issuance.ErrInsufficientBalance)
	expectErr(t, h.l.ReturnFromFund(as(fund), bob, units(1)), issuance.ErrInsufficientBalance)
}

func TestFundFailureRollsBack(t *testing.T) {
	offline := custody.FundFunc(func(context.Context, common.Address, types.Amount, types.Amount) error {
		return errors.New("fund offline")
	})
	h := newHarness(t, issuance.WithFundDirectory(custody.Funds{fund: offline}))
	h.deliver(alice, 1000, true)
	h.deliver(alice, 1000, false)
	before := h.l.Account(alice)
	seq := h.l.Sequence()

	_, err := h.l.MoveToFund(as(alice), fund, units(15))
	expectErr(t, err, issuance.ErrCollaborator)

	after := h.l.Account(alice)
	expectAmount(t, "locked", after.Locked, before.Locked)
	expectAmount(t, "free", after.Free, before.Free)
	expectAmount(t, "position", h.l.Position(fund, alice).Total(), types.Zero)
	if h.l.Sequence() != seq {
		t.Errorf("failed move committed an entry, sequence %d -> %d", seq, h.l.Sequence())
	}
	h.conserved()
}

func TestCollaboratorsCanReadDuringOperation(t *testing.T) {
	var (
		l          *issuance.Ledger
		seenFund   types.Amount
		returnErr  error
		seenStatus kyc.Status
		snapErr    error
	)
	program := custody.FundFunc(func(ctx context.Context, acct common.Address, _, _ types.Amount) error {
		seenFund = l.BalanceOf(acct)
		returnErr = l.ReturnFromFund(issuance.WithCaller(ctx, fund), acct, units(1))
		return nil
	})
	payer := issuance.DisburserFunc(func(ctx context.Context, to common.Address, _ types.Amount) error {
		seenStatus = l.Account(to).KYC
		_, snapErr = l.Snapshot(ctx)
		return nil
	})

	h := newHarness(t,
		issuance.WithFundDirectory(custody.Funds{fund: program}),
		issuance.WithDisburser(payer),
	)
	l = h.l
	h.deliver(alice, 1000, false)

	if _, err := l.MoveToFund(as(alice), fund, units(1)); err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "balance seen by fund", seenFund, units(9))
	expectErr(t, returnErr, issuance.ErrReentrant)
	expectAmount(t, "balance", l.BalanceOf(alice), units(9))
	expectAmount(t, "position", l.Position(fund, alice).Free, units(1))

	// The same return succeeds once the move has finished.
	if err := l.ReturnFromFund(as(fund), alice, units(1)); err != nil {
		t.Fatal(err)
	}
	expectAmount(t, "balance after return", l.BalanceOf(alice), units(10))

	if _, err := l.Refuse(as(officer), bob, types.NewAmount(1)); err != nil {
		t.Fatal(err)
	}
	if seenStatus != kyc.Refused {
		t.Errorf("disburser saw status %s, want refused", seenStatus)
	}
	expectErr(t, snapErr, issuance.ErrReentrant)
	h.conserved()
}

func TestPauseBlocksMovement(t *testing.T) {
	h := newHarness(t)
	h.approve(alice)
	h.deliver(alice, 1000, false)
	h.both(h.l.Pause)

	expectErr(t, h.l.Transfer(as(alice), bob, units(1)), issuance.ErrPaused)
	expectErr(t, h.l.Deliver(as(vendor), issuance.Delivery{Account: bob, Hundredths: 100}), issuance.ErrPaused)
	_, err := h.l.MoveToFund(as(alice), fund, units(1))
	expectErr(t, err, issuance.ErrPaused)

	// Administration and KYC keep working.
	h.approve(bob)
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.AddVendor(ctx, carol) })

	_, err = h.l.Finalize(as(admin1))
	if err != nil {
		t.Fatal(err)
	}
	h.clock.Set(h.l.Schedule().FundingEnd)
	_, err = h.l.Finalize(as(admin2))
	expectErr(t, err, issuance.ErrInvalidTransition)

	h.both(h.l.Resume)
	if err := h.l.Transfer(as(alice), bob, units(1)); err != nil {
		t.Fatal(err)
	}
}

func TestFinalize(t *testing.T) {
	h := newHarness(t)
	h.approve(alice)
	h.deliver(alice, 1000, false)
	h.openSale("200")

	if _, err := h.l.Finalize(as(admin1)); err != nil {
		t.Fatal(err)
	}
	_, err := h.l.Finalize(as(admin2))
	expectErr(t, err, issuance.ErrTooEarly)
	if len(h.l.Pending()) != 1 {
		t.Fatal("failed execution must keep the pending request")
	}

	h.clock.Set(h.l.Schedule().FundingEnd)
	res, err := h.l.Finalize(as(admin2))
	if err != nil || res.Outcome != issuance.Executed {
		t.Fatalf("got %v, %v", res.Outcome, err)
	}
	if h.l.Phase() != issuance.Finalized {
		t.Fatalf("phase = %s", h.l.Phase())
	}

	_, err = h.l.Buy(as(bob), oneNative)
	expectErr(t, err, issuance.ErrSaleNotActive)
	if err := h.l.Transfer(as(alice), bob, units(1)); err != nil {
		t.Errorf("transfers continue after finalize: %v", err)
	}
	_, err = h.l.Pause(as(admin1))
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.l.Pause(as(admin2))
	expectErr(t, err, issuance.ErrInvalidTransition)
}

func TestWithdraw(t *testing.T) {
	h := newHarness(t)
	h.openSale("200")
	if _, err := h.l.Buy(as(alice), oneNative); err != nil {
		t.Fatal(err)
	}

	tooMuch := units(2)
	if _, err := h.l.Withdraw(as(admin1), carol, tooMuch); err != nil {
		t.Fatal(err)
	}
	_, err := h.l.Withdraw(as(admin2), carol, tooMuch)
	expectErr(t, err, issuance.ErrInsufficientBalance)

	half := types.NewAmount(5e17)
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.Withdraw(ctx, carol, half) })
	expectAmount(t, "treasury", h.l.Treasury(), half)
	if len(h.pay.payments) != 1 || h.pay.payments[0].to != carol {
		t.Errorf("payments = %+v", h.pay.payments)
	}

	_, err = h.l.Withdraw(as(admin1), carol, types.Zero)
	expectErr(t, err, issuance.ErrInvalidInput)
}

func TestExchangeRateFeed(t *testing.T) {
	h := newHarness(t)

	_, err := h.l.UpdateExchangeRate(as(stranger), 0, "200")
	expectErr(t, err, issuance.ErrUnauthorized)

	cents, err := h.l.UpdateExchangeRate(as(feed), 0, "203.38")
	if err != nil || cents != 20338 {
		t.Fatalf("got %d, %v", cents, err)
	}
	_, err = h.l.UpdateExchangeRate(as(feed), 0, "210")
	expectErr(t, err, issuance.ErrStaleRequest)
	_, err = h.l.UpdateExchangeRate(as(feed), 5, "210")
	expectErr(t, err, issuance.ErrStaleRequest)
	_, err = h.l.UpdateExchangeRate(as(feed), 1, "not a number")
	expectErr(t, err, issuance.ErrInvalidInput)

	rate := h.l.ExchangeRate()
	if rate.Cents != 20338 || rate.NextRequest != 1 {
		t.Errorf("rate = %+v", rate)
	}
}

func TestRegistryMembership(t *testing.T) {
	h := newHarness(t)

	if !h.l.IsVendor(vendor) || !h.l.IsKYCOfficer(officer) || !h.l.IsFund(fund) {
		t.Fatal("seeded members missing")
	}
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.AddKYCOfficer(ctx, alice) })
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.RemoveVendor(ctx, vendor) })
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.AddFund(ctx, bob) })
	h.both(func(ctx context.Context) (issuance.Result, error) { return h.l.RemoveFund(ctx, fund) })

	if !h.l.IsKYCOfficer(alice) || h.l.IsVendor(vendor) || !h.l.IsFund(bob) || h.l.IsFund(fund) {
		t.Error("membership changes not applied")
	}
	expectErr(t, h.l.Deliver(as(vendor), issuance.Delivery{Account: carol, Hundredths: 1}), issuance.ErrUnauthorized)

	_, err := h.l.AddVendor(as(admin1), common.Address{})
	expectErr(t, err, issuance.ErrInvalidInput)
}

func TestPersistFailureRollsBack(t *testing.T) {
	h := newHarness(t)
	h.deliver(alice, 100, false)
	seq := h.l.Sequence()

	h.store.fail = true
	err := h.l.Deliver(as(vendor), issuance.Delivery{Account: alice, Hundredths: 100})
	expectErr(t, err, issuance.ErrPersist)
	if !issuance.IsRetryable(err) {
		t.Error("persist failures are retryable")
	}
	expectAmount(t, "balance", h.l.BalanceOf(alice), units(1))
	if h.l.Sequence() != seq {
		t.Error("sequence advanced")
	}

	h.store.fail = false
	h.deliver(alice, 100, false)
	expectAmount(t, "balance", h.l.BalanceOf(alice), units(2))
	h.conserved()
}

func TestNotStarted(t *testing.T) {
	l, err := issuance.New(testConfig(), &flakyStore{})
	if err != nil {
		t.Fatal(err)
	}
	expectErr(t, l.Approve(as(officer), alice), issuance.ErrNotStarted)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Admins = cfg.Admins[:1]
	if _, err := issuance.New(cfg, &flakyStore{}); err == nil {
		t.Fatal("expected validation error")
	}
}
