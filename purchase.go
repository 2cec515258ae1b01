package issuance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/issuance/account"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/kyc"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/types"
)

// ──────────────────────────────────────────────────
// Sale
// ──────────────────────────────────────────────────

// Buy converts payment, in the native currency's smallest unit, into
// free units for the caller at the active round's price. The payment is
// kept in the treasury only if the purchase commits.
func (l *Ledger) Buy(ctx context.Context, payment types.Amount) (sale.Quote, error) {
	var quote sale.Quote
	_, err := l.execute(ctx, "buy", func(_ context.Context, tx *journal.Txn, buyer common.Address) error {
		if err := requireCaller(buyer); err != nil {
			return err
		}
		if err := l.phase.Allows(lifecycle.OpBuy); err != nil {
			return err
		}
		if err := positive("payment", payment); err != nil {
			return err
		}
		if err := kyc.CanBuy(l.accounts.Get(buyer).KYC); err != nil {
			return err
		}

		q, err := l.sale.Quote(payment, tx.Time())
		if err != nil {
			return err
		}
		if q.Units.IsZero() {
			return fmt.Errorf("%w: payment %s buys no units", ErrInvalidInput, payment)
		}

		if err := l.accounts.Mint(tx, buyer, q.Units, false); err != nil {
			return err
		}
		if err := l.accounts.Update(tx, buyer, func(a *account.Account) error {
			var err error
			if a.Purchased, err = a.Purchased.Add(q.Units); err != nil {
				return err
			}
			a.Paid, err = a.Paid.Add(payment)
			return err
		}); err != nil {
			return err
		}
		if err := l.sale.Deposit(tx, payment); err != nil {
			return err
		}

		tx.Emit(journal.Record{
			Kind:    journal.RecordPurchase,
			Account: buyer,
			Amount:  q.Units,
			Native:  payment,
			Attrs: map[string]string{
				journal.AttrTier: fmt.Sprint(int(q.Tier)),
				journal.AttrRate: q.Rate.String(),
			},
		})
		quote = q
		return nil
	})
	if err != nil {
		return sale.Quote{}, err
	}
	return quote, nil
}

// Receive handles a bare payment with no call data. It is a purchase.
func (l *Ledger) Receive(ctx context.Context, payment types.Amount) (sale.Quote, error) {
	return l.Buy(ctx, payment)
}

// UpdateExchangeRate is the price feed callback. requestID must be the
// next expected feed request id, starting at zero; rateText is a decimal
// price of one native unit, such as "203.38".
func (l *Ledger) UpdateExchangeRate(ctx context.Context, requestID uint64, rateText string) (types.Cents, error) {
	var cents types.Cents
	_, err := l.execute(ctx, "rate.update", func(_ context.Context, tx *journal.Txn, caller common.Address) error {
		if caller != l.cfg.PriceFeed || caller == (common.Address{}) {
			return fmt.Errorf("%w: %s is not the price feed", ErrUnauthorized, caller.Hex())
		}
		if err := l.phase.Allows(lifecycle.OpRateUpdate); err != nil {
			return err
		}
		var err error
		cents, err = l.sale.UpdateRate(tx, requestID, rateText)
		return err
	})
	if err != nil {
		return 0, err
	}
	return cents, nil
}
