package sale

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/types"
)

// KindSale is the change kind for sale state. Keys are "rate", "enabled"
// and "treasury".
const KindSale journal.Kind = "sale"

const (
	keyRate     = "rate"
	keyEnabled  = "enabled"
	keyTreasury = "treasury"
)

// Rate is the last accepted exchange rate.
type Rate struct {
	// Cents is the price of one whole native unit.
	Cents types.Cents `json:"cents"`
	// NextRequest is the feed request id the next update must carry.
	NextRequest uint64 `json:"next_request"`
	// Set reports whether any update was accepted.
	Set bool `json:"set"`
}

// Quote is the priced result of a payment.
type Quote struct {
	Tier    Tier
	Price   types.Cents
	Rate    types.Cents
	Payment types.Amount
	Units   types.Amount
}

var _ journal.State = (*Sale)(nil)

// Sale is the mutable sale state: the exchange rate, the sale-enabled
// flag and the native currency held from purchases.
type Sale struct {
	schedule Schedule
	tariff   Tariff

	rate     Rate
	enabled  bool
	treasury types.Amount
}

// New returns a disabled sale with no rate.
func New(schedule Schedule, tariff Tariff) (*Sale, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if err := tariff.Validate(); err != nil {
		return nil, err
	}
	return &Sale{schedule: schedule, tariff: tariff}, nil
}

// Schedule returns the sale boundaries.
func (s *Sale) Schedule() Schedule { return s.schedule }

// Tariff returns the pricing parameters.
func (s *Sale) Tariff() Tariff { return s.tariff }

// Rate returns the current exchange rate.
func (s *Sale) Rate() Rate { return s.rate }

// Enabled reports whether the sale accepts purchases.
func (s *Sale) Enabled() bool { return s.enabled }

// Treasury returns the native currency held.
func (s *Sale) Treasury() types.Amount { return s.treasury }

// UpdateRate accepts a feed update. requestID must be the next expected
// id, starting at zero; text is a decimal currency amount.
func (s *Sale) UpdateRate(tx *journal.Txn, requestID uint64, text string) (types.Cents, error) {
	if requestID != s.rate.NextRequest {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrStaleRequest, requestID, s.rate.NextRequest)
	}
	cents, err := types.ParseCents(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRate, err)
	}
	if cents == 0 {
		return 0, fmt.Errorf("%w: zero", ErrInvalidRate)
	}

	prev := s.rate
	s.rate = Rate{Cents: cents, NextRequest: requestID + 1, Set: true}
	if err := tx.Write(KindSale, keyRate, s.rate, func() { s.rate = prev }); err != nil {
		return 0, err
	}
	tx.Emit(journal.Record{
		Kind: journal.RecordRateUpdated,
		Attrs: map[string]string{
			journal.AttrRate:   cents.String(),
			journal.AttrFeedID: fmt.Sprint(requestID),
		},
	})
	return cents, nil
}

// SetEnabled turns the sale on or off. Setting the current value writes
// nothing.
func (s *Sale) SetEnabled(tx *journal.Txn, enabled bool) error {
	if s.enabled == enabled {
		return nil
	}
	prev := s.enabled
	s.enabled = enabled
	if err := tx.Write(KindSale, keyEnabled, enabled, func() { s.enabled = prev }); err != nil {
		return err
	}
	tx.Emit(journal.Record{
		Kind:  journal.RecordSaleToggled,
		Attrs: map[string]string{journal.AttrEnabled: fmt.Sprint(enabled)},
	})
	return nil
}

// Quote prices payment at time at. It checks the funding window, the
// enabled flag and the rate, in that order.
func (s *Sale) Quote(payment types.Amount, at time.Time) (Quote, error) {
	tier := s.schedule.TierAt(at)
	if tier == NoTier {
		return Quote{}, ErrSaleNotActive
	}
	if !s.enabled {
		return Quote{}, ErrSaleDisabled
	}
	if !s.rate.Set {
		return Quote{}, ErrRateUnset
	}
	price, err := s.tariff.Price(tier)
	if err != nil {
		return Quote{}, err
	}
	units, err := s.tariff.Units(payment, s.rate.Cents, tier)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Tier: tier, Price: price, Rate: s.rate.Cents, Payment: payment, Units: units}, nil
}

// Deposit adds a purchase payment to the treasury.
func (s *Sale) Deposit(tx *journal.Txn, amount types.Amount) error {
	next, err := s.treasury.Add(amount)
	if err != nil {
		return err
	}
	return s.setTreasury(tx, next)
}

// Withdraw removes amount from the treasury.
func (s *Sale) Withdraw(tx *journal.Txn, amount types.Amount) error {
	next, err := s.treasury.Sub(amount)
	if err != nil {
		if errors.Is(err, types.ErrUnderflow) {
			return fmt.Errorf("%w: holding %s", ErrTreasury, s.treasury)
		}
		return err
	}
	return s.setTreasury(tx, next)
}

func (s *Sale) setTreasury(tx *journal.Txn, v types.Amount) error {
	prev := s.treasury
	s.treasury = v
	return tx.Write(KindSale, keyTreasury, v, func() { s.treasury = prev })
}

// Kinds implements journal.State.
func (s *Sale) Kinds() []journal.Kind { return []journal.Kind{KindSale} }

// Apply implements journal.State.
func (s *Sale) Apply(c journal.Change) error {
	if c.Kind != KindSale {
		return fmt.Errorf("sale: unknown change kind %q", c.Kind)
	}
	var err error
	switch c.Key {
	case keyRate:
		err = json.Unmarshal(c.Value, &s.rate)
	case keyEnabled:
		err = json.Unmarshal(c.Value, &s.enabled)
	case keyTreasury:
		err = json.Unmarshal(c.Value, &s.treasury)
	default:
		return fmt.Errorf("sale: unknown key %q", c.Key)
	}
	if err != nil {
		return fmt.Errorf("sale: decode %s: %w", c.Key, err)
	}
	return nil
}

// Dump implements journal.State.
func (s *Sale) Dump() ([]journal.Change, error) {
	values := []struct {
		key string
		v   any
	}{
		{keyRate, s.rate},
		{keyEnabled, s.enabled},
		{keyTreasury, s.treasury},
	}
	out := make([]journal.Change, 0, len(values))
	for _, kv := range values {
		c, err := journal.Marshal(KindSale, kv.key, kv.v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
