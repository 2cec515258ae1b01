// Package sale implements the sale and pricing engine: the time-indexed
// bonus tiers, the exchange rate fed by the external price feed, and the
// quote that turns a native payment into ledger units.
package sale

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by the sale engine.
var (
	ErrSaleNotActive = errors.New("sale: outside the funding window")
	ErrSaleDisabled  = errors.New("sale: disabled")
	ErrRateUnset     = errors.New("sale: exchange rate not set")
	ErrStaleRequest  = errors.New("sale: unexpected feed request id")
	ErrInvalidRate   = errors.New("sale: invalid exchange rate")
	ErrInvalidPlan   = errors.New("sale: invalid schedule or tariff")
	ErrTreasury      = errors.New("sale: insufficient treasury")
)

// Tier is a bonus round, 1 through 4. The zero Tier means no round is
// active.
type Tier int

// Tiers.
const (
	NoTier Tier = iota
	Round1
	Round2
	Round3
	Round4
)

// Schedule holds the sale boundaries. Each round is the half-open
// interval from its start up to the next boundary, so a time exactly on
// a boundary belongs to the later round. The funding window is
// [FundingStart, FundingEnd).
type Schedule struct {
	FundingStart time.Time `json:"funding_start" yaml:"funding_start" mapstructure:"funding_start" env:"FUNDING_START"`
	RoundTwo     time.Time `json:"round_two" yaml:"round_two" mapstructure:"round_two" env:"ROUND_TWO"`
	RoundThree   time.Time `json:"round_three" yaml:"round_three" mapstructure:"round_three" env:"ROUND_THREE"`
	RoundFour    time.Time `json:"round_four" yaml:"round_four" mapstructure:"round_four" env:"ROUND_FOUR"`
	FundingEnd   time.Time `json:"funding_end" yaml:"funding_end" mapstructure:"funding_end" env:"FUNDING_END"`
}

// Validate checks that the boundaries are strictly increasing.
func (s Schedule) Validate() error {
	b := s.boundaries()
	for i := 1; i < len(b); i++ {
		if !b[i].After(b[i-1]) {
			return fmt.Errorf("%w: boundary %d (%s) not after boundary %d (%s)",
				ErrInvalidPlan, i, b[i].Format(time.RFC3339), i-1, b[i-1].Format(time.RFC3339))
		}
	}
	return nil
}

// InWindow reports whether t lies in [FundingStart, FundingEnd).
func (s Schedule) InWindow(t time.Time) bool {
	return !t.Before(s.FundingStart) && t.Before(s.FundingEnd)
}

// Ended reports whether t is at or after FundingEnd.
func (s Schedule) Ended(t time.Time) bool { return !t.Before(s.FundingEnd) }

// TierAt returns the round active at t, or NoTier outside the window.
func (s Schedule) TierAt(t time.Time) Tier {
	if !s.InWindow(t) {
		return NoTier
	}
	b := s.boundaries()
	tier := Round1
	for i := 1; i < len(b)-1; i++ {
		if !t.Before(b[i]) {
			tier = Tier(i + 1)
		}
	}
	return tier
}

func (s Schedule) boundaries() [5]time.Time {
	return [5]time.Time{s.FundingStart, s.RoundTwo, s.RoundThree, s.RoundFour, s.FundingEnd}
}
