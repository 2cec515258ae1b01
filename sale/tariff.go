package sale

import (
	"fmt"

	"github.com/xraph/issuance/types"
)

// Tariff prices one whole ledger unit per round.
type Tariff struct {
	// BasePrice is the undiscounted price of one whole unit.
	BasePrice types.Cents `json:"base_price_cents" yaml:"base_price_cents" mapstructure:"base_price_cents" env:"BASE_PRICE_CENTS"`
	// Discounts are percentages off BasePrice for rounds 1 to 4.
	Discounts [4]uint8 `json:"discounts" yaml:"discounts" mapstructure:"discounts"`
	// UnitDecimals is the ledger unit precision.
	UnitDecimals uint8 `json:"unit_decimals" yaml:"unit_decimals" mapstructure:"unit_decimals" env:"UNIT_DECIMALS"`
	// NativeDecimals is the payment currency precision.
	NativeDecimals uint8 `json:"native_decimals" yaml:"native_decimals" mapstructure:"native_decimals" env:"NATIVE_DECIMALS"`
}

// DefaultTariff returns 100 cents per unit with 30/20/10/0 percent
// discounts and 18 decimals on both sides.
func DefaultTariff() Tariff {
	return Tariff{
		BasePrice:      100,
		Discounts:      [4]uint8{30, 20, 10, 0},
		UnitDecimals:   18,
		NativeDecimals: 18,
	}
}

// Validate checks that every round has a positive price and the
// decimals fit.
func (t Tariff) Validate() error {
	if t.BasePrice == 0 {
		return fmt.Errorf("%w: base price is zero", ErrInvalidPlan)
	}
	for i, d := range t.Discounts {
		if d >= 100 {
			return fmt.Errorf("%w: round %d discount %d%%", ErrInvalidPlan, i+1, d)
		}
	}
	for tier := Round1; tier <= Round4; tier++ {
		if price, _ := t.Price(tier); price == 0 {
			return fmt.Errorf("%w: round %d price rounds to zero", ErrInvalidPlan, tier)
		}
	}
	if t.UnitDecimals > 36 || t.NativeDecimals > 36 {
		return fmt.Errorf("%w: decimals above 36", ErrInvalidPlan)
	}
	return nil
}

// Price returns the price of one whole unit in round tier.
func (t Tariff) Price(tier Tier) (types.Cents, error) {
	if tier < Round1 || tier > Round4 {
		return 0, ErrSaleNotActive
	}
	discount := uint64(t.Discounts[tier-1])
	return types.Cents(uint64(t.BasePrice) * (100 - discount) / 100), nil
}

// Units converts a native payment into ledger units at rate for round
// tier, rounding down:
//
//	units = payment · rate · 10^unitDecimals / (price · 10^nativeDecimals)
func (t Tariff) Units(payment types.Amount, rate types.Cents, tier Tier) (types.Amount, error) {
	price, err := t.Price(tier)
	if err != nil {
		return types.Zero, err
	}
	num, err := rate.Amount().Mul(types.Pow10(t.UnitDecimals))
	if err != nil {
		return types.Zero, err
	}
	den, err := price.Amount().Mul(types.Pow10(t.NativeDecimals))
	if err != nil {
		return types.Zero, err
	}
	return payment.MulDiv(num, den)
}
