package issuance

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/xraph/issuance/sale"
)

// Config holds the campaign parameters fixed at deployment.
type Config struct {
	// Admins are the two administrators of the dual-control gate.
	Admins []common.Address `json:"admins" yaml:"admins" mapstructure:"admins" env:"ISSUANCE_ADMINS" envSeparator:","`

	// Initial registry members.
	Vendors     []common.Address `json:"vendors" yaml:"vendors" mapstructure:"vendors" env:"ISSUANCE_VENDORS" envSeparator:","`
	KYCOfficers []common.Address `json:"kyc_officers" yaml:"kyc_officers" mapstructure:"kyc_officers" env:"ISSUANCE_KYC_OFFICERS" envSeparator:","`
	Funds       []common.Address `json:"funds" yaml:"funds" mapstructure:"funds" env:"ISSUANCE_FUNDS" envSeparator:","`

	// PriceFeed is the only caller allowed to update the exchange rate.
	PriceFeed common.Address `json:"price_feed" yaml:"price_feed" mapstructure:"price_feed" env:"ISSUANCE_PRICE_FEED"`

	Schedule sale.Schedule `json:"schedule" yaml:"schedule" mapstructure:"schedule" envPrefix:"ISSUANCE_"`
	Tariff   sale.Tariff   `json:"tariff" yaml:"tariff" mapstructure:"tariff" envPrefix:"ISSUANCE_"`

	// LockedRelease is when locked balances become transferable.
	LockedRelease time.Time `json:"locked_release" yaml:"locked_release" mapstructure:"locked_release" env:"ISSUANCE_LOCKED_RELEASE"`

	// SnapshotEvery writes a snapshot after every n entries; zero disables.
	SnapshotEvery uint64 `json:"snapshot_every" yaml:"snapshot_every" mapstructure:"snapshot_every" env:"ISSUANCE_SNAPSHOT_EVERY"`
}

// DefaultConfig returns a configuration with the default tariff and no
// parties. It does not validate until admins, the price feed and the
// schedule are filled in.
func DefaultConfig() Config {
	return Config{Tariff: sale.DefaultTariff()}
}

// LoadConfig reads a YAML campaign file, then applies ISSUANCE_*
// environment overrides, then validates. A missing file is not an error;
// the environment alone may configure the campaign.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every parameter and reports all problems at once.
func (c Config) Validate() error {
	var errs MultiError

	switch {
	case len(c.Admins) != 2:
		errs.Add(ValidationError{Field: "admins", Message: fmt.Sprintf("need exactly 2, got %d", len(c.Admins))})
	case c.Admins[0] == (common.Address{}) || c.Admins[1] == (common.Address{}):
		errs.Add(ValidationError{Field: "admins", Message: "zero address"})
	case c.Admins[0] == c.Admins[1]:
		errs.Add(ValidationError{Field: "admins", Message: "administrators must be distinct"})
	}

	for _, set := range []struct {
		field   string
		members []common.Address
	}{
		{"vendors", c.Vendors},
		{"kyc_officers", c.KYCOfficers},
		{"funds", c.Funds},
	} {
		if slices.Contains(set.members, common.Address{}) {
			errs.Add(ValidationError{Field: set.field, Message: "zero address"})
		}
	}

	if c.PriceFeed == (common.Address{}) {
		errs.Add(ValidationError{Field: "price_feed", Message: "required"})
	}
	if err := c.Schedule.Validate(); err != nil {
		errs.Add(ValidationError{Field: "schedule", Message: err.Error()})
	}
	if err := c.Tariff.Validate(); err != nil {
		errs.Add(ValidationError{Field: "tariff", Message: err.Error()})
	}
	if c.Tariff.UnitDecimals < 2 {
		errs.Add(ValidationError{Field: "tariff.unit_decimals", Message: "deliveries are in hundredths, need at least 2"})
	}
	if c.LockedRelease.IsZero() {
		errs.Add(ValidationError{Field: "locked_release", Message: "required"})
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
