package extension

import (
	"github.com/xraph/grove"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/plugin"
	"github.com/xraph/issuance/store"
)

// Option configures the issuance Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine. It takes precedence
// over WithGrove.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGrove sets the grove database the store is built on. Config.Driver
// picks the backend.
func WithGrove(db *grove.DB) Option {
	return func(e *Extension) {
		e.grove = db
	}
}

// WithDriver sets the store driver used with WithGrove.
func WithDriver(driver string) Option {
	return func(e *Extension) { e.config.Driver = driver }
}

// WithCampaign sets the campaign programmatically instead of loading
// Config.CampaignFile.
func WithCampaign(cfg issuance.Config) Option {
	return func(e *Extension) {
		e.campaign = &cfg
	}
}

// WithCampaignFile sets the campaign YAML path.
func WithCampaignFile(path string) Option {
	return func(e *Extension) { e.config.CampaignFile = path }
}

// WithLedgerOption passes an issuance.Option through to the underlying engine.
func WithLedgerOption(opt issuance.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, issuance.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithReleaseSchedule sets a recurring cron spec for the eager release.
func WithReleaseSchedule(spec string) Option {
	return func(e *Extension) { e.config.ReleaseSchedule = spec }
}

// WithSnapshotSpec sets the cron spec for periodic snapshots.
func WithSnapshotSpec(spec string) Option {
	return func(e *Extension) { e.config.SnapshotSpec = spec }
}

// WithDisableScheduler prevents the cron jobs from starting.
func WithDisableScheduler() Option {
	return func(e *Extension) { e.config.DisableScheduler = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
