// Package extension provides the Forge extension adapter for the
// issuance ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration, a cron scheduler for
// time-driven jobs, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.issuance" or
// "issuance" keys. The campaign itself is loaded with issuance.LoadConfig.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/scheduler"
	"github.com/xraph/issuance/store"
	"github.com/xraph/issuance/store/memory"
	"github.com/xraph/issuance/store/mongo"
	"github.com/xraph/issuance/store/postgres"
	"github.com/xraph/issuance/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "issuance"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Dual-controlled asset issuance ledger for fundraising campaigns"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the issuance ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	campaign   *issuance.Config
	engine     *issuance.Ledger
	store      store.Store
	grove      *grove.DB
	scheduler  *scheduler.Scheduler
	ledgerOpts []issuance.Option
}

// New creates a new issuance Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying ledger.
// This is nil until Register is called.
func (e *Extension) Engine() *issuance.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration and the
// campaign, builds the store and the engine, and registers the engine in
// the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	campaign, err := e.loadCampaign()
	if err != nil {
		return err
	}

	if e.store == nil {
		s, err := newStore(e.config.Driver, e.grove)
		if err != nil {
			return err
		}
		e.store = s
	}

	eng, err := issuance.New(campaign, e.store, e.buildLedgerOpts()...)
	if err != nil {
		return fmt.Errorf("issuance: build engine: %w", err)
	}
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*issuance.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension]. It replays the journal and starts
// the scheduler.
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("issuance: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if !e.config.DisableScheduler {
		sched, err := scheduler.New(context.WithoutCancel(ctx), e.engine,
			scheduler.WithReleaseSpec(e.config.ReleaseSchedule),
			scheduler.WithSnapshotSpec(e.config.SnapshotSpec),
		)
		if err != nil {
			return fmt.Errorf("issuance: scheduler: %w", err)
		}
		sched.Start()
		e.scheduler = sched
	}

	e.Logger().Info("issuance: ledger started",
		forge.F("sequence", e.engine.Sequence()),
		forge.F("phase", e.engine.Phase().String()),
		forge.F("scheduler", e.scheduler != nil),
	)

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.scheduler != nil {
		e.scheduler.Stop()
		e.scheduler = nil
	}
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension]. A ledger whose supply no longer
// matches its balances is unhealthy.
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil || e.engine == nil {
		return errors.New("issuance: extension not initialized")
	}
	if err := e.store.Ping(ctx); err != nil {
		return err
	}
	return e.engine.CheckConservation()
}

// buildLedgerOpts constructs issuance.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []issuance.Option {
	opts := make([]issuance.Option, 0, len(e.ledgerOpts)+1)

	if e.config.SnapshotEvery > 0 {
		opts = append(opts, issuance.WithSnapshotEvery(e.config.SnapshotEvery))
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// loadCampaign returns the programmatic campaign or loads CampaignFile.
func (e *Extension) loadCampaign() (issuance.Config, error) {
	if e.campaign != nil {
		return *e.campaign, nil
	}
	cfg, err := issuance.LoadConfig(e.config.CampaignFile)
	if err != nil {
		return issuance.Config{}, fmt.Errorf("issuance: load campaign %q: %w", e.config.CampaignFile, err)
	}
	return cfg, nil
}

// newStore builds the store for driver on db.
func newStore(driver string, db *grove.DB) (store.Store, error) {
	if driver == "" || driver == DriverMemory {
		return memory.New(), nil
	}
	if db == nil {
		return nil, fmt.Errorf("issuance: driver %q needs a grove database (WithGrove)", driver)
	}
	switch driver {
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("issuance: unknown store driver %q", driver)
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("issuance: configuration is required but not found in config files; " +
				"ensure 'extensions.issuance' or 'issuance' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("issuance: configuration loaded",
		forge.F("campaign_file", e.config.CampaignFile),
		forge.F("driver", e.config.Driver),
		forge.F("release_schedule", e.config.ReleaseSchedule),
		forge.F("snapshot_spec", e.config.SnapshotSpec),
		forge.F("snapshot_every", e.config.SnapshotEvery),
		forge.F("disable_scheduler", e.config.DisableScheduler),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.issuance", "issuance"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("issuance: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("issuance: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	if cfg.Driver == "" {
		cfg.Driver = DefaultConfig().Driver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableScheduler {
		yamlConfig.DisableScheduler = true
	}

	if yamlConfig.CampaignFile == "" {
		yamlConfig.CampaignFile = programmaticConfig.CampaignFile
	}
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.ReleaseSchedule == "" {
		yamlConfig.ReleaseSchedule = programmaticConfig.ReleaseSchedule
	}
	if yamlConfig.SnapshotSpec == "" {
		yamlConfig.SnapshotSpec = programmaticConfig.SnapshotSpec
	}
	if yamlConfig.SnapshotEvery == 0 {
		yamlConfig.SnapshotEvery = programmaticConfig.SnapshotEvery
	}

	return mergeWithDefaults(yamlConfig)
}
