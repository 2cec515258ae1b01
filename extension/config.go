package extension

// Store drivers accepted in Config.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the issuance extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.issuance" or "issuance" keys).
type Config struct {
	// CampaignFile is the YAML campaign definition handed to
	// issuance.LoadConfig. ISSUANCE_* environment variables override it.
	CampaignFile string `json:"campaign_file" mapstructure:"campaign_file" yaml:"campaign_file"`

	// Driver selects the store built around the grove database given with
	// WithGrove: memory, sqlite, postgres or mongo (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// ReleaseSchedule is a cron spec for a recurring eager release job.
	// When empty, locked balances are released once at the unlock time.
	ReleaseSchedule string `json:"release_schedule" mapstructure:"release_schedule" yaml:"release_schedule"`

	// SnapshotSpec is a cron spec for periodic snapshots. Empty disables.
	SnapshotSpec string `json:"snapshot_spec" mapstructure:"snapshot_spec" yaml:"snapshot_spec"`

	// SnapshotEvery writes a snapshot after every n entries, overriding
	// the campaign file when non-zero.
	SnapshotEvery uint64 `json:"snapshot_every" mapstructure:"snapshot_every" yaml:"snapshot_every"`

	// DisableScheduler prevents the cron jobs from starting.
	DisableScheduler bool `json:"disable_scheduler" mapstructure:"disable_scheduler" yaml:"disable_scheduler"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver: DriverMemory,
	}
}
