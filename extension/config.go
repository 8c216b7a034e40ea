package extension

import "time"

// Config holds the subscriptions extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.subscriptions" or
// "subscriptions" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Currency is the default currency of new collections (default: "wei").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// SQLitePath, when set and no store was given programmatically, opens a
	// SQLite store at this path. Otherwise an in-memory store is used.
	SQLitePath string `json:"sqlite_path" mapstructure:"sqlite_path" yaml:"sqlite_path"`

	// EnableMetrics registers the Prometheus metrics plugin.
	EnableMetrics bool `json:"enable_metrics" mapstructure:"enable_metrics" yaml:"enable_metrics"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:      "wei",
		PluginTimeout: 5 * time.Second,
	}
}
