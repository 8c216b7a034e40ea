package extension

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/store"
)

// Option configures the subscriptions Forge extension.
type Option func(*Extension)

// WithStore sets the store for the factory.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithFactoryOption passes a subscriptions.Option through to the factory.
func WithFactoryOption(opt subscriptions.Option) Option {
	return func(e *Extension) {
		e.factoryOpts = append(e.factoryOpts, opt)
	}
}

// WithPlugin registers a factory plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.factoryOpts = append(e.factoryOpts, subscriptions.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the default currency of new collections.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithSQLitePath opens a SQLite store at path when no store is given.
func WithSQLitePath(path string) Option {
	return func(e *Extension) { e.config.SQLitePath = path }
}

// WithMetrics registers the Prometheus metrics plugin on reg. A nil reg
// uses the default Prometheus registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Extension) {
		e.config.EnableMetrics = true
		e.registerer = reg
	}
}
