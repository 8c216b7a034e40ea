// Package extension provides the Forge extension adapter for subscription
// collections.
//
// It implements the forge.Extension interface to integrate the factory
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions or via
// YAML configuration files under "extensions.subscriptions" or
// "subscriptions" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/observability"
	"github.com/xraph/subscriptions/store"
	"github.com/xraph/subscriptions/store/memory"
	"github.com/xraph/subscriptions/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "subscriptions"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Recurring subscription collections with merchant governance"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the subscriptions factory as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	factory     *subscriptions.Factory
	store       store.Store
	registerer  prometheus.Registerer
	factoryOpts []subscriptions.Option
}

// New creates a new subscriptions Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Factory returns the underlying factory.
// This is nil until Register is called.
func (e *Extension) Factory() *subscriptions.Factory { return e.factory }

// Register implements [forge.Extension]. It loads configuration,
// initializes the factory, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := e.openStore(context.Background())
		if err != nil {
			return err
		}
		e.store = s
	}

	e.factory = subscriptions.New(e.store, e.buildFactoryOpts()...)

	return vessel.Provide(fapp.Container(), func() (*subscriptions.Factory, error) {
		return e.factory, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.factory == nil {
		return errors.New("subscriptions: extension not initialized")
	}

	if err := e.factory.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.factory != nil {
		if err := e.factory.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("subscriptions: store not initialized")
	}
	return e.store.Ping(ctx)
}

// openStore builds the store named by the configuration.
func (e *Extension) openStore(ctx context.Context) (store.Store, error) {
	if e.config.SQLitePath == "" {
		return memory.New(), nil
	}
	s, err := sqlite.Open(ctx, e.config.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("subscriptions: open sqlite store: %w", err)
	}
	return s, nil
}

// buildFactoryOpts constructs subscriptions.Option values from the resolved config.
func (e *Extension) buildFactoryOpts() []subscriptions.Option {
	opts := make([]subscriptions.Option, 0, len(e.factoryOpts)+4)

	opts = append(opts,
		subscriptions.WithCurrency(e.config.Currency),
		subscriptions.WithPluginTimeout(e.config.PluginTimeout),
		subscriptions.WithAutoMigrate(!e.config.DisableMigrate),
	)

	if e.config.EnableMetrics {
		factory := observability.NewPrometheusFactory(e.registerer)
		opts = append(opts, subscriptions.WithPlugin(observability.NewMetricsExtension(factory)))
	}

	// Append any pass-through factory options.
	opts = append(opts, e.factoryOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("subscriptions: configuration is required but not found in config files; " +
				"ensure 'extensions.subscriptions' or 'subscriptions' key exists in your config")
		}

		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("subscriptions: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("plugin_timeout", e.config.PluginTimeout),
		forge.F("sqlite_path", e.config.SQLitePath),
		forge.F("enable_metrics", e.config.EnableMetrics),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.subscriptions", "subscriptions"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("subscriptions: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("subscriptions: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.EnableMetrics {
		yamlConfig.EnableMetrics = true
	}

	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.SQLitePath == "" && programmaticConfig.SQLitePath != "" {
		yamlConfig.SQLitePath = programmaticConfig.SQLitePath
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return e.mergeWithDefaults(yamlConfig)
}
