package extension

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subscriptions/store/memory"
	"github.com/xraph/subscriptions/store/sqlite"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "wei", cfg.Currency)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
	assert.False(t, cfg.DisableMigrate)
	assert.False(t, cfg.EnableMetrics)
}

func TestOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := New(
		WithDisableMigrate(),
		WithCurrency("usd"),
		WithPluginTimeout(time.Second),
		WithSQLitePath("subs.db"),
		WithMetrics(reg),
		WithRequireConfig(true),
	)

	assert.True(t, e.config.DisableMigrate)
	assert.Equal(t, "usd", e.config.Currency)
	assert.Equal(t, time.Second, e.config.PluginTimeout)
	assert.Equal(t, "subs.db", e.config.SQLitePath)
	assert.True(t, e.config.EnableMetrics)
	assert.True(t, e.config.RequireConfig)
	assert.Same(t, reg, e.registerer)
	assert.Nil(t, e.Factory())
}

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{SQLitePath: "x.db"})
	assert.Equal(t, "wei", cfg.Currency)
	assert.Equal(t, 5*time.Second, cfg.PluginTimeout)
	assert.Equal(t, "x.db", cfg.SQLitePath)
}

func TestMergeConfigurations(t *testing.T) {
	e := New()

	yaml := Config{Currency: "eur"}
	programmatic := Config{
		Currency:       "usd",
		SQLitePath:     "prog.db",
		DisableMigrate: true,
		EnableMetrics:  true,
		PluginTimeout:  2 * time.Second,
	}

	cfg := e.mergeConfigurations(yaml, programmatic)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, "prog.db", cfg.SQLitePath)
	assert.True(t, cfg.DisableMigrate)
	assert.True(t, cfg.EnableMetrics)
	assert.Equal(t, 2*time.Second, cfg.PluginTimeout)
}

func TestOpenStore(t *testing.T) {
	e := New()
	s, err := e.openStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)

	e = New(WithSQLitePath(filepath.Join(t.TempDir(), "ext.db")))
	s, err = e.openStore(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	require.NoError(t, s.Close())
}

func TestBuildFactoryOpts(t *testing.T) {
	e := New(WithMetrics(prometheus.NewRegistry()))
	e.config = e.mergeWithDefaults(e.config)

	opts := e.buildFactoryOpts()
	// currency, plugin timeout, auto-migrate and the metrics plugin
	assert.Len(t, opts, 4)
}
