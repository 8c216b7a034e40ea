package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the subsctl configuration. Values come from, in increasing
// precedence: defaults, the YAML file named by --config, SUBSCTL_* environment
// variables and command line flags.
type Config struct {
	Database      string        `mapstructure:"database" validate:"required"`
	Currency      string        `mapstructure:"currency" validate:"required,alphanum,lowercase"`
	PluginTimeout time.Duration `mapstructure:"plugin_timeout" validate:"gte=0"`
	Audit         bool          `mapstructure:"audit"`
	Log           LogConfig     `mapstructure:"log"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", "subscriptions.db")
	v.SetDefault("currency", "wei")
	v.SetDefault("plugin_timeout", "5s")
	v.SetDefault("audit", false)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// loadConfig reads the configuration file at path (optional) and merges
// environment variables and the bound flags on top.
func loadConfig(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SUBSCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for key, flag := range map[string]string{
		"database":   "db",
		"log.level":  "log-level",
		"log.format": "log-format",
	} {
		if f := flags.Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	cfg.Currency = strings.ToLower(strings.TrimSpace(cfg.Currency))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// newLogger builds the slog logger described by cfg, writing to stderr.
func newLogger(cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
