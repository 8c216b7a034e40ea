// Command subsctl manages subscription collections stored in a local SQLite
// database.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	subscriptions "github.com/xraph/subscriptions"
	audithook "github.com/xraph/subscriptions/audit_hook"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/store/sqlite"
	"github.com/xraph/subscriptions/types"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// app carries the state shared by every command of one invocation.
type app struct {
	configPath string
	caller     string

	cfg    *Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "subsctl",
		Short:         "Manage recurring subscription collections",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(a.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = newLogger(cfg.Log)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.String("db", "", "SQLite database path (default \"subscriptions.db\")")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.StringVar(&a.caller, "as", "", "address of the account performing the operation")

	root.AddCommand(
		newVersionCmd(),
		newCollectionCmd(a),
		newMintCmd(a),
		newRenewCmd(a),
		newEndCmd(a),
		newApproveCmd(a),
		newTransferCmd(a),
		newMerchantCmd(a),
		newTiersCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "subsctl %s\n", Version)
			if GitCommit != "unknown" {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", GitCommit)
			}
		},
	}
}

// withFactory opens the database, starts a factory over it and runs fn.
func (a *app) withFactory(ctx context.Context, fn func(f *subscriptions.Factory) error) error {
	s, err := sqlite.Open(ctx, a.cfg.Database)
	if err != nil {
		return err
	}

	opts := []subscriptions.Option{
		subscriptions.WithLogger(a.logger),
		subscriptions.WithCurrency(a.cfg.Currency),
		subscriptions.WithPluginTimeout(a.cfg.PluginTimeout),
	}
	if a.cfg.Audit {
		opts = append(opts, subscriptions.WithPlugin(audithook.New(a.auditRecorder(), audithook.WithLogger(a.logger))))
	}

	f := subscriptions.New(s, opts...)
	if err := f.Start(ctx); err != nil {
		_ = s.Close()
		return err
	}
	defer func() {
		if err := f.Stop(); err != nil {
			a.logger.Warn("closing store failed", "error", err)
		}
	}()

	return fn(f)
}

// withCollection resolves the collection named by rawID and runs fn.
func (a *app) withCollection(ctx context.Context, rawID string, fn func(c *subscriptions.Collection) error) error {
	collectionID, err := id.ParseCollectionID(rawID)
	if err != nil {
		return fmt.Errorf("invalid collection id %q: %w", rawID, err)
	}
	return a.withFactory(ctx, func(f *subscriptions.Factory) error {
		c, err := f.Collection(collectionID)
		if err != nil {
			return err
		}
		return fn(c)
	})
}

// auditRecorder writes audit events to the structured log.
func (a *app) auditRecorder() audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
		a.logger.Info("audit",
			"id", evt.ID.String(),
			"action", evt.Action,
			"resource", evt.Resource,
			"resource_id", evt.ResourceID,
			"actor", evt.Actor,
			"outcome", evt.Outcome,
			"severity", evt.Severity,
			"reason", evt.Reason,
		)
		return nil
	})
}

// callerAddress returns the --as address. Every state-changing command
// needs one.
func (a *app) callerAddress() (types.Address, error) {
	if a.caller == "" {
		return types.ZeroAddress, fmt.Errorf("--as is required")
	}
	addr, err := types.ParseAddress(a.caller)
	if err != nil {
		return types.ZeroAddress, fmt.Errorf("invalid --as address: %w", err)
	}
	return addr, nil
}
