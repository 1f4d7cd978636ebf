// Package cli implements collabhub-ctl, the operator command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unclebandit/collabhub-backend/internal/app"
	"github.com/unclebandit/collabhub-backend/internal/config"
	"github.com/unclebandit/collabhub-backend/internal/db"
	"github.com/unclebandit/collabhub-backend/internal/logger"
	"github.com/unclebandit/collabhub-backend/internal/repository"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	DSN     string

	cfg config.Config
	log *logrus.Logger

	// openStore is replaced in tests.
	openStore func(ctx context.Context, opts *RootOptions) (repository.Store, func(), error)
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{openStore: openPostgres})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "collabhub-ctl",
		Short:         "Operator tooling for the collabhub backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.DSN != "" {
				cfg.DatabaseURL = opts.DSN
			}
			level := cfg.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			opts.cfg = cfg
			opts.log = logger.New(level, cfg.LogFormat)
			opts.log.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database URL (overrides DATABASE_URL)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewGrantCommand(opts))
	cmd.AddCommand(NewVerifyLedgerCommand(opts))
	cmd.AddCommand(NewCreateAdminCommand(opts))

	return cmd
}

func openPostgres(ctx context.Context, opts *RootOptions) (repository.Store, func(), error) {
	conn, err := openDB(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewPostgresStore(conn), func() { conn.Close() }, nil
}

func openDB(ctx context.Context, opts *RootOptions) (*sql.DB, error) {
	conn, err := db.Open(ctx, opts.cfg.DSN(), opts.cfg.DBMaxOpenConns, opts.log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return conn, nil
}

// withApp opens storage, builds the services and runs fn.
func withApp(ctx context.Context, opts *RootOptions, fn func(a *app.App) error) error {
	store, closeFn, err := opts.openStore(ctx, opts)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(app.New(opts.cfg, store, nil, nil, opts.log))
}
