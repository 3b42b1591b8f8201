package cli

import (
	"context"
	"fmt"
	"os"

	"auctions/internal/config"
	"auctions/internal/repository"
	"auctions/utils"

	"github.com/spf13/cobra"
)

// Version can be set at build time using ldflags
var Version = "dev"

// options are the flags shared by every subcommand; they override the environment
type options struct {
	driver string
	dsn    string
}

// NewRootCommand builds the auctions command tree
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "auctions",
		Short:         "Online auction listings server",
		Long:          `Runs the auction web application and its maintenance tasks: schema migration, user creation and fixture seeding.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.driver, "db-driver", "", "store driver (sqlite, postgres, mysql, memory); overrides DB_DRIVER")
	root.PersistentFlags().StringVar(&opts.dsn, "db-dsn", "", "store connection string; overrides DB_DSN")

	root.AddCommand(newServeCommand(opts))
	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newUserAddCommand(opts))
	root.AddCommand(newSeedCommand(opts))
	return root
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment, applies flag overrides and configures logging
func loadConfig(ctx context.Context, opts *options) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if opts.driver != "" {
		cfg.DB.Driver = opts.driver
	}
	if opts.dsn != "" {
		cfg.DB.DSN = opts.dsn
	}
	if err := utils.ConfigureLogger(cfg.LogLevel, !cfg.Production()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured store and brings its schema up to date
func openStore(ctx context.Context, cfg config.DBConfig) (repository.AuctionDB, error) {
	if cfg.Driver == repository.DriverMemory {
		return repository.NewMemoryRepo(), nil
	}

	repo, err := repository.Open(ctx, cfg.Driver, cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}
