package cli

import (
	"fmt"

	"auctions/internal/repository"

	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if cfg.DB.Driver == repository.DriverMemory {
				return fmt.Errorf("migrate: the %s store has no schema", repository.DriverMemory)
			}

			store, err := openStore(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer store.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.DB.Driver)
			return nil
		},
	}
}
