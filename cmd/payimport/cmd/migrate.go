package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Apply all pending migrations and make sure the default currency
(IMPORT_DEFAULT_CURRENCY) exists. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, closeStore, err := openStore(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer closeStore()

		cur, err := store.EnsureCurrency(ctx, cfg.Import.DefaultCurrency)
		if err != nil {
			return fmt.Errorf("ensure default currency: %w", err)
		}

		slog.Info("database ready", "driver", cfg.Database.Driver, "currency", cur.Code)
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied, default currency %s (id %d)\n", cur.Code, cur.ID)
		return nil
	},
}
