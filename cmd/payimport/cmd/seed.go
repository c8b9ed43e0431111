package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/payimport/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load reference data from a YAML file",
	Long: `Create or update currencies, users, apartments and lodgers from a
YAML document:

  currencies: [UAH, EUR]
  users:
    - email: jane@example.com
      name: Jane Doe
  apartments:
    - account_number: ACC-100
      label: "12"
      building: Tower A
      lodgers: [jane@example.com]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := seed.Load(args[0])
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(ctx, cfg, cfg.Database.AutoMigrate)
		if err != nil {
			return err
		}
		defer closeStore()

		sum, err := seed.Apply(ctx, store, data)
		if err != nil {
			return fmt.Errorf("seed %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d currencies, %d users, %d apartments, %d lodgers\n",
			sum.Currencies, sum.Users, sum.Apartments, sum.Lodgers)
		return nil
	},
}
