// Package cmd provides the payimport CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/payimport/internal/config"
	"github.com/JonMunkholm/payimport/internal/logging"
)

var (
	envFile string
	debug   bool

	// cfg is loaded once by the root command before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "payimport",
	Short: "Import communal payment files",
	Long: `payimport reads CSV and XLSX communal payment files, validates every row,
upserts the valid payments in a single transaction and notifies payers and
lodgers about them.

Configuration comes from the environment (and an optional .env file).
IMPORT_DEFAULT_CURRENCY is required.

Example:
  payimport migrate
  payimport seed reference.yaml
  payimport import march.csv april.xlsx
  payimport serve`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load if present")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// setup loads .env and configuration, then installs a stderr logger so
// command output on stdout stays clean.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Overload(envFile); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		slog.Debug("no .env file found, using environment variables", "path", envFile)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	slog.SetDefault(logging.New(os.Stderr, level, cfg.Logging.Format))

	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}
