// Package cmd provides CLI commands for the ledger server.
package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/configpkg"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Personal double-entry ledger",
	Long: `ledger serves the personal finance API: accounts, transactions posted as
balanced journal entry pairs, and a dashboard summary.

Example:
  ledger migrate up
  ledger serve --config ./configs`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs", "directory holding app.env")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func loadConfig() (configpkg.Config, zerolog.Logger, error) {
	config, err := configpkg.Load(configPath)
	if err != nil {
		return config, zerolog.Nop(), err
	}

	return config, middleware.CreateLogger(config), nil
}
