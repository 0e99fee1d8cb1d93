package cmd

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
)

var downSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(dbpkg.MigrateUp)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB, dbName string) error {
			return dbpkg.MigrateDown(db, dbName, downSteps)
		})
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func withDB(fn func(db *sql.DB, dbName string) error) error {
	config, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	if config.DBDriver == dbpkg.DriverMemory {
		return errors.New("migrations require a postgres driver")
	}

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Error().Err(err).Msg("cannot connect to database")
		return err
	}
	defer db.Close()

	if err := fn(db, config.DBName); err != nil {
		logger.Error().Err(err).Send()
		return err
	}

	logger.Info().Msg("migrations done")

	return nil
}
