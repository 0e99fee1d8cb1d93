package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/appdotbuilder/personal-finance-manager-1934/cmd/httpserver"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	config, logger, err := loadConfig()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	var server *httpserver.Server

	if config.DBDriver == dbpkg.DriverMemory {
		logger.Warn().Msg("using in-memory storage, data is lost on restart")

		server, err = httpserver.NewInMemory(logger, config)
		if err != nil {
			logger.Error().Err(err).Msg("cannot create server")
			return err
		}
	} else {
		db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
		if err != nil {
			logger.Error().Err(err).Msg("cannot connect to database")
			return err
		}
		defer db.Close()

		if config.MigrateOnStart {
			if err := dbpkg.MigrateUp(db, config.DBName); err != nil {
				logger.Error().Err(err).Msg("cannot migrate database")
				return err
			}
		}

		server, err = httpserver.New(db, logger, config)
		if err != nil {
			logger.Error().Err(err).Msg("cannot create server")
			return err
		}
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("address", config.ServerAddress).Msg("LEDGER API SERVER HAS STARTED")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("cannot start server")
			return err
		}

		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
