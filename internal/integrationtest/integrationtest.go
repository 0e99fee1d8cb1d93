//go:build integration

// Package integrationtest provides db helpers used in integration tests.
//
// Every test package runs against its own disposable Postgres container
// started from TestMain with RunMain.
package integrationtest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/appdotbuilder/personal-finance-manager-1934/cmd/httpserver"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/middleware"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/userrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/configpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/passpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/randompkg"
)

const (
	dbName     = "ledger"
	dbUser     = "ledger"
	dbPassword = "secret"
	image      = "postgres:16-alpine"
)

// Source is the connection string of the container started by RunMain.
var Source string

// StartPostgres starts a disposable Postgres container, migrates it up and
// returns its connection string plus a teardown function.
func StartPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpostgres.Run(ctx,
		image,
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(dbUser),
		tcpostgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres container: %w", err)
	}

	terminate := func() {
		if err := container.Terminate(context.Background()); err != nil {
			log.Printf("terminate postgres container: %v", err)
		}
	}

	source, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return "", nil, fmt.Errorf("container connection string: %w", err)
	}

	db, err := dbpkg.Setup(dbpkg.DriverPQ, source)
	if err != nil {
		terminate()
		return "", nil, err
	}
	defer db.Close()

	if err := dbpkg.MigrateUp(db, dbName); err != nil {
		terminate()
		return "", nil, err
	}

	return source, terminate, nil
}

// RunMain starts the package container, runs the tests and tears the container down.
//
// Usage: func TestMain(m *testing.M) { os.Exit(integrationtest.RunMain(m)) }
func RunMain(m *testing.M) int {
	source, terminate, err := StartPostgres(context.Background())
	if err != nil {
		log.Printf("cannot start test database: %v", err)
		return 1
	}
	defer terminate()

	Source = source

	return m.Run()
}

// Config returns the application config pointing at the test container.
func Config() configpkg.Config {
	return configpkg.Config{
		DBDriver:            dbpkg.DriverPQ,
		DBSource:            Source,
		DBName:              dbName,
		ServerAddress:       "127.0.0.1:0",
		TokenSymmetricKey:   randompkg.String(32),
		AccessTokenDuration: time.Minute,
		Environement:        "test",
	}
}

// SetupServer returns test server that cleans up database after each integration test.
func SetupServer(t *testing.T) *httpserver.Server {
	t.Helper()

	config := Config()

	zerolog.SetGlobalLevel(zerolog.FatalLevel)

	logger := middleware.CreateLogger(config)

	db := SetupDB(t, config.DBDriver)

	gin.SetMode(gin.ReleaseMode)

	server, err := httpserver.New(db, logger, config)
	if err != nil {
		t.Fatalf(`httpserver.New(db, logger, config) returned error: %v`, err)
	}

	return server
}

// Flush truncates all the application tables keeping the migration state.
func Flush(t *testing.T, db *sql.DB) {
	t.Helper()

	var tables string

	const query = `
	SELECT string_agg(table_name, ', ')
	FROM information_schema.tables
	WHERE table_schema = 'public' AND table_name <> 'schema_migrations';`

	if err := db.QueryRow(query).Scan(&tables); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}

	if _, err := db.Exec(`TRUNCATE TABLE ` + tables + ` RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("db cleanup failed. err: %v", err)
	}
}

// SetupDB connects to the test container with the given driver and
// flushes the tables once the test is complete.
func SetupDB(t *testing.T, driver string) *sql.DB {
	t.Helper()

	db, err := dbpkg.Setup(driver, Source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	t.Cleanup(func() {
		Flush(t, db)

		if err := db.Close(); err != nil {
			t.Fatalf("db cleanup failed. err: %v", err)
		}
	})

	return db
}

// SetupTX sets up a database transaction to be used in tests.
//
// Once the tests are done it will rollback the transaction.
func SetupTX(t *testing.T) *sql.Tx {
	t.Helper()

	db, err := dbpkg.Setup(dbpkg.DriverPQ, Source)
	if err != nil {
		t.Fatalf("db initialization failed. err: %v", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("db.Begin() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := tx.Rollback(); err != nil {
			t.Fatalf("tx.Rollback() failed: %v", err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("db.Close() failed: %v", err)
		}
	})

	return tx
}

// CreateRandomUser inserts a random user and returns it.
func CreateRandomUser(t *testing.T, db dbpkg.SQLInterface) domain.User {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(10))
	if err != nil {
		t.Fatalf("passpkg.Hash() returned error: %v", err)
	}

	arg := domain.CreateUserParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		FullName:       randompkg.Owner(),
		Email:          randompkg.Email(),
	}

	user, err := userrepo.NewRepoPGS(db).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userrepo.Create(%+v) returned error: %v", arg, err)
	}

	return user
}
