//go:build integration

package ledgerstore_test

import (
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledgerstore"

	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountservice"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/entryrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/integrationtest"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactionrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
)

func TestMain(m *testing.M) {
	os.Exit(integrationtest.RunMain(m))
}

type fixture struct {
	db       *sql.DB
	engine   *ledger.Engine
	accounts *accountrepo.RepoPGS
	owner    string
}

func newFixture(t *testing.T, driver string) fixture {
	t.Helper()

	db := integrationtest.SetupDB(t, driver)
	user := integrationtest.CreateRandomUser(t, db)

	return fixture{
		db:       db,
		engine:   ledger.New(ledgerstore.NewStorePGS(db), nil),
		accounts: accountrepo.NewRepoPGS(db),
		owner:    user.Username,
	}
}

func (f fixture) account(t *testing.T, name string) domain.Account {
	t.Helper()

	a, err := f.accounts.Create(context.Background(), domain.CreateAccountParams{
		Owner:   f.owner,
		Name:    name,
		Type:    domain.AccountTypeAsset,
		Subtype: domain.SubtypeBank,
	})
	require.NoError(t, err)

	return a
}

func (f fixture) params(from, to domain.Account, amount string) domain.PostTransactionParams {
	return domain.PostTransactionParams{
		Owner:           f.owner,
		FromAccountID:   from.ID,
		ToAccountID:     to.ID,
		Amount:          decimal.RequireFromString(amount),
		Description:     "transfer",
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f fixture) requireBalance(t *testing.T, a domain.Account, want string) {
	t.Helper()

	got, err := f.accounts.Get(context.Background(), a.ID)
	require.NoError(t, err)
	require.True(t, got.Balance.Equal(decimal.RequireFromString(want)),
		"account %v balance = %v, want %v", a.Name, got.Balance, want)
}

func (f fixture) requireGlobalBalance(t *testing.T) {
	t.Helper()

	debits, credits, err := entryrepo.NewRepoPGS(f.db).Totals(context.Background())
	require.NoError(t, err)
	require.True(t, debits.Equal(credits), "debits = %v, credits = %v", debits, credits)
}

func TestPostAndReverse(t *testing.T) {
	for _, driver := range []string{dbpkg.DriverPQ, dbpkg.DriverPGX} {
		driver := driver

		t.Run(driver, func(t *testing.T) {
			f := newFixture(t, driver)
			ctx := context.Background()

			a, b, c := f.account(t, "A"), f.account(t, "B"), f.account(t, "C")

			tr, err := f.engine.PostTransaction(ctx, f.params(a, b, "100.00"))
			require.NoError(t, err)
			require.Len(t, tr.Entries, 2)

			f.requireBalance(t, a, "-100.00")
			f.requireBalance(t, b, "100.00")
			f.requireGlobalBalance(t)

			require.NoError(t, f.engine.ReverseTransaction(ctx, tr))

			f.requireBalance(t, a, "0")
			f.requireBalance(t, b, "0")

			entries, err := entryrepo.NewRepoPGS(f.db).ListByTransaction(ctx, tr.ID)
			require.NoError(t, err)
			require.Empty(t, entries)

			_, err = f.engine.PostTransaction(ctx, f.params(a, b, "50.00"))
			require.NoError(t, err)
			_, err = f.engine.PostTransaction(ctx, f.params(b, c, "50.00"))
			require.NoError(t, err)

			f.requireBalance(t, a, "-50.00")
			f.requireBalance(t, b, "0")
			f.requireBalance(t, c, "50.00")
			f.requireGlobalBalance(t)

			err = f.engine.ReverseTransaction(ctx, tr)
			require.ErrorIs(t, err, domain.ErrTransactionNotFound)
		})
	}
}

func TestPostRejectedWithoutWrites(t *testing.T) {
	f := newFixture(t, dbpkg.DriverPQ)
	ctx := context.Background()

	a, b := f.account(t, "A"), f.account(t, "B")

	_, err := f.engine.PostTransaction(ctx, f.params(a, a, "10.00"))
	require.ErrorIs(t, err, domain.ErrSameAccount)

	_, err = f.engine.PostTransaction(ctx, f.params(a, b, "0"))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.engine.PostTransaction(ctx, f.params(a, domain.Account{ID: a.ID + 1000}, "10.00"))
	require.ErrorIs(t, err, domain.ErrAccountNotFound)

	n, err := transactionrepo.NewRepoPGS(f.db).Count(ctx, f.owner)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestConcurrentPostings(t *testing.T) {
	f := newFixture(t, dbpkg.DriverPQ)
	a, b := f.account(t, "A"), f.account(t, "B")

	const n = 10

	var wg sync.WaitGroup

	errs := make(chan error, 2*n)

	for i := 0; i < n; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			_, err := f.engine.PostTransaction(context.Background(), f.params(a, b, "10.00"))
			errs <- err
		}()

		go func() {
			defer wg.Done()
			_, err := f.engine.PostTransaction(context.Background(), f.params(b, a, "5.00"))
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	f.requireBalance(t, a, "-50.00")
	f.requireBalance(t, b, "50.00")
	f.requireGlobalBalance(t)
}

func TestConcurrentProvisioning(t *testing.T) {
	for _, driver := range []string{dbpkg.DriverPQ, dbpkg.DriverPGX} {
		driver := driver

		t.Run(driver, func(t *testing.T) {
			f := newFixture(t, driver)
			service := accountservice.New(f.accounts, ledgerstore.NewStorePGS(f.db))

			const callers = 6

			var wg sync.WaitGroup

			results := make(chan bool, callers)
			errs := make(chan error, callers)

			for i := 0; i < callers; i++ {
				wg.Add(1)

				go func() {
					defer wg.Done()

					ok, err := service.ProvisionIfEmpty(context.Background(), f.owner)
					results <- ok
					errs <- err
				}()
			}

			wg.Wait()
			close(results)
			close(errs)

			for err := range errs {
				require.NoError(t, err)
			}

			provisioned := 0
			for ok := range results {
				if ok {
					provisioned++
				}
			}

			require.Equal(t, 1, provisioned)

			n, err := f.accounts.CountByOwner(context.Background(), f.owner)
			require.NoError(t, err)
			require.EqualValues(t, len(domain.DefaultAccounts(f.owner)), n)
		})
	}
}
