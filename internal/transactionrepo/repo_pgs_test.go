//go:build integration

package transactionrepo_test

import (
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactionrepo"

	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/entryrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/integrationtest"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
)

func TestMain(m *testing.M) {
	os.Exit(integrationtest.RunMain(m))
}

func TestCreateListDelete(t *testing.T) {
	db := integrationtest.SetupDB(t, dbpkg.DriverPQ)
	user := integrationtest.CreateRandomUser(t, db)
	ctx := context.Background()

	accounts := accountrepo.NewRepoPGS(db)
	entries := entryrepo.NewRepoPGS(db)
	repo := transactionrepo.NewRepoPGS(db)

	from, err := accounts.Create(ctx, domain.CreateAccountParams{
		Owner: user.Username, Name: "Cash", Type: domain.AccountTypeAsset, Subtype: domain.SubtypeCash,
	})
	require.NoError(t, err)

	to, err := accounts.Create(ctx, domain.CreateAccountParams{
		Owner: user.Username, Name: "Food", Type: domain.AccountTypeExpense, Subtype: domain.SubtypeExpenseCategory,
	})
	require.NoError(t, err)

	reference := "INV-1"
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var created []domain.Transaction

	for i := 0; i < 3; i++ {
		tr, err := repo.Create(ctx, domain.CreateTransactionParams{
			Owner:           user.Username,
			Description:     "groceries",
			Amount:          decimal.NewFromInt(int64(10 * (i + 1))),
			TransactionDate: day.AddDate(0, 0, -i),
			Reference:       &reference,
		})
		require.NoError(t, err)
		require.NotNil(t, tr.Reference)
		require.Equal(t, reference, *tr.Reference)
		require.Nil(t, tr.Notes)

		_, _, err = entries.AppendPair(ctx, tr.ID, from.ID, to.ID, tr.Amount)
		require.NoError(t, err)

		created = append(created, tr)
	}

	page, err := repo.List(ctx, domain.ListTransactionsParams{Owner: user.Username, Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, created[2].ID, page[0].ID)
	require.Equal(t, created[1].ID, page[1].ID)
	require.Len(t, page[0].Entries, 2)
	require.Equal(t, domain.EntryCredit, page[0].Entries[0].Type)
	require.Equal(t, from.ID, page[0].Entries[0].Account.ID)

	n, err := repo.Count(ctx, user.Username)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	got, err := repo.Get(ctx, created[0].ID)
	require.NoError(t, err)
	require.Len(t, got.Entries, 2)
	require.True(t, got.TransactionDate.Equal(day))

	require.NoError(t, repo.Delete(ctx, created[0].ID))

	left, err := entries.ListByTransaction(ctx, created[0].ID)
	require.NoError(t, err)
	require.Empty(t, left)

	err = repo.Delete(ctx, created[0].ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	_, err = repo.Get(ctx, created[0].ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestCreateAmountCheck(t *testing.T) {
	db := integrationtest.SetupDB(t, dbpkg.DriverPGX)
	user := integrationtest.CreateRandomUser(t, db)

	_, err := transactionrepo.NewRepoPGS(db).Create(context.Background(), domain.CreateTransactionParams{
		Owner:           user.Username,
		Description:     "nothing",
		Amount:          decimal.Zero,
		TransactionDate: time.Now(),
	})
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}
