package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/memstore"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/randompkg"
)

type fixture struct {
	store   *memstore.Store
	engine  *ledger.Engine
	owner   string
	a, b, c domain.Account
}

func newFixture(t *testing.T, publisher ledger.Publisher) fixture {
	t.Helper()

	ctx := context.Background()
	store := memstore.New()

	u, err := store.Users().Create(ctx, domain.CreateUserParams{
		Username: randompkg.Owner(),
		Email:    randompkg.Email(),
	})
	require.NoError(t, err)

	f := fixture{
		store:  store,
		engine: ledger.New(store, publisher),
		owner:  u.Username,
	}

	accounts := make([]domain.Account, 3)
	for i, name := range []string{"A", "B", "C"} {
		accounts[i], err = store.Accounts().Create(ctx, domain.CreateAccountParams{
			Owner:   u.Username,
			Name:    name,
			Type:    domain.AccountTypeAsset,
			Subtype: domain.SubtypeBank,
		})
		require.NoError(t, err)
	}

	f.a, f.b, f.c = accounts[0], accounts[1], accounts[2]

	return f
}

func (f fixture) post(t *testing.T, from, to domain.Account, amount string) domain.Transaction {
	t.Helper()

	tr, err := f.engine.PostTransaction(context.Background(), f.params(from, to, amount))
	require.NoError(t, err)

	return tr
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

func (f fixture) balance(t *testing.T, a domain.Account) decimal.Decimal {
	t.Helper()

	got, err := f.store.Accounts().Get(context.Background(), a.ID)
	require.NoError(t, err)

	return got.Balance
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()

	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

// checkInvariants asserts that every cached balance equals the sum of its
// account entries and that total debits equal total credits.
func (f fixture) checkInvariants(t *testing.T) {
	t.Helper()

	ctx := context.Background()

	accounts, err := f.store.Accounts().List(ctx, f.owner, false)
	require.NoError(t, err)

	for _, a := range accounts {
		entries, err := f.store.Entries().ListByAccount(ctx, a.ID)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Signed())
		}

		if !a.Balance.Equal(sum) {
			t.Errorf("account %v balance = %v, entries sum = %v", a.Name, a.Balance, sum)
		}
	}

	debits, credits, err := f.store.Entries().Totals(ctx)
	require.NoError(t, err)

	if !debits.Equal(credits) {
		t.Errorf("total debits = %v, total credits = %v, want equal", debits, credits)
	}
}

func TestPostTransaction(t *testing.T) {
	f := newFixture(t, nil)

	tr := f.post(t, f.a, f.b, "100.00")

	requireDecimal(t, "-100", f.balance(t, f.a))
	requireDecimal(t, "100", f.balance(t, f.b))

	require.NotZero(t, tr.ID)
	require.Equal(t, f.owner, tr.Owner)
	requireDecimal(t, "100", tr.Amount)
	require.Len(t, tr.Entries, 2)

	credit, debit := tr.Entries[0], tr.Entries[1]

	require.Equal(t, domain.EntryCredit, credit.Type)
	require.Equal(t, f.a.ID, credit.AccountID)
	requireDecimal(t, "100", credit.Amount)
	requireDecimal(t, "-100", credit.Account.Balance)

	require.Equal(t, domain.EntryDebit, debit.Type)
	require.Equal(t, f.b.ID, debit.AccountID)
	requireDecimal(t, "100", debit.Amount)
	requireDecimal(t, "100", debit.Account.Balance)

	f.checkInvariants(t)
}

func TestPostTransactionChain(t *testing.T) {
	f := newFixture(t, nil)

	f.post(t, f.a, f.b, "50.00")
	f.post(t, f.b, f.c, "50.00")

	requireDecimal(t, "-50", f.balance(t, f.a))
	requireDecimal(t, "0", f.balance(t, f.b))
	requireDecimal(t, "50", f.balance(t, f.c))

	f.checkInvariants(t)
}

func TestPostTransactionRejected(t *testing.T) {
	f := newFixture(t, nil)

	testCases := []struct {
		name    string
		arg     domain.PostTransactionParams
		wantErr error
	}{
		{
			name:    "ZeroAmount",
			arg:     f.params(f.a, f.b, "0"),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "NegativeAmount",
			arg:     f.params(f.a, f.b, "-10.00"),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "RoundsToZero",
			arg:     f.params(f.a, f.b, "0.004"),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name:    "SameAccount",
			arg:     f.params(f.a, f.a, "10.00"),
			wantErr: domain.ErrSameAccount,
		},
		{
			name:    "FromAccountNotFound",
			arg:     f.params(domain.Account{ID: 9999}, f.b, "10.00"),
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:    "ToAccountNotFound",
			arg:     f.params(f.a, domain.Account{ID: 9999}, "10.00"),
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			tr, err := f.engine.PostTransaction(context.Background(), tc.arg)
			require.ErrorIs(t, err, tc.wantErr)
			require.Empty(t, tr)

			n, err := f.store.Transactions().Count(context.Background(), f.owner)
			require.NoError(t, err)
			require.Zero(t, n)

			debits, credits, err := f.store.Entries().Totals(context.Background())
			require.NoError(t, err)
			require.True(t, debits.IsZero())
			require.True(t, credits.IsZero())

			requireDecimal(t, "0", f.balance(t, f.a))
			requireDecimal(t, "0", f.balance(t, f.b))
		})
	}
}

func TestPostTransactionRoundsAmount(t *testing.T) {
	f := newFixture(t, nil)

	tr := f.post(t, f.a, f.b, "10.005")

	requireDecimal(t, "10.01", tr.Amount)
	requireDecimal(t, "-10.01", f.balance(t, f.a))
	requireDecimal(t, "10.01", f.balance(t, f.b))
}

func TestPostTransactionOverwritesSeedBalance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	seeded, err := f.store.Accounts().Create(ctx, domain.CreateAccountParams{
		Owner:   f.owner,
		Name:    "Seeded",
		Type:    domain.AccountTypeAsset,
		Subtype: domain.SubtypeCash,
		Balance: decimal.NewFromInt(500),
	})
	require.NoError(t, err)
	requireDecimal(t, "500", seeded.Balance)

	f.post(t, f.a, seeded, "20.00")

	requireDecimal(t, "20", f.balance(t, seeded))
}

func TestReverseTransaction(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.post(t, f.c, f.a, "12.34")

	beforeA, beforeB := f.balance(t, f.a), f.balance(t, f.b)

	tr := f.post(t, f.a, f.b, "100.00")

	require.NoError(t, f.engine.ReverseTransaction(ctx, tr))

	require.True(t, f.balance(t, f.a).Equal(beforeA))
	require.True(t, f.balance(t, f.b).Equal(beforeB))

	entries, err := f.store.Entries().ListByTransaction(ctx, tr.ID)
	require.NoError(t, err)
	require.Empty(t, entries)

	_, err = f.store.Transactions().Get(ctx, tr.ID)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)

	f.checkInvariants(t)

	err = f.engine.ReverseTransaction(ctx, tr)
	require.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestEntryPairing(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	accounts := []domain.Account{f.a, f.b, f.c}

	var posted []domain.Transaction

	for i := 0; i < 30; i++ {
		from := accounts[randompkg.Intn(len(accounts))]
		to := accounts[(int(randompkg.Intn(len(accounts)-1))+1+indexOf(accounts, from))%len(accounts)]

		tr := f.post(t, from, to, randompkg.MoneyAmountBetween(1, 500).String())
		posted = append(posted, tr)

		if i%4 == 3 {
			victim := posted[0]
			posted = posted[1:]
			require.NoError(t, f.engine.ReverseTransaction(ctx, victim))
		}

		f.checkInvariants(t)
	}

	for _, tr := range posted {
		got, err := f.store.Transactions().Get(ctx, tr.ID)
		require.NoError(t, err)
		require.Len(t, got.Entries, 2)

		var debits, credits int

		for _, e := range got.Entries {
			require.True(t, e.Amount.Equal(got.Amount))

			switch e.Type {
			case domain.EntryDebit:
				debits++
			case domain.EntryCredit:
				credits++
			}
		}

		require.Equal(t, 1, debits)
		require.Equal(t, 1, credits)
		require.NotEqual(t, got.Entries[0].AccountID, got.Entries[1].AccountID)
	}
}

func indexOf(accounts []domain.Account, a domain.Account) int {
	for i := range accounts {
		if accounts[i].ID == a.ID {
			return i
		}
	}

	return -1
}

func TestConcurrentPostings(t *testing.T) {
	f := newFixture(t, nil)

	const n = 20

	var wg sync.WaitGroup

	errs := make(chan error, 2*n)

	for i := 0; i < n; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			_, err := f.engine.PostTransaction(context.Background(), f.params(f.a, f.b, "10.00"))
			errs <- err
		}()

		go func() {
			defer wg.Done()
			_, err := f.engine.PostTransaction(context.Background(), f.params(f.b, f.a, "5.00"))
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	requireDecimal(t, "-100", f.balance(t, f.a))
	requireDecimal(t, "100", f.balance(t, f.b))

	f.checkInvariants(t)
}

type failingStore struct {
	*memstore.Store
	err error
}

func (s failingStore) ExecTx(ctx context.Context, fn func(ledger.UnitOfWork) error) error {
	return s.Store.ExecTx(ctx, func(uow ledger.UnitOfWork) error {
		return fn(failingUnit{UnitOfWork: uow, err: s.err})
	})
}

type failingUnit struct {
	ledger.UnitOfWork
	err error
}

func (u failingUnit) Accounts() ledger.AccountStore {
	return failingAccounts{AccountStore: u.UnitOfWork.Accounts(), err: u.err}
}

type failingAccounts struct {
	ledger.AccountStore
	err error
}

func (a failingAccounts) RecomputeBalance(ctx context.Context, id int64) (domain.Account, error) {
	return domain.Account{}, a.err
}

func TestPostTransactionRollback(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tr := f.post(t, f.a, f.b, "40.00")

	errStorage := errors.New("disk is on fire")
	engine := ledger.New(failingStore{Store: f.store, err: errStorage}, nil)

	_, err := engine.PostTransaction(ctx, f.params(f.a, f.b, "10.00"))
	require.ErrorIs(t, err, errStorage)

	err = engine.ReverseTransaction(ctx, tr)
	require.ErrorIs(t, err, errStorage)

	n, err := f.store.Transactions().Count(ctx, f.owner)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	requireDecimal(t, "-40", f.balance(t, f.a))
	requireDecimal(t, "40", f.balance(t, f.b))

	f.checkInvariants(t)
}

func TestPublishEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := ledger.NewMockPublisher(ctrl)

	f := newFixture(t, publisher)
	ctx := context.Background()

	opts := []cmp.Option{
		cmpopts.IgnoreFields(domain.LedgerEvent{}, "TransactionID", "OccurredAt"),
		cmp.Comparer(func(x, y decimal.Decimal) bool { return x.Equal(y) }),
	}

	wantPosted := domain.LedgerEvent{
		Type:   domain.EventTransactionPosted,
		Owner:  f.owner,
		Amount: decimal.NewFromInt(25),
		Balances: []domain.BalanceChange{
			{AccountID: f.a.ID, Balance: decimal.NewFromInt(-25)},
			{AccountID: f.b.ID, Balance: decimal.NewFromInt(25)},
		},
	}

	wantReversed := domain.LedgerEvent{
		Type:   domain.EventTransactionReversed,
		Owner:  f.owner,
		Amount: decimal.NewFromInt(25),
		Balances: []domain.BalanceChange{
			{AccountID: f.a.ID, Balance: decimal.Zero},
			{AccountID: f.b.ID, Balance: decimal.Zero},
		},
	}

	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, got domain.LedgerEvent) error {
				if diff := cmp.Diff(wantPosted, got, opts...); diff != "" {
					t.Errorf("posted event mismatch (-want +got):\n%s", diff)
				}

				return nil
			}),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, got domain.LedgerEvent) error {
				if diff := cmp.Diff(wantReversed, got, opts...); diff != "" {
					t.Errorf("reversed event mismatch (-want +got):\n%s", diff)
				}

				return errors.New("broker is down")
			}),
	)

	tr := f.post(t, f.a, f.b, "25")

	require.NoError(t, f.engine.ReverseTransaction(ctx, tr))
}

func TestSlowPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := ledger.NewMockPublisher(ctrl)

	f := newFixture(t, nil)
	engine := ledger.New(f.store, publisher, ledger.WithPublishTimeout(20*time.Millisecond))

	var deadlines int

	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(2).
		DoAndReturn(func(ctx context.Context, _ domain.LedgerEvent) error {
			if _, ok := ctx.Deadline(); ok {
				deadlines++
			}

			<-ctx.Done()

			return ctx.Err()
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()

	tr, err := engine.PostTransaction(ctx, f.params(f.a, f.b, "10.00"))
	require.NoError(t, err)
	require.NoError(t, engine.ReverseTransaction(ctx, tr))

	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 2, deadlines)

	requireDecimal(t, "0", f.balance(t, f.a))
	requireDecimal(t, "0", f.balance(t, f.b))
}

func TestPublishAfterCallerCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	publisher := ledger.NewMockPublisher(ctrl)

	f := newFixture(t, nil)
	engine := ledger.New(f.store, publisher)

	ctx, cancel := context.WithCancel(context.Background())

	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Times(1).
		DoAndReturn(func(pctx context.Context, _ domain.LedgerEvent) error {
			cancel()
			require.NoError(t, pctx.Err())

			return nil
		})

	_, err := engine.PostTransaction(ctx, f.params(f.a, f.b, "10.00"))
	require.NoError(t, err)
}
