// Package memstore provides an in-memory implementation of the ledger stores.
//
// A single lock guards all the records. A unit of work holds the lock for
// its whole duration and restores a snapshot taken at its start when it fails,
// so units are serialized and all-or-nothing.
package memstore

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
)

// Store keeps users, accounts, transactions and journal entries in memory.
type Store struct {
	mu   sync.RWMutex
	data state
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// ExecTx runs fn as one unit of work.
func (s *Store) ExecTx(ctx context.Context, fn func(ledger.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()

	if err := fn(unit{st: &s.data}); err != nil {
		s.data = snapshot
		return err
	}

	return nil
}

type unit struct {
	st *state
}

func (u unit) Accounts() ledger.AccountStore         { return unitAccounts(u) }
func (u unit) Entries() ledger.JournalStore          { return unitEntries(u) }
func (u unit) Transactions() ledger.TransactionStore { return unitTransactions(u) }

type unitAccounts unit

func (u unitAccounts) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	return u.st.createAccount(arg)
}

func (u unitAccounts) CountByOwner(ctx context.Context, owner string) (int64, error) {
	return u.st.countAccounts(owner), nil
}

// LockOwner is a no-op: a unit already holds the store lock.
func (u unitAccounts) LockOwner(ctx context.Context, owner string) error {
	return nil
}

func (u unitAccounts) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return u.st.getAccount(id)
}

func (u unitAccounts) RecomputeBalance(ctx context.Context, id int64) (domain.Account, error) {
	return u.st.recomputeBalance(id)
}

type unitEntries unit

func (u unitEntries) AppendPair(ctx context.Context, transactionID, fromAccountID, toAccountID int64,
	amount decimal.Decimal) (domain.JournalEntry, domain.JournalEntry, error) {
	return u.st.appendPair(transactionID, fromAccountID, toAccountID, amount)
}

func (u unitEntries) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.JournalEntry, error) {
	return u.st.entriesOf(transactionID), nil
}

func (u unitEntries) DeleteForTransaction(ctx context.Context, transactionID int64) error {
	u.st.deleteEntries(transactionID)
	return nil
}

type unitTransactions unit

func (u unitTransactions) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	return u.st.createTransaction(arg)
}

func (u unitTransactions) GetForUpdate(ctx context.Context, id int64) (domain.Transaction, error) {
	return u.st.getTransaction(id)
}

func (u unitTransactions) Delete(ctx context.Context, id int64) error {
	return u.st.deleteTransaction(id)
}

// Users returns the user repository backed by the store.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Accounts returns the account repository backed by the store.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s: s} }

// Transactions returns the transaction repository backed by the store.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Entries returns the journal entry repository backed by the store.
func (s *Store) Entries() *EntryRepo { return &EntryRepo{s: s} }

// UserRepo manages users kept in the Store.
type UserRepo struct{ s *Store }

// Create creates the user and then returns it.
func (r *UserRepo) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.data.createUser(arg)
}

// Get returns the user with the given username.
func (r *UserRepo) Get(ctx context.Context, username string) (domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.getUser(username)
}

// AccountRepo manages accounts kept in the Store.
type AccountRepo struct{ s *Store }

// Create validates the params, creates the account and then returns it.
func (r *AccountRepo) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.data.createAccount(arg)
}

// Get returns the account with the given id.
func (r *AccountRepo) Get(ctx context.Context, id int64) (domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.getAccount(id)
}

// List returns the accounts of the owner ordered by type and name.
func (r *AccountRepo) List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.listAccounts(owner, activeOnly), nil
}

// CountByOwner returns the number of accounts the owner has.
func (r *AccountRepo) CountByOwner(ctx context.Context, owner string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.countAccounts(owner), nil
}

// Deactivate marks the account inactive.
func (r *AccountRepo) Deactivate(ctx context.Context, id int64) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.data.deactivateAccount(id)
}

// RecomputeBalance regenerates the cached balance of the account from its entries.
func (r *AccountRepo) RecomputeBalance(ctx context.Context, id int64) (domain.Account, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.data.recomputeBalance(id)
}

// TransactionRepo reads transactions kept in the Store.
type TransactionRepo struct{ s *Store }

// Get returns the transaction with the given id and its entries.
func (r *TransactionRepo) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, err := r.s.data.getTransaction(id)
	if err != nil {
		return t, err
	}

	t.Entries = r.s.data.entriesOf(id)

	return t, nil
}

// List returns a page of the owner transactions, latest recorded first.
func (r *TransactionRepo) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.listTransactions(arg), nil
}

// Count returns the number of the owner transactions.
func (r *TransactionRepo) Count(ctx context.Context, owner string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.countTransactions(owner), nil
}

// EntryRepo reads journal entries kept in the Store.
type EntryRepo struct{ s *Store }

// ListByAccount returns the full entry history of the account.
func (r *EntryRepo) ListByAccount(ctx context.Context, accountID int64) ([]domain.JournalEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.entriesOfAccount(accountID), nil
}

// ListByTransaction returns the entries of the transaction with their accounts attached.
func (r *EntryRepo) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.JournalEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.data.entriesOf(transactionID), nil
}

// Totals returns the ledger-wide sums of debit and credit entries.
func (r *EntryRepo) Totals(ctx context.Context) (debits, credits decimal.Decimal, err error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	debits, credits = r.s.data.totals()

	return debits, credits, nil
}
