package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// AccountStore is the part of the account store used inside a unit of work.
type AccountStore interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	CountByOwner(ctx context.Context, owner string) (int64, error)
	// LockOwner serializes the units that change the owner's chart of accounts.
	// The lock is released when the unit ends.
	LockOwner(ctx context.Context, owner string) error
	GetForUpdate(ctx context.Context, id int64) (domain.Account, error)
	RecomputeBalance(ctx context.Context, id int64) (domain.Account, error)
}

// JournalStore is the part of the journal store used inside a unit of work.
type JournalStore interface {
	AppendPair(ctx context.Context, transactionID, fromAccountID, toAccountID int64,
		amount decimal.Decimal) (credit, debit domain.JournalEntry, err error)
	ListByTransaction(ctx context.Context, transactionID int64) ([]domain.JournalEntry, error)
	DeleteForTransaction(ctx context.Context, transactionID int64) error
}

// TransactionStore is the part of the transaction store used inside a unit of work.
type TransactionStore interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (domain.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

// UnitOfWork gives access to the stores bound to one atomic unit.
type UnitOfWork interface {
	Accounts() AccountStore
	Entries() JournalStore
	Transactions() TransactionStore
}

// Store runs fn as a single all-or-nothing unit.
//
// When fn returns an error every write made through the unit is discarded
// and the error is returned unchanged.
type Store interface {
	ExecTx(ctx context.Context, fn func(UnitOfWork) error) error
}
