// Package transactionservice manages business logic layer of transactions.
//
// It scopes every operation to the authenticated owner and delegates the
// ledger mutations to the posting engine.
package transactionservice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// Repo provides data access layer interface needed by transaction service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transactionservice
type Repo interface {
	Get(ctx context.Context, id int64) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	Count(ctx context.Context, owner string) (int64, error)
}

// AccountGetter provides access to the accounts referenced by transactions.
type AccountGetter interface {
	Get(ctx context.Context, id int64) (domain.Account, error)
}

// Ledger posts and reverses transactions atomically.
type Ledger interface {
	PostTransaction(ctx context.Context, arg domain.PostTransactionParams) (domain.Transaction, error)
	ReverseTransaction(ctx context.Context, t domain.Transaction) error
}

// Service facilitates transaction service layer logic.
type Service struct {
	repo     Repo
	accounts AccountGetter
	ledger   Ledger
}

// New returns transaction service struct to manage transaction bussines logic.
func New(tr Repo, ag AccountGetter, lg Ledger) *Service {
	return &Service{
		repo:     tr,
		accounts: ag,
		ledger:   lg,
	}
}

// Post records the transfer after checking that both accounts belong to arg.Owner.
func (s *Service) Post(ctx context.Context, arg domain.PostTransactionParams) (domain.Transaction, error) {
	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	for _, id := range []int64{arg.FromAccountID, arg.ToAccountID} {
		account, err := s.accounts.Get(ctx, id)
		if err != nil {
			return domain.Transaction{}, err
		}

		if account.Owner != arg.Owner {
			zerolog.Ctx(ctx).Warn().Int64("account_id", id).Str("owner", arg.Owner).Msg("account owner mismatch")
			return domain.Transaction{}, domain.ErrAccountOwnerMismatch
		}
	}

	return s.ledger.PostTransaction(ctx, arg)
}

// Get returns the owner's transaction with its entries.
func (s *Service) Get(ctx context.Context, owner string, id int64) (domain.Transaction, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	if t.Owner != owner {
		zerolog.Ctx(ctx).Warn().Int64("transaction_id", id).Str("owner", owner).Msg("transaction owner mismatch")
		return domain.Transaction{}, domain.ErrTransactionOwnerMismatch
	}

	return t, nil
}

// Reverse deletes the owner's transaction and restores the balances it changed.
func (s *Service) Reverse(ctx context.Context, owner string, id int64) error {
	t, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}

	return s.ledger.ReverseTransaction(ctx, t)
}

// List returns the page of the owner's transactions, latest recorded first.
// Page ids start at 1, zero values fall back to the first page of DefaultPageSize.
func (s *Service) List(ctx context.Context, owner string, pageID, pageSize int32) (domain.TransactionPage, error) {
	if pageID < 1 {
		pageID = 1
	}

	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}

	transactions, err := s.repo.List(ctx, domain.ListTransactionsParams{
		Owner:  owner,
		Limit:  pageSize,
		Offset: int64(pageID-1) * int64(pageSize),
	})
	if err != nil {
		return domain.TransactionPage{}, err
	}

	total, err := s.repo.Count(ctx, owner)
	if err != nil {
		return domain.TransactionPage{}, err
	}

	return domain.TransactionPage{
		Transactions: transactions,
		Total:        total,
		PageID:       pageID,
		PageSize:     pageSize,
	}, nil
}
