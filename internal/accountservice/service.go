// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int64) (domain.Account, error)
	List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error)
	Deactivate(ctx context.Context, id int64) (domain.Account, error)
}

// Service facilitates account service layer logic.
type Service struct {
	repo  Repo
	store ledger.Store
}

// New returns account service struct to manage account bussines logic.
// Provisioning runs in units of work of the store.
func New(ar Repo, store ledger.Store) *Service {
	return &Service{repo: ar, store: store}
}

// Create validates and creates the account for the owner in the params.
func (s *Service) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if err := arg.Validate(); err != nil {
		return domain.Account{}, err
	}

	return s.repo.Create(ctx, arg)
}

// Get returns the owner's account with the given id.
func (s *Service) Get(ctx context.Context, owner string, id int64) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.Owner != owner {
		zerolog.Ctx(ctx).Warn().Int64("account_id", id).Str("owner", owner).Msg("account owner mismatch")
		return domain.Account{}, domain.ErrAccountOwnerMismatch
	}

	return account, nil
}

// List returns the accounts owned by the given user ordered by type and name.
func (s *Service) List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error) {
	return s.repo.List(ctx, owner, activeOnly)
}

// Deactivate marks the owner's account inactive. Its history is kept.
func (s *Service) Deactivate(ctx context.Context, owner string, id int64) (domain.Account, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return domain.Account{}, err
	}

	return s.repo.Deactivate(ctx, id)
}

// ProvisionDefaultAccounts creates the starter chart of accounts for the owner
// in one unit of work: either all the accounts are created or none.
//
// It does not check for existing accounts, so calling it twice creates a
// second set. Use ProvisionIfEmpty to provision only new owners.
func (s *Service) ProvisionDefaultAccounts(ctx context.Context, owner string) ([]domain.Account, error) {
	return s.provision(ctx, owner, false)
}

// ProvisionIfEmpty provisions the default accounts when the owner has none
// and reports whether it did. Concurrent calls for one owner provision once.
func (s *Service) ProvisionIfEmpty(ctx context.Context, owner string) (bool, error) {
	accounts, err := s.provision(ctx, owner, true)
	if err != nil {
		return false, err
	}

	return len(accounts) > 0, nil
}

func (s *Service) provision(ctx context.Context, owner string, onlyIfEmpty bool) ([]domain.Account, error) {
	defaults := domain.DefaultAccounts(owner)

	var accounts []domain.Account

	err := s.store.ExecTx(ctx, func(uow ledger.UnitOfWork) error {
		accounts = make([]domain.Account, 0, len(defaults))

		if err := uow.Accounts().LockOwner(ctx, owner); err != nil {
			return err
		}

		if onlyIfEmpty {
			n, err := uow.Accounts().CountByOwner(ctx, owner)
			if err != nil {
				return err
			}

			if n > 0 {
				return nil
			}
		}

		for _, arg := range defaults {
			a, err := uow.Accounts().Create(ctx, arg)
			if err != nil {
				return err
			}

			accounts = append(accounts, a)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(accounts) > 0 {
		zerolog.Ctx(ctx).Info().Str("owner", owner).Int("accounts", len(accounts)).Msg("default accounts provisioned")
	}

	return accounts, nil
}
