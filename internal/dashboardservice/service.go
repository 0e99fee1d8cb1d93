// Package dashboardservice builds the overview of an owner's ledger.
package dashboardservice

import (
	"context"
	"sort"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// AccountRepo provides the owner's accounts.
//
//go:generate mockgen -source service.go -destination service_mock.go -package dashboardservice
type AccountRepo interface {
	List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error)
}

// TransactionRepo provides the owner's transactions.
type TransactionRepo interface {
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
}

// Provisioner creates the default accounts of an owner without accounts.
type Provisioner interface {
	ProvisionIfEmpty(ctx context.Context, owner string) (bool, error)
}

// Service facilitates dashboard service layer logic.
type Service struct {
	accounts     AccountRepo
	transactions TransactionRepo
	provisioner  Provisioner
}

// New returns dashboard service.
func New(ar AccountRepo, tr TransactionRepo, p Provisioner) *Service {
	return &Service{
		accounts:     ar,
		transactions: tr,
		provisioner:  p,
	}
}

// Summary returns the active accounts ordered by subtype and name, the most
// recent transactions and the totals. Owners without accounts get the
// default chart of accounts first.
func (s *Service) Summary(ctx context.Context, owner string) (domain.Summary, error) {
	if _, err := s.provisioner.ProvisionIfEmpty(ctx, owner); err != nil {
		return domain.Summary{}, err
	}

	accounts, err := s.accounts.List(ctx, owner, true)
	if err != nil {
		return domain.Summary{}, err
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].Subtype != accounts[j].Subtype {
			return accounts[i].Subtype < accounts[j].Subtype
		}

		return accounts[i].Name < accounts[j].Name
	})

	recent, err := s.transactions.List(ctx, domain.ListTransactionsParams{
		Owner: owner,
		Limit: domain.RecentTransactionsLimit,
	})
	if err != nil {
		return domain.Summary{}, err
	}

	return domain.Summarize(accounts, recent), nil
}
