// Package ledgerstore runs ledger units of work inside Postgres transactions.
package ledgerstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/accountrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/entryrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/ledger"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/transactionrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
)

// StorePGS facilitates ledger units of work over a database connection.
type StorePGS struct {
	conn *sql.DB
}

// NewStorePGS returns StorePGS with connection to start transactions.
func NewStorePGS(conn *sql.DB) *StorePGS {
	return &StorePGS{conn: conn}
}

// ExecTx executes fn within a database transaction.
//
// The repositories handed to fn are bound to the transaction. It is
// committed when fn returns nil and rolled back otherwise.
func (s *StorePGS) ExecTx(ctx context.Context, fn func(ledger.UnitOfWork) error) error {
	l := zerolog.Ctx(ctx)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Msg("rollback")
		}
	}()

	uow := unit{
		accounts:     accountrepo.NewRepoPGS(tx),
		entries:      entryrepo.NewRepoPGS(tx),
		transactions: transactionrepo.NewRepoPGS(tx),
	}

	if err := fn(uow); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	return nil
}

type unit struct {
	accounts     *accountrepo.RepoPGS
	entries      *entryrepo.RepoPGS
	transactions *transactionrepo.RepoPGS
}

func (u unit) Accounts() ledger.AccountStore         { return u.accounts }
func (u unit) Entries() ledger.JournalStore          { return u.entries }
func (u unit) Transactions() ledger.TransactionStore { return u.transactions }
