// Package entryrepo manages repository layer of journal entries.
package entryrepo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
)

// RepoPGS facilitates journal entry repository layer logic.
//
// Entries are append-only: they are never updated and only removed
// together with their transaction.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns entry RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const entryColumns = `id, transaction_id, account_id, type, amount, created_at`

const appendQuery = `
INSERT INTO
	journal_entries (transaction_id, account_id, type, amount)
VALUES
	($1, $2, 'credit', $4),
	($1, $3, 'debit', $4)
RETURNING ` + entryColumns

// AppendPair records the two legs of a transaction: a credit on the source
// account and a debit of the same amount on the destination account.
func (r *RepoPGS) AppendPair(
	ctx context.Context,
	transactionID, fromAccountID, toAccountID int64,
	amount decimal.Decimal,
) (credit, debit domain.JournalEntry, err error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, appendQuery, transactionID, fromAccountID, toAccountID, amount)
	if err != nil {
		l.Error().Err(err).Send()
		return credit, debit, mapError(err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows, false)
	if err != nil {
		l.Error().Err(err).Send()
		return credit, debit, mapError(err)
	}

	for _, e := range entries {
		switch e.Type {
		case domain.EntryCredit:
			credit = e
		case domain.EntryDebit:
			debit = e
		}
	}

	return credit, debit, nil
}

const listByAccountQuery = `
SELECT ` + entryColumns + `
FROM journal_entries
WHERE account_id = $1
ORDER BY id
`

// ListByAccount returns the full entry history of the account.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountID int64) ([]domain.JournalEntry, error) {
	return r.list(ctx, listByAccountQuery, false, accountID)
}

const withAccountColumns = `
	e.id, e.transaction_id, e.account_id, e.type, e.amount, e.created_at,
	a.id, a.owner, a.name, a.type, a.subtype, a.balance, a.description, a.is_active, a.created_at, a.updated_at
FROM journal_entries e
JOIN accounts a ON a.id = e.account_id
`

const listByTransactionQuery = `
SELECT ` + withAccountColumns + `
WHERE e.transaction_id = $1
ORDER BY e.id
`

// ListByTransaction returns the entries of the transaction with their accounts attached.
func (r *RepoPGS) ListByTransaction(ctx context.Context, transactionID int64) ([]domain.JournalEntry, error) {
	return r.list(ctx, listByTransactionQuery, true, transactionID)
}

const listByTransactionsQuery = `
SELECT ` + withAccountColumns + `
WHERE e.transaction_id = ANY($1)
ORDER BY e.transaction_id, e.id
`

// ListByTransactions returns the entries of all the given transactions
// with their accounts attached.
func (r *RepoPGS) ListByTransactions(ctx context.Context, transactionIDs []int64) ([]domain.JournalEntry, error) {
	if len(transactionIDs) == 0 {
		return []domain.JournalEntry{}, nil
	}

	return r.list(ctx, listByTransactionsQuery, true, pq.Array(transactionIDs))
}

func (r *RepoPGS) list(ctx context.Context, query string, withAccount bool, args ...any) ([]domain.JournalEntry, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows, withAccount)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}

	return entries, nil
}

const deleteForTransactionQuery = `
DELETE FROM journal_entries
WHERE transaction_id = $1
`

// DeleteForTransaction removes the entries of the transaction.
// The foreign key cascade does the same when the transaction row is deleted.
func (r *RepoPGS) DeleteForTransaction(ctx context.Context, transactionID int64) error {
	l := zerolog.Ctx(ctx)

	if _, err := r.db.ExecContext(ctx, deleteForTransactionQuery, transactionID); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	return nil
}

const totalsQuery = `
SELECT
	COALESCE(SUM(amount) FILTER (WHERE type = 'debit'), 0),
	COALESCE(SUM(amount) FILTER (WHERE type = 'credit'), 0)
FROM journal_entries
`

// Totals returns the ledger-wide sums of debit and credit entries.
func (r *RepoPGS) Totals(ctx context.Context) (debits, credits decimal.Decimal, err error) {
	l := zerolog.Ctx(ctx)

	if err := r.db.QueryRowContext(ctx, totalsQuery).Scan(&debits, &credits); err != nil {
		l.Error().Err(err).Send()
		return decimal.Zero, decimal.Zero, errorspkg.Storage(err)
	}

	return debits, credits, nil
}

func scanEntries(rows *sql.Rows, withAccount bool) ([]domain.JournalEntry, error) {
	items := []domain.JournalEntry{}

	for rows.Next() {
		var e domain.JournalEntry

		dest := []any{
			&e.ID,
			&e.TransactionID,
			&e.AccountID,
			&e.Type,
			&e.Amount,
			&e.CreatedAt,
		}

		var a domain.Account
		if withAccount {
			dest = append(dest,
				&a.ID,
				&a.Owner,
				&a.Name,
				&a.Type,
				&a.Subtype,
				&a.Balance,
				&a.Description,
				&a.IsActive,
				&a.CreatedAt,
				&a.UpdatedAt,
			)
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		if withAccount {
			e.Account = &a
		}

		items = append(items, e)
	}

	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func mapError(err error) error {
	switch dbpkg.ConstraintName(err) {
	case "journal_entries_transaction_id_fkey":
		return domain.ErrTransactionNotFound
	case "journal_entries_account_id_fkey":
		return domain.ErrAccountNotFound
	case "journal_entries_amount_check":
		return domain.ErrInvalidAmount
	}

	return errorspkg.Storage(err)
}
