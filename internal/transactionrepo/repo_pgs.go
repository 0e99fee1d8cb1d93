// Package transactionrepo manages repository layer of transactions.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/internal/entryrepo"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db      dbpkg.SQLInterface
	entries *entryrepo.RepoPGS
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db:      db,
		entries: entryrepo.NewRepoPGS(db),
	}
}

const transactionColumns = `id, owner, description, amount, transaction_date, reference, notes, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t                domain.Transaction
		reference, notes sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Owner,
		&t.Description,
		&t.Amount,
		&t.TransactionDate,
		&reference,
		&notes,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	if reference.Valid {
		t.Reference = &reference.String
	}

	if notes.Valid {
		t.Notes = &notes.String
	}

	return t, nil
}

const createQuery = `
INSERT INTO
	transactions (owner, description, amount, transaction_date, reference, notes)
VALUES
	($1, $2, $3, $4, $5, $6)
RETURNING ` + transactionColumns

// Create inserts the transaction header and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Owner,
		arg.Description,
		arg.Amount,
		arg.TransactionDate,
		arg.Reference,
		arg.Notes,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		switch dbpkg.ConstraintName(err) {
		case "transactions_owner_fkey":
			return domain.Transaction{}, domain.ErrOwnerNotFound
		case "transactions_amount_check":
			return domain.Transaction{}, domain.ErrInvalidAmount
		}

		return domain.Transaction{}, errorspkg.Storage(err)
	}

	return t, nil
}

const getQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id and its entries.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	t, err := r.get(ctx, getQuery, id)
	if err != nil {
		return t, err
	}

	t.Entries, err = r.entries.ListByTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	return t, nil
}

const getForUpdateQuery = getQuery + `FOR UPDATE`

// GetForUpdate returns the transaction header and locks its row until the
// end of the surrounding database transaction.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Transaction, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, domain.ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.Storage(err)
	}

	return t, nil
}

const deleteQuery = `
DELETE FROM transactions
WHERE id = $1
`

// Delete removes the transaction. Its entries are removed by cascade.
func (r *RepoPGS) Delete(ctx context.Context, id int64) error {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, deleteQuery, id)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	if n == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

const listQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE owner = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns a page of the owner transactions, latest recorded first, with
// entries and their accounts attached.
func (r *RepoPGS) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, arg.Owner, arg.Limit, arg.Offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}
	defer rows.Close()

	items := []domain.Transaction{}
	ids := []int64{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.Storage(err)
		}

		items = append(items, t)
		ids = append(ids, t.ID)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}

	entries, err := r.entries.ListByTransactions(ctx, ids)
	if err != nil {
		return nil, err
	}

	byTransaction := make(map[int64][]domain.JournalEntry, len(items))
	for _, e := range entries {
		byTransaction[e.TransactionID] = append(byTransaction[e.TransactionID], e)
	}

	for i := range items {
		items[i].Entries = byTransaction[items[i].ID]
	}

	return items, nil
}

const countQuery = `
SELECT count(*)
FROM transactions
WHERE owner = $1
`

// Count returns the number of the owner transactions.
func (r *RepoPGS) Count(ctx context.Context, owner string) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countQuery, owner).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.Storage(err)
	}

	return n, nil
}
