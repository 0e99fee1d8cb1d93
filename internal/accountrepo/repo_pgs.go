// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/dbpkg"
	"github.com/appdotbuilder/personal-finance-manager-1934/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, owner, name, type, subtype, balance, description, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
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

	return a, err
}

const createQuery = `
INSERT INTO
	accounts (owner, name, type, subtype, balance, description)
VALUES
	($1, $2, $3, $4, $5, $6)
RETURNING ` + accountColumns

// Create validates the params, creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if err := arg.Validate(); err != nil {
		return domain.Account{}, err
	}

	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.Owner,
		arg.Name,
		arg.Type,
		arg.Subtype,
		arg.Balance.Round(domain.AmountScale),
		arg.Description,
	)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		switch dbpkg.ConstraintName(err) {
		case "accounts_owner_fkey":
			return domain.Account{}, domain.ErrOwnerNotFound
		case "accounts_type_check":
			return domain.Account{}, domain.ErrInvalidAccountType
		case "accounts_subtype_check":
			return domain.Account{}, domain.ErrInvalidSubtype
		}

		return domain.Account{}, errorspkg.Storage(err)
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR NO KEY UPDATE`

// GetForUpdate returns the account with the given id and locks its row
// until the end of the surrounding database transaction.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.Storage(err)
	}

	return a, nil
}

const listQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner = $1 AND (is_active OR NOT $2)
ORDER BY type, name, id
`

// List returns the accounts of the owner ordered by type and name.
// When activeOnly is set deactivated accounts are skipped.
func (r *RepoPGS) List(ctx context.Context, owner string, activeOnly bool) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, owner, activeOnly)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.Storage(err)
		}

		items = append(items, a)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.Storage(err)
	}

	return items, nil
}

const countByOwnerQuery = `
SELECT count(*)
FROM accounts
WHERE owner = $1
`

// CountByOwner returns the number of accounts, active or not, the owner has.
func (r *RepoPGS) CountByOwner(ctx context.Context, owner string) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countByOwnerQuery, owner).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.Storage(err)
	}

	return n, nil
}

const lockOwnerQuery = `SELECT pg_advisory_xact_lock(hashtext('accounts:' || $1::text))`

// LockOwner takes a transaction scoped advisory lock on the owner.
// Outside of a database transaction the lock is released at once.
func (r *RepoPGS) LockOwner(ctx context.Context, owner string) error {
	if _, err := r.db.ExecContext(ctx, lockOwnerQuery, owner); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return errorspkg.Storage(err)
	}

	return nil
}

const deactivateQuery = `
UPDATE accounts
SET is_active = FALSE, updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns

// Deactivate marks the account inactive. Its entries and balance are kept.
func (r *RepoPGS) Deactivate(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, deactivateQuery, id)
}

const recomputeBalanceQuery = `
UPDATE accounts
SET balance = COALESCE((
		SELECT SUM(CASE WHEN type = 'debit' THEN amount ELSE -amount END)
		FROM journal_entries
		WHERE account_id = $1
	), 0),
	updated_at = now()
WHERE id = $1
RETURNING ` + accountColumns

// RecomputeBalance regenerates the cached balance of the account from its
// full entry history: the sum of debits minus the sum of credits.
func (r *RepoPGS) RecomputeBalance(ctx context.Context, id int64) (domain.Account, error) {
	return r.get(ctx, recomputeBalanceQuery, id)
}
