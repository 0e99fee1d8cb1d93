// Package ledger implements the double-entry posting engine.
//
// Every posting creates one transaction with exactly two journal entries of
// the same amount: a credit on the source account and a debit on the
// destination account. Account balances are never adjusted incrementally,
// they are recomputed from the full entry history inside the same unit of
// work that changed the entries.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

//go:generate mockgen -source engine.go -destination engine_mock.go -package ledger

// Publisher delivers ledger events after the unit of work is committed.
type Publisher interface {
	Publish(ctx context.Context, event domain.LedgerEvent) error
}

// DefaultPublishTimeout bounds the delivery of one ledger event.
const DefaultPublishTimeout = 500 * time.Millisecond

// Engine posts and reverses transactions.
type Engine struct {
	store          Store
	publisher      Publisher
	publishTimeout time.Duration
	now            func() time.Time
}

// Option configures Engine.
type Option func(*Engine)

// WithPublishTimeout sets how long the engine waits for the publisher.
func WithPublishTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.publishTimeout = d
	}
}

// New returns Engine working on the store. The publisher may be nil.
func New(store Store, publisher Publisher, opts ...Option) *Engine {
	e := &Engine{
		store:          store,
		publisher:      publisher,
		publishTimeout: DefaultPublishTimeout,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// PostTransaction records a transfer of arg.Amount from arg.FromAccountID to
// arg.ToAccountID and returns the transaction with both entries and their
// recomputed accounts attached.
func (e *Engine) PostTransaction(ctx context.Context, arg domain.PostTransactionParams) (domain.Transaction, error) {
	if err := arg.Validate(); err != nil {
		return domain.Transaction{}, err
	}

	amount := arg.Amount.Round(domain.AmountScale)

	var result domain.Transaction

	err := e.store.ExecTx(ctx, func(uow UnitOfWork) error {
		ids := []int64{arg.FromAccountID, arg.ToAccountID}

		if _, err := lockAccounts(ctx, uow.Accounts(), ids); err != nil {
			return err
		}

		t, err := uow.Transactions().Create(ctx, domain.CreateTransactionParams{
			Owner:           arg.Owner,
			Description:     arg.Description,
			Amount:          amount,
			TransactionDate: arg.TransactionDate,
			Reference:       arg.Reference,
			Notes:           arg.Notes,
		})
		if err != nil {
			return err
		}

		credit, debit, err := uow.Entries().AppendPair(ctx, t.ID, arg.FromAccountID, arg.ToAccountID, amount)
		if err != nil {
			return err
		}

		accounts, err := recompute(ctx, uow.Accounts(), ids)
		if err != nil {
			return err
		}

		from, to := accounts[arg.FromAccountID], accounts[arg.ToAccountID]
		credit.Account = &from
		debit.Account = &to

		t.Entries = []domain.JournalEntry{credit, debit}
		result = t

		return nil
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	e.publish(ctx, domain.EventTransactionPosted, result, result.Entries)

	return result, nil
}

// ReverseTransaction deletes the transaction with its entries and
// recomputes the balances of every account it touched.
func (e *Engine) ReverseTransaction(ctx context.Context, t domain.Transaction) error {
	var (
		reversed domain.Transaction
		entries  []domain.JournalEntry
	)

	err := e.store.ExecTx(ctx, func(uow UnitOfWork) error {
		current, err := uow.Transactions().GetForUpdate(ctx, t.ID)
		if err != nil {
			return err
		}

		legs, err := uow.Entries().ListByTransaction(ctx, current.ID)
		if err != nil {
			return err
		}

		ids := distinctAccountIDs(legs)

		if _, err := lockAccounts(ctx, uow.Accounts(), ids); err != nil {
			return err
		}

		if err := uow.Entries().DeleteForTransaction(ctx, current.ID); err != nil {
			return err
		}

		if err := uow.Transactions().Delete(ctx, current.ID); err != nil {
			return err
		}

		accounts, err := recompute(ctx, uow.Accounts(), ids)
		if err != nil {
			return err
		}

		for i := range legs {
			a := accounts[legs[i].AccountID]
			legs[i].Account = &a
		}

		reversed, entries = current, legs

		return nil
	})
	if err != nil {
		return err
	}

	e.publish(ctx, domain.EventTransactionReversed, reversed, entries)

	return nil
}

// lockAccounts locks the accounts in ascending id order so that concurrent
// units touching the same accounts always acquire the locks in the same order.
func lockAccounts(ctx context.Context, accounts AccountStore, ids []int64) (map[int64]domain.Account, error) {
	locked := make(map[int64]domain.Account, len(ids))

	for _, id := range sortedCopy(ids) {
		a, err := accounts.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}

		locked[id] = a
	}

	return locked, nil
}

func recompute(ctx context.Context, accounts AccountStore, ids []int64) (map[int64]domain.Account, error) {
	result := make(map[int64]domain.Account, len(ids))

	for _, id := range sortedCopy(ids) {
		a, err := accounts.RecomputeBalance(ctx, id)
		if err != nil {
			return nil, err
		}

		result[id] = a
	}

	return result, nil
}

func distinctAccountIDs(entries []domain.JournalEntry) []int64 {
	seen := make(map[int64]struct{}, len(entries))
	ids := make([]int64, 0, len(entries))

	for _, en := range entries {
		if _, ok := seen[en.AccountID]; ok {
			continue
		}

		seen[en.AccountID] = struct{}{}
		ids = append(ids, en.AccountID)
	}

	return ids
}

func sortedCopy(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

func (e *Engine) publish(ctx context.Context, typ domain.LedgerEventType, t domain.Transaction, entries []domain.JournalEntry) {
	if e.publisher == nil {
		return
	}

	event := domain.LedgerEvent{
		Type:          typ,
		Owner:         t.Owner,
		TransactionID: t.ID,
		Amount:        t.Amount,
		Balances:      make([]domain.BalanceChange, 0, len(entries)),
		OccurredAt:    e.now().UTC(),
	}

	for _, en := range entries {
		if en.Account == nil {
			continue
		}

		event.Balances = append(event.Balances, domain.BalanceChange{
			AccountID: en.AccountID,
			Balance:   en.Account.Balance,
		})
	}

	// The unit is committed, so the caller cancelling must not drop the event.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	defer cancel()

	if err := e.publisher.Publish(pctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("event", string(typ)).
			Int64("transaction_id", t.ID).
			Msg("ledger event is not published")
	}
}
