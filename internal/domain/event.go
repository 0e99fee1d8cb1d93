package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEventType names a committed ledger mutation.
type LedgerEventType string

// Ledger event types.
const (
	EventTransactionPosted   LedgerEventType = "transaction.posted"
	EventTransactionReversed LedgerEventType = "transaction.reversed"
)

// BalanceChange holds the balance of an account after a ledger mutation.
type BalanceChange struct {
	AccountID int64           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

// LedgerEvent describes a committed posting or reversal.
type LedgerEvent struct {
	Type          LedgerEventType `json:"type"`
	Owner         string          `json:"owner"`
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Balances      []BalanceChange `json:"balances"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
