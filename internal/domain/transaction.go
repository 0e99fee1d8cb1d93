package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates non-positive or malformed amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrSameAccount indicates that source and destination accounts are the same.
	ErrSameAccount = errors.New("source and destination accounts must be different")
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionOwnerMismatch indicates that the transaction belongs to another owner.
	ErrTransactionOwnerMismatch = errors.New("transaction owner mismatch")
)

// AmountScale is the number of fraction digits kept for money amounts.
const AmountScale = 2

// MaxAmount is the largest money amount the storage columns hold.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// DateLayout is the layout of transaction dates.
const DateLayout = "2006-01-02"

// Transaction holds a transfer of value between two accounts.
type Transaction struct {
	ID              int64           `json:"id"`
	Owner           string          `json:"owner"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"` // always positive
	TransactionDate time.Time       `json:"transaction_date"`
	Reference       *string         `json:"reference,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Entries         []JournalEntry  `json:"journal_entries,omitempty"`
}

// PostTransactionParams is the input data for the posting unit of work.
type PostTransactionParams struct {
	Owner           string          `json:"owner"`
	FromAccountID   int64           `json:"from_account_id"`
	ToAccountID     int64           `json:"to_account_id"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reference       *string         `json:"reference,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
}

// Validate checks the params that must hold before anything is written.
func (p PostTransactionParams) Validate() error {
	amount := p.Amount.Round(AmountScale)
	if !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}

	if p.FromAccountID == p.ToAccountID {
		return ErrSameAccount
	}

	return nil
}

// CreateTransactionParams is the input data to insert a transaction row.
type CreateTransactionParams struct {
	Owner           string
	Description     string
	Amount          decimal.Decimal
	TransactionDate time.Time
	Reference       *string
	Notes           *string
}

// DefaultPageSize is the number of transactions per page when none is requested.
const DefaultPageSize = 20

// ListTransactionsParams is the input data to page through owner transactions.
type ListTransactionsParams struct {
	Owner  string `json:"owner"`
	Limit  int32  `json:"limit"`
	Offset int64  `json:"offset"`
}

// TransactionPage is one page of owner transactions.
type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Total        int64         `json:"total"`
	PageID       int32         `json:"page_id"`
	PageSize     int32         `json:"page_size"`
}
