package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType is the side of a journal entry.
type EntryType string

// Journal entry sides.
const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// JournalEntry holds one leg of a transaction posting.
type JournalEntry struct {
	ID            int64           `json:"id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Type          EntryType       `json:"type"`
	Amount        decimal.Decimal `json:"amount"` // always positive
	CreatedAt     time.Time       `json:"created_at"`
	Account       *Account        `json:"account,omitempty"`
}

// Signed returns the entry contribution to the account balance.
// Debits increase the balance, credits decrease it.
func (e JournalEntry) Signed() decimal.Decimal {
	if e.Type == EntryCredit {
		return e.Amount.Neg()
	}

	return e.Amount
}
