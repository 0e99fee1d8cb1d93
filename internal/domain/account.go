// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountOwnerMismatch indicates that the account belongs to another owner.
	ErrAccountOwnerMismatch = errors.New("account owner mismatch")
	// ErrInvalidAccountType indicates unsupported account type.
	ErrInvalidAccountType = errors.New("invalid account type")
	// ErrInvalidSubtype indicates unsupported account subtype.
	ErrInvalidSubtype = errors.New("invalid account subtype")
	// ErrNegativeBalance indicates negative initial balance.
	ErrNegativeBalance = errors.New("initial balance cannot be negative")
	// ErrOwnerNotFound indicates that the owner for the account is not found.
	ErrOwnerNotFound = errors.New("owner not found")
)

// AccountType classifies an account for double-entry bookkeeping.
type AccountType string

// Supported account types.
const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// AccountTypes holds all the supported account types.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid returns true if the account type is supported.
func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if v == t {
			return true
		}
	}

	return false
}

// AccountSubtype is used for UI categorization only.
type AccountSubtype string

// Supported account subtypes.
const (
	SubtypeCash            AccountSubtype = "cash"
	SubtypeBank            AccountSubtype = "bank"
	SubtypeEwallet         AccountSubtype = "ewallet"
	SubtypeCreditCard      AccountSubtype = "credit_card"
	SubtypeIncome          AccountSubtype = "income"
	SubtypeExpenseCategory AccountSubtype = "expense_category"
)

// AccountSubtypes holds all the supported account subtypes.
var AccountSubtypes = []AccountSubtype{
	SubtypeCash,
	SubtypeBank,
	SubtypeEwallet,
	SubtypeCreditCard,
	SubtypeIncome,
	SubtypeExpenseCategory,
}

// Valid returns true if the account subtype is supported.
func (s AccountSubtype) Valid() bool {
	for _, v := range AccountSubtypes {
		if v == s {
			return true
		}
	}

	return false
}

// Account holds the owner's account with its cached balance.
//
// Balance always equals the sum of debit entries minus the sum of credit
// entries posted to the account.
type Account struct {
	ID          int64           `json:"id"`
	Owner       string          `json:"owner"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Subtype     AccountSubtype  `json:"subtype"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	Owner       string          `json:"owner"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Subtype     AccountSubtype  `json:"subtype"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description"`
}

// Validate checks the enumerations of the params.
func (p CreateAccountParams) Validate() error {
	if !p.Type.Valid() {
		return ErrInvalidAccountType
	}

	if !p.Subtype.Valid() {
		return ErrInvalidSubtype
	}

	if p.Balance.IsNegative() {
		return ErrNegativeBalance
	}

	return nil
}

// DefaultAccounts returns the starter chart of accounts for a new owner.
func DefaultAccounts(owner string) []CreateAccountParams {
	return []CreateAccountParams{
		{Owner: owner, Name: "Cash", Type: AccountTypeAsset, Subtype: SubtypeCash, Description: "Cash on hand"},
		{Owner: owner, Name: "Checking Account", Type: AccountTypeAsset, Subtype: SubtypeBank, Description: "Primary bank checking account"},
		{Owner: owner, Name: "Savings Account", Type: AccountTypeAsset, Subtype: SubtypeBank, Description: "Savings bank account"},
		{Owner: owner, Name: "Salary", Type: AccountTypeRevenue, Subtype: SubtypeIncome, Description: "Employment income"},
		{Owner: owner, Name: "Groceries", Type: AccountTypeExpense, Subtype: SubtypeExpenseCategory, Description: "Food and grocery expenses"},
		{Owner: owner, Name: "Transportation", Type: AccountTypeExpense, Subtype: SubtypeExpenseCategory, Description: "Transportation and fuel expenses"},
		{Owner: owner, Name: "Utilities", Type: AccountTypeExpense, Subtype: SubtypeExpenseCategory, Description: "Utility bills and services"},
	}
}
