package memstore

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// state holds every record of the store. It is not safe for concurrent use,
// callers hold Store.mu.
type state struct {
	users        map[string]domain.User
	accounts     map[int64]domain.Account
	transactions map[int64]domain.Transaction
	entries      map[int64]domain.JournalEntry

	lastAccountID     int64
	lastTransactionID int64
	lastEntryID       int64
}

func newState() state {
	return state{
		users:        map[string]domain.User{},
		accounts:     map[int64]domain.Account{},
		transactions: map[int64]domain.Transaction{},
		entries:      map[int64]domain.JournalEntry{},
	}
}

// clone returns a copy of the state that shares no maps with s.
func (s *state) clone() state {
	c := state{
		users:             make(map[string]domain.User, len(s.users)),
		accounts:          make(map[int64]domain.Account, len(s.accounts)),
		transactions:      make(map[int64]domain.Transaction, len(s.transactions)),
		entries:           make(map[int64]domain.JournalEntry, len(s.entries)),
		lastAccountID:     s.lastAccountID,
		lastTransactionID: s.lastTransactionID,
		lastEntryID:       s.lastEntryID,
	}

	for k, v := range s.users {
		c.users[k] = v
	}

	for k, v := range s.accounts {
		c.accounts[k] = v
	}

	for k, v := range s.transactions {
		c.transactions[k] = v
	}

	for k, v := range s.entries {
		c.entries[k] = v
	}

	return c
}

func (s *state) createUser(arg domain.CreateUserParams) (domain.User, error) {
	if _, ok := s.users[arg.Username]; ok {
		return domain.User{}, domain.ErrUsernameAlreadyExists
	}

	for _, u := range s.users {
		if u.Email == arg.Email {
			return domain.User{}, domain.ErrEmailALreadyExists
		}
	}

	u := domain.User{
		Username:       arg.Username,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Email:          arg.Email,
		CreatedAt:      time.Now().UTC(),
	}
	s.users[u.Username] = u

	return u, nil
}

func (s *state) getUser(username string) (domain.User, error) {
	u, ok := s.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}

	return u, nil
}

func (s *state) createAccount(arg domain.CreateAccountParams) (domain.Account, error) {
	if err := arg.Validate(); err != nil {
		return domain.Account{}, err
	}

	if _, ok := s.users[arg.Owner]; !ok {
		return domain.Account{}, domain.ErrOwnerNotFound
	}

	s.lastAccountID++
	now := time.Now().UTC()

	a := domain.Account{
		ID:          s.lastAccountID,
		Owner:       arg.Owner,
		Name:        arg.Name,
		Type:        arg.Type,
		Subtype:     arg.Subtype,
		Balance:     arg.Balance.Round(domain.AmountScale),
		Description: arg.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.accounts[a.ID] = a

	return a, nil
}

func (s *state) getAccount(id int64) (domain.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return a, nil
}

func (s *state) listAccounts(owner string, activeOnly bool) []domain.Account {
	items := []domain.Account{}

	for _, a := range s.accounts {
		if a.Owner != owner || (activeOnly && !a.IsActive) {
			continue
		}

		items = append(items, a)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Type != items[j].Type {
			return items[i].Type < items[j].Type
		}

		if items[i].Name != items[j].Name {
			return items[i].Name < items[j].Name
		}

		return items[i].ID < items[j].ID
	})

	return items
}

func (s *state) countAccounts(owner string) int64 {
	var n int64

	for _, a := range s.accounts {
		if a.Owner == owner {
			n++
		}
	}

	return n
}

func (s *state) deactivateAccount(id int64) (domain.Account, error) {
	a, err := s.getAccount(id)
	if err != nil {
		return a, err
	}

	a.IsActive = false
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a

	return a, nil
}

func (s *state) recomputeBalance(id int64) (domain.Account, error) {
	a, err := s.getAccount(id)
	if err != nil {
		return a, err
	}

	balance := decimal.Zero

	for _, e := range s.entries {
		if e.AccountID == id {
			balance = balance.Add(e.Signed())
		}
	}

	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	s.accounts[id] = a

	return a, nil
}

func (s *state) appendPair(transactionID, fromAccountID, toAccountID int64, amount decimal.Decimal) (credit, debit domain.JournalEntry, err error) {
	if _, ok := s.transactions[transactionID]; !ok {
		return credit, debit, domain.ErrTransactionNotFound
	}

	for _, id := range []int64{fromAccountID, toAccountID} {
		if _, ok := s.accounts[id]; !ok {
			return credit, debit, domain.ErrAccountNotFound
		}
	}

	if !amount.IsPositive() {
		return credit, debit, domain.ErrInvalidAmount
	}

	credit = s.appendEntry(transactionID, fromAccountID, domain.EntryCredit, amount)
	debit = s.appendEntry(transactionID, toAccountID, domain.EntryDebit, amount)

	return credit, debit, nil
}

func (s *state) appendEntry(transactionID, accountID int64, typ domain.EntryType, amount decimal.Decimal) domain.JournalEntry {
	s.lastEntryID++

	e := domain.JournalEntry{
		ID:            s.lastEntryID,
		TransactionID: transactionID,
		AccountID:     accountID,
		Type:          typ,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
	s.entries[e.ID] = e

	return e
}

// entriesOf returns the entries of the transaction ordered by id with
// copies of their accounts attached.
func (s *state) entriesOf(transactionID int64) []domain.JournalEntry {
	items := []domain.JournalEntry{}

	for _, e := range s.entries {
		if e.TransactionID != transactionID {
			continue
		}

		if a, ok := s.accounts[e.AccountID]; ok {
			e.Account = &a
		}

		items = append(items, e)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items
}

func (s *state) entriesOfAccount(accountID int64) []domain.JournalEntry {
	items := []domain.JournalEntry{}

	for _, e := range s.entries {
		if e.AccountID == accountID {
			items = append(items, e)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items
}

func (s *state) createTransaction(arg domain.CreateTransactionParams) (domain.Transaction, error) {
	if _, ok := s.users[arg.Owner]; !ok {
		return domain.Transaction{}, domain.ErrOwnerNotFound
	}

	if !arg.Amount.IsPositive() {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	s.lastTransactionID++
	now := time.Now().UTC()

	t := domain.Transaction{
		ID:              s.lastTransactionID,
		Owner:           arg.Owner,
		Description:     arg.Description,
		Amount:          arg.Amount,
		TransactionDate: arg.TransactionDate,
		Reference:       arg.Reference,
		Notes:           arg.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.transactions[t.ID] = t

	return t, nil
}

func (s *state) getTransaction(id int64) (domain.Transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t, nil
}

func (s *state) deleteEntries(transactionID int64) {
	for id, e := range s.entries {
		if e.TransactionID == transactionID {
			delete(s.entries, id)
		}
	}
}

// deleteTransaction removes the transaction and cascades to its entries.
func (s *state) deleteTransaction(id int64) error {
	if _, ok := s.transactions[id]; !ok {
		return domain.ErrTransactionNotFound
	}

	delete(s.transactions, id)
	s.deleteEntries(id)

	return nil
}

func (s *state) listTransactions(arg domain.ListTransactionsParams) []domain.Transaction {
	items := []domain.Transaction{}

	for _, t := range s.transactions {
		if t.Owner == arg.Owner {
			items = append(items, t)
		}
	}

	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]

		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}

		return a.ID > b.ID
	})

	start := len(items)
	if arg.Offset >= 0 && arg.Offset < int64(len(items)) {
		start = int(arg.Offset)
	}

	end := start + int(arg.Limit)
	if arg.Limit <= 0 || end > len(items) {
		end = len(items)
	}

	page := items[start:end]
	for i := range page {
		page[i].Entries = s.entriesOf(page[i].ID)
	}

	return page
}

func (s *state) countTransactions(owner string) int64 {
	var n int64

	for _, t := range s.transactions {
		if t.Owner == owner {
			n++
		}
	}

	return n
}

func (s *state) totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero

	for _, e := range s.entries {
		switch e.Type {
		case domain.EntryDebit:
			debits = debits.Add(e.Amount)
		case domain.EntryCredit:
			credits = credits.Add(e.Amount)
		}
	}

	return debits, credits
}
