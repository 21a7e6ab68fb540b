// Package memory provides an in-memory LedgerStore used by tests and local
// runs. Units of work operate on a deep copy of the state; commit swaps the
// copy in, an error discards it, so rollback is exact.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
	"github.com/ledgerbook/ledgerbook/internal/models"
)

type state struct {
	accounts     map[string]models.Account
	transactions map[string]models.Transaction // scalar fields only, Postings nil
	postings     map[string]models.Posting
}

func newState() *state {
	return &state{
		accounts:     make(map[string]models.Account),
		transactions: make(map[string]models.Transaction),
		postings:     make(map[string]models.Posting),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, account := range s.accounts {
		c.accounts[id] = account
	}
	for id, tx := range s.transactions {
		tx.Tags = append([]string(nil), tx.Tags...)
		c.transactions[id] = tx
	}
	for id, posting := range s.postings {
		c.postings[id] = posting
	}
	return c
}

// Store is an in-memory implementation of interfaces.LedgerStore. Units of
// work are serialized by a mutex, standing in for the row locking a real
// database would provide.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&unitOfWork{state: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

type unitOfWork struct {
	state *state
}

func (u *unitOfWork) AccountsByUser(ctx context.Context, userID string) ([]models.Account, error) {
	var accounts []models.Account
	for _, account := range u.state.accounts {
		if account.UserID == userID {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (u *unitOfWork) InsertAccount(ctx context.Context, account models.Account) (models.Account, error) {
	account.ID = uuid.NewString()
	u.state.accounts[account.ID] = account
	return account, nil
}

func (u *unitOfWork) UpdateAccount(ctx context.Context, account models.Account) error {
	existing, ok := u.state.accounts[account.ID]
	if !ok || existing.UserID != account.UserID {
		return ledgererr.New(ledgererr.KindNotFound, "account %q not found", account.ID)
	}
	existing.Name = account.Name
	existing.Currency = account.Currency
	u.state.accounts[account.ID] = existing
	return nil
}

func (u *unitOfWork) DeleteAccount(ctx context.Context, userID, id string) error {
	existing, ok := u.state.accounts[id]
	if !ok || existing.UserID != userID {
		return ledgererr.New(ledgererr.KindNotFound, "account %q not found", id)
	}
	delete(u.state.accounts, id)
	return nil
}

func (u *unitOfWork) AccountReferenced(ctx context.Context, userID, accountID string) (bool, error) {
	for _, posting := range u.state.postings {
		if posting.AccountID != accountID {
			continue
		}
		parent, ok := u.state.transactions[posting.TransactionID]
		if ok && parent.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (u *unitOfWork) AddToBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error {
	account, ok := u.state.accounts[accountID]
	if !ok || account.UserID != userID {
		return ledgererr.New(ledgererr.KindNotFound, "account %q not found", accountID)
	}
	account.Balance = account.Balance.Add(delta)
	u.state.accounts[accountID] = account
	return nil
}

func (u *unitOfWork) SetBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error {
	account, ok := u.state.accounts[accountID]
	if !ok || account.UserID != userID {
		return ledgererr.New(ledgererr.KindNotFound, "account %q not found", accountID)
	}
	account.Balance = balance
	u.state.accounts[accountID] = account
	return nil
}

func (u *unitOfWork) TransactionByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	tx, ok := u.state.transactions[id]
	if !ok || tx.UserID != userID {
		return models.Transaction{}, ledgererr.New(ledgererr.KindNotFound, "transaction %q not found", id)
	}
	tx.Tags = append([]string(nil), tx.Tags...)
	tx.Postings = u.postingsOf(id)
	return tx, nil
}

func (u *unitOfWork) postingsOf(transactionID string) []models.Posting {
	var postings []models.Posting
	for _, posting := range u.state.postings {
		if posting.TransactionID == transactionID {
			postings = append(postings, posting)
		}
	}
	sort.Slice(postings, func(i, j int) bool { return postings[i].ID < postings[j].ID })
	return postings
}

func (u *unitOfWork) TransactionsByUser(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	var transactions []models.Transaction
	for _, tx := range u.state.transactions {
		if tx.UserID != userID || !matches(tx, filter) {
			continue
		}
		tx.Tags = append([]string(nil), tx.Tags...)
		tx.Postings = u.postingsOf(tx.ID)
		transactions = append(transactions, tx)
	}
	sort.Slice(transactions, func(i, j int) bool {
		return less(transactions[i], transactions[j], filter)
	})
	return page(transactions, filter.Offset, filter.Limit), nil
}

// less orders by the filter's sort column with id ascending as tie-break;
// the tie-break direction never flips so paging stays stable.
func less(a, b models.Transaction, filter models.TransactionFilter) bool {
	tie := false
	before := false
	switch filter.SortColumn {
	case models.SortByDescription:
		if a.Description == b.Description {
			tie = true
		}
		before = a.Description < b.Description
	default:
		if a.Date.Equal(b.Date) {
			tie = true
		}
		before = a.Date.Before(b.Date)
	}
	if tie {
		return a.ID < b.ID
	}
	if filter.SortDescending {
		return !before
	}
	return before
}

func matches(tx models.Transaction, filter models.TransactionFilter) bool {
	if filter.Description != "" &&
		!strings.Contains(strings.ToLower(tx.Description), strings.ToLower(filter.Description)) {
		return false
	}
	if !filter.Date.IsZero() && !tx.Date.Equal(filter.Date) {
		return false
	}
	if len(filter.Tags) > 0 {
		found := false
		for _, want := range filter.Tags {
			for _, tag := range tx.Tags {
				if tag == want {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func page(transactions []models.Transaction, offset, limit int) []models.Transaction {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(transactions) {
		return nil
	}
	transactions = transactions[offset:]
	if limit > 0 && limit < len(transactions) {
		transactions = transactions[:limit]
	}
	return transactions
}

func (u *unitOfWork) InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.Postings = nil
	tx.Tags = append([]string(nil), tx.Tags...)
	u.state.transactions[tx.ID] = tx
	return tx, nil
}

func (u *unitOfWork) UpdateTransaction(ctx context.Context, tx models.Transaction) error {
	existing, ok := u.state.transactions[tx.ID]
	if !ok || existing.UserID != tx.UserID {
		return ledgererr.New(ledgererr.KindNotFound, "transaction %q not found", tx.ID)
	}
	existing.Description = tx.Description
	existing.Date = tx.Date
	existing.Type = tx.Type
	existing.Tags = append([]string(nil), tx.Tags...)
	u.state.transactions[tx.ID] = existing
	return nil
}

func (u *unitOfWork) DeleteTransaction(ctx context.Context, userID, id string) error {
	existing, ok := u.state.transactions[id]
	if !ok || existing.UserID != userID {
		return ledgererr.New(ledgererr.KindNotFound, "transaction %q not found", id)
	}
	delete(u.state.transactions, id)
	for postingID, posting := range u.state.postings {
		if posting.TransactionID == id {
			delete(u.state.postings, postingID)
		}
	}
	return nil
}

func (u *unitOfWork) DeleteAllTransactions(ctx context.Context, userID string) error {
	for id, tx := range u.state.transactions {
		if tx.UserID != userID {
			continue
		}
		if err := u.DeleteTransaction(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

func (u *unitOfWork) InsertPosting(ctx context.Context, posting models.Posting) (models.Posting, error) {
	posting.ID = uuid.NewString()
	u.state.postings[posting.ID] = posting
	return posting, nil
}

func (u *unitOfWork) UpdatePosting(ctx context.Context, posting models.Posting) error {
	existing, ok := u.state.postings[posting.ID]
	if !ok || existing.TransactionID != posting.TransactionID {
		return ledgererr.New(ledgererr.KindNotFound, "posting %q not found", posting.ID)
	}
	existing.AccountID = posting.AccountID
	existing.Amount = posting.Amount
	u.state.postings[posting.ID] = existing
	return nil
}

func (u *unitOfWork) DeletePosting(ctx context.Context, transactionID, id string) error {
	existing, ok := u.state.postings[id]
	if !ok || existing.TransactionID != transactionID {
		return ledgererr.New(ledgererr.KindNotFound, "posting %q not found", id)
	}
	delete(u.state.postings, id)
	return nil
}

func (u *unitOfWork) SumPostingsByAccount(ctx context.Context, userID string) (map[string]decimal.Decimal, error) {
	sums := make(map[string]decimal.Decimal)
	for _, posting := range u.state.postings {
		parent, ok := u.state.transactions[posting.TransactionID]
		if !ok || parent.UserID != userID {
			continue
		}
		sums[posting.AccountID] = sums[posting.AccountID].Add(posting.Amount)
	}
	return sums, nil
}

// Compile-time checks.
var (
	_ interfaces.LedgerStore = (*Store)(nil)
	_ interfaces.UnitOfWork  = (*unitOfWork)(nil)
)
