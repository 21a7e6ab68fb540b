package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/models"
)

// LedgerStore is the entry point into durable storage. Every ledger
// operation runs inside exactly one unit of work.
type LedgerStore interface {
	// WithinTx runs fn inside one atomic unit of work. A nil return commits;
	// any error rolls back every write made through the UnitOfWork, and the
	// error is returned unchanged.
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}

// UnitOfWork carries the reads and writes available inside a transaction.
// All operations are scoped by the owning user; a row owned by another user
// is indistinguishable from an absent row.
type UnitOfWork interface {
	// AccountsByUser returns the user's accounts ordered by id.
	AccountsByUser(ctx context.Context, userID string) ([]models.Account, error)
	// InsertAccount stores a new account, assigning a fresh id. Any caller
	// supplied id is ignored.
	InsertAccount(ctx context.Context, account models.Account) (models.Account, error)
	// UpdateAccount rewrites name and currency of an owned account.
	// The balance column is never touched here.
	UpdateAccount(ctx context.Context, account models.Account) error
	DeleteAccount(ctx context.Context, userID, id string) error
	// AccountReferenced reports whether any live posting of the user
	// references the account.
	AccountReferenced(ctx context.Context, userID, accountID string) (bool, error)
	// AddToBalance applies a signed delta to an owned account's cached
	// balance.
	AddToBalance(ctx context.Context, userID, accountID string, delta decimal.Decimal) error
	// SetBalance overwrites an owned account's cached balance.
	SetBalance(ctx context.Context, userID, accountID string, balance decimal.Decimal) error

	// TransactionByID loads an owned transaction with its postings, or a
	// not-found error.
	TransactionByID(ctx context.Context, userID, id string) (models.Transaction, error)
	// TransactionsByUser lists owned transactions with postings, filtered
	// and paged, ordered by date then id.
	TransactionsByUser(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error)
	// InsertTransaction stores a new transaction's scalar fields under a
	// fresh id; postings are written separately.
	InsertTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	// UpdateTransaction rewrites an owned transaction's scalar fields.
	UpdateTransaction(ctx context.Context, tx models.Transaction) error
	// DeleteTransaction removes an owned transaction and all its postings.
	DeleteTransaction(ctx context.Context, userID, id string) error
	// DeleteAllTransactions removes every owned transaction with postings.
	DeleteAllTransactions(ctx context.Context, userID string) error

	// InsertPosting stores a new posting under a fresh id, linked to its
	// parent transaction.
	InsertPosting(ctx context.Context, posting models.Posting) (models.Posting, error)
	// UpdatePosting rewrites a posting's account reference and amount.
	UpdatePosting(ctx context.Context, posting models.Posting) error
	DeletePosting(ctx context.Context, transactionID, id string) error

	// SumPostingsByAccount returns, per account id, the exact sum of all
	// live posting amounts of the user. Accounts without postings are
	// absent from the map.
	SumPostingsByAccount(ctx context.Context, userID string) (map[string]decimal.Decimal, error)
}
