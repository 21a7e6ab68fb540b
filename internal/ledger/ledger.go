// Package ledger implements the reconciliation and balance-consistency core:
// full-collection replacement of accounts, atomic upsert/delete of
// transactions with their postings, and balance recomputation. Every
// operation runs as one unit of work against the store and either fully
// commits or leaves no trace.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
	"github.com/ledgerbook/ledgerbook/internal/models"
	"github.com/ledgerbook/ledgerbook/internal/reconcile"
)

// Ledger orchestrates the collection reconciler and the balance engine over
// a transactional store. It holds no state of its own; everything is
// re-read inside each unit of work.
type Ledger struct {
	store interfaces.LedgerStore
}

// New creates a Ledger on top of any LedgerStore implementation.
func New(store interfaces.LedgerStore) *Ledger {
	return &Ledger{store: store}
}

// ReplaceAccounts converges the user's account collection onto the submitted
// one: unknown ids are inserted under fresh ids, matched ids are updated,
// missing ids are deleted. Deleting an account still referenced by a live
// posting aborts the whole operation. Balances are never touched here; the
// submitted balance field is discarded.
func (l *Ledger) ReplaceAccounts(ctx context.Context, userID string, submitted []models.Account) ([]models.Account, error) {
	if err := validateAccounts(submitted); err != nil {
		return nil, err
	}
	var result []models.Account
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		result, _, err = replaceAccounts(ctx, uow, userID, submitted)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// replaceAccounts applies the account diff inside an open unit of work and
// returns the reconciled collection plus the submitted-id to stored-id
// mapping, which snapshot import uses to remap posting references.
func replaceAccounts(ctx context.Context, uow interfaces.UnitOfWork, userID string, submitted []models.Account) ([]models.Account, map[string]string, error) {
	persisted, err := uow.AccountsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	diff := reconcile.Compute(submitted, persisted)

	// Deletes first, so an id freed here can be reused by an insert below.
	for _, account := range diff.Delete {
		referenced, err := uow.AccountReferenced(ctx, userID, account.ID)
		if err != nil {
			return nil, nil, err
		}
		if referenced {
			return nil, nil, ledgererr.New(ledgererr.KindIntegrityConflict,
				"account %q is still referenced by postings", account.ID)
		}
		if err := uow.DeleteAccount(ctx, userID, account.ID); err != nil {
			return nil, nil, err
		}
	}

	idMap := make(map[string]string, len(submitted))
	for _, account := range diff.Insert {
		submittedID := account.ID
		account.ID = ""
		account.UserID = userID
		account.Balance = decimal.Zero
		created, err := uow.InsertAccount(ctx, account)
		if err != nil {
			return nil, nil, err
		}
		if submittedID != "" {
			idMap[submittedID] = created.ID
		}
	}
	for _, pair := range diff.Update {
		account := pair.Persisted
		account.Name = pair.Submitted.Name
		account.Currency = pair.Submitted.Currency
		// pair.Submitted.Balance is intentionally ignored
		if err := uow.UpdateAccount(ctx, account); err != nil {
			return nil, nil, err
		}
		idMap[account.ID] = account.ID
	}

	result, err := uow.AccountsByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return result, idMap, nil
}

// UpsertTransaction creates or updates one transaction together with its
// postings. The submitted posting collection fully replaces the persisted
// one; every referenced account must belong to the user. Balances of all
// touched accounts are adjusted incrementally within the same unit of work.
func (l *Ledger) UpsertTransaction(ctx context.Context, userID string, submitted models.Transaction) (models.Transaction, error) {
	if err := validateTransaction(submitted); err != nil {
		return models.Transaction{}, err
	}
	var result models.Transaction
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		result, err = upsertTransaction(ctx, uow, userID, submitted)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return result, nil
}

func upsertTransaction(ctx context.Context, uow interfaces.UnitOfWork, userID string, submitted models.Transaction) (models.Transaction, error) {
	// Ownership of every referenced account is checked inside the unit of
	// work, not as a pre-check, so a concurrent account removal cannot
	// slip between check and apply.
	accounts, err := uow.AccountsByUser(ctx, userID)
	if err != nil {
		return models.Transaction{}, err
	}
	owned := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		owned[account.ID] = struct{}{}
	}
	for _, posting := range submitted.Postings {
		if _, ok := owned[posting.AccountID]; !ok {
			return models.Transaction{}, ledgererr.New(ledgererr.KindReferentialIntegrity,
				"posting references account %q which does not exist for this user", posting.AccountID)
		}
	}

	var persisted models.Transaction
	if submitted.ID != "" {
		persisted, err = uow.TransactionByID(ctx, userID, submitted.ID)
		if err != nil && !ledgererr.Is(err, ledgererr.KindNotFound) {
			return models.Transaction{}, err
		}
	}
	if persisted.ID == "" {
		// Unknown or absent id: create. The client id is discarded and the
		// store assigns a fresh one.
		tx := submitted
		tx.ID = ""
		tx.UserID = userID
		tx.Postings = nil
		persisted, err = uow.InsertTransaction(ctx, tx)
		if err != nil {
			return models.Transaction{}, err
		}
	} else {
		tx := persisted
		tx.Description = submitted.Description
		tx.Date = submitted.Date
		tx.Type = submitted.Type
		tx.Tags = submitted.Tags
		if err := uow.UpdateTransaction(ctx, tx); err != nil {
			return models.Transaction{}, err
		}
	}

	diff := reconcile.Compute(submitted.Postings, persisted.Postings)
	deltas := balanceDeltas(diff)

	for _, posting := range diff.Delete {
		if err := uow.DeletePosting(ctx, persisted.ID, posting.ID); err != nil {
			return models.Transaction{}, err
		}
	}
	for _, posting := range diff.Insert {
		posting.ID = ""
		posting.TransactionID = persisted.ID
		if _, err := uow.InsertPosting(ctx, posting); err != nil {
			return models.Transaction{}, err
		}
	}
	for _, pair := range diff.Update {
		posting := pair.Persisted
		posting.AccountID = pair.Submitted.AccountID
		posting.Amount = pair.Submitted.Amount
		if err := uow.UpdatePosting(ctx, posting); err != nil {
			return models.Transaction{}, err
		}
	}

	if err := applyDeltas(ctx, uow, userID, deltas); err != nil {
		return models.Transaction{}, err
	}
	return uow.TransactionByID(ctx, userID, persisted.ID)
}

// DeleteTransaction removes an owned transaction and all its postings,
// reversing each posting's amount from its account's balance. The deleted
// transaction's last known state is returned.
func (l *Ledger) DeleteTransaction(ctx context.Context, userID, id string) (models.Transaction, error) {
	var deleted models.Transaction
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		deleted, err = uow.TransactionByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := uow.DeleteTransaction(ctx, userID, id); err != nil {
			return err
		}
		deltas := make(map[string]decimal.Decimal)
		for _, posting := range deleted.Postings {
			deltas[posting.AccountID] = deltas[posting.AccountID].Sub(posting.Amount)
		}
		return applyDeltas(ctx, uow, userID, deltas)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return deleted, nil
}

// Recalculate rebuilds every owned account's cached balance from the live
// postings, repairing any drift. It makes no structural changes, is
// idempotent, and writes nothing unless the whole pass succeeds.
func (l *Ledger) Recalculate(ctx context.Context, userID string) error {
	return l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		return recalculate(ctx, uow, userID)
	})
}

// Accounts lists the user's accounts with their cached balances.
func (l *Ledger) Accounts(ctx context.Context, userID string) ([]models.Account, error) {
	var accounts []models.Account
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		accounts, err = uow.AccountsByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// Transactions lists the user's transactions, filtered, ordered and paged.
// The default order is date ascending with ties broken by id.
func (l *Ledger) Transactions(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	var transactions []models.Transaction
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		transactions, err = uow.TransactionsByUser(ctx, userID, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// TransactionByID loads one owned transaction with its postings.
func (l *Ledger) TransactionByID(ctx context.Context, userID, id string) (models.Transaction, error) {
	var tx models.Transaction
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		var err error
		tx, err = uow.TransactionByID(ctx, userID, id)
		return err
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return tx, nil
}
