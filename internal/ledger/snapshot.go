package ledger

import (
	"context"
	"sort"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
	"github.com/ledgerbook/ledgerbook/internal/models"
)

// ExportSnapshot reads the user's complete ledger in one unit of work.
// It makes no writes and no reconciliation runs.
func (l *Ledger) ExportSnapshot(ctx context.Context, userID string) (models.Snapshot, error) {
	var snapshot models.Snapshot
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		accounts, err := uow.AccountsByUser(ctx, userID)
		if err != nil {
			return err
		}
		transactions, err := uow.TransactionsByUser(ctx, userID, models.TransactionFilter{})
		if err != nil {
			return err
		}
		snapshot = models.Snapshot{Accounts: accounts, Transactions: transactions}
		return nil
	})
	if err != nil {
		return models.Snapshot{}, err
	}
	return snapshot, nil
}

// ImportSnapshot replaces the user's ledger with the snapshot's contents
// inside one outer unit of work: existing transactions are removed, the
// account collection is reconciled against the snapshot's accounts, and the
// snapshot's transactions re-enter through the upsert path with their
// posting account references remapped to the stored account ids. A partial
// or invalid snapshot leaves prior state untouched.
func (l *Ledger) ImportSnapshot(ctx context.Context, userID string, snapshot models.Snapshot) error {
	if err := validateAccounts(snapshot.Accounts); err != nil {
		return err
	}
	for _, tx := range snapshot.Transactions {
		if err := validateTransaction(tx); err != nil {
			return err
		}
	}
	return l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		// Existing transactions go first; with their postings gone, accounts
		// absent from the snapshot are free to be deleted by the reconcile.
		if err := uow.DeleteAllTransactions(ctx, userID); err != nil {
			return err
		}
		_, idMap, err := replaceAccounts(ctx, uow, userID, snapshot.Accounts)
		if err != nil {
			return err
		}
		for _, tx := range snapshot.Transactions {
			tx.ID = ""
			postings := make([]models.Posting, len(tx.Postings))
			for i, posting := range tx.Postings {
				mapped, ok := idMap[posting.AccountID]
				if !ok {
					return ledgererr.New(ledgererr.KindReferentialIntegrity,
						"snapshot posting references unknown account %q", posting.AccountID)
				}
				posting.ID = ""
				posting.AccountID = mapped
				postings[i] = posting
			}
			tx.Postings = postings
			if _, err := upsertTransaction(ctx, uow, userID, tx); err != nil {
				return err
			}
		}
		// Accounts that survived as updates kept their old cached balance
		// while their postings were replaced above.
		return recalculate(ctx, uow, userID)
	})
}

// Tags returns the distinct tag set across the user's transactions,
// sorted, always including the empty tag.
func (l *Ledger) Tags(ctx context.Context, userID string) ([]string, error) {
	var tags []string
	err := l.store.WithinTx(ctx, func(uow interfaces.UnitOfWork) error {
		transactions, err := uow.TransactionsByUser(ctx, userID, models.TransactionFilter{})
		if err != nil {
			return err
		}
		seen := map[string]struct{}{"": {}}
		for _, tx := range transactions {
			for _, tag := range tx.Tags {
				seen[tag] = struct{}{}
			}
		}
		tags = make([]string, 0, len(seen))
		for tag := range seen {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}
