package ledger

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledgerbook/internal/interfaces"
	"github.com/ledgerbook/ledgerbook/internal/models"
	"github.com/ledgerbook/ledgerbook/internal/reconcile"
)

// balanceDeltas folds a posting diff into one signed delta per account:
// deleted amounts are removed, inserted amounts added, and an update removes
// the old amount from the old account and adds the new amount to the new
// one, which also covers a posting moving between accounts.
func balanceDeltas(diff reconcile.Diff[models.Posting]) map[string]decimal.Decimal {
	deltas := make(map[string]decimal.Decimal)
	add := func(accountID string, amount decimal.Decimal) {
		deltas[accountID] = deltas[accountID].Add(amount)
	}
	for _, posting := range diff.Delete {
		add(posting.AccountID, posting.Amount.Neg())
	}
	for _, posting := range diff.Insert {
		add(posting.AccountID, posting.Amount)
	}
	for _, pair := range diff.Update {
		add(pair.Persisted.AccountID, pair.Persisted.Amount.Neg())
		add(pair.Submitted.AccountID, pair.Submitted.Amount)
	}
	return deltas
}

// applyDeltas adds each nonzero delta to its account's cached balance.
// Accounts are visited in id order so concurrent units of work acquire row
// locks in the same sequence.
func applyDeltas(ctx context.Context, uow interfaces.UnitOfWork, userID string, deltas map[string]decimal.Decimal) error {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		delta := deltas[id]
		if delta.IsZero() {
			continue
		}
		if err := uow.AddToBalance(ctx, userID, id, delta); err != nil {
			return err
		}
	}
	return nil
}

// recalculate replaces every owned account's cached balance with the exact
// sum of its live postings. Accounts without postings are reset to zero, so
// drift on an orphaned account is repaired too.
func recalculate(ctx context.Context, uow interfaces.UnitOfWork, userID string) error {
	sums, err := uow.SumPostingsByAccount(ctx, userID)
	if err != nil {
		return err
	}
	accounts, err := uow.AccountsByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, account := range accounts {
		sum, ok := sums[account.ID]
		if !ok {
			sum = decimal.Zero
		}
		if account.Balance.Equal(sum) {
			continue
		}
		if err := uow.SetBalance(ctx, userID, account.ID, sum); err != nil {
			return err
		}
	}
	return nil
}
