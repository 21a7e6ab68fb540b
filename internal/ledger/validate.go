package ledger

import (
	"github.com/ledgerbook/ledgerbook/internal/ledgererr"
	"github.com/ledgerbook/ledgerbook/internal/models"
)

// Input shape checks run before any store interaction.

func validateAccounts(accounts []models.Account) error {
	for i, account := range accounts {
		if account.Name == "" {
			return ledgererr.New(ledgererr.KindValidation, "account %d: name is required", i)
		}
		if account.Currency == "" {
			return ledgererr.New(ledgererr.KindValidation, "account %d: currency is required", i)
		}
	}
	return nil
}

func validateFilter(filter models.TransactionFilter) error {
	switch filter.SortColumn {
	case "", models.SortByDate, models.SortByDescription:
	default:
		return ledgererr.New(ledgererr.KindValidation, "unknown sort column %q", filter.SortColumn)
	}
	if filter.Offset < 0 {
		return ledgererr.New(ledgererr.KindValidation, "offset must not be negative")
	}
	return nil
}

func validateTransaction(tx models.Transaction) error {
	if !models.ValidTransactionType(tx.Type) {
		return ledgererr.New(ledgererr.KindValidation, "unknown transaction type %q", tx.Type)
	}
	if tx.Date.IsZero() {
		return ledgererr.New(ledgererr.KindValidation, "transaction date is required")
	}
	// A transaction may pass through a zero-posting state while being
	// edited client-side, but never reaches the store that way.
	if len(tx.Postings) == 0 {
		return ledgererr.New(ledgererr.KindValidation, "transaction must have at least one posting")
	}
	for i, posting := range tx.Postings {
		if posting.AccountID == "" {
			return ledgererr.New(ledgererr.KindValidation, "posting %d: account_id is required", i)
		}
	}
	return nil
}
