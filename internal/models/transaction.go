package models

import "github.com/shopspring/decimal"

// Transaction types as sent by clients.
const (
	TransactionTypeExpenseIncome = "expenseincome"
	TransactionTypeTransfer      = "transfer"
)

// Transaction is one ledger transaction owned by a single user. It splits
// across one or more postings; the transaction and its postings are always
// written and deleted as one atomic unit.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	Description string    `json:"description"`
	Date        Date      `json:"date"`
	Type        string    `json:"type"`
	Tags        []string  `json:"tags"`
	Postings    []Posting `json:"postings"`
}

// Posting is one signed entry of a transaction against exactly one account.
// It references its account weakly; the referenced account must exist and
// belong to the same user.
type Posting struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"-"`
	AccountID     string          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// EntityID implements reconcile.Entity.
func (p Posting) EntityID() string { return p.ID }

// ValidTransactionType reports whether t is one of the known type tags.
func ValidTransactionType(t string) bool {
	return t == TransactionTypeExpenseIncome || t == TransactionTypeTransfer
}
