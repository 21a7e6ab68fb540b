package models

import "github.com/shopspring/decimal"

// Account is one money account owned by a single user.
// Balance is derived from posting amounts and maintained by the ledger;
// any client-supplied value for it is discarded before writes.
type Account struct {
	ID       string          `json:"id"`
	UserID   string          `json:"-"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// EntityID implements reconcile.Entity.
func (a Account) EntityID() string { return a.ID }
