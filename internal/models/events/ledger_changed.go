package events

import "time"

// Event names, used as message keys on the wire.
const (
	AccountsReconciled   = "accounts.reconciled"
	TransactionUpserted  = "transaction.upserted"
	TransactionDeleted   = "transaction.deleted"
	BalancesRecalculated = "balances.recalculated"
	SnapshotImported     = "snapshot.imported"
)

// LedgerChanged announces that a user's ledger was modified by a committed
// operation. It intentionally carries no amounts; consumers re-read
// consistent state through the service.
type LedgerChanged struct {
	Event         string    `json:"event"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
