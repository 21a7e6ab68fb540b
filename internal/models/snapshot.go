package models

// Snapshot is a complete export/import representation of one user's ledger.
// Identifiers inside a snapshot are only meaningful for cross-references
// within the snapshot itself; import assigns fresh ones.
type Snapshot struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`
}
