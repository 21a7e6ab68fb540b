package models

// Sort columns accepted by TransactionFilter.
const (
	SortByDate        = "date"
	SortByDescription = "description"
)

// TransactionFilter narrows, orders and pages a transaction listing. Zero
// values mean "no constraint"; Limit <= 0 disables paging.
type TransactionFilter struct {
	// Description matches as a case-insensitive substring.
	Description string
	// Date, when set, matches transactions on that calendar day only.
	Date Date
	// Tags matches transactions carrying at least one of the given tags.
	Tags []string
	// SortColumn orders the listing by SortByDate (the default) or
	// SortByDescription. Ties always break by id ascending.
	SortColumn string
	// SortDescending reverses the sort column's direction.
	SortDescending bool
	// Offset and Limit page the ordered result.
	Offset int
	Limit  int
}
