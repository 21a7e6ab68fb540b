// Package reconcile implements the full-collection convergence protocol:
// a client submits the entire child collection for a scope, and the diff
// against persisted state decides what to insert, update and delete.
package reconcile

// Entity is anything carried through a reconciliation, matched by identity.
// An empty identity means "new".
type Entity interface {
	EntityID() string
}

// Pair matches a submitted entity with the persisted entity it updates.
type Pair[T Entity] struct {
	Submitted T
	Persisted T
}

// Diff is the three-set outcome of a reconciliation. Every persisted entity
// lands in exactly one of Update or Delete; every submitted entity lands in
// exactly one of Insert or Update. Callers apply deletes first, then inserts,
// then updates, so an identity freed by a delete can be reused within the
// same atomic unit without tripping uniqueness constraints.
type Diff[T Entity] struct {
	// Insert holds submitted entities with no persisted match; any client
	// identity on them is ignored and the store assigns a fresh one.
	Insert []T
	// Update holds submitted entities paired with their persisted match.
	Update []Pair[T]
	// Delete holds persisted entities absent from the submission.
	Delete []T
}

// Compute diffs a submitted collection against the persisted collection for
// the same scope. Submission order is preserved within Insert and Update.
func Compute[T Entity](submitted, persisted []T) Diff[T] {
	existing := make(map[string]T, len(persisted))
	for _, p := range persisted {
		existing[p.EntityID()] = p
	}

	var diff Diff[T]
	submittedIDs := make(map[string]struct{}, len(submitted))
	for _, s := range submitted {
		id := s.EntityID()
		if match, ok := existing[id]; ok && id != "" {
			submittedIDs[id] = struct{}{}
			diff.Update = append(diff.Update, Pair[T]{Submitted: s, Persisted: match})
			continue
		}
		diff.Insert = append(diff.Insert, s)
	}
	for _, p := range persisted {
		if _, ok := submittedIDs[p.EntityID()]; !ok {
			diff.Delete = append(diff.Delete, p)
		}
	}
	return diff
}
