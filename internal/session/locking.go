package session

import "gorm.io/gorm/clause"

// lockingClause applies SELECT ... FOR UPDATE, the row-level write lock
// any read-then-transition sequence needs.
func lockingClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
