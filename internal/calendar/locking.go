package calendar

import "gorm.io/gorm/clause"

func lockingClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
