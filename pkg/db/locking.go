package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ForUpdate scopes the query to acquire an exclusive row lock held for the
// duration of the surrounding transaction. Callers must re-check their
// preconditions after the locked read, not only at request entry.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
