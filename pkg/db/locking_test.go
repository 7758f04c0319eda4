package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The locking scope has to survive the rest of the query chain, so the
// assertion runs against the SQL gorm actually builds.
func TestForUpdateAddsLockingClause(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	type order struct {
		ID string
	}

	var row order
	stmt := ForUpdate(gdb.Table("orders")).Where("id = ?", "abc").First(&row).Statement
	require.Contains(t, stmt.SQL.String(), "FOR UPDATE")
}

func TestPlainQueryHasNoLockingClause(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)

	type order struct {
		ID string
	}

	var row order
	stmt := gdb.Table("orders").Where("id = ?", "abc").First(&row).Statement
	require.NotContains(t, stmt.SQL.String(), "FOR UPDATE")
}
