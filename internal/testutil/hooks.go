package testutil

import (
	"testing"

	"gorm.io/gorm"
)

// BeforeFirstCreate runs fn inside the next INSERT into table, ahead of the
// statement itself. fn receives a fresh session on the same connection, so
// rows it writes belong to the caller's transaction.
func BeforeFirstCreate(t *testing.T, db *gorm.DB, table string, fn func(tx *gorm.DB)) {
	t.Helper()

	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("testutil:before_first_create_"+table, func(tx *gorm.DB) {
		if fired || tx.Statement.Table != table {
			return
		}
		fired = true
		fn(tx)
	})
	if err != nil {
		t.Fatalf("failed to register create callback: %v", err)
	}
}

// Session returns a statement-free handle that shares tx's connection.
func Session(tx *gorm.DB) *gorm.DB {
	return tx.Session(&gorm.Session{NewDB: true})
}
