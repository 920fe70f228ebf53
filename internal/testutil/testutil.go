// Package testutil sets up migrated in-memory databases for tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"folio/internal/database"
)

// NewDB returns a migrated in-memory database closed at test cleanup.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// SeedUser inserts a user without an identity and returns its id.
func SeedUser(t testing.TB, db *sql.DB, username string, admin bool) int {
	t.Helper()
	res, err := db.Exec("INSERT INTO users (username, display_name, is_admin) VALUES (?, ?, ?)", username, username, admin)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id)
}

// SeedSilo inserts an empty silo and returns its id.
func SeedSilo(t testing.TB, db *sql.DB, slug string) int {
	t.Helper()
	res, err := db.Exec("INSERT INTO silos (slug, name) VALUES (?, ?)", slug, slug)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return int(id)
}
