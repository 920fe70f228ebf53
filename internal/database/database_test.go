package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	for _, table := range []string{"silos", "users", "identities", "pages", "revisions", "comments", "attachments"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, table)
	}
}

func TestWithParams(t *testing.T) {
	assert.Equal(t, "folio.db?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", withParams("folio.db"))
	assert.Equal(t, "file:x.db?_busy_timeout=100&_foreign_keys=1&_txlock=immediate&cache=shared",
		withParams("file:x.db?cache=shared&_busy_timeout=100"))
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))

	var on int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&on))
	assert.Equal(t, 1, on)

	_, err = db.Exec("INSERT INTO comments (page_id, name, comment) VALUES (999, 'Ada', 'orphan')")
	assert.Error(t, err)
}
