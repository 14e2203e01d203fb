package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/streed/synapse/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.Conn()
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestRunGraphMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db, Graph())

	applied, err := runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Graph()), applied)

	for _, table := range []string{"notes", "tags", "note_tags", "note_relations", "schema_migrations"} {
		assert.True(t, tableExists(t, db, table), "table %s", table)
	}

	applied, err = runner.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied, "second run should be a no-op")
}

func TestStatusAndRollback(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db, Graph())

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	for _, s := range status {
		assert.False(t, s.Applied)
	}

	_, err = runner.Run(ctx)
	require.NoError(t, err)

	require.NoError(t, runner.Rollback(ctx, "001_note_relations"))
	assert.False(t, tableExists(t, db, "note_relations"))

	status, err = runner.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Applied)
	assert.False(t, status[1].Applied)

	assert.Error(t, runner.Rollback(ctx, "001_note_relations"), "already rolled back")
	assert.Error(t, runner.Rollback(ctx, "999_missing"))
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	runner := NewMigrationRunner(db, []Migration{
		{
			ID:          "000_broken",
			Description: "invalid SQL",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE (")
				return err
			},
		},
	})

	_, err := runner.Run(ctx)
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Zero(t, n)
}

func TestVectorMigrations(t *testing.T) {
	db := openTestDB(t)
	_, err := NewMigrationRunner(db, Vector()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, tableExists(t, db, "vector_metadata"))
}
