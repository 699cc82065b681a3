package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qrattend/internal/config"
)

func openLocal(t *testing.T) *DB {
	t.Helper()
	db, err := Open(config.App{
		Mode:       config.ModeLocal,
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenRejectsUnknownMode(t *testing.T) {
	_, err := Open(config.App{Mode: "floppy"})
	require.Error(t, err)
}

func TestOpenLocalBootstrapsSchema(t *testing.T) {
	db := openLocal(t)

	// Bootstrapping twice must be harmless.
	require.NoError(t, db.bootstrap(schemaSQLite))

	for _, table := range []string{"students", "teachers", "attendance"} {
		var n int
		err := db.Client.Get(&n, "SELECT COUNT(*) FROM "+table)
		require.NoError(t, err, table)
		assert.Zero(t, n)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := openLocal(t)

	_, err := db.Client.Exec(db.Rebind(
		`INSERT INTO teachers (id, full_name, email, password_hash) VALUES (?, ?, ?, ?)`,
	), "t1", "T", "t@example.com", "x")
	require.NoError(t, err)

	_, err = db.Client.Exec(db.Rebind(
		`INSERT INTO teachers (id, full_name, email, password_hash) VALUES (?, ?, ?, ?)`,
	), "t2", "T", "t@example.com", "x")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(assert.AnError))
}
