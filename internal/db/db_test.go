package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(path)
	require.NoError(t, err)
	v, err := d.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)

	_, err = d.Exec(`INSERT INTO kv_store (bucket, key, value, created_at, updated_at) VALUES ('b', 'k', 'v', 0, 0)`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()

	var value string
	require.NoError(t, d.QueryRow(`SELECT value FROM kv_store WHERE bucket = 'b' AND key = 'k'`).Scan(&value))
	assert.Equal(t, "v", value)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	d, err := Open(path)
	require.NoError(t, err)
	_, err = d.Exec(`PRAGMA user_version = 99`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}
