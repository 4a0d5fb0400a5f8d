package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/smartlightd/internal/db"
)

type powerState struct {
	On bool `json:"on"`
}

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "state.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database.DB)
}

func TestStore_Versions(t *testing.T) {
	s := openStore(t)

	payload, version, err := s.Get("device", "power")
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, int64(0), version)

	v, err := s.Set("device", "power", []byte(`{"on":true}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = s.Set("device", "power", []byte(`{"on":false}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	payload, version, err = s.Get("device", "power")
	require.NoError(t, err)
	assert.JSONEq(t, `{"on":false}`, string(payload))
	assert.Equal(t, int64(2), version)
}

func TestStore_Delete(t *testing.T) {
	s := openStore(t)

	_, err := s.Set("device", "power", []byte(`{}`))
	require.NoError(t, err)
	_, err = s.Set("device", "other", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, s.Delete("device", "other"))
	payload, version, err := s.Get("device", "other")
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Equal(t, int64(0), version)

	payload, _, err = s.Get("device", "power")
	require.NoError(t, err)
	assert.NotNil(t, payload)
}

func TestTypedStore_GetOr(t *testing.T) {
	ts := NewTypedStore[powerState](openStore(t), "device")

	got, version, err := ts.GetOr("power", powerState{On: true})
	require.NoError(t, err)
	assert.True(t, got.On, "fallback for unknown id")
	assert.Equal(t, int64(0), version)

	_, err = ts.Set("power", powerState{On: false})
	require.NoError(t, err)

	got, version, err = ts.GetOr("power", powerState{On: true})
	require.NoError(t, err)
	assert.False(t, got.On)
	assert.Equal(t, int64(1), version)
}

func TestTypedStore_DeleteRestoresFallback(t *testing.T) {
	ts := NewTypedStore[powerState](openStore(t), "device")

	_, err := ts.Set("power", powerState{On: false})
	require.NoError(t, err)
	require.NoError(t, ts.Delete("power"))

	got, version, err := ts.GetOr("power", powerState{On: true})
	require.NoError(t, err)
	assert.True(t, got.On)
	assert.Equal(t, int64(0), version)
}
