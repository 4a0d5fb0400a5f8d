package settings

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user_settings.txt")
	require.NoError(t, os.WriteFile(path, []byte(DefaultJSON(testDefaults())), 0o644))

	var changes atomic.Int32
	w := NewWatcher(path, 50*time.Millisecond, func() { changes.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), changes.Load())

	// A burst of writes settles into one notification.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"preset":"Rainbow"}`), 0o644))
	}
	require.Eventually(t, func() bool { return changes.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Atomic replacement through Save is seen as well.
	store := NewFileStore(path, false, testDefaults())
	require.NoError(t, store.Save(testDefaults().Settings()))
	require.Eventually(t, func() bool { return changes.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestFileStore_ReadDoesNotRepair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.txt")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store := NewFileStore(path, true, testDefaults())
	_, err := store.Read()
	assert.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}
