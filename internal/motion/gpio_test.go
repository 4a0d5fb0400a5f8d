package motion

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

func TestPinWatcher_RisingEdges(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "gpio27")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	value := filepath.Join(dir, "value")
	require.NoError(t, os.WriteFile(value, []byte("0\n"), 0o644))

	var rises atomic.Int32
	w := NewPinWatcher("motion", root, 27, 2*time.Millisecond, func() { rises.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(value, []byte("1\n"), 0o644))
	require.Eventually(t, func() bool { return rises.Load() == 1 }, time.Second, 2*time.Millisecond)

	// Holding high is not a new edge.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), rises.Load())

	require.NoError(t, os.WriteFile(value, []byte("0\n"), 0o644))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(value, []byte("1\n"), 0o644))
	require.Eventually(t, func() bool { return rises.Load() == 2 }, time.Second, 2*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestPinWatcher_MissingPin(t *testing.T) {
	w := NewPinWatcher("reset", t.TempDir(), 4, time.Millisecond, func() {})
	assert.Error(t, w.Run(context.Background()))
}
