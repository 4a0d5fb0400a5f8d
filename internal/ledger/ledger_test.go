package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/smartlightd/internal/db"
	"github.com/dokzlo13/smartlightd/internal/eventbus"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func TestLedger_AppendRecent(t *testing.T) {
	l := newLedger(t)

	motion := eventbus.NewEvent(eventbus.EventTypeMotion, "gpio", nil)
	motion.Time = time.Now().Add(-time.Minute)
	power := eventbus.NewEvent(eventbus.EventTypePowerChanged, "api", map[string]interface{}{"on": true})

	require.NoError(t, l.Append(motion))
	require.NoError(t, l.Append(power))
	// Duplicate delivery is ignored
	require.NoError(t, l.Append(power))

	all, err := l.Recent("", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, power.ID, all[0].EventID)
	assert.Equal(t, "power_changed", all[0].EventType)
	assert.Equal(t, true, all[0].Payload["on"])
	assert.Equal(t, "api", all[0].Source)
	assert.Equal(t, motion.ID, all[1].EventID)
	assert.Nil(t, all[1].Payload)

	onlyMotion, err := l.Recent("motion", 10)
	require.NoError(t, err)
	require.Len(t, onlyMotion, 1)
	assert.Equal(t, "gpio", onlyMotion[0].Source)
}

func TestLedger_DeleteOlderThan(t *testing.T) {
	l := newLedger(t)

	old := eventbus.NewEvent(eventbus.EventTypeReset, "api", nil)
	old.Time = time.Now().Add(-48 * time.Hour)
	require.NoError(t, l.Append(old))
	require.NoError(t, l.Append(eventbus.NewEvent(eventbus.EventTypeReset, "api", nil)))

	deleted, err := l.DeleteOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	rest, err := l.Recent("", 0)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestLedger_Recorder(t *testing.T) {
	l := newLedger(t)

	l.Recorder()(eventbus.NewEvent(eventbus.EventTypeProvisioned, "api", map[string]interface{}{"ssid": "home"}))

	entries, err := l.Recent("provisioned", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "home", entries[0].Payload["ssid"])
}
