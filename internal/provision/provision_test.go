package provision

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/smartlightd/internal/db"
	"github.com/dokzlo13/smartlightd/internal/eventbus"
	"github.com/dokzlo13/smartlightd/internal/storage/kv"
)

func newProvisioner(t *testing.T, bus *eventbus.Bus) (*Provisioner, *kv.Manager) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "prov.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	m := kv.NewManager(database.DB)
	p, err := New(m.Bucket(BucketName, true), m.Bucket("provisioning_attempts", false), bus, "1234567")
	require.NoError(t, err)
	return p, m
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "PROV_1B4E28", ServiceName("1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
	assert.Equal(t, "PROV_AB", ServiceName("ab"))
}

func TestNew_NodeIDIsStable(t *testing.T) {
	p, m := newProvisioner(t, nil)
	assert.Regexp(t, regexp.MustCompile(`^PROV_[0-9A-F]{6}$`), p.ServiceName())

	again, err := New(m.Bucket(BucketName, true), kv.NewMemoryBucket("x"), nil, "1234567")
	require.NoError(t, err)
	assert.Equal(t, p.NodeID(), again.NodeID())
}

func TestProvision(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close(context.Background())

	got := make(chan eventbus.Event, 1)
	bus.Subscribe(eventbus.EventTypeProvisioned, func(ev eventbus.Event) { got <- ev })

	p, _ := newProvisioner(t, bus)

	st, err := p.Status()
	require.NoError(t, err)
	assert.False(t, st.Provisioned)

	err = p.Provision(context.Background(), Request{PoP: "1234567", SSID: " home ", Passphrase: "secret"})
	require.NoError(t, err)

	st, err = p.Status()
	require.NoError(t, err)
	assert.True(t, st.Provisioned)
	assert.Equal(t, "home", st.SSID)

	select {
	case ev := <-got:
		assert.Equal(t, "home", ev.Data["ssid"])
	case <-time.After(time.Second):
		t.Fatal("provisioned event not published")
	}

	require.NoError(t, p.Reset())
	st, err = p.Status()
	require.NoError(t, err)
	assert.False(t, st.Provisioned)
	assert.NotEmpty(t, st.NodeID)
}

func TestProvision_Rejections(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"bad pop", Request{PoP: "nope", SSID: "home"}, ErrBadPoP},
		{"empty pop", Request{SSID: "home"}, ErrBadPoP},
		{"empty ssid", Request{PoP: "1234567", SSID: "  "}, ErrInvalidRequest},
		{"long ssid", Request{PoP: "1234567", SSID: "0123456789012345678901234567890123"}, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newProvisioner(t, nil)
			err := p.Provision(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)

			st, err := p.Status()
			require.NoError(t, err)
			assert.False(t, st.Provisioned)
		})
	}
}

func TestProvision_Lockout(t *testing.T) {
	p, _ := newProvisioner(t, nil)
	ctx := context.Background()

	for i := 0; i < maxFailures; i++ {
		assert.ErrorIs(t, p.Provision(ctx, Request{PoP: "wrong", SSID: "home"}), ErrBadPoP)
	}
	assert.ErrorIs(t, p.Provision(ctx, Request{PoP: "1234567", SSID: "home"}), ErrLocked)

	require.NoError(t, p.Reset())
	assert.NoError(t, p.Provision(ctx, Request{PoP: "1234567", SSID: "home"}))
}

func TestProvision_CancelledContext(t *testing.T) {
	p, _ := newProvisioner(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Provision(ctx, Request{PoP: "1234567", SSID: "home"}), context.Canceled)
}
