package strip

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/smartlightd/internal/color"
)

func TestEncode(t *testing.T) {
	s := Strip{Count: 3, Order: color.OrderGRB}

	frame := s.Encode([]color.RGB{{R: 10, G: 20, B: 30}, {R: 255, G: 0, B: 0}}, 255)
	assert.Equal(t, []byte{20, 10, 30, 0, 255, 0, 0, 0, 0}, frame)

	dim := s.Encode([]color.RGB{{R: 255, G: 255, B: 255}}, 0)
	assert.Equal(t, make([]byte, 9), dim)
}

func TestPackets_SinglePacket(t *testing.T) {
	frame := []byte{1, 2, 3, 4, 5, 6}
	pkts := Packets(frame, 2)

	require.Len(t, pkts, 1)
	assert.Equal(t, []byte{protoDRGB, 2, 1, 2, 3, 4, 5, 6}, pkts[0])
}

func TestPackets_Split(t *testing.T) {
	const pixels = 1000
	frame := make([]byte, pixels*3)
	for i := range frame {
		frame[i] = byte(i)
	}

	pkts := Packets(frame, 5)
	require.Len(t, pkts, 3)

	total := 0
	for i, pkt := range pkts {
		assert.Equal(t, byte(protoDNRGB), pkt[0])
		assert.Equal(t, byte(5), pkt[1])
		start := int(pkt[2])<<8 | int(pkt[3])
		assert.Equal(t, i*maxDNRGBPixels, start)
		assert.Equal(t, frame[start*3:start*3+len(pkt)-4], pkt[4:])
		total += (len(pkt) - 4) / 3
	}
	assert.Equal(t, pixels, total)
}

func TestUDPSink(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	sink, err := NewUDPSink(pc.LocalAddr().String(), 2)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Show(context.Background(), []byte{9, 8, 7}))

	buf := make([]byte, 64)
	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{protoDRGB, 2, 9, 8, 7}, buf[:n])
}

func TestPacedSink_SkipsUnchanged(t *testing.T) {
	mem := NewMemorySink()
	p := NewPacedSink(mem, 1000, time.Hour)
	ctx := context.Background()

	require.NoError(t, p.Show(ctx, []byte{1, 2, 3}))
	require.NoError(t, p.Show(ctx, []byte{1, 2, 3}))
	assert.Equal(t, 1, mem.Frames())

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.Show(ctx, []byte{4, 5, 6}))
	assert.Equal(t, 2, mem.Frames())
	assert.Equal(t, []byte{4, 5, 6}, mem.Last())
}

func TestPacedSink_RateLimited(t *testing.T) {
	mem := NewMemorySink()
	p := NewPacedSink(mem, 1, 0)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, p.Show(ctx, []byte{byte(i)}))
	}
	assert.Equal(t, 1, mem.Frames())
	assert.Equal(t, []byte{0}, mem.Last())
}
