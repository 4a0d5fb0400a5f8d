package strip

import (
	"context"
	"fmt"
	"net"
	"time"
)

// WLED realtime UDP protocol identifiers.
const (
	protoDRGB  = 2
	protoDNRGB = 4

	maxDRGBPixels  = 490
	maxDNRGBPixels = 489
)

// UDPSink sends frames to a WLED-compatible receiver using the realtime UDP
// protocol. Frames must be RGB ordered.
type UDPSink struct {
	conn    net.Conn
	timeout uint8
}

// NewUDPSink dials addr. timeout is how many seconds the receiver stays in
// realtime mode after the last packet.
func NewUDPSink(addr string, timeout int) (*UDPSink, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp sink %s: %w", addr, err)
	}
	if timeout < 1 {
		timeout = 1
	}
	if timeout > 255 {
		timeout = 255
	}
	return &UDPSink{conn: conn, timeout: uint8(timeout)}, nil
}

// Show sends the frame, splitting long strips into several packets.
func (s *UDPSink) Show(ctx context.Context, frame []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetWriteDeadline(deadline)
	} else {
		_ = s.conn.SetWriteDeadline(time.Now().Add(time.Second))
	}

	for _, pkt := range Packets(frame, s.timeout) {
		if _, err := s.conn.Write(pkt); err != nil {
			return fmt.Errorf("send frame: %w", err)
		}
	}
	return nil
}

// Close closes the socket.
func (s *UDPSink) Close() error {
	return s.conn.Close()
}

// Packets builds the realtime packets for an RGB frame.
func Packets(frame []byte, timeout uint8) [][]byte {
	pixels := len(frame) / 3
	if pixels <= maxDRGBPixels {
		pkt := make([]byte, 0, 2+pixels*3)
		pkt = append(pkt, protoDRGB, timeout)
		pkt = append(pkt, frame[:pixels*3]...)
		return [][]byte{pkt}
	}

	var packets [][]byte
	for start := 0; start < pixels; start += maxDNRGBPixels {
		end := start + maxDNRGBPixels
		if end > pixels {
			end = pixels
		}
		pkt := make([]byte, 0, 4+(end-start)*3)
		pkt = append(pkt, protoDNRGB, timeout, byte(start>>8), byte(start))
		pkt = append(pkt, frame[start*3:end*3]...)
		packets = append(packets, pkt)
	}
	return packets
}
