package wol

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"

	"wifisleep/internal/logging"
)

// BuildMagicPacket constructs the 102-byte magic packet for mac
func BuildMagicPacket(mac net.HardwareAddr) ([]byte, error) {
	if len(mac) != 6 {
		return nil, fmt.Errorf("invalid MAC address length: expected 6 bytes, got %d", len(mac))
	}

	var buf bytes.Buffer
	buf.Grow(PacketSize)
	for i := 0; i < 6; i++ {
		buf.WriteByte(0xFF)
	}
	for i := 0; i < 16; i++ {
		buf.Write(mac)
	}
	return buf.Bytes(), nil
}

// PacketTarget validates packet and returns the MAC it addresses. Trailing
// bytes (a SecureOn password) are ignored.
func PacketTarget(packet []byte) (net.HardwareAddr, error) {
	if len(packet) < PacketSize {
		return nil, fmt.Errorf("invalid packet length: expected at least %d bytes, got %d", PacketSize, len(packet))
	}

	for i := 0; i < 6; i++ {
		if packet[i] != 0xFF {
			return nil, fmt.Errorf("invalid packet header: byte %d should be 0xFF, got 0x%02X", i, packet[i])
		}
	}

	mac := packet[6:12]
	for i := 1; i < 16; i++ {
		start := 6 + i*6
		if !bytes.Equal(packet[start:start+6], mac) {
			return nil, fmt.Errorf("MAC repetition %d does not match", i)
		}
	}
	return net.HardwareAddr(bytes.Clone(mac)), nil
}

// Sender sends magic packets over UDP
type Sender struct {
	logger *logging.Logger
}

// NewSender creates a new magic packet sender
func NewSender(logger *logging.Logger) *Sender {
	return &Sender{logger: logger}
}

// Send sends a magic packet for targetMAC to addr (host or host:port).
// An empty addr broadcasts on DefaultPort.
func (s *Sender) Send(ctx context.Context, targetMAC, addr string) error {
	hwAddr, err := ParseMAC(targetMAC)
	if err != nil {
		return fmt.Errorf("invalid MAC address: %w", err)
	}
	packet, err := BuildMagicPacket(hwAddr)
	if err != nil {
		return fmt.Errorf("failed to build magic packet: %w", err)
	}

	if addr == "" {
		addr = "255.255.255.255"
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("failed to create UDP connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			s.logger.Warn("wol.send.close_failed", "Failed to close UDP connection", map[string]interface{}{
				"address": addr,
				"error":   closeErr.Error(),
			})
		}
	}()

	n, err := conn.Write(packet)
	if err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	if n != len(packet) {
		return fmt.Errorf("incomplete packet send: sent %d of %d bytes", n, len(packet))
	}

	s.logger.Info("wol.send.success", "Magic packet sent", map[string]interface{}{
		"mac":     hwAddr.String(),
		"address": addr,
	})
	return nil
}
