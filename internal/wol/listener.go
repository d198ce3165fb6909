package wol

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	"wifisleep/internal/logging"
)

// WakeFunc is invoked for each magic packet addressed to the listener's
// MAC. It reports whether a suspended stack was woken.
type WakeFunc func() bool

// Listener receives magic packets on a UDP socket
type Listener struct {
	addr   string
	mac    net.HardwareAddr
	wake   WakeFunc
	logger *logging.Logger
	ready  chan net.Addr
}

// NewListener creates a listener on addr (host:port) for packets targeting mac
func NewListener(addr, mac string, wake WakeFunc, logger *logging.Logger) (*Listener, error) {
	hwAddr, err := ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("invalid wake MAC: %w", err)
	}
	return &Listener{
		addr:   addr,
		mac:    hwAddr,
		wake:   wake,
		logger: logger,
		ready:  make(chan net.Addr, 1),
	}, nil
}

// Ready yields the bound address once Run is listening
func (l *Listener) Ready() <-chan net.Addr {
	return l.ready
}

// Run reads packets until ctx is done
func (l *Listener) Run(ctx context.Context) error {
	var lc net.ListenConfig
	conn, err := lc.ListenPacket(ctx, "udp", l.addr)
	if err != nil {
		return fmt.Errorf("wake listen: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		if stop() {
			_ = conn.Close()
		}
	}()

	l.logger.Info("wol.listen.started", "Listening for magic packets", map[string]interface{}{
		"addr": conn.LocalAddr().String(),
		"mac":  l.mac.String(),
	})
	select {
	case l.ready <- conn.LocalAddr():
	default:
	}

	buf := make([]byte, 512)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("wake read: %w", err)
		}
		l.handle(buf[:n], from)
	}
}

func (l *Listener) handle(packet []byte, from net.Addr) {
	target, err := PacketTarget(packet)
	if err != nil {
		l.logger.Debug("wol.packet.invalid", "Ignoring malformed packet", map[string]interface{}{
			"from":  from.String(),
			"error": err.Error(),
		})
		return
	}
	if !bytes.Equal(target, l.mac) {
		l.logger.Debug("wol.packet.other_target", "Ignoring packet for another MAC", map[string]interface{}{
			"from":   from.String(),
			"target": target.String(),
		})
		return
	}

	woke := l.wake()
	l.logger.Info("wol.packet.received", "Magic packet received", map[string]interface{}{
		"from": from.String(),
		"woke": woke,
	})
}
