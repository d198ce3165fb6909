// Package inhibit holds a systemd-logind sleep inhibitor while the network
// stack is awake, so the host only sleeps once the stack is suspended.
package inhibit

import (
	"fmt"
	"syscall"

	"github.com/godbus/dbus/v5"
)

// Lock is a held inhibitor
type Lock interface {
	Release() error
}

// Acquirer takes a new inhibitor lock
type Acquirer func(who, why string) (Lock, error)

// logindLock is released when its file descriptor is closed
type logindLock struct {
	fd int
}

// Logind acquires a "sleep" delay inhibitor from org.freedesktop.login1
func Logind(who, why string) (Lock, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object("org.freedesktop.login1", "/org/freedesktop/login1")
	call := obj.Call("org.freedesktop.login1.Manager.Inhibit", 0,
		"sleep", // what
		who,
		why,
		"delay")
	if call.Err != nil {
		return nil, fmt.Errorf("failed to acquire inhibitor lock: %w", call.Err)
	}

	var fd dbus.UnixFD
	if err := call.Store(&fd); err != nil {
		return nil, fmt.Errorf("failed to extract file descriptor: %w", err)
	}
	return &logindLock{fd: int(fd)}, nil
}

func (l *logindLock) Release() error {
	if l.fd < 0 {
		return nil
	}
	if err := syscall.Close(l.fd); err != nil {
		return fmt.Errorf("failed to close inhibitor fd: %w", err)
	}
	l.fd = -1
	return nil
}
