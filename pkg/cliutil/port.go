package cliutil

import (
	"fmt"
	"net"
)

// FreePort asks the kernel for an unused TCP port on all interfaces.
// The port is released before returning, so another process may grab it first.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("listen on a free port: %w", err)
	}
	defer l.Close()

	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %T", l.Addr())
	}
	return addr.Port, nil
}
