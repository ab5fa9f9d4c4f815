package pgdb

import (
	"fmt"
	"net"
	"sync"
)

// claimedPorts tracks explicitly requested ports already handed out within
// this process, so two instances started with the same requested port do
// not collide. Claiming is in-memory bookkeeping only, not an OS-level
// reservation; a genuine bind conflict surfaces later as a startup failure.
var (
	claimedPortsMu sync.Mutex
	claimedPorts   = make(map[uint16]struct{})
)

// allocatePort resolves the port an instance should listen on.
//
// requested == 0: bind an ephemeral listening socket on the loopback
// interface, read back the OS-assigned port, close the socket, and return
// that port. The OS may hand the port to someone else before postgres binds
// it; that race is inherent (postgres does not accept port 0) and accepted.
//
// requested != 0 with reuse false: scan upward from the requested port for
// a value not yet claimed in this process, wrapping past 65535 and skipping
// zero. The privileged range below 1024 is skipped unless the original
// request was itself privileged. The found port is claimed and returned.
//
// requested != 0 with reuse true: return the port as-is, unclaimed.
func allocatePort(requested uint16, reuse bool) (uint16, error) {
	if requested == 0 {
		return findUnusedPort()
	}
	if reuse {
		return requested, nil
	}

	claimedPortsMu.Lock()
	defer claimedPortsMu.Unlock()

	privileged := requested < 1024
	port := requested
	for {
		if _, taken := claimedPorts[port]; !taken {
			claimedPorts[port] = struct{}{}
			return port, nil
		}
		port++
		if port == 0 {
			port = 1
		}
		if !privileged && port < 1024 {
			port = 1024
		}
	}
}

// findUnusedPort asks the OS for a currently free loopback port.
func findUnusedPort() (uint16, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to probe for an unused port: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	if err := listener.Close(); err != nil {
		return 0, fmt.Errorf("failed to release probe socket: %w", err)
	}
	return uint16(port), nil
}
