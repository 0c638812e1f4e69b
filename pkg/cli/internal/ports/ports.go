// Package ports provides port availability checking.
package ports

import (
	"fmt"
	"net"
	"strconv"
)

// IsAvailable reports whether host:port can be bound.
func IsAvailable(host string, port int) bool {
	return Check(host, port) == nil
}

// Check returns an error if host:port cannot be bound. Port 0 is always
// available.
func Check(host string, port int) error {
	if port == 0 {
		return nil
	}
	addr := Addr(host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use on %s", port, host)
	}
	_ = ln.Close()
	return nil
}

// Addr joins host and port into a listen address.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
