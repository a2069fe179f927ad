//go:build unix

package mcast

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func reuseAddrControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, boolToInt(reuse))
		})
		if err != nil {
			return err
		}
		return opErr
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
