//go:build windows

package mcast

import (
	"syscall"

	"golang.org/x/sys/windows"
)

func reuseAddrControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		v := 0
		if reuse {
			v = 1
		}
		var opErr error
		err := c.Control(func(fd uintptr) {
			opErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, v)
		})
		if err != nil {
			return err
		}
		return opErr
	}
}
