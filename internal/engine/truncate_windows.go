//go:build windows

package engine

import (
	"errors"

	"golang.org/x/sys/windows"
)

// isTruncated reports the error Windows returns alongside a datagram that
// did not fit the receive buffer. The bytes that fit are still delivered.
func isTruncated(err error) bool {
	return errors.Is(err, windows.WSAEMSGSIZE)
}
