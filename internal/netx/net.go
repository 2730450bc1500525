package netx

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// IsUnreachable reports transport failures after which the server may be
// reachable again later: timeouts, refused or reset connections and
// connections dropped mid-response.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
