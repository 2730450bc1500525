package client

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrRemote is returned when the server answers with status=false.
	ErrRemote = errors.New("remote error")
)

// RemoteError carries the server's error code and message.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "remote error: " + e.Message
	}
	return "remote error " + e.Code + ": " + e.Message
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }
