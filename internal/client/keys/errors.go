package keys

import (
	"errors"
	"fmt"
)

// ErrKeyResolution matches every *KeyResolutionError via errors.Is.
var ErrKeyResolution = errors.New("content key unavailable")

// KeyResolutionError reports that a content key could not be derived from
// wrapped metadata: malformed payload, wrong private key, or no participant
// entry for the current user. Callers treat it as "content unavailable".
type KeyResolutionError struct {
	Reason string
	Err    error
}

func (e *KeyResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrKeyResolution, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrKeyResolution, e.Reason)
}

func (e *KeyResolutionError) Unwrap() error { return e.Err }

func (e *KeyResolutionError) Is(target error) bool { return target == ErrKeyResolution }

func resolutionError(reason string, err error) error {
	return &KeyResolutionError{Reason: reason, Err: err}
}
