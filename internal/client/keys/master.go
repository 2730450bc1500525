package keys

import (
	"encoding/base64"
	"errors"

	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
)

var errNoMasterKeys = errors.New("no master keys")

// WrapWithMaster seals plaintext with a master key. Used for tag names,
// which belong to the user rather than to any document.
func WrapWithMaster(plaintext, master []byte) (string, error) {
	sealed, err := cryptox.Seal(master, plaintext, nil)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// ResolveWithMaster opens a WrapWithMaster payload, trying the newest master
// key first since older keys are kept only for data sealed before a change.
func ResolveWithMaster(metadata string, masters [][]byte) ([]byte, error) {
	if len(masters) == 0 {
		return nil, resolutionError("master", errNoMasterKeys)
	}
	raw, err := base64.StdEncoding.DecodeString(metadata)
	if err != nil {
		return nil, resolutionError("malformed master metadata", err)
	}
	var lastErr error
	for i := len(masters) - 1; i >= 0; i-- {
		plain, err := cryptox.Open(masters[i], raw, nil)
		if err == nil {
			return plain, nil
		}
		lastErr = err
	}
	return nil, resolutionError("no master key opens payload", lastErr)
}
