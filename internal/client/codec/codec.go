// Package codec encrypts and decrypts document payloads (note titles,
// previews, content, chat message bodies) with a resolved content key.
// Everything here is a pure function of its inputs.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
)

var ErrDecryptionFailed = errors.New("decryption failed")

// Result is the outcome of Decrypt. A zero Result means the ciphertext was
// empty: the document has no content yet. Failed reports an unreadable
// payload, which must not be confused with an empty one.
type Result struct {
	Plaintext string
	Err       error
}

// Empty reports a successful decryption of nothing.
func (r Result) Empty() bool { return r.Err == nil && r.Plaintext == "" }

// Failed reports that the payload could not be decrypted.
func (r Result) Failed() bool { return r.Err != nil }

// Encrypt seals plaintext under key and returns base64(nonce || ciphertext).
// Empty plaintext encrypts to the empty string.
func Encrypt(plaintext string, key []byte) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	sealed, err := cryptox.Seal(key, []byte(plaintext), nil)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a payload produced by Encrypt. Empty ciphertext yields an
// empty Result without invoking the cipher.
func Decrypt(ciphertext string, key []byte) Result {
	if ciphertext == "" {
		return Result{}
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrDecryptionFailed, err)}
	}
	plain, err := cryptox.Open(key, raw, nil)
	if err != nil {
		return Result{Err: fmt.Errorf("%w: %v", ErrDecryptionFailed, err)}
	}
	return Result{Plaintext: string(plain)}
}

// DecryptString is Decrypt with failures collapsed to "".
func DecryptString(ciphertext string, key []byte) string {
	return Decrypt(ciphertext, key).Plaintext
}
