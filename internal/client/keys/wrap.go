// Package keys resolves per-document content keys.
//
// Every note and conversation has one random 32-byte content key. It is
// wrapped once per participant: an ephemeral X25519 key agreement with the
// participant's public key feeds HKDF, and the resulting wrapping key seals
// the content key with AES-GCM. The participant record stores
//
//	base64(ephemeralPublic[32] || nonce || ciphertext)
//
// Only the holder of the matching private key can unwrap it. Tag names use a
// separate scheme sealed directly with the user's master keys.
package keys

import (
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
)

var wrapInfo = []byte("gophdrive content key")

// ContentKey is the symmetric key protecting one document's payloads.
type ContentKey []byte

// GenerateContentKey returns a fresh random content key.
func GenerateContentKey() ContentKey {
	return ContentKey(common.GenerateRandByteArray(common.ContentKeySize))
}

func wrappingKey(shared []byte, ephPub, recipientPub [32]byte) ([]byte, error) {
	salt := make([]byte, 0, 64)
	salt = append(salt, ephPub[:]...)
	salt = append(salt, recipientPub[:]...)

	wk := make([]byte, 32)
	if err := cryptox.HKDF(shared, salt, wrapInfo, wk); err != nil {
		return nil, err
	}
	return wk, nil
}

// Wrap seals key for the owner of recipientPub.
func Wrap(key ContentKey, recipientPub [32]byte) (string, error) {
	ephPriv, ephPub, err := cryptox.NewX25519KeyPair()
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(ephPriv[:])

	shared, err := cryptox.X25519SharedSecret(ephPriv, recipientPub)
	if err != nil {
		return "", fmt.Errorf("key agreement: %w", err)
	}
	wk, err := wrappingKey(shared, ephPub, recipientPub)
	if err != nil {
		return "", fmt.Errorf("derive wrapping key: %w", err)
	}
	defer common.WipeByteArray(wk)

	sealed, err := cryptox.Seal(wk, key, ephPub[:])
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, 32+len(sealed))
	out = append(out, ephPub[:]...)
	out = append(out, sealed...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// ResolveContentKey unwraps the current user's own participant metadata with
// their private key. It never returns a partially valid key: any failure is
// a *KeyResolutionError.
func ResolveContentKey(metadata string, priv [32]byte) (ContentKey, error) {
	if metadata == "" {
		return nil, resolutionError("empty metadata", nil)
	}
	raw, err := base64.StdEncoding.DecodeString(metadata)
	if err != nil {
		return nil, resolutionError("malformed metadata", err)
	}
	if len(raw) <= 32 {
		return nil, resolutionError("metadata too short", nil)
	}

	var ephPub [32]byte
	copy(ephPub[:], raw[:32])

	shared, err := cryptox.X25519SharedSecret(priv, ephPub)
	if err != nil {
		return nil, resolutionError("key agreement", err)
	}
	wk, err := wrappingKey(shared, ephPub, cryptox.PublicKey(priv))
	if err != nil {
		return nil, resolutionError("derive wrapping key", err)
	}
	defer common.WipeByteArray(wk)

	key, err := cryptox.Open(wk, raw[32:], ephPub[:])
	if err != nil {
		return nil, resolutionError("unwrap", err)
	}
	if len(key) != common.ContentKeySize {
		return nil, resolutionError(fmt.Sprintf("unexpected key size %d", len(key)), nil)
	}
	return ContentKey(key), nil
}

// DecodePublicKey parses a base64 X25519 public key.
func DecodePublicKey(s string) ([32]byte, error) {
	var pub [32]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return pub, fmt.Errorf("public key must be 32 bytes, got %d", len(raw))
	}
	copy(pub[:], raw)
	return pub, nil
}

// EncodePublicKey is the inverse of DecodePublicKey.
func EncodePublicKey(pub [32]byte) string {
	return base64.StdEncoding.EncodeToString(pub[:])
}
