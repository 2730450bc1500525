package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// NewX25519KeyPair generates a fresh X25519 key pair.
func NewX25519KeyPair() (priv, pub [32]byte, err error) {
	if _, err = rand.Read(priv[:]); err != nil {
		return priv, pub, fmt.Errorf("failed to generate private key: %w", err)
	}
	curve25519.ScalarBaseMult(&pub, &priv)
	return priv, pub, nil
}

// PublicKey derives the X25519 public key for priv.
func PublicKey(priv [32]byte) [32]byte {
	var pub [32]byte
	curve25519.ScalarBaseMult(&pub, &priv)
	return pub
}

// X25519SharedSecret performs priv * pub. Low-order public keys are rejected.
func X25519SharedSecret(priv, pub [32]byte) ([]byte, error) {
	return curve25519.X25519(priv[:], pub[:])
}

// HKDF fills out with key material derived from secret using HKDF-SHA256.
func HKDF(secret, salt, info, out []byte) error {
	h := hkdf.New(sha256.New, secret, salt, info)
	_, err := io.ReadFull(h, out)
	return err
}
