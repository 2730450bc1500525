package keys

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrWrongPassphrase = errors.New("wrong passphrase")

// Identity is the current user's key material.
type Identity struct {
	UserID     uuid.UUID
	PrivateKey [32]byte
	PublicKey  [32]byte
	// MasterKeys are ordered oldest first.
	MasterKeys [][]byte
}

// NewIdentity builds an Identity, deriving the public key from priv.
func NewIdentity(userID uuid.UUID, priv [32]byte, masterKeys ...[]byte) *Identity {
	return &Identity{
		UserID:     userID,
		PrivateKey: priv,
		PublicKey:  cryptox.PublicKey(priv),
		MasterKeys: masterKeys,
	}
}

// UserIDFromToken reads the subject claim of the session token. The
// signature is not checked here: the server verifies every request, the
// client only needs to know who it is for echo suppression.
func UserIDFromToken(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return uuid.Nil, fmt.Errorf("parse session token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: token subject %q", common.ErrInvalidUUID, claims.Subject)
	}
	return id, nil
}

// SealedKey is the on-disk form of the private key, sealed with a master
// key derived from the user's passphrase.
type SealedKey struct {
	Salt       []byte `json:"salt"`
	PrivateKey []byte `json:"privateKey"`
}

// SealPrivateKey protects priv with passphrase.
func SealPrivateKey(priv [32]byte, passphrase []byte) (SealedKey, error) {
	salt := common.GenerateRandByteArray(16)
	master := cryptox.DeriveMasterKey(passphrase, salt)
	defer common.WipeByteArray(master)

	sealed, err := cryptox.Seal(master, priv[:], nil)
	if err != nil {
		return SealedKey{}, err
	}
	return SealedKey{Salt: salt, PrivateKey: sealed}, nil
}

// ParseSealedKey decodes a JSON key file.
func ParseSealedKey(data []byte) (SealedKey, error) {
	var sk SealedKey
	if err := json.Unmarshal(data, &sk); err != nil {
		return SealedKey{}, fmt.Errorf("decode key file: %w", err)
	}
	if len(sk.Salt) == 0 || len(sk.PrivateKey) == 0 {
		return SealedKey{}, errors.New("key file is missing salt or private key")
	}
	return sk, nil
}

// UnlockIdentity derives the master key from passphrase, opens the private
// key and reads the user ID from the session token.
func UnlockIdentity(token string, sealed SealedKey, passphrase []byte) (*Identity, error) {
	userID, err := UserIDFromToken(token)
	if err != nil {
		return nil, err
	}

	master := cryptox.DeriveMasterKey(passphrase, sealed.Salt)
	raw, err := cryptox.Open(master, sealed.PrivateKey, nil)
	if err != nil {
		common.WipeByteArray(master)
		return nil, ErrWrongPassphrase
	}
	if len(raw) != 32 {
		common.WipeByteArray(master)
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}

	var priv [32]byte
	copy(priv[:], raw)
	common.WipeByteArray(raw)
	return NewIdentity(userID, priv, master), nil
}
