package keys

import (
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/google/uuid"
)

// Resolver binds the key operations to the current user's identity.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	id *Identity
}

func NewResolver(id *Identity) *Resolver {
	return &Resolver{id: id}
}

// UserID returns the current user's ID.
func (r *Resolver) UserID() uuid.UUID { return r.id.UserID }

// PublicKey returns the current user's public key, base64 encoded.
func (r *Resolver) PublicKey() string { return EncodePublicKey(r.id.PublicKey) }

// ContentKey resolves the document key from the current user's own entry in
// participants. Other participants' metadata is never touched.
func (r *Resolver) ContentKey(participants []models.Participant) (ContentKey, error) {
	p, ok := models.FindParticipant(participants, r.id.UserID)
	if !ok {
		return nil, resolutionError("participant lookup", common.ErrNotParticipant)
	}
	return ResolveContentKey(p.Metadata, r.id.PrivateKey)
}

// WrapFor wraps key for the holder of the base64 public key.
func (r *Resolver) WrapFor(key ContentKey, publicKey string) (string, error) {
	pub, err := DecodePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	return Wrap(key, pub)
}

// WrapForSelf wraps key for the current user.
func (r *Resolver) WrapForSelf(key ContentKey) (string, error) {
	return Wrap(key, r.id.PublicKey)
}

// EncryptTagName seals a tag name with the newest master key.
func (r *Resolver) EncryptTagName(name string) (string, error) {
	if len(r.id.MasterKeys) == 0 {
		return "", fmt.Errorf("encrypt tag name: %w", errNoMasterKeys)
	}
	return WrapWithMaster([]byte(name), r.id.MasterKeys[len(r.id.MasterKeys)-1])
}

// DecryptTagName opens a tag name sealed with any of the master keys.
func (r *Resolver) DecryptTagName(metadata string) (string, error) {
	plain, err := ResolveWithMaster(metadata, r.id.MasterKeys)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// ResolveContentKey unwraps meta with the current user's private key.
func (r *Resolver) ResolveContentKey(meta string) (ContentKey, error) {
	return ResolveContentKey(meta, r.id.PrivateKey)
}
