package keys

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/client/models"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdentity(t *testing.T) *Identity {
	t.Helper()
	priv, _, err := cryptox.NewX25519KeyPair()
	require.NoError(t, err)
	master := make([]byte, 32)
	master[0] = 7
	return NewIdentity(uuid.New(), priv, master)
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestWrapResolve_RoundTrip(t *testing.T) {
	id := newTestIdentity(t)
	key := GenerateContentKey()

	meta, err := Wrap(key, id.PublicKey)
	require.NoError(t, err)

	got, err := ResolveContentKey(meta, id.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestWrap_EachRecipientHasOwnMetadata(t *testing.T) {
	alice := newTestIdentity(t)
	bob := newTestIdentity(t)
	key := GenerateContentKey()

	forBob, err := Wrap(key, bob.PublicKey)
	require.NoError(t, err)

	_, err = ResolveContentKey(forBob, alice.PrivateKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrKeyResolution)

	got, err := ResolveContentKey(forBob, bob.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestResolveContentKey_Malformed(t *testing.T) {
	id := newTestIdentity(t)

	cases := map[string]string{
		"empty":     "",
		"not b64":   "%%%",
		"too short": base64.StdEncoding.EncodeToString(make([]byte, 16)),
		"garbage":   base64.StdEncoding.EncodeToString(make([]byte, 80)),
	}
	for name, meta := range cases {
		t.Run(name, func(t *testing.T) {
			key, err := ResolveContentKey(meta, id.PrivateKey)
			require.Error(t, err)
			assert.Nil(t, key)

			var kre *KeyResolutionError
			require.True(t, errors.As(err, &kre))
			assert.NotEmpty(t, kre.Reason)
		})
	}
}

func TestResolver_ContentKey(t *testing.T) {
	id := newTestIdentity(t)
	other := newTestIdentity(t)
	r := NewResolver(id)
	key := GenerateContentKey()

	mine, err := r.WrapForSelf(key)
	require.NoError(t, err)
	theirs, err := r.WrapFor(key, EncodePublicKey(other.PublicKey))
	require.NoError(t, err)

	ps := []models.Participant{
		{UserID: other.UserID, Metadata: theirs},
		{UserID: id.UserID, Metadata: mine},
	}
	got, err := r.ContentKey(ps)
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = r.ContentKey(ps[:1])
	assert.ErrorIs(t, err, ErrKeyResolution)
}

func TestResolver_WrapFor_BadPublicKey(t *testing.T) {
	r := NewResolver(newTestIdentity(t))
	_, err := r.WrapFor(GenerateContentKey(), "AAAA")
	require.Error(t, err)
}

func TestTagNames_MasterKeyRotation(t *testing.T) {
	id := newTestIdentity(t)
	r := NewResolver(id)

	sealed, err := r.EncryptTagName("work")
	require.NoError(t, err)

	newer := make([]byte, 32)
	newer[0] = 9
	id.MasterKeys = append(id.MasterKeys, newer)

	got, err := r.DecryptTagName(sealed)
	require.NoError(t, err)
	assert.Equal(t, "work", got)

	_, err = ResolveWithMaster(sealed, [][]byte{newer})
	assert.ErrorIs(t, err, ErrKeyResolution)

	_, err = ResolveWithMaster(sealed, nil)
	assert.ErrorIs(t, err, ErrKeyResolution)
}

func TestUserIDFromToken(t *testing.T) {
	uid := uuid.New()
	got, err := UserIDFromToken(signedToken(t, uid.String()))
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = UserIDFromToken(signedToken(t, "not-a-uuid"))
	require.Error(t, err)

	_, err = UserIDFromToken("garbage")
	require.Error(t, err)
}

func TestUnlockIdentity(t *testing.T) {
	priv, pub, err := cryptox.NewX25519KeyPair()
	require.NoError(t, err)

	sealed, err := SealPrivateKey(priv, []byte("correct horse"))
	require.NoError(t, err)

	data, err := json.Marshal(sealed)
	require.NoError(t, err)
	parsed, err := ParseSealedKey(data)
	require.NoError(t, err)

	uid := uuid.New()
	id, err := UnlockIdentity(signedToken(t, uid.String()), parsed, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, uid, id.UserID)
	assert.Equal(t, pub, id.PublicKey)
	assert.Len(t, id.MasterKeys, 1)

	_, err = UnlockIdentity(signedToken(t, uid.String()), parsed, []byte("wrong"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestParseSealedKey_Rejects(t *testing.T) {
	_, err := ParseSealedKey([]byte("{"))
	require.Error(t, err)
	_, err = ParseSealedKey([]byte(`{"salt":""}`))
	require.Error(t, err)
}
