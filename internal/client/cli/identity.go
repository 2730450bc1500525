package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/gophdrive/internal/client/config"
	"github.com/dmitrijs2005/gophdrive/internal/client/keys"
	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/cryptox"
	"github.com/dmitrijs2005/gophdrive/internal/filex"
)

// loadIdentity unlocks the sealed private key in the identity file. When
// the file does not exist the user is offered to create one.
func loadIdentity(c *config.Config, reader *bufio.Reader, w io.Writer) (*keys.Identity, error) {
	data, err := os.ReadFile(c.IdentityFile)
	if errors.Is(err, fs.ErrNotExist) {
		return createIdentity(c, reader, w)
	}
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}

	sealed, err := keys.ParseSealedKey(data)
	if err != nil {
		return nil, err
	}

	pass, err := GetPassword(w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	return keys.UnlockIdentity(c.APIKey, sealed, pass)
}

func createIdentity(c *config.Config, reader *bufio.Reader, w io.Writer) (*keys.Identity, error) {
	if _, err := keys.UserIDFromToken(c.APIKey); err != nil {
		return nil, err
	}

	ok, err := GetConfirm(reader, fmt.Sprintf("No identity at %s. Create a new key pair?", c.IdentityFile), w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("identity file %s: %w", c.IdentityFile, common.ErrorNotFound)
	}

	pass, err := GetPassword(w)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)
	if len(pass) == 0 {
		return nil, errors.New("passphrase must not be empty")
	}

	priv, _, err := cryptox.NewX25519KeyPair()
	if err != nil {
		return nil, err
	}
	sealed, err := keys.SealPrivateKey(priv, pass)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := filex.EnsureParentDir(c.IdentityFile); err != nil {
		return nil, err
	}
	if err := os.WriteFile(c.IdentityFile, data, 0o600); err != nil {
		return nil, fmt.Errorf("write identity file: %w", err)
	}

	id, err := keys.UnlockIdentity(c.APIKey, sealed, pass)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Identity written to %s\nPublic key: %s\n", c.IdentityFile, keys.EncodePublicKey(id.PublicKey))
	return id, nil
}
