package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/iov-one/quickhold/errors"
	"github.com/stellar/go/exp/crypto/derivation"
)

// SeedSize is the size of a session seed returned by NewSeed.
const SeedSize = 64

// DerivationPath returns the SLIP-0010 path of the n-th account.
func DerivationPath(n uint32) string {
	return fmt.Sprintf("m/44'/234'/%d'", n)
}

// NewSeed returns a random seed that keys can be derived from.
func NewSeed() ([]byte, error) {
	seed := make([]byte, SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return nil, errors.Wrap(err, "read random")
	}
	return seed, nil
}

// DeriveKey derives an ed25519 private key from the seed using given
// hardened derivation path, for example "m/44'/234'/0'".
func DeriveKey(seed []byte, path string) (*PrivateKey, error) {
	if len(seed) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "seed")
	}
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "derive path %q: %s", path, err)
	}
	return PrivKeyEd25519FromSeed(k.Key), nil
}
