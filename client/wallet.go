package client

import (
	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/crypto"
)

// Wallet is a named ledger account with its signing key.
type Wallet struct {
	Name string
	Key  *crypto.PrivateKey
}

// NewWallet creates a wallet with a fresh random key.
func NewWallet(name string) (*Wallet, error) {
	seed, err := crypto.NewSeed()
	if err != nil {
		return nil, err
	}
	return DeriveWallet(name, seed, 0)
}

// DeriveWallet creates the wallet of the n-th account of a seed. The same
// seed and index always give the same wallet.
func DeriveWallet(name string, seed []byte, n uint32) (*Wallet, error) {
	key, err := crypto.DeriveKey(seed, crypto.DerivationPath(n))
	if err != nil {
		return nil, err
	}
	return &Wallet{Name: name, Key: key}, nil
}

// Address returns the ledger address of the wallet.
func (w *Wallet) Address() quickhold.Address {
	return w.Key.PublicKey().Address()
}
