package ledger

import (
	"crypto/sha512"
	"encoding/binary"
	"regexp"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/crypto"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
)

// SignCodeV1 is the current way to prefix the bytes we use to build a
// signature
const SignCodeV1 = "\x00\xCA\xFE\x00"

var isValidChainID = regexp.MustCompile(`^[a-zA-Z0-9_.-]{4,20}$`).MatchString

// IsValidChainID returns true if the chain id can be used for signing.
func IsValidChainID(chainID string) bool {
	return isValidChainID(chainID)
}

// BuildSignBytes combines all info on the actual tx before signing.
//
// As specified in https://github.com/iov-one/weave/issues/70, we use the
// following format:
//
//   version | len(chainID) | chainID      | nonce             | signBytes
//   4bytes  | uint8        | ascii string | int64 (bigendian) | serialized transaction
//
// The result is hashed with sha512, so that a constant length output is fed
// into eddsa.
func BuildSignBytes(signBytes []byte, chainID string, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(errors.ErrSequence, "negative")
	}
	if !IsValidChainID(chainID) {
		return nil, errors.Wrapf(errors.ErrChainID, "chain id: %v", chainID)
	}

	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, uint64(seq))

	output := make([]byte, 0, 4+1+len(chainID)+8+len(signBytes))
	output = append(output, []byte(SignCodeV1)...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, nonce...)
	output = append(output, signBytes...)

	hashed := sha512.Sum512(output)
	return hashed[:], nil
}

// SignTx signs the transaction for given chain with its current sequence
// and attaches signer and signature.
func SignTx(key *crypto.PrivateKey, tx *Tx, chainID string) error {
	tx.Signer = key.PublicKey()
	raw, err := tx.SignBytes()
	if err != nil {
		return err
	}
	toSign, err := BuildSignBytes(raw, chainID, tx.Sequence)
	if err != nil {
		return err
	}
	sig, err := key.Sign(toSign)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// Auth is the outcome of a successful authentication of a transaction.
type Auth struct {
	// Signer is the address of the signing account. It is empty for an
	// unsigned faucet transaction.
	Signer quickhold.Address
	// Sequence is the sequence the transaction was signed with.
	Sequence int64
}

// authenticate verifies the signature, the sequence and the fee of the
// transaction. On success the sequence of the signer is incremented and
// the fee is charged. Those changes are kept even if the message fails.
func authenticate(db store.KVStore, params *Params, tx *Tx, msg Msg) (Auth, error) {
	if tx.Signer == nil {
		if _, ok := msg.(*FundMsg); ok && tx.Signature == nil {
			return Auth{}, nil
		}
		return Auth{}, errors.Wrap(errors.ErrUnauthorized, "missing signature")
	}

	signer := tx.Signer.Address()
	acc, err := loadAccount(db, signer)
	if err != nil {
		return Auth{}, errors.Wrap(err, "signer")
	}
	if tx.Sequence != acc.Sequence {
		return Auth{}, errors.Wrapf(errors.ErrSequence, "expected %d, got %d", acc.Sequence, tx.Sequence)
	}

	raw, err := tx.SignBytes()
	if err != nil {
		return Auth{}, err
	}
	toSign, err := BuildSignBytes(raw, params.ChainID, tx.Sequence)
	if err != nil {
		return Auth{}, err
	}
	if !tx.Signer.Verify(toSign, tx.Signature) {
		return Auth{}, errors.Wrap(errors.ErrUnauthorized, "invalid signature")
	}

	fee, err := checkFee(params, tx.Fee)
	if err != nil {
		return Auth{}, err
	}
	if !acc.Balance.IsGTE(fee) {
		return Auth{}, errors.Wrapf(errors.ErrAmount, "cannot pay fee %s with %s", fee, acc.Balance)
	}
	rest, err := acc.Balance.Subtract(fee)
	if err != nil {
		return Auth{}, err
	}
	acc.Balance = &rest
	acc.Sequence++
	if err := saveAccount(db, acc); err != nil {
		return Auth{}, err
	}
	return Auth{Signer: signer, Sequence: tx.Sequence}, nil
}

// checkFee returns the fee to charge. The fee must be at least the base fee
// of the ledger.
func checkFee(params *Params, fee *coin.Coin) (coin.Coin, error) {
	if err := validateFee(fee); err != nil {
		return coin.Coin{}, errors.Field("Fee", err, "")
	}
	paid := coin.Coin{Ticker: params.Ticker}
	if fee != nil {
		paid = *fee
	}
	if coin.IsEmpty(params.BaseFee) {
		if paid.Ticker == "" {
			paid.Ticker = params.Ticker
		}
		if !paid.IsZero() && paid.Ticker != params.Ticker {
			return coin.Coin{}, errors.Wrapf(errors.ErrCurrency, "fee in %s", paid.Ticker)
		}
		return paid, nil
	}
	if !paid.IsGTE(*params.BaseFee) {
		return coin.Coin{}, errors.Wrapf(errors.ErrAmount, "fee %s below %s", paid, params.BaseFee)
	}
	return paid, nil
}
