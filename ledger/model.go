package ledger

import (
	"encoding/binary"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
)

const (
	accountPrefix = "acct:"
	holdPrefix    = "hold:"
	expiryPrefix  = "holdexp:"
	paramsKey     = "_ql:params"

	// holdKeyLength is the length of a hold id, the owner address followed
	// by the 8 byte big-endian sequence.
	holdKeyLength = quickhold.AddressLength + 8
)

func accountKey(addr quickhold.Address) []byte {
	return append([]byte(accountPrefix), addr...)
}

// HoldID returns the identifier of the hold created by the owner's
// transaction with given sequence.
func HoldID(owner quickhold.Address, sequence int64) []byte {
	id := make([]byte, 0, holdKeyLength)
	id = append(id, owner...)
	return append(id, encodeSequence(sequence)...)
}

func holdKey(id []byte) []byte {
	return append([]byte(holdPrefix), id...)
}

// expiryKey indexes pending holds by cancel-after time so that expired
// holds can be found with a single range query.
func expiryKey(t quickhold.UnixTime, id []byte) []byte {
	key := make([]byte, 0, len(expiryPrefix)+8+len(id))
	key = append(key, expiryPrefix...)
	key = append(key, encodeSequence(int64(t))...)
	return append(key, id...)
}

func encodeSequence(n int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

func load(db store.ReadOnlyKVStore, key []byte, dest proto.Message) (bool, error) {
	raw, err := db.Get(key)
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	if raw == nil {
		return false, nil
	}
	if err := proto.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(errors.ErrModel, "cannot unmarshal %T: %s", dest, err)
	}
	return true, nil
}

func save(db store.KVStore, key []byte, m proto.Message) error {
	raw, err := proto.Marshal(m)
	if err != nil {
		return errors.Wrapf(errors.ErrModel, "cannot marshal %T: %s", m, err)
	}
	return db.Set(key, raw)
}

// GetAccount returns the account of given address or nil if it does not
// exist.
func GetAccount(db store.ReadOnlyKVStore, addr quickhold.Address) (*Account, error) {
	var acc Account
	ok, err := load(db, accountKey(addr), &acc)
	if err != nil || !ok {
		return nil, err
	}
	return &acc, nil
}

// loadAccount returns the account of given address, failing with
// ErrNotFound if it does not exist.
func loadAccount(db store.ReadOnlyKVStore, addr quickhold.Address) (*Account, error) {
	acc, err := GetAccount(db, addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "account %s", addr)
	}
	return acc, nil
}

func saveAccount(db store.KVStore, acc *Account) error {
	if err := acc.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	return save(db, accountKey(acc.Address), acc)
}

// Validate ensures the account can be stored.
func (m *Account) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Address", m.Address.Validate())
	if m.Balance == nil {
		errs = errors.AppendField(errs, "Balance", errors.ErrEmpty)
	} else if err := m.Balance.Validate(); err != nil {
		errs = errors.AppendField(errs, "Balance", err)
	} else if !m.Balance.IsNonNegative() {
		errs = errors.AppendField(errs, "Balance", errors.Wrap(errors.ErrAmount, "negative"))
	}
	if m.Sequence < 1 {
		errs = errors.AppendField(errs, "Sequence", errors.Wrap(errors.ErrSequence, "must start at 1"))
	}
	return errs
}

// credit adds amount to the balance of an address, creating the account
// if needed.
func credit(db store.KVStore, addr quickhold.Address, amount coin.Coin) error {
	acc, err := GetAccount(db, addr)
	if err != nil {
		return err
	}
	if acc == nil {
		acc = &Account{
			Address:  addr,
			Balance:  &coin.Coin{Ticker: amount.Ticker},
			Sequence: 1,
		}
	}
	total, err := acc.Balance.Add(amount)
	if err != nil {
		return err
	}
	acc.Balance = &total
	return saveAccount(db, acc)
}

// debit subtracts amount from the balance of an existing account.
func debit(db store.KVStore, addr quickhold.Address, amount coin.Coin) error {
	acc, err := loadAccount(db, addr)
	if err != nil {
		return err
	}
	if !acc.Balance.IsGTE(amount) {
		return errors.Wrapf(errors.ErrAmount, "balance %s, need %s", acc.Balance, amount)
	}
	rest, err := acc.Balance.Subtract(amount)
	if err != nil {
		return err
	}
	acc.Balance = &rest
	return saveAccount(db, acc)
}

// GetHold returns the hold of given id or nil if it does not exist.
func GetHold(db store.ReadOnlyKVStore, id []byte) (*Hold, error) {
	var h Hold
	ok, err := load(db, holdKey(id), &h)
	if err != nil || !ok {
		return nil, err
	}
	return &h, nil
}

// loadHold loads a hold, returns error if not present.
func loadHold(db store.ReadOnlyKVStore, owner quickhold.Address, sequence int64) (*Hold, []byte, error) {
	id := HoldID(owner, sequence)
	h, err := GetHold(db, id)
	if err != nil {
		return nil, nil, err
	}
	if h == nil {
		return nil, nil, errors.Wrapf(errors.ErrNotFound, "hold %s/%d", owner, sequence)
	}
	return h, id, nil
}

// Validate ensures the hold can be stored.
func (m *Hold) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	if m.Sequence < 1 {
		errs = errors.AppendField(errs, "Sequence", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	if m.Amount == nil || !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrInvalidAmount, "must be positive"))
	}
	if _, ok := holdStateNames[m.State]; !ok {
		errs = errors.AppendField(errs, "State", errors.Wrapf(errors.ErrState, "unknown state %d", m.State))
	}
	return errs
}

// saveHold stores the hold and keeps the expiry index in sync, only
// pending holds are indexed.
func saveHold(db store.KVStore, h *Hold) error {
	if err := h.Validate(); err != nil {
		return errors.Wrap(err, "hold")
	}
	id := HoldID(h.Owner, h.Sequence)
	if h.State == HoldPending {
		if err := db.Set(expiryKey(h.CancelAfter, id), []byte{1}); err != nil {
			return err
		}
	} else {
		if err := db.Delete(expiryKey(h.CancelAfter, id)); err != nil {
			return err
		}
	}
	return save(db, holdKey(id), h)
}

// expiryEntry is a record of the expiry index.
type expiryEntry struct {
	key []byte
	id  []byte
}

// expiredHolds returns the expiry index entries of all holds that expired
// at given time.
func expiredHolds(db store.ReadOnlyKVStore, now quickhold.UnixTime) ([]expiryEntry, error) {
	start := []byte(expiryPrefix)
	end := expiryKey(now+1, nil)
	it, err := db.Iterator(start, end)
	if err != nil {
		return nil, err
	}
	models, err := store.ReadAll(it)
	if err != nil {
		return nil, err
	}
	entries := make([]expiryEntry, 0, len(models))
	for _, m := range models {
		entries = append(entries, expiryEntry{key: m.Key, id: m.Key[len(expiryPrefix)+8:]})
	}
	return entries, nil
}

// GetParams returns the ledger parameters or nil before genesis.
func GetParams(db store.ReadOnlyKVStore) (*Params, error) {
	var p Params
	ok, err := load(db, []byte(paramsKey), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}
