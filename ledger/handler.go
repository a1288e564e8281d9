package ledger

import (
	"time"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/conditions"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
)

// BlockInfo describes the block a transaction is processed in.
type BlockInfo struct {
	ChainID string
	Height  int64
	Time    time.Time
}

// IsExpired returns true if given deadline was reached in this block.
func (b BlockInfo) IsExpired(t quickhold.UnixTime) bool {
	return quickhold.IsExpired(b.Time, t)
}

// Result is the outcome of a successfully delivered message.
type Result struct {
	// Data is returned to the client, for holds it is the hold id.
	Data []byte
	// Log is a human readable description.
	Log string
}

// Handler processes a single kind of message. Check only validates the
// message against the state, Deliver applies it.
type Handler interface {
	Check(info BlockInfo, db store.KVStore, auth Auth, msg Msg) error
	Deliver(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*Result, error)
}

// Router dispatches messages to handlers by their path.
type Router struct {
	routes map[string]Handler
}

// NewRouter returns a router with all ledger handlers registered.
func NewRouter(params *Params) *Router {
	r := &Router{routes: make(map[string]Handler)}
	r.Handle(pathFund, FundHandler{params: params})
	r.Handle(pathCreateHold, CreateHoldHandler{params: params})
	r.Handle(pathFinishHold, FinishHoldHandler{})
	r.Handle(pathCancelHold, CancelHoldHandler{})
	return r
}

// Handle registers a handler for given path. It panics if the path is
// already taken.
func (r *Router) Handle(path string, h Handler) {
	if _, ok := r.routes[path]; ok {
		panic("re-registering route: " + path)
	}
	r.routes[path] = h
}

// Handler returns the handler of the message.
func (r *Router) Handler(msg Msg) (Handler, error) {
	h, ok := r.routes[msg.Path()]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no handler for %q", msg.Path())
	}
	return h, nil
}

// FundHandler credits the faucet amount to an address.
type FundHandler struct {
	params *Params
}

var _ Handler = FundHandler{}

func (h FundHandler) Check(info BlockInfo, db store.KVStore, auth Auth, msg Msg) error {
	_, err := h.validate(msg)
	return err
}

func (h FundHandler) Deliver(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*Result, error) {
	m, err := h.validate(msg)
	if err != nil {
		return nil, err
	}
	if err := credit(db, m.Address, *h.params.Faucet); err != nil {
		return nil, err
	}
	return &Result{Log: "funded " + h.params.Faucet.String()}, nil
}

func (h FundHandler) validate(msg Msg) (*FundMsg, error) {
	m, ok := msg.(*FundMsg)
	if !ok {
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
	if coin.IsEmpty(h.params.Faucet) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "faucet disabled")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateHoldHandler moves funds from the owner into a new pending hold.
type CreateHoldHandler struct {
	params *Params
}

var _ Handler = CreateHoldHandler{}

func (h CreateHoldHandler) Check(info BlockInfo, db store.KVStore, auth Auth, msg Msg) error {
	_, err := h.validate(info, db, auth, msg)
	return err
}

func (h CreateHoldHandler) Deliver(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*Result, error) {
	m, err := h.validate(info, db, auth, msg)
	if err != nil {
		return nil, err
	}
	if err := debit(db, m.Owner, *m.Amount); err != nil {
		return nil, err
	}
	hold := &Hold{
		Owner:       m.Owner,
		Sequence:    auth.Sequence,
		Destination: m.Destination,
		Amount:      m.Amount,
		Condition:   m.Condition,
		CancelAfter: m.CancelAfter,
		State:       HoldPending,
		Memo:        m.Memo,
	}
	id := HoldID(hold.Owner, hold.Sequence)
	if old, err := GetHold(db, id); err != nil {
		return nil, err
	} else if old != nil {
		return nil, errors.Wrapf(errors.ErrDuplicate, "hold %X", id)
	}
	if err := saveHold(db, hold); err != nil {
		return nil, err
	}
	return &Result{Data: id, Log: "hold created"}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CreateHoldHandler) validate(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*CreateHoldMsg, error) {
	m, ok := msg.(*CreateHoldMsg)
	if !ok {
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	// Owner must authorize this
	if !m.Owner.Equals(auth.Signer) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "owner must sign")
	}
	if m.Amount.Ticker != h.params.Ticker {
		return nil, errors.Wrapf(errors.ErrCurrency, "hold of %s on a %s ledger", m.Amount.Ticker, h.params.Ticker)
	}
	if info.IsExpired(m.CancelAfter) {
		return nil, errors.Wrapf(errors.ErrExpired, "cancel after %s is not in the future", m.CancelAfter)
	}
	if dst, err := GetAccount(db, m.Destination); err != nil {
		return nil, err
	} else if dst == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "destination %s", m.Destination)
	}
	owner, err := loadAccount(db, m.Owner)
	if err != nil {
		return nil, err
	}
	if !owner.Balance.IsGTE(*m.Amount) {
		return nil, errors.Wrapf(errors.ErrAmount, "balance %s, need %s", owner.Balance, m.Amount)
	}
	return m, nil
}

// FinishHoldHandler releases a pending hold to its destination.
type FinishHoldHandler struct{}

var _ Handler = FinishHoldHandler{}

func (h FinishHoldHandler) Check(info BlockInfo, db store.KVStore, auth Auth, msg Msg) error {
	_, err := h.validate(info, db, msg)
	return err
}

func (h FinishHoldHandler) Deliver(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*Result, error) {
	hold, err := h.validate(info, db, msg)
	if err != nil {
		return nil, err
	}
	if err := credit(db, hold.Destination, *hold.Amount); err != nil {
		return nil, err
	}
	hold.State = HoldReleased
	if err := saveHold(db, hold); err != nil {
		return nil, err
	}
	return &Result{Data: HoldID(hold.Owner, hold.Sequence), Log: "hold released"}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h FinishHoldHandler) validate(info BlockInfo, db store.KVStore, msg Msg) (*Hold, error) {
	m, ok := msg.(*FinishHoldMsg)
	if !ok {
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	hold, _, err := loadHold(db, m.Owner, m.Sequence)
	if err != nil {
		return nil, err
	}
	if hold.State != HoldPending {
		return nil, errors.Wrapf(errors.ErrState, "hold is %s", hold.State)
	}
	if info.IsExpired(hold.CancelAfter) {
		return nil, errors.Wrap(errors.ErrExpired, "hold is expired")
	}
	if !hold.Condition.Equals(m.Condition) {
		return nil, errors.Wrap(conditions.ErrMismatch, "condition of the hold")
	}
	if err := conditions.Validate(m.Fulfillment, hold.Condition); err != nil {
		return nil, err
	}
	return hold, nil
}

// CancelHoldHandler returns an expired hold to its owner.
type CancelHoldHandler struct{}

var _ Handler = CancelHoldHandler{}

func (h CancelHoldHandler) Check(info BlockInfo, db store.KVStore, auth Auth, msg Msg) error {
	_, err := h.validate(info, db, msg)
	return err
}

func (h CancelHoldHandler) Deliver(info BlockInfo, db store.KVStore, auth Auth, msg Msg) (*Result, error) {
	hold, err := h.validate(info, db, msg)
	if err != nil {
		return nil, err
	}
	if err := returnHold(db, hold); err != nil {
		return nil, err
	}
	return &Result{Data: HoldID(hold.Owner, hold.Sequence), Log: "hold returned"}, nil
}

// validate does all common pre-processing between Check and Deliver.
func (h CancelHoldHandler) validate(info BlockInfo, db store.KVStore, msg Msg) (*Hold, error) {
	m, ok := msg.(*CancelHoldMsg)
	if !ok {
		return nil, errors.WithType(errors.ErrMsg, msg)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	hold, _, err := loadHold(db, m.Owner, m.Sequence)
	if err != nil {
		return nil, err
	}
	if hold.State != HoldPending {
		return nil, errors.Wrapf(errors.ErrState, "hold is %s", hold.State)
	}
	if !info.IsExpired(hold.CancelAfter) {
		return nil, errors.Wrapf(errors.ErrState, "hold not expired %s", hold.CancelAfter)
	}
	return hold, nil
}

// returnHold moves the funds of a pending hold back to its owner.
func returnHold(db store.KVStore, hold *Hold) error {
	if err := credit(db, hold.Owner, *hold.Amount); err != nil {
		return err
	}
	hold.State = HoldReturned
	return saveHold(db, hold)
}

// Sweep is the outcome of ReturnExpired.
type Sweep struct {
	// Returned are the ids of the holds returned to their owners.
	Returned [][]byte
	// Dropped are the ids of expiry index entries that did not point to a
	// pending hold. Such entries are deleted.
	Dropped [][]byte
}

// ReturnExpired returns all pending holds that expired at given block
// time to their owners.
func ReturnExpired(info BlockInfo, db store.KVStore) (*Sweep, error) {
	entries, err := expiredHolds(db, quickhold.AsUnixTime(info.Time))
	if err != nil {
		return nil, err
	}
	var sweep Sweep
	for _, e := range entries {
		hold, err := GetHold(db, e.id)
		if err != nil {
			return nil, err
		}
		if hold == nil || hold.State != HoldPending {
			if err := db.Delete(e.key); err != nil {
				return nil, err
			}
			sweep.Dropped = append(sweep.Dropped, e.id)
			continue
		}
		if err := returnHold(db, hold); err != nil {
			return nil, errors.Wrapf(err, "return hold %X", e.id)
		}
		sweep.Returned = append(sweep.Returned, e.id)
	}
	return &sweep, nil
}
