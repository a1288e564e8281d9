package ledger

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/conditions"
	"github.com/iov-one/quickhold/errors"
)

const (
	pathFund       = "ledger/fund"
	pathCreateHold = "hold/create"
	pathFinishHold = "hold/finish"
	pathCancelHold = "hold/cancel"

	maxMemoSize = 128
)

// Msg is the content of a transaction, routed to a handler by its path.
type Msg interface {
	proto.Message

	// Path returns the route of the message.
	Path() string

	// Validate checks the message content without accessing the state.
	Validate() error
}

var (
	_ Msg = (*FundMsg)(nil)
	_ Msg = (*CreateHoldMsg)(nil)
	_ Msg = (*FinishHoldMsg)(nil)
	_ Msg = (*CancelHoldMsg)(nil)
)

func (FundMsg) Path() string       { return pathFund }
func (CreateHoldMsg) Path() string { return pathCreateHold }
func (FinishHoldMsg) Path() string { return pathFinishHold }
func (CancelHoldMsg) Path() string { return pathCancelHold }

func (m *FundMsg) Validate() error {
	return errors.AppendField(nil, "Address", m.Address.Validate())
}

func (m *CreateHoldMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	errs = errors.AppendField(errs, "Destination", m.Destination.Validate())
	if m.Amount == nil {
		errs = errors.AppendField(errs, "Amount", errors.ErrEmpty)
	} else if err := m.Amount.Validate(); err != nil {
		errs = errors.AppendField(errs, "Amount", err)
	} else if !m.Amount.IsPositive() {
		errs = errors.AppendField(errs, "Amount", errors.Wrap(errors.ErrInvalidAmount, "must be positive"))
	}
	if _, err := conditions.ParseCondition(m.Condition); err != nil {
		errs = errors.AppendField(errs, "Condition", err)
	}
	if m.CancelAfter == 0 {
		// Zero is a valid time that dates to 1970-01-01. Most likely
		// the value was not provided.
		errs = errors.AppendField(errs, "CancelAfter", errors.Wrap(errors.ErrEmpty, "required"))
	} else {
		errs = errors.AppendField(errs, "CancelAfter", m.CancelAfter.Validate())
	}
	if len(m.Memo) > maxMemoSize {
		errs = errors.AppendField(errs, "Memo", errors.Wrapf(errors.ErrInput, "longer than %d", maxMemoSize))
	}
	return errs
}

func (m *FinishHoldMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	if m.Sequence <= 0 {
		errs = errors.AppendField(errs, "Sequence", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	if _, err := conditions.ParseCondition(m.Condition); err != nil {
		errs = errors.AppendField(errs, "Condition", err)
	}
	if _, err := conditions.ParseFulfillment(m.Fulfillment); err != nil {
		errs = errors.AppendField(errs, "Fulfillment", err)
	}
	return errs
}

func (m *CancelHoldMsg) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Owner", m.Owner.Validate())
	if m.Sequence <= 0 {
		errs = errors.AppendField(errs, "Sequence", errors.Wrap(errors.ErrInput, "must be positive"))
	}
	return errs
}

// GetMsg returns the single message carried by the transaction.
func (tx *Tx) GetMsg() (Msg, error) {
	var msgs []Msg
	if tx.Fund != nil {
		msgs = append(msgs, tx.Fund)
	}
	if tx.CreateHold != nil {
		msgs = append(msgs, tx.CreateHold)
	}
	if tx.FinishHold != nil {
		msgs = append(msgs, tx.FinishHold)
	}
	if tx.CancelHold != nil {
		msgs = append(msgs, tx.CancelHold)
	}
	switch len(msgs) {
	case 0:
		return nil, errors.Wrap(errors.ErrMsg, "no message")
	case 1:
		return msgs[0], nil
	default:
		return nil, errors.Wrapf(errors.ErrMsg, "%d messages in one transaction", len(msgs))
	}
}

// SetMsg sets the message of the transaction, replacing any other.
func (tx *Tx) SetMsg(msg Msg) error {
	tx.Fund, tx.CreateHold, tx.FinishHold, tx.CancelHold = nil, nil, nil, nil
	switch m := msg.(type) {
	case *FundMsg:
		tx.Fund = m
	case *CreateHoldMsg:
		tx.CreateHold = m
	case *FinishHoldMsg:
		tx.FinishHold = m
	case *CancelHoldMsg:
		tx.CancelHold = m
	default:
		return errors.Wrapf(errors.ErrType, "unknown message %T", msg)
	}
	return nil
}

// SignBytes returns the serialized transaction without its signature. It
// is the content that the signer signs.
func (tx *Tx) SignBytes() ([]byte, error) {
	cp := *tx
	cp.Signature = nil
	raw, err := proto.Marshal(&cp)
	if err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	return raw, nil
}

// Bytes serializes the transaction. It is not named Marshal, proto.Marshal
// would call it back.
func (tx *Tx) Bytes() ([]byte, error) {
	raw, err := proto.Marshal(tx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	return raw, nil
}

// DecodeTx deserializes a transaction.
func DecodeTx(raw []byte) (*Tx, error) {
	var tx Tx
	if err := proto.Unmarshal(raw, &tx); err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	return &tx, nil
}

// validateFee ensures the fee is a valid, non-negative amount.
func validateFee(fee *coin.Coin) error {
	if coin.IsEmpty(fee) {
		return nil
	}
	if err := fee.Validate(); err != nil {
		return err
	}
	if !fee.IsNonNegative() {
		return errors.Wrap(errors.ErrInvalidAmount, "negative fee")
	}
	return nil
}
