package ledger

import (
	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/conditions"
	"github.com/iov-one/quickhold/crypto"
)

// Tx is the transaction envelope. Exactly one message must be set.
type Tx struct {
	Signer     *crypto.PublicKey `protobuf:"bytes,1,opt,name=signer,proto3" json:"signer,omitempty"`
	Signature  *crypto.Signature `protobuf:"bytes,2,opt,name=signature,proto3" json:"signature,omitempty"`
	Sequence   int64             `protobuf:"varint,3,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Fee        *coin.Coin        `protobuf:"bytes,4,opt,name=fee,proto3" json:"fee,omitempty"`
	Fund       *FundMsg          `protobuf:"bytes,10,opt,name=fund,proto3" json:"fund,omitempty"`
	CreateHold *CreateHoldMsg    `protobuf:"bytes,11,opt,name=create_hold,json=createHold,proto3" json:"create_hold,omitempty"`
	FinishHold *FinishHoldMsg    `protobuf:"bytes,12,opt,name=finish_hold,json=finishHold,proto3" json:"finish_hold,omitempty"`
	CancelHold *CancelHoldMsg    `protobuf:"bytes,13,opt,name=cancel_hold,json=cancelHold,proto3" json:"cancel_hold,omitempty"`
}

func (m *Tx) Reset()         { *m = Tx{} }
func (m *Tx) String() string { return proto.CompactTextString(m) }
func (*Tx) ProtoMessage()    {}

// FundMsg credits the faucet amount to an address. It is accepted unsigned
// and only when the ledger runs with a faucet.
type FundMsg struct {
	Address quickhold.Address `protobuf:"bytes,1,opt,name=address,proto3,casttype=github.com/iov-one/quickhold.Address" json:"address,omitempty"`
}

func (m *FundMsg) Reset()         { *m = FundMsg{} }
func (m *FundMsg) String() string { return proto.CompactTextString(m) }
func (*FundMsg) ProtoMessage()    {}

// CreateHoldMsg locks an amount of the owner's balance behind a condition.
type CreateHoldMsg struct {
	Owner       quickhold.Address    `protobuf:"bytes,1,opt,name=owner,proto3,casttype=github.com/iov-one/quickhold.Address" json:"owner,omitempty"`
	Destination quickhold.Address    `protobuf:"bytes,2,opt,name=destination,proto3,casttype=github.com/iov-one/quickhold.Address" json:"destination,omitempty"`
	Amount      *coin.Coin           `protobuf:"bytes,3,opt,name=amount,proto3" json:"amount,omitempty"`
	Condition   conditions.Condition `protobuf:"bytes,4,opt,name=condition,proto3,casttype=github.com/iov-one/quickhold/conditions.Condition" json:"condition,omitempty"`
	CancelAfter quickhold.UnixTime   `protobuf:"varint,5,opt,name=cancel_after,json=cancelAfter,proto3,casttype=github.com/iov-one/quickhold.UnixTime" json:"cancel_after,omitempty"`
	Memo        string               `protobuf:"bytes,6,opt,name=memo,proto3" json:"memo,omitempty"`
}

func (m *CreateHoldMsg) Reset()         { *m = CreateHoldMsg{} }
func (m *CreateHoldMsg) String() string { return proto.CompactTextString(m) }
func (*CreateHoldMsg) ProtoMessage()    {}

// FinishHoldMsg releases a pending hold to its destination by presenting
// the fulfillment of its condition.
type FinishHoldMsg struct {
	Owner       quickhold.Address      `protobuf:"bytes,1,opt,name=owner,proto3,casttype=github.com/iov-one/quickhold.Address" json:"owner,omitempty"`
	Sequence    int64                  `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Condition   conditions.Condition   `protobuf:"bytes,3,opt,name=condition,proto3,casttype=github.com/iov-one/quickhold/conditions.Condition" json:"condition,omitempty"`
	Fulfillment conditions.Fulfillment `protobuf:"bytes,4,opt,name=fulfillment,proto3,casttype=github.com/iov-one/quickhold/conditions.Fulfillment" json:"fulfillment,omitempty"`
}

func (m *FinishHoldMsg) Reset()         { *m = FinishHoldMsg{} }
func (m *FinishHoldMsg) String() string { return proto.CompactTextString(m) }
func (*FinishHoldMsg) ProtoMessage()    {}

// CancelHoldMsg returns an expired hold to its owner.
type CancelHoldMsg struct {
	Owner    quickhold.Address `protobuf:"bytes,1,opt,name=owner,proto3,casttype=github.com/iov-one/quickhold.Address" json:"owner,omitempty"`
	Sequence int64             `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
}

func (m *CancelHoldMsg) Reset()         { *m = CancelHoldMsg{} }
func (m *CancelHoldMsg) String() string { return proto.CompactTextString(m) }
func (*CancelHoldMsg) ProtoMessage()    {}

// Account is the state of a single address.
type Account struct {
	Address  quickhold.Address `protobuf:"bytes,1,opt,name=address,proto3,casttype=github.com/iov-one/quickhold.Address" json:"address,omitempty"`
	Balance  *coin.Coin        `protobuf:"bytes,2,opt,name=balance,proto3" json:"balance,omitempty"`
	Sequence int64             `protobuf:"varint,3,opt,name=sequence,proto3" json:"sequence,omitempty"`
}

func (m *Account) Reset()         { *m = Account{} }
func (m *Account) String() string { return proto.CompactTextString(m) }
func (*Account) ProtoMessage()    {}

// HoldState is the lifecycle state of a hold.
type HoldState int32

const (
	HoldPending  HoldState = 1
	HoldReleased HoldState = 2
	HoldReturned HoldState = 3
)

var holdStateNames = map[HoldState]string{
	HoldPending:  "pending",
	HoldReleased: "released",
	HoldReturned: "returned",
}

func (s HoldState) String() string {
	if n, ok := holdStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Hold is a conditional escrow of funds.
type Hold struct {
	Owner       quickhold.Address    `protobuf:"bytes,1,opt,name=owner,proto3,casttype=github.com/iov-one/quickhold.Address" json:"owner,omitempty"`
	Sequence    int64                `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Destination quickhold.Address    `protobuf:"bytes,3,opt,name=destination,proto3,casttype=github.com/iov-one/quickhold.Address" json:"destination,omitempty"`
	Amount      *coin.Coin           `protobuf:"bytes,4,opt,name=amount,proto3" json:"amount,omitempty"`
	Condition   conditions.Condition `protobuf:"bytes,5,opt,name=condition,proto3,casttype=github.com/iov-one/quickhold/conditions.Condition" json:"condition,omitempty"`
	CancelAfter quickhold.UnixTime   `protobuf:"varint,6,opt,name=cancel_after,json=cancelAfter,proto3,casttype=github.com/iov-one/quickhold.UnixTime" json:"cancel_after,omitempty"`
	State       HoldState            `protobuf:"varint,7,opt,name=state,proto3" json:"state,omitempty"`
	Memo        string               `protobuf:"bytes,8,opt,name=memo,proto3" json:"memo,omitempty"`
}

func (m *Hold) Reset()         { *m = Hold{} }
func (m *Hold) String() string { return proto.CompactTextString(m) }
func (*Hold) ProtoMessage()    {}

// Params are the ledger parameters set at genesis.
type Params struct {
	ChainID      string     `protobuf:"bytes,1,opt,name=chain_id,json=chainId,proto3" json:"chain_id,omitempty"`
	Ticker       string     `protobuf:"bytes,2,opt,name=ticker,proto3" json:"ticker,omitempty"`
	BaseFee      *coin.Coin `protobuf:"bytes,3,opt,name=base_fee,json=baseFee,proto3" json:"base_fee,omitempty"`
	Faucet       *coin.Coin `protobuf:"bytes,4,opt,name=faucet,proto3" json:"faucet,omitempty"`
	ManualReturn bool       `protobuf:"varint,5,opt,name=manual_return,json=manualReturn,proto3" json:"manual_return,omitempty"`
}

func (m *Params) Reset()         { *m = Params{} }
func (m *Params) String() string { return proto.CompactTextString(m) }
func (*Params) ProtoMessage()    {}

// ResultSet contains a list of keys or values returned by a query.
type ResultSet struct {
	Results [][]byte `protobuf:"bytes,1,rep,name=results,proto3" json:"results,omitempty"`
}

func (m *ResultSet) Reset()         { *m = ResultSet{} }
func (m *ResultSet) String() string { return proto.CompactTextString(m) }
func (*ResultSet) ProtoMessage()    {}
