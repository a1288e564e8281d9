package ledger

import (
	"testing"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/conditions"
	"github.com/iov-one/quickhold/crypto"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/weavetest/assert"
)

func TestCreateHoldMsgValidate(t *testing.T) {
	owner := newAddress()
	_, cond := conditions.FromPhrase("x")

	cases := map[string]struct {
		msg       *CreateHoldMsg
		wantField map[string]*errors.Error
	}{
		"valid": {
			msg: &CreateHoldMsg{
				Owner:       owner,
				Destination: newAddress(),
				Amount:      coin.NewCoinp(1, 0, "IOV"),
				Condition:   cond,
				CancelAfter: 1554120000,
			},
			wantField: map[string]*errors.Error{
				"Owner":       nil,
				"Destination": nil,
				"Amount":      nil,
				"Condition":   nil,
				"CancelAfter": nil,
			},
		},
		"empty": {
			msg: &CreateHoldMsg{},
			wantField: map[string]*errors.Error{
				"Owner":       errors.ErrInput,
				"Destination": errors.ErrInput,
				"Amount":      errors.ErrEmpty,
				"Condition":   conditions.ErrEncoding,
				"CancelAfter": errors.ErrEmpty,
			},
		},
		"negative amount and long memo": {
			msg: &CreateHoldMsg{
				Owner:       owner,
				Destination: newAddress(),
				Amount:      coin.NewCoinp(-1, 0, "IOV"),
				Condition:   cond,
				CancelAfter: 1554120000,
				Memo:        string(make([]byte, maxMemoSize+1)),
			},
			wantField: map[string]*errors.Error{
				"Amount": errors.ErrInvalidAmount,
				"Memo":   errors.ErrInput,
			},
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			err := tc.msg.Validate()
			for field, want := range tc.wantField {
				assert.FieldError(t, err, field, want)
			}
		})
	}
}

func TestTxMsg(t *testing.T) {
	var tx Tx
	_, err := tx.GetMsg()
	assert.IsErr(t, errors.ErrMsg, err)

	fund := &FundMsg{Address: newAddress()}
	assert.Nil(t, tx.SetMsg(fund))
	msg, err := tx.GetMsg()
	assert.Nil(t, err)
	assert.Equal(t, fund, msg)
	assert.Equal(t, pathFund, msg.Path())

	cancel := &CancelHoldMsg{Owner: newAddress(), Sequence: 1}
	assert.Nil(t, tx.SetMsg(cancel))
	msg, err = tx.GetMsg()
	assert.Nil(t, err)
	assert.Equal(t, cancel, msg)

	tx.Fund = fund
	_, err = tx.GetMsg()
	assert.IsErr(t, errors.ErrMsg, err)
}

func TestTxEncoding(t *testing.T) {
	key := crypto.GenPrivKeyEd25519()
	_, cond := conditions.FromPhrase("secret")
	tx := &Tx{Sequence: 7, Fee: coin.NewCoinp(0, 10, "IOV")}
	assert.Nil(t, tx.SetMsg(&CreateHoldMsg{
		Owner:       key.PublicKey().Address(),
		Destination: newAddress(),
		Amount:      coin.NewCoinp(2, 500000, "IOV"),
		Condition:   cond,
		CancelAfter: quickhold.UnixTime(1554120300),
		Memo:        "lunch",
	}))
	assert.Nil(t, SignTx(key, tx, testChainID))

	raw, err := tx.Bytes()
	assert.Nil(t, err)
	decoded, err := DecodeTx(raw)
	assert.Nil(t, err)
	assert.Equal(t, tx.CreateHold.Condition, decoded.CreateHold.Condition)
	assert.Equal(t, tx.CreateHold.CancelAfter, decoded.CreateHold.CancelAfter)

	// The signature covers everything but itself.
	signBytes, err := decoded.SignBytes()
	assert.Nil(t, err)
	toSign, err := BuildSignBytes(signBytes, testChainID, 7)
	assert.Nil(t, err)
	if !decoded.Signer.Verify(toSign, decoded.Signature) {
		t.Fatal("signature does not verify after decoding")
	}
	decoded.CreateHold.Memo = "dinner"
	signBytes, err = decoded.SignBytes()
	assert.Nil(t, err)
	toSign, err = BuildSignBytes(signBytes, testChainID, 7)
	assert.Nil(t, err)
	if decoded.Signer.Verify(toSign, decoded.Signature) {
		t.Fatal("signature verifies a modified transaction")
	}
}

func TestBuildSignBytes(t *testing.T) {
	cases := map[string]struct {
		chainID string
		seq     int64
		wantErr *errors.Error
	}{
		"valid":            {chainID: testChainID, seq: 1},
		"short chain id":   {chainID: "abc", seq: 1, wantErr: errors.ErrChainID},
		"invalid chain id": {chainID: "test chain", seq: 1, wantErr: errors.ErrChainID},
		"negative":         {chainID: testChainID, seq: -1, wantErr: errors.ErrSequence},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			out, err := BuildSignBytes([]byte("tx"), tc.chainID, tc.seq)
			assert.IsErr(t, tc.wantErr, err)
			if tc.wantErr == nil {
				assert.Equal(t, 64, len(out))
			}
		})
	}
}

func TestGenesis(t *testing.T) {
	g, err := LoadGenesis("testdata/genesis.json")
	assert.Nil(t, err)
	assert.Nil(t, g.Validate())
	assert.Equal(t, "quickhold-test", g.ChainID)
	assert.Equal(t, 1, len(g.Accounts))

	params := g.Params()
	assert.Equal(t, coin.NewCoinp(0, 10, "IOV"), params.BaseFee)
	assert.Equal(t, coin.NewCoinp(1000, 0, "IOV"), params.Faucet)

	g.Ticker = "iov"
	assert.FieldError(t, g.Validate(), "Ticker", errors.ErrCurrency)

	g = DefaultGenesis()
	g.Faucet = coin.NewCoin(1, 0, "ETH")
	assert.FieldError(t, g.Validate(), "Faucet", errors.ErrCurrency)

	_, err = LoadGenesis("testdata/missing.json")
	assert.IsErr(t, errors.ErrInput, err)
}

func TestTxBytes(t *testing.T) {
	_, cond := conditions.FromPhrase("secret")
	cases := map[string]struct {
		msg Msg
	}{
		"fund":        {msg: &FundMsg{Address: newAddress()}},
		"create hold": {msg: &CreateHoldMsg{Owner: newAddress(), Destination: newAddress(), Amount: coin.NewCoinp(1, 0, "IOV"), Condition: cond, CancelAfter: 1554120300}},
		"finish hold": {msg: &FinishHoldMsg{Owner: newAddress(), Sequence: 3, Condition: cond}},
		"cancel hold": {msg: &CancelHoldMsg{Owner: newAddress(), Sequence: 1}},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			tx := &Tx{Sequence: 1}
			assert.Nil(t, tx.SetMsg(tc.msg))

			raw, err := tx.Bytes()
			assert.Nil(t, err)
			decoded, err := DecodeTx(raw)
			assert.Nil(t, err)
			msg, err := decoded.GetMsg()
			assert.Nil(t, err)
			assert.Equal(t, tc.msg.Path(), msg.Path())
			assert.Equal(t, int64(1), decoded.Sequence)

			// Without a signature the sign bytes are the serialized
			// transaction itself.
			signBytes, err := tx.SignBytes()
			assert.Nil(t, err)
			assert.Equal(t, raw, signBytes)
		})
	}
}
