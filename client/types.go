package client

import (
	cmn "github.com/tendermint/tendermint/libs/common"
)

// TransactionID is the hash used to identify the transaction
type TransactionID = cmn.HexBytes

// CommitResult is the outcome of a transaction submitted to the ledger.
//
// Err is set when the ledger rejected the transaction, either on check or
// when delivering it in a block. Data and Log are only set on success.
type CommitResult struct {
	ID     TransactionID
	Height int64
	Data   []byte
	Log    string
	Err    error
}
