package client

import (
	cmn "github.com/tendermint/tendermint/libs/common"
	rpcclient "github.com/tendermint/tendermint/rpc/client"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

/***
These are some helper functions to make a connection
to a full node.

The client needs only a small subset of the tendermint rpc
client. Both a remote node (over http) and the in-process
devnet implement it.
***/

// Conn is the part of the tendermint rpc client used to talk to a ledger
// node.
type Conn interface {
	ABCIInfo() (*ctypes.ResultABCIInfo, error)
	ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error)
	BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error)
}

var (
	_ Conn = (*rpcclient.HTTP)(nil)
	_ Conn = (*Devnet)(nil)
)

// NewHTTPConnection takes a URL and sends all requests to the remote node
func NewHTTPConnection(remote string) Conn {
	return rpcclient.NewHTTP(remote, "/websocket")
}
