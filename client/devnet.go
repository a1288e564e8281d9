package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/store/iavl"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// Devnet is an in-process, single validator ledger. Every broadcast
// transaction that passes the check is delivered in a block of its own.
// State is kept in memory and lost when the process exits.
type Devnet struct {
	mu      sync.Mutex
	app     *ledger.App
	chainID string
	height  int64
	last    time.Time
	now     func() time.Time
	closed  bool
}

// NewDevnet starts a ledger from given genesis. The genesis block is
// committed before it returns.
func NewDevnet(g ledger.Genesis, logger log.Logger) (*Devnet, error) {
	if g.ChainID == "" {
		g.ChainID = ledger.DefaultChainID
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, "genesis")
	}
	app, err := ledger.NewApp("quickhold-devnet", iavl.NewMemCommitStore())
	if err != nil {
		return nil, err
	}
	app.WithLogger(logger.With("module", "devnet"))

	state, err := json.Marshal(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInput, err.Error())
	}
	d := &Devnet{
		app:     app,
		chainID: g.ChainID,
		now:     time.Now,
	}
	d.last = d.now().UTC()
	app.InitChain(abci.RequestInitChain{
		Time:          d.last,
		ChainId:       g.ChainID,
		AppStateBytes: state,
	})
	d.mu.Lock()
	d.block(nil)
	d.mu.Unlock()
	return d, nil
}

// WithClock replaces the source of block times.
func (d *Devnet) WithClock(now func() time.Time) *Devnet {
	d.mu.Lock()
	d.now = now
	d.mu.Unlock()
	return d
}

// NewBlock produces an empty block. Holds that expired at the time of the
// block are returned to their owners.
func (d *Devnet) NewBlock() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block(nil)
	return d.height
}

// block must be called with the lock held.
func (d *Devnet) block(tx tmtypes.Tx) abci.ResponseDeliverTx {
	d.height++
	t := d.now().UTC()
	if !t.After(d.last) {
		// Block times never go back.
		t = d.last.Add(time.Millisecond)
	}
	d.last = t

	d.app.BeginBlock(abci.RequestBeginBlock{
		Hash: cmn.RandBytes(32),
		Header: abci.Header{
			ChainID: d.chainID,
			Height:  d.height,
			Time:    t,
		},
	})
	var res abci.ResponseDeliverTx
	if tx != nil {
		res = d.app.DeliverTx(tx)
	}
	d.app.EndBlock(abci.RequestEndBlock{Height: d.height})
	d.app.Commit()
	return res
}

// ABCIInfo implements Conn.
func (d *Devnet) ABCIInfo() (*ctypes.ResultABCIInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}
	return &ctypes.ResultABCIInfo{Response: d.app.Info(abci.RequestInfo{})}, nil
}

// ABCIQuery implements Conn.
func (d *Devnet) ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}
	res := d.app.Query(abci.RequestQuery{Path: path, Data: data})
	return &ctypes.ResultABCIQuery{Response: res}, nil
}

// BroadcastTxCommit implements Conn. As with a tendermint node, a
// transaction that fails the check is not included in a block.
func (d *Devnet) BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, errClosed
	}
	res := &ctypes.ResultBroadcastTxCommit{Hash: tx.Hash()}
	res.CheckTx = d.app.CheckTx(tx)
	if res.CheckTx.IsErr() {
		return res, nil
	}
	res.DeliverTx = d.block(tx)
	res.Height = d.height
	return res, nil
}

// Close stops the devnet. Any later call fails.
func (d *Devnet) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.Wrap(errors.ErrState, "devnet already closed")
	}
	d.closed = true
	return nil
}

var errClosed = errors.Wrap(errors.ErrNetwork, "devnet closed")
