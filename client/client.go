package client

import (
	"context"
	"io"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/store"
	"github.com/tendermint/tendermint/libs/log"
	tmtypes "github.com/tendermint/tendermint/types"
)

// Client is a tendermint client wrapped to provide simple access to the
// accounts and holds of a ledger.
//
// Connect must be called before any other method. Client is not safe for
// concurrent use.
type Client struct {
	conn   Conn
	logger log.Logger

	// set on Connect
	params *ledger.Params
}

// NewClient wraps a Client around an existing connection.
func NewClient(conn Conn) *Client {
	return &Client{
		conn:   conn,
		logger: log.NewNopLogger(),
	}
}

// WithLogger sets the logger and returns the client.
func (c *Client) WithLogger(logger log.Logger) *Client {
	c.logger = logger
	return c
}

// Connect checks that the node serves an initialized ledger and loads its
// parameters.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn == nil {
		return errors.Wrap(errors.ErrState, "disconnected")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrNetwork, err.Error())
	}
	info, err := c.conn.ABCIInfo()
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "info: %s", err.Error())
	}
	models, err := c.query(ctx, ledger.ParamsPath, nil)
	if err != nil {
		return errors.Wrap(err, "params")
	}
	if len(models) != 1 {
		return errors.Wrap(errors.ErrState, "ledger genesis not loaded")
	}
	var p ledger.Params
	if err := proto.Unmarshal(models[0].Value, &p); err != nil {
		return errors.Wrap(errors.ErrType, err.Error())
	}
	c.params = &p
	c.logger.Debug("Connected",
		"app", info.Response.Data,
		"version", info.Response.Version,
		"height", info.Response.LastBlockHeight,
		"chain_id", p.ChainID)
	return nil
}

// Disconnect releases the connection. The client cannot be used after.
func (c *Client) Disconnect() error {
	if c.conn == nil {
		return nil
	}
	var err error
	if closer, ok := c.conn.(io.Closer); ok {
		err = closer.Close()
	}
	c.conn = nil
	c.params = nil
	return err
}

// ChainID returns the chain id of the connected ledger.
func (c *Client) ChainID() string {
	if c.params == nil {
		return ""
	}
	return c.params.ChainID
}

// Ticker returns the native currency of the connected ledger.
func (c *Client) Ticker() string {
	if c.params == nil {
		return ""
	}
	return c.params.Ticker
}

func (c *Client) connected() error {
	if c.conn == nil || c.params == nil {
		return errors.Wrap(errors.ErrState, "not connected")
	}
	return nil
}

// query sends an abci query and unpacks the result sets.
func (c *Client) query(ctx context.Context, path string, data []byte) ([]store.Model, error) {
	if c.conn == nil {
		return nil, errors.Wrap(errors.ErrState, "disconnected")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrNetwork, err.Error())
	}
	res, err := c.conn.ABCIQuery(path, data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "query %s: %s", path, err.Error())
	}
	if res.Response.Code != 0 {
		return nil, errors.ABCIError(res.Response.Code, res.Response.Log)
	}
	return ledger.JoinResults(res.Response.Key, res.Response.Value)
}

// Account returns the account of given address, or nil if the ledger does
// not know it.
func (c *Client) Account(ctx context.Context, addr quickhold.Address) (*ledger.Account, error) {
	models, err := c.query(ctx, ledger.AccountsPath, addr)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	var acc ledger.Account
	if err := proto.Unmarshal(models[0].Value, &acc); err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	return &acc, nil
}

// Balance returns the balance of given address. An unknown address has an
// empty balance.
func (c *Client) Balance(ctx context.Context, addr quickhold.Address) (coin.Coin, error) {
	if err := c.connected(); err != nil {
		return coin.Coin{}, err
	}
	acc, err := c.Account(ctx, addr)
	if err != nil {
		return coin.Coin{}, err
	}
	if acc == nil || acc.Balance == nil {
		return coin.Coin{Ticker: c.params.Ticker}, nil
	}
	return *acc.Balance, nil
}

// Hold returns the hold created by the owner's transaction with given
// sequence, or nil if there is none.
func (c *Client) Hold(ctx context.Context, owner quickhold.Address, sequence int64) (*ledger.Hold, error) {
	models, err := c.query(ctx, ledger.HoldsPath, ledger.HoldID(owner, sequence))
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	var h ledger.Hold
	if err := proto.Unmarshal(models[0].Value, &h); err != nil {
		return nil, errors.Wrap(errors.ErrType, err.Error())
	}
	return &h, nil
}

// FundWallet asks the ledger faucet to credit the wallet. The transaction
// is unsigned.
func (c *Client) FundWallet(ctx context.Context, w *Wallet) (*CommitResult, error) {
	tx := &ledger.Tx{}
	if err := tx.SetMsg(&ledger.FundMsg{Address: w.Address()}); err != nil {
		return nil, err
	}
	return c.SubmitAndWait(ctx, tx)
}

// Autofill sets the fee, at the ledger base fee, and the next sequence of
// the signer.
func (c *Client) Autofill(ctx context.Context, tx *ledger.Tx, signer quickhold.Address) error {
	if err := c.connected(); err != nil {
		return err
	}
	acc, err := c.Account(ctx, signer)
	if err != nil {
		return err
	}
	if acc == nil {
		return errors.Wrapf(errors.ErrNotFound, "account %s", signer)
	}
	tx.Sequence = acc.Sequence
	tx.Fee = c.params.BaseFee.Clone()
	return nil
}

// Sign signs the transaction with the wallet key for the connected chain.
func (c *Client) Sign(w *Wallet, tx *ledger.Tx) error {
	if err := c.connected(); err != nil {
		return err
	}
	return ledger.SignTx(w.Key, tx, c.params.ChainID)
}

// SubmitAndWait submits the transaction and blocks until it is included in
// a block. A returned error means the outcome is unknown, a transaction
// rejected by the ledger has its result Err set instead.
func (c *Client) SubmitAndWait(ctx context.Context, tx *ledger.Tx) (*CommitResult, error) {
	if c.conn == nil {
		return nil, errors.Wrap(errors.ErrState, "disconnected")
	}
	raw, err := tx.Bytes()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrMsg, "marshaling: %s", err.Error())
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrNetwork, err.Error())
	}
	res, err := c.conn.BroadcastTxCommit(tmtypes.Tx(raw))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "submit tx: %s", err.Error())
	}

	result := &CommitResult{ID: res.Hash, Height: res.Height}
	// a checktx error is handled like any other error... didn't make it
	// into mempool... will not make it into block
	if res.CheckTx.Code != 0 {
		result.Err = errors.ABCIError(res.CheckTx.Code, res.CheckTx.Log)
	} else if res.DeliverTx.Code != 0 {
		result.Err = errors.ABCIError(res.DeliverTx.Code, res.DeliverTx.Log)
	} else {
		result.Data = res.DeliverTx.Data
		result.Log = res.DeliverTx.Log
	}
	c.logger.Debug("Transaction committed",
		"hash", result.ID.String(),
		"height", result.Height,
		"sequence", tx.Sequence,
		"err", result.Err)
	return result, nil
}
