package ledger

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
	abci "github.com/tendermint/tendermint/abci/types"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
)

// Tag keys attached to delivered transactions and blocks.
const (
	TagAction   = "action"
	TagSigner   = "signer"
	TagHold     = "hold"
	TagReturned = "hold.returned"
)

// App is the ABCI application of the ledger. It keeps accounts and holds
// in a merkle store and releases or returns holds.
//
// Errors on ABCI steps that do not take user input (InitChain, Commit)
// are handled as panics, there is no way to report them to tendermint.
type App struct {
	abci.BaseApplication

	// name is what is returned from abci.Info
	name    string
	logger  log.Logger
	store   *CommitStore
	queries QueryRouter
	metrics *Metrics
	debug   bool

	// params and router are set once the genesis is loaded.
	params *Params
	router *Router

	// block describes the block being processed, reset on BeginBlock
	block BlockInfo
}

var _ abci.Application = (*App)(nil)

// NewApp loads the latest state from given store. If the genesis was
// already loaded the application is ready to process transactions.
func NewApp(name string, kv store.CommitKVStore) (*App, error) {
	cs, err := NewCommitStore(kv)
	if err != nil {
		return nil, errors.Wrap(err, "load store")
	}
	a := &App{
		name:    name,
		logger:  log.NewNopLogger(),
		store:   cs,
		queries: NewQueryRouter(),
		metrics: NewMetrics(nil),
	}
	params, err := GetParams(cs.DeliverStore())
	if err != nil {
		return nil, errors.Wrap(err, "load params")
	}
	if params != nil {
		a.setParams(params)
	}
	a.block.Height = cs.CommitInfo().Version
	return a, nil
}

// WithLogger sets the logger on the App and returns it, to make it easy to
// chain in initialization
func (a *App) WithLogger(logger log.Logger) *App {
	a.logger = logger
	return a
}

// WithMetrics sets the collectors the App reports to.
func (a *App) WithMetrics(m *Metrics) *App {
	a.metrics = m
	return a
}

// WithDebug makes the App return full error details, including internal
// errors and stack traces, in results.
func (a *App) WithDebug(debug bool) *App {
	a.debug = debug
	return a
}

// Params returns the ledger parameters or nil before genesis.
func (a *App) Params() *Params {
	return a.params
}

func (a *App) setParams(p *Params) {
	a.params = p
	a.router = NewRouter(p)
	a.block.ChainID = p.ChainID
}

// Info implements abci.Application. It returns the height and hash,
// as well as the abci name and version.
func (a *App) Info(req abci.RequestInfo) abci.ResponseInfo {
	info := a.store.CommitInfo()
	a.logger.Info("Info synced",
		"height", info.Version,
		"hash", fmt.Sprintf("%X", info.Hash))
	return abci.ResponseInfo{
		Data:             a.name,
		Version:          quickhold.Version(),
		LastBlockHeight:  info.Version,
		LastBlockAppHash: info.Hash,
	}
}

// InitChain implements abci.Application. The app_state of the tendermint
// genesis must be a JSON Genesis. The chain id of the node, when set,
// overrides the one of the app state.
func (a *App) InitChain(req abci.RequestInitChain) abci.ResponseInitChain {
	if len(req.AppStateBytes) == 0 {
		panic("app_state not set in genesis.json, please initialize application before launching the blockchain")
	}
	var g Genesis
	if err := json.Unmarshal(req.AppStateBytes, &g); err != nil {
		panic(errors.Wrap(errors.ErrInput, err.Error()))
	}
	if req.ChainId != "" {
		g.ChainID = req.ChainId
	}
	params, err := initGenesis(a.store.DeliverStore(), g)
	if err != nil {
		panic(err)
	}
	// Transactions can be checked before the genesis block is committed.
	if _, err := initGenesis(a.store.CheckStore(), g); err != nil {
		panic(err)
	}
	a.setParams(params)
	if !req.Time.IsZero() {
		a.block.Time = req.Time
	}
	a.logger.Info("Genesis loaded",
		"chain_id", params.ChainID,
		"accounts", len(g.Accounts))
	return abci.ResponseInitChain{}
}

// BeginBlock implements abci.Application. Unless the ledger requires
// expired holds to be cancelled explicitly, all holds that expired at the
// block time are returned to their owners.
func (a *App) BeginBlock(req abci.RequestBeginBlock) abci.ResponseBeginBlock {
	a.block.Height = req.Header.Height
	a.block.Time = req.Header.Time

	var res abci.ResponseBeginBlock
	if a.params == nil || a.params.ManualReturn {
		return res
	}

	cache := a.store.DeliverStore().CacheWrap()
	sweep, err := ReturnExpired(a.block, cache)
	if err != nil {
		cache.Discard()
		a.logger.Error("Cannot return expired holds",
			"height", a.block.Height,
			"err", err)
		return res
	}
	if err := cache.Write(); err != nil {
		panic(err)
	}
	for _, id := range sweep.Dropped {
		a.logger.Error("Dropped stale expiry index entry",
			"height", a.block.Height,
			"hold", hex.EncodeToString(id))
	}
	ids := sweep.Returned
	for _, id := range ids {
		res.Tags = append(res.Tags, cmn.KVPair{
			Key:   []byte(TagReturned),
			Value: []byte(hex.EncodeToString(id)),
		})
	}
	if len(ids) > 0 {
		a.logger.Info("Expired holds returned",
			"height", a.block.Height,
			"count", len(ids))
	}
	a.metrics.hold(HoldReturned, len(ids))
	return res
}

// CheckTx implements abci.Application. The transaction is checked
// against the check state, which it updates on success.
func (a *App) CheckTx(txBytes []byte) abci.ResponseCheckTx {
	tx, msg, err := a.loadTx(txBytes)
	if err == nil {
		cache := a.store.CheckStore().CacheWrap()
		if err = a.check(cache, tx, msg); err == nil {
			err = cache.Write()
		} else {
			cache.Discard()
		}
	}
	code, info := errors.ABCIInfo(err, a.debug)
	a.metrics.tx("check", msgPath(msg), code)
	return abci.ResponseCheckTx{Code: code, Log: info}
}

func (a *App) check(db store.KVStore, tx *Tx, msg Msg) (err error) {
	defer errors.Recover(&err)
	auth, err := authenticate(db, a.params, tx, msg)
	if err != nil {
		return err
	}
	h, err := a.router.Handler(msg)
	if err != nil {
		return err
	}
	return h.Check(a.block, db, auth, msg)
}

// DeliverTx implements abci.Application. An authenticated transaction pays
// its fee and consumes its sequence even if the message fails. The message
// itself is applied atomically.
func (a *App) DeliverTx(txBytes []byte) abci.ResponseDeliverTx {
	tx, msg, err := a.loadTx(txBytes)
	if err != nil {
		return a.deliverError(msg, err)
	}
	db := a.store.DeliverStore()

	ante := db.CacheWrap()
	auth, err := a.authenticate(ante, tx, msg)
	if err != nil {
		ante.Discard()
		return a.deliverError(msg, err)
	}
	if err := ante.Write(); err != nil {
		return a.deliverError(msg, err)
	}

	cache := db.CacheWrap()
	res, err := a.deliver(cache, auth, msg)
	if err != nil {
		cache.Discard()
		a.logger.Debug("Transaction failed",
			"path", msg.Path(),
			"height", a.block.Height,
			"err", err)
		return a.deliverError(msg, err)
	}
	if err := cache.Write(); err != nil {
		return a.deliverError(msg, err)
	}

	a.metrics.tx("deliver", msg.Path(), errors.SuccessABCICode)
	a.metrics.hold(holdTransition(msg), 1)
	tags := []cmn.KVPair{{Key: []byte(TagAction), Value: []byte(msg.Path())}}
	if auth.Signer != nil {
		tags = append(tags, cmn.KVPair{Key: []byte(TagSigner), Value: []byte(auth.Signer.String())})
	}
	if len(res.Data) != 0 {
		tags = append(tags, cmn.KVPair{Key: []byte(TagHold), Value: []byte(hex.EncodeToString(res.Data))})
	}
	return abci.ResponseDeliverTx{
		Data: res.Data,
		Log:  res.Log,
		Tags: tags,
	}
}

func (a *App) authenticate(db store.KVStore, tx *Tx, msg Msg) (auth Auth, err error) {
	defer errors.Recover(&err)
	return authenticate(db, a.params, tx, msg)
}

func (a *App) deliver(db store.KVStore, auth Auth, msg Msg) (res *Result, err error) {
	defer errors.Recover(&err)
	h, err := a.router.Handler(msg)
	if err != nil {
		return nil, err
	}
	return h.Deliver(a.block, db, auth, msg)
}

func (a *App) deliverError(msg Msg, err error) abci.ResponseDeliverTx {
	code, info := errors.ABCIInfo(err, a.debug)
	a.metrics.tx("deliver", msgPath(msg), code)
	return abci.ResponseDeliverTx{Code: code, Log: info}
}

// loadTx decodes the transaction and captures any panics.
func (a *App) loadTx(txBytes []byte) (tx *Tx, msg Msg, err error) {
	defer errors.Recover(&err)
	if a.params == nil {
		return nil, nil, errors.Wrap(errors.ErrState, "genesis not loaded")
	}
	tx, err = DecodeTx(txBytes)
	if err != nil {
		return nil, nil, err
	}
	msg, err = tx.GetMsg()
	if err != nil {
		return nil, nil, err
	}
	return tx, msg, nil
}

func msgPath(msg Msg) string {
	if msg == nil {
		return "unknown"
	}
	return msg.Path()
}

func holdTransition(msg Msg) HoldState {
	switch msg.(type) {
	case *CreateHoldMsg:
		return HoldPending
	case *FinishHoldMsg:
		return HoldReleased
	case *CancelHoldMsg:
		return HoldReturned
	}
	return 0
}

// Commit implements abci.Application. It persists the state of the block
// and returns its merkle root.
func (a *App) Commit() abci.ResponseCommit {
	id, err := a.store.Commit()
	if err != nil {
		panic(err)
	}
	a.metrics.committed(id.Version)
	a.logger.Debug("Commit synced",
		"height", id.Version,
		"hash", fmt.Sprintf("%X", id.Hash))
	return abci.ResponseCommit{Data: id.Hash}
}

/*
Query gets data from the committed state.
A query request has the following elements:
* Path - the bucket to query, "/accounts", "/holds" or "/params"
* Data - the key within the bucket

Path may be followed by "?prefix" to make a prefix query, for example
all holds of an owner are found with "/holds?prefix" and the owner
address as data.

Key and Value in the response are always serialized ResultSet objects,
able to support 0 to N values. They are always of the same size.
*/
func (a *App) Query(req abci.RequestQuery) abci.ResponseQuery {
	path, mod := splitPath(req.Path)
	qh := a.queries.Handler(path)
	if qh == nil {
		return queryError(errors.Wrapf(errors.ErrNotFound, "unexpected query path: %v", req.Path), a.debug)
	}

	res := abci.ResponseQuery{Height: a.store.CommitInfo().Version}
	models, err := qh.Query(a.store.QueryStore(), mod, req.Data)
	if err != nil {
		return queryError(err, a.debug)
	}
	res.Key, err = proto.Marshal(ResultsFromKeys(models))
	if err != nil {
		return queryError(err, a.debug)
	}
	res.Value, err = proto.Marshal(ResultsFromValues(models))
	if err != nil {
		return queryError(err, a.debug)
	}
	return res
}

func queryError(err error, debug bool) abci.ResponseQuery {
	code, info := errors.ABCIInfo(err, debug)
	return abci.ResponseQuery{Code: code, Log: info}
}
