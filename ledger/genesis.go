package ledger

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/store"
)

const (
	// DefaultTicker is the ticker of the native currency.
	DefaultTicker = "IOV"
	// DefaultChainID is used when neither the genesis nor the node sets one.
	DefaultChainID = "quickhold-devnet"
)

// Genesis is the initial state of the ledger, read from the app_state of
// the tendermint genesis file.
type Genesis struct {
	ChainID string `json:"chain_id"`
	Ticker  string `json:"ticker"`
	// BaseFee is the minimal fee of every signed transaction.
	BaseFee coin.Coin `json:"base_fee"`
	// Faucet is the amount credited by a FundMsg. Zero disables the
	// faucet.
	Faucet coin.Coin `json:"faucet"`
	// ManualReturn disables returning expired holds at the beginning of
	// every block. Expired holds must then be cancelled.
	ManualReturn bool             `json:"manual_return"`
	Accounts     []GenesisAccount `json:"accounts"`
}

// GenesisAccount is an account funded at genesis.
type GenesisAccount struct {
	Address quickhold.Address `json:"address"`
	Balance coin.Coin         `json:"balance"`
}

// DefaultGenesis returns the genesis of a devnet: a faucet of 1000 and a base
// fee of 10 drops.
func DefaultGenesis() Genesis {
	return Genesis{
		ChainID: DefaultChainID,
		Ticker:  DefaultTicker,
		BaseFee: coin.FromDrops(10, DefaultTicker),
		Faucet:  coin.NewCoin(1000, 0, DefaultTicker),
	}
}

// LoadGenesis reads a JSON genesis from a file.
func LoadGenesis(path string) (Genesis, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return Genesis{}, errors.Wrap(errors.ErrInput, err.Error())
	}
	var g Genesis
	if err := json.Unmarshal(raw, &g); err != nil {
		return Genesis{}, errors.Wrap(errors.ErrInput, err.Error())
	}
	return g, nil
}

// Validate ensures the genesis describes a consistent ledger.
func (g Genesis) Validate() error {
	var errs error
	if !IsValidChainID(g.ChainID) {
		errs = errors.AppendField(errs, "ChainID", errors.Wrapf(errors.ErrChainID, "%q", g.ChainID))
	}
	if !coin.IsCC(g.Ticker) {
		errs = errors.AppendField(errs, "Ticker", errors.Wrapf(errors.ErrCurrency, "%q", g.Ticker))
	}
	errs = errors.AppendField(errs, "BaseFee", g.amount(g.BaseFee))
	errs = errors.AppendField(errs, "Faucet", g.amount(g.Faucet))
	for _, a := range g.Accounts {
		errs = errors.AppendField(errs, "Accounts", a.Address.Validate())
		errs = errors.AppendField(errs, "Accounts", g.amount(a.Balance))
	}
	return errs
}

func (g Genesis) amount(c coin.Coin) error {
	if c.IsZero() {
		return nil
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Ticker != g.Ticker {
		return errors.Wrapf(errors.ErrCurrency, "%s on a %s ledger", c.Ticker, g.Ticker)
	}
	if !c.IsNonNegative() {
		return errors.Wrap(errors.ErrInvalidAmount, "negative")
	}
	return nil
}

// Params returns the ledger parameters described by the genesis.
func (g Genesis) Params() *Params {
	p := &Params{
		ChainID:      g.ChainID,
		Ticker:       g.Ticker,
		ManualReturn: g.ManualReturn,
	}
	if !g.BaseFee.IsZero() {
		p.BaseFee = &coin.Coin{Whole: g.BaseFee.Whole, Fractional: g.BaseFee.Fractional, Ticker: g.Ticker}
	}
	if !g.Faucet.IsZero() {
		p.Faucet = &coin.Coin{Whole: g.Faucet.Whole, Fractional: g.Faucet.Fractional, Ticker: g.Ticker}
	}
	return p
}

// initGenesis stores the parameters and the initial accounts.
func initGenesis(db store.KVStore, g Genesis) (*Params, error) {
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(err, "genesis")
	}
	if p, err := GetParams(db); err != nil {
		return nil, err
	} else if p != nil {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "genesis already loaded for chain %s", p.ChainID)
	}
	params := g.Params()
	if err := save(db, []byte(paramsKey), params); err != nil {
		return nil, err
	}
	for _, a := range g.Accounts {
		if a.Balance.IsZero() {
			a.Balance = coin.Coin{Ticker: g.Ticker}
		}
		if err := credit(db, a.Address, a.Balance); err != nil {
			return nil, errors.Wrapf(err, "account %s", a.Address)
		}
	}
	return params, nil
}
