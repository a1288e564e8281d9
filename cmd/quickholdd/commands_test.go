package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/weavetest/assert"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute("version")
	assert.Nil(t, err)
	assert.Equal(t, quickhold.Version()+"\n", out)
}

func TestGenesisCmd(t *testing.T) {
	cases := map[string]struct {
		args    []string
		want    ledger.Genesis
		wantErr *errors.Error
	}{
		"defaults": {
			want: ledger.DefaultGenesis(),
		},
		"custom ledger": {
			args: []string{"--chain-id", "my-chain", "--ticker", "ETH", "--fee", "0.1 ETH", "--faucet", "5 ETH", "--manual-return"},
			want: ledger.Genesis{
				ChainID:      "my-chain",
				Ticker:       "ETH",
				BaseFee:      coin.NewCoin(0, 100000, "ETH"),
				Faucet:       coin.NewCoin(5, 0, "ETH"),
				ManualReturn: true,
			},
		},
		"default amounts follow the ticker": {
			args: []string{"--ticker", "ETH"},
			want: ledger.Genesis{
				ChainID: ledger.DefaultChainID,
				Ticker:  "ETH",
				BaseFee: coin.FromDrops(10, "ETH"),
				Faucet:  coin.NewCoin(1000, 0, "ETH"),
			},
		},
		"fee in another currency": {
			args:    []string{"--fee", "1 ETH"},
			wantErr: errors.ErrCurrency,
		},
		"invalid chain id": {
			args:    []string{"--chain-id", "a b"},
			wantErr: errors.ErrChainID,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			out, err := execute(append([]string{"genesis"}, tc.args...)...)
			if tc.wantErr != nil {
				assert.IsErr(t, tc.wantErr, err)
				return
			}
			assert.Nil(t, err)
			var got ledger.Genesis
			assert.Nil(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, tc.want, got)
		})
	}
}
