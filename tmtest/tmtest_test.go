package tmtest

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/iov-one/quickhold/weavetest/assert"
)

func TestSetGenesis(t *testing.T) {
	dir, err := ioutil.TempDir("", "tmtest")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "genesis.json")
	orig := `{"genesis_time": "2019-04-01T12:00:00Z", "chain_id": "test-chain-XYZ", "validators": [{"power": "10"}]}`
	assert.Nil(t, ioutil.WriteFile(path, []byte(orig), 0644))

	state := map[string]string{"ticker": "IOV"}
	assert.Nil(t, setGenesis(path, "my-chain", state))

	raw, err := ioutil.ReadFile(path)
	assert.Nil(t, err)
	var got struct {
		GenesisTime string              `json:"genesis_time"`
		ChainID     string              `json:"chain_id"`
		Validators  []map[string]string `json:"validators"`
		AppState    map[string]string   `json:"app_state"`
	}
	assert.Nil(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "2019-04-01T12:00:00Z", got.GenesisTime)
	assert.Equal(t, "my-chain", got.ChainID)
	assert.Equal(t, []map[string]string{{"power": "10"}}, got.Validators)
	assert.Equal(t, state, got.AppState)
}

func TestSetGenesisMissingFile(t *testing.T) {
	if err := setGenesis("/does/not/exist/genesis.json", "x", nil); err == nil {
		t.Fatal("want error")
	}
}
