/*

Package tmtest provides helpers for testing against a tendermint node.

*/
package tmtest

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/iov-one/quickhold/weavetest/assert"
)

// TestReporter is the minimal subset of testing.TB needed to run these test helpers
type TestReporter interface {
	assert.Tester
	Skipf(string, ...interface{})
	Logf(string, ...interface{})
}

// Node describes how a tendermint node is run.
type Node struct {
	// Home is the tendermint home directory.
	Home string
	// ProxyApp is the address of the ABCI application.
	ProxyApp string
	// RPC is the address the node serves its RPC on.
	RPC string
	// P2P is the address the node listens for peers on.
	P2P string
}

// binary returns the path of the tendermint binary or skips the test.
//
// Set FORCE_TM_TEST=1 environment variable to fail the test if the binary is
// not available. This might be desired when running tests by CI.
func binary(t TestReporter) string {
	t.Helper()
	tmpath, err := exec.LookPath("tendermint")
	if err != nil {
		if os.Getenv("FORCE_TM_TEST") != "1" {
			t.Skipf("Tendermint binary not found. Set FORCE_TM_TEST=1 to fail this test.")
		} else {
			t.Fatalf("Tendermint binary not found. Do not set FORCE_TM_TEST=1 to skip this test.")
		}
	}
	return tmpath
}

// InitHome creates a tendermint home directory in a new temporary directory
// with a single validator. The genesis file carries given chain id and
// application state. Returned function removes the directory.
func InitHome(t TestReporter, chainID string, appState interface{}) (string, func()) {
	t.Helper()
	tmpath := binary(t)

	home, err := ioutil.TempDir("", "quickhold-tm")
	assert.Nil(t, err)
	cleanup := func() { os.RemoveAll(home) }

	if out, err := exec.Command(tmpath, "init", "--home", home).CombinedOutput(); err != nil {
		cleanup()
		t.Fatalf("tendermint init: %s: %s", err, out)
	}
	if err := setGenesis(filepath.Join(home, "config", "genesis.json"), chainID, appState); err != nil {
		cleanup()
		t.Fatalf("Cannot update genesis: %+v", err)
	}
	return home, cleanup
}

// setGenesis replaces the chain id and the app_state of a genesis file,
// leaving the rest of the document untouched.
func setGenesis(path, chainID string, appState interface{}) error {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	if doc["chain_id"], err = json.Marshal(chainID); err != nil {
		return err
	}
	if doc["app_state"], err = json.Marshal(appState); err != nil {
		return err
	}
	raw, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, raw, 0644)
}

// RunTendermint starts a tendermint process. Returned cleanup function will
// ensure the process has stopped and will block until.
//
// Set TM_DEBUG=1 environmental variable to output all tm logs
func RunTendermint(ctx context.Context, t TestReporter, n Node) (cleanup func()) {
	t.Helper()
	tmpath := binary(t)

	cmd := exec.CommandContext(ctx, tmpath, "node",
		"--home", n.Home,
		"--proxy_app", n.ProxyApp,
		"--rpc.laddr", n.RPC,
		"--p2p.laddr", n.P2P)
	// log tendermint output for verbose debugging....
	if os.Getenv("TM_DEBUG") != "" {
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Start(); err != nil {
		t.Fatalf("Tendermint process failed: %s", err)
	}

	// Give tendermint time to setup.
	time.Sleep(2 * time.Second)
	t.Logf("Running %s pid=%d", tmpath, cmd.Process.Pid)

	// Return a cleanup function, that will wait for the tendermint to stop.
	// We also auto-kill when the context is Done
	done := make(chan struct{})

	var once sync.Once
	cleanup = func() {
		once.Do(func() {
			t.Logf("tendermint cleanup called")
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			close(done)
		})

		// Block until the tendermint server process is gone.
		<-done
	}

	go func() {
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()

	return cleanup
}
