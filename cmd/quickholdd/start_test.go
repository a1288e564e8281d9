package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/iov-one/quickhold/client"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/session"
	"github.com/iov-one/quickhold/tmtest"
	"github.com/iov-one/quickhold/weavetest/assert"
	"github.com/tendermint/tendermint/libs/log"
)

func TestStartServesSession(t *testing.T) {
	g := ledger.DefaultGenesis()
	g.ChainID = "quickhold-tm-test"
	tmHome, cleanup := tmtest.InitHome(t, g.ChainID, g)
	defer cleanup()

	appHome, err := ioutil.TempDir("", "quickholdd")
	assert.Nil(t, err)
	defer os.RemoveAll(appHome)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	opts := startOptions{addr: "tcp://127.0.0.1:46658", home: appHome}
	done := make(chan error, 1)
	go func() { done <- start(ctx, opts, log.NewNopLogger()) }()

	stop := tmtest.RunTendermint(ctx, t, tmtest.Node{
		Home:     tmHome,
		ProxyApp: opts.addr,
		RPC:      "tcp://127.0.0.1:46657",
		P2P:      "tcp://127.0.0.1:46656",
	})
	defer stop()

	var out bytes.Buffer
	c := client.NewClient(client.NewHTTPConnection("http://127.0.0.1:46657"))
	s := session.New(c, session.NewConsole(&out), session.DefaultConfig())
	in := strings.NewReader("escrow 10 \"package delivered safely\"\npackage delivered safely\n")
	if err := s.Run(ctx, in); err != nil {
		t.Fatalf("session failed: %+v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Funds released!") {
		t.Fatalf("funds not released:\n%s", out.String())
	}

	stop()
	cancel()
	assert.Nil(t, <-done)
}
