package session

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/iov-one/quickhold/client"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/weavetest/assert"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// recordingConn counts submitted transactions. It does not close the
// devnet on disconnect so that the ledger can be inspected afterwards.
type recordingConn struct {
	client.Conn
	submitted int
	// queries fail once that many transactions were submitted, zero
	// means never
	queriesFailAfter int
}

func (c *recordingConn) ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error) {
	if c.queriesFailAfter > 0 && c.submitted >= c.queriesFailAfter {
		return nil, errors.Wrap(errors.ErrNetwork, "node unreachable")
	}
	return c.Conn.ABCIQuery(path, data)
}

func (c *recordingConn) BroadcastTxCommit(tx tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	c.submitted++
	return c.Conn.BroadcastTxCommit(tx)
}

type fixture struct {
	devnet  *client.Devnet
	conn    *recordingConn
	clock   *clock
	out     *bytes.Buffer
	session *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	g := ledger.DefaultGenesis()
	// Without fees balances move only by the locked amount.
	g.BaseFee = coin.Coin{}
	devnet, err := client.NewDevnet(g, log.NewNopLogger())
	assert.Nil(t, err)
	clk := &clock{now: time.Now().Add(time.Minute)}
	devnet.WithClock(clk.Now)

	conn := &recordingConn{Conn: devnet}
	out := &bytes.Buffer{}
	s := New(client.NewClient(conn), NewConsole(out), DefaultConfig()).WithClock(clk.Now)
	return &fixture{devnet: devnet, conn: conn, clock: clk, out: out, session: s}
}

// inspect returns a fresh client connected to the fixture ledger.
func (f *fixture) inspect(t *testing.T) *client.Client {
	t.Helper()
	c := client.NewClient(f.devnet)
	assert.Nil(t, c.Connect(context.Background()))
	return c
}

func (f *fixture) balances(t *testing.T) (coin.Coin, coin.Coin) {
	t.Helper()
	c := f.inspect(t)
	ctx := context.Background()
	sender, err := c.Balance(ctx, f.session.Sender().Address())
	assert.Nil(t, err)
	receiver, err := c.Balance(ctx, f.session.Receiver().Address())
	assert.Nil(t, err)
	return sender, receiver
}

func (f *fixture) holdState(t *testing.T) ledger.HoldState {
	t.Helper()
	owner, seq, ok := f.session.Hold()
	if !ok {
		t.Fatal("no hold created")
	}
	hold, err := f.inspect(t).Hold(context.Background(), owner, seq)
	assert.Nil(t, err)
	if hold == nil {
		t.Fatal("hold not found")
	}
	return hold.State
}

func assertOutput(t *testing.T, out *bytes.Buffer, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out.String(), w) {
			t.Fatalf("output does not contain %q:\n%s", w, out.String())
		}
	}
}

func TestSessionReleasesWithRightPhrase(t *testing.T) {
	f := newFixture(t)
	in := strings.NewReader("escrow 10 \"package delivered safely\"\npackage delivered safely\n")
	assert.Nil(t, f.session.Run(context.Background(), in))

	// two faucet transactions, the hold and its release
	assert.Equal(t, 4, f.conn.submitted)
	sender, receiver := f.balances(t)
	assert.Equal(t, coin.NewCoin(990, 0, "IOV"), sender)
	assert.Equal(t, coin.NewCoin(1010, 0, "IOV"), receiver)
	assert.Equal(t, ledger.HoldReleased, f.holdState(t))

	assertOutput(t, f.out,
		"Escrow created successfully!",
		"10 IOV locked",
		"Correct phrase! Releasing funds...",
		"Funds released!",
		"Receiver final:  1010 IOV (+10 IOV)",
		"is released",
		"QuickHold demo complete.",
	)
}

func TestSessionReleaseSucceedsWhenReportFails(t *testing.T) {
	f := newFixture(t)
	// the release is the fourth transaction
	f.conn.queriesFailAfter = 4
	in := strings.NewReader("escrow 10 \"secret\"\nsecret\n")
	assert.Nil(t, f.session.Run(context.Background(), in))

	assert.Equal(t, ledger.HoldReleased, f.holdState(t))
	assertOutput(t, f.out,
		"Funds released!",
		"Cannot read final state",
		"QuickHold demo complete.",
	)
	assert.Equal(t, false, strings.Contains(f.out.String(), "Receiver final"))
}

func TestSessionRejectsNonNumericAmount(t *testing.T) {
	f := newFixture(t)
	err := f.session.Run(context.Background(), strings.NewReader("escrow abc \"x\"\n"))
	assert.IsErr(t, errors.ErrInput, err)

	// only the faucet transactions of the bootstrap
	assert.Equal(t, 2, f.conn.submitted)
	_, _, ok := f.session.Hold()
	assert.Equal(t, false, ok)
	assertOutput(t, f.out, "Invalid format")
}

func TestSessionKeepsFundsLockedOnWrongPhrase(t *testing.T) {
	f := newFixture(t)
	in := strings.NewReader("escrow 10 \"secret\"\nwrong\n")
	assert.Nil(t, f.session.Run(context.Background(), in))

	assert.Equal(t, 3, f.conn.submitted)
	assert.Equal(t, ledger.HoldPending, f.holdState(t))
	sender, receiver := f.balances(t)
	assert.Equal(t, coin.NewCoin(990, 0, "IOV"), sender)
	assert.Equal(t, coin.NewCoin(1000, 0, "IOV"), receiver)
	assertOutput(t, f.out, "Wrong phrase, funds remain locked")

	// The ledger returns the funds once the hold expires.
	f.clock.Advance(DefaultExpiry - time.Second)
	f.devnet.NewBlock()
	assert.Equal(t, ledger.HoldPending, f.holdState(t))

	f.clock.Advance(time.Second)
	f.devnet.NewBlock()
	assert.Equal(t, ledger.HoldReturned, f.holdState(t))
	sender, receiver = f.balances(t)
	assert.Equal(t, coin.NewCoin(1000, 0, "IOV"), sender)
	assert.Equal(t, coin.NewCoin(1000, 0, "IOV"), receiver)
}

func TestSessionRejectsUnquotedPhrase(t *testing.T) {
	f := newFixture(t)
	err := f.session.Run(context.Background(), strings.NewReader("escrow 5 hello\n"))
	assert.IsErr(t, errors.ErrInput, err)
	assert.Equal(t, 2, f.conn.submitted)
	assertOutput(t, f.out, "Invalid format", "Make sure the phrase is in quotes!")
}

func TestSessionReleaseAfterExpiryFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.Nil(t, f.session.Bootstrap(ctx))
	cmd, err := ParseCommand(`escrow 10 "secret"`)
	assert.Nil(t, err)
	assert.Nil(t, f.session.Lock(ctx, cmd))

	f.clock.Advance(DefaultExpiry)
	released, err := f.session.Release(ctx, "secret")
	// The block carrying the release returns the hold first.
	assert.Equal(t, false, released)
	if err == nil {
		t.Fatal("release of an expired hold must fail")
	}
	assertOutput(t, f.out, "Release failed")
	assert.Equal(t, ledger.HoldReturned, f.holdState(t))
}

func TestSessionUsesConfiguredExpiry(t *testing.T) {
	f := newFixture(t)
	f.session.config.Expiry = time.Hour
	ctx := context.Background()
	assert.Nil(t, f.session.Bootstrap(ctx))
	cmd, err := ParseCommand(`escrow 1.5 "secret"`)
	assert.Nil(t, err)
	assert.Nil(t, f.session.Lock(ctx, cmd))

	owner, seq, _ := f.session.Hold()
	hold, err := f.inspect(t).Hold(ctx, owner, seq)
	assert.Nil(t, err)
	assert.Equal(t, f.clock.Now().Add(time.Hour).Unix(), int64(hold.CancelAfter))
	assert.Equal(t, coin.NewCoin(1, 500000, "IOV"), *hold.Amount)

	// A second hold per session is refused.
	assert.IsErr(t, errors.ErrState, f.session.Lock(ctx, cmd))
}

func TestSessionLockRejectedByLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	assert.Nil(t, f.session.Bootstrap(ctx))
	cmd, err := ParseCommand(`escrow 5000 "secret"`)
	assert.Nil(t, err)
	err = f.session.Lock(ctx, cmd)
	assert.IsErr(t, errors.ErrAmount, err)
	assertOutput(t, f.out, "Creation failed: code 12")

	_, err = f.session.Release(ctx, "secret")
	assert.IsErr(t, errors.ErrState, err)
}

func TestSessionDisconnectsOnEveryPath(t *testing.T) {
	devnet, err := client.NewDevnet(ledger.DefaultGenesis(), log.NewNopLogger())
	assert.Nil(t, err)
	out := &bytes.Buffer{}
	s := New(client.NewClient(devnet), NewConsole(out), DefaultConfig())
	err = s.Run(context.Background(), strings.NewReader("escrow 5 hello\n"))
	assert.IsErr(t, errors.ErrInput, err)

	// Run closed the devnet connection.
	_, err = devnet.ABCIInfo()
	assert.IsErr(t, errors.ErrNetwork, err)
}

func TestSessionEndsOnClosedInput(t *testing.T) {
	f := newFixture(t)
	err := f.session.Run(context.Background(), strings.NewReader(""))
	assert.IsErr(t, errors.ErrInput, err)
	assert.Equal(t, 2, f.conn.submitted)
}
