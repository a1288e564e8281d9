package session

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/client"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/conditions"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/tendermint/tendermint/libs/log"
)

// DefaultExpiry is how long a hold waits for its phrase.
const DefaultExpiry = 300 * time.Second

// Config configures a session.
type Config struct {
	// Expiry is the time after which an unreleased hold returns to the
	// sender.
	Expiry time.Duration
}

// DefaultConfig returns the configuration of the demo.
func DefaultConfig() Config {
	return Config{Expiry: DefaultExpiry}
}

// Session is a single run of the escrow flow. It owns the client
// connection and disconnects it when Run returns.
type Session struct {
	client  *client.Client
	console *Console
	logger  log.Logger
	config  Config
	now     func() time.Time

	sender   *client.Wallet
	receiver *client.Wallet

	// set once the hold is created
	command     Command
	amount      coin.Coin
	fulfillment conditions.Fulfillment
	condition   conditions.Condition
	cancelAfter quickhold.UnixTime
	sequence    int64
	locked      bool
}

// New returns a session using given client. The client must not be
// connected yet.
func New(c *client.Client, console *Console, config Config) *Session {
	if config.Expiry <= 0 {
		config.Expiry = DefaultExpiry
	}
	return &Session{
		client:  c,
		console: console,
		logger:  log.NewNopLogger(),
		config:  config,
		now:     time.Now,
	}
}

// WithLogger sets the logger and returns the session.
func (s *Session) WithLogger(logger log.Logger) *Session {
	s.logger = logger
	return s
}

// WithClock replaces the time source used to compute hold expiry.
func (s *Session) WithClock(now func() time.Time) *Session {
	s.now = now
	return s
}

// Sender returns the wallet that locks the funds.
func (s *Session) Sender() *client.Wallet {
	return s.sender
}

// Receiver returns the wallet the funds are released to.
func (s *Session) Receiver() *client.Wallet {
	return s.receiver
}

// Hold returns the owner and sequence that identify the hold created by
// Lock. The last value is false if no hold was created.
func (s *Session) Hold() (quickhold.Address, int64, bool) {
	if !s.locked {
		return nil, 0, false
	}
	return s.sender.Address(), s.sequence, true
}

// Run executes the whole flow, reading the command and the release phrase
// from in. The connection is closed on every return path.
func (s *Session) Run(ctx context.Context, in io.Reader) (err error) {
	defer func() {
		if e := s.client.Disconnect(); e != nil {
			s.logger.Error("Disconnect failed", "err", e)
			if err == nil {
				err = errors.Wrap(errors.ErrNetwork, e.Error())
			}
		}
	}()

	if err := s.Bootstrap(ctx); err != nil {
		s.console.Failure("Error: %s", err)
		return err
	}

	s.console.Println("Command format:")
	s.console.Println("   %s", CommandFormat)
	s.console.Println("")
	s.console.Println(`Example: escrow 10 "package delivered safely"`)
	s.console.Println(`Write \" for a quote inside the phrase.`)
	s.console.Println("")

	lines := bufio.NewReader(in)
	s.console.Prompt("> ")
	line, err := readLine(lines)
	if err != nil {
		return err
	}
	cmd, err := ParseCommand(line)
	if err != nil {
		s.console.Failure("Invalid format. Use: %s", CommandFormat)
		s.console.Println("   Make sure the phrase is in quotes!")
		return err
	}
	if err := s.Lock(ctx, cmd); err != nil {
		return err
	}

	s.console.Prompt("Enter secret phrase to release: ")
	candidate, err := readLine(lines)
	if err != nil {
		return err
	}
	if _, err := s.Release(ctx, candidate); err != nil {
		return err
	}
	s.console.Println("")
	s.console.Println("QuickHold demo complete.")
	return nil
}

// readLine returns the next line without its line break. The last line of
// the input may be unterminated.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrInput, "input closed")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Bootstrap connects to the ledger and creates two wallets funded by the
// faucet.
func (s *Session) Bootstrap(ctx context.Context) error {
	if err := s.client.Connect(ctx); err != nil {
		return err
	}
	s.console.Success("Connected to ledger %s", s.client.ChainID())
	s.console.Println("")

	s.console.Println("Generating fresh wallets...")
	sender, err := s.fundedWallet(ctx, "sender")
	if err != nil {
		return err
	}
	receiver, err := s.fundedWallet(ctx, "receiver")
	if err != nil {
		return err
	}
	s.sender, s.receiver = sender, receiver

	s.console.Println("Sender:    %s", sender.Address())
	s.console.Println("Receiver:  %s", receiver.Address())
	s.console.Println("")
	return s.printBalances(ctx, "balance", coin.Coin{})
}

func (s *Session) fundedWallet(ctx context.Context, name string) (*client.Wallet, error) {
	w, err := client.NewWallet(name)
	if err != nil {
		return nil, err
	}
	res, err := s.client.FundWallet(ctx, w)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, errors.Wrapf(res.Err, "fund %s", name)
	}
	s.logger.Debug("Wallet funded", "name", name, "address", w.Address().String())
	return w, nil
}

// printBalances prints the balances of both wallets. A non zero received
// amount is shown next to the receiver balance.
func (s *Session) printBalances(ctx context.Context, label string, received coin.Coin) error {
	senderBal, err := s.client.Balance(ctx, s.sender.Address())
	if err != nil {
		return err
	}
	receiverBal, err := s.client.Balance(ctx, s.receiver.Address())
	if err != nil {
		return err
	}
	s.console.Println("Sender %s:    %s", label, senderBal)
	if received.IsZero() {
		s.console.Println("Receiver %s:  %s", label, receiverBal)
	} else {
		s.console.Println("Receiver %s:  %s (+%s)", label, receiverBal, received)
	}
	s.console.Println("")
	return nil
}

// Lock creates the hold of the command amount from the sender to the
// receiver. The hold expires after the configured expiry.
func (s *Session) Lock(ctx context.Context, cmd Command) error {
	if s.sender == nil {
		return errors.Wrap(errors.ErrState, "session not bootstrapped")
	}
	if s.locked {
		return errors.Wrap(errors.ErrState, "hold already created")
	}
	amount := cmd.Amount
	amount.Ticker = s.client.Ticker()
	s.console.Println("")
	s.console.Println("Locking %s with secret: %q", amount, cmd.Phrase)
	s.console.Println("")

	fulfillment, condition := conditions.FromPhrase(cmd.Phrase)
	cancelAfter := quickhold.AsUnixTime(s.now().Add(s.config.Expiry))

	tx := &ledger.Tx{}
	err := tx.SetMsg(&ledger.CreateHoldMsg{
		Owner:       s.sender.Address(),
		Destination: s.receiver.Address(),
		Amount:      &amount,
		Condition:   condition,
		CancelAfter: cancelAfter,
	})
	if err != nil {
		return err
	}
	res, err := s.submit(ctx, s.sender, tx)
	if err != nil {
		s.console.Failure("Error: %s", err)
		return err
	}
	if res.Err != nil {
		s.console.Failure("Creation failed: code %d: %s", errors.ABCICode(res.Err), res.Err)
		return errors.Wrap(res.Err, "create hold")
	}

	s.command = cmd
	s.amount = amount
	s.fulfillment = fulfillment
	s.condition = condition
	s.cancelAfter = cancelAfter
	s.sequence = tx.Sequence
	s.locked = true
	s.logger.Debug("Hold created",
		"hash", res.ID.String(),
		"height", res.Height,
		"sequence", tx.Sequence,
		"condition", condition.Hex(),
		"cancel_after", cancelAfter.String())

	s.console.Success("Escrow created successfully!")
	s.console.Println("Transaction hash: %s", res.ID)
	s.console.Println("%s locked", amount)
	s.console.Notice("Waiting for secret phrase to release funds...")
	s.console.Println("")
	return nil
}

// Release submits the fulfillment if candidate is the phrase of the hold.
// It returns false without submitting anything if it is not, the ledger
// then returns the funds to the sender at expiry.
func (s *Session) Release(ctx context.Context, candidate string) (bool, error) {
	if !s.locked {
		return false, errors.Wrap(errors.ErrState, "no hold to release")
	}
	if candidate != s.command.Phrase {
		s.console.Failure("Wrong phrase, funds remain locked (will return to sender at %s).", s.cancelAfter)
		return false, nil
	}

	s.console.Println("")
	s.console.Success("Correct phrase! Releasing funds...")
	s.console.Println("")

	tx := &ledger.Tx{}
	err := tx.SetMsg(&ledger.FinishHoldMsg{
		Owner:       s.sender.Address(),
		Sequence:    s.sequence,
		Condition:   s.condition,
		Fulfillment: s.fulfillment,
	})
	if err != nil {
		return false, err
	}
	res, err := s.submit(ctx, s.receiver, tx)
	if err != nil {
		s.console.Failure("Error: %s", err)
		return false, err
	}
	if res.Err != nil {
		s.console.Failure("Release failed: code %d: %s", errors.ABCICode(res.Err), res.Err)
		return false, errors.Wrap(res.Err, "finish hold")
	}

	s.console.Success("Funds released!")
	// The hold is settled from here on, a failed lookup only affects the report.
	if err := s.report(ctx); err != nil {
		s.console.Failure("Cannot read final state: %s", err)
		s.logger.Error("Report after release failed", "err", err)
	}
	return true, nil
}

func (s *Session) report(ctx context.Context) error {
	if err := s.printBalances(ctx, "final", s.amount); err != nil {
		return err
	}
	hold, err := s.client.Hold(ctx, s.sender.Address(), s.sequence)
	if err != nil {
		return err
	}
	if hold != nil {
		s.console.Println("Hold %s/%d is %s", s.sender.Address(), s.sequence, hold.State)
	}
	return nil
}

// submit fills in fee and sequence, signs and submits the transaction.
func (s *Session) submit(ctx context.Context, signer *client.Wallet, tx *ledger.Tx) (*client.CommitResult, error) {
	if err := s.client.Autofill(ctx, tx, signer.Address()); err != nil {
		return nil, err
	}
	if err := s.client.Sign(signer, tx); err != nil {
		return nil, err
	}
	return s.client.SubmitAndWait(ctx, tx)
}
