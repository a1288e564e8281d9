package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/iov-one/quickhold/client"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/session"
	"github.com/tendermint/tendermint/libs/log"
)

func main() {
	if err := run(os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run executes a single escrow session. Human readable output goes to
// stdout, logs to stderr.
func run(stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	fl := flag.NewFlagSet("quickhold", flag.ExitOnError)
	fl.SetOutput(stderr)
	fl.Usage = func() {
		fmt.Fprintln(stderr, `
Lock an amount between two fresh wallets behind a secret phrase and release
it by entering the phrase again. A wrong phrase leaves the funds locked until
the ledger returns them to the sender.

Without -tm an in-process ledger is used.
		`)
		fl.PrintDefaults()
	}
	var (
		tmAddrFl = fl.String("tm", env("QUICKHOLD_TM_ADDR", ""),
			"Tendermint node address of a quickholdd ledger. Use QUICKHOLD_TM_ADDR environment variable to set it.")
		expiryFl   = fl.Duration("expiry", session.DefaultExpiry, "Time after which an unreleased hold returns to the sender.")
		logLevelFl = fl.String("log-level", "error", "Log level: debug, info, error or none.")
	)
	fl.Parse(args)

	logger, err := newLogger(stderr, *logLevelFl)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}

	conn, err := connection(*tmAddrFl, logger)
	if err != nil {
		logger.Error("Cannot connect", "err", err)
		fmt.Fprintln(stderr, err)
		return err
	}

	c := client.NewClient(conn).WithLogger(logger.With("module", "client"))
	s := session.New(c, session.NewConsole(stdout), session.Config{Expiry: *expiryFl}).
		WithLogger(logger.With("module", "session"))
	if err := s.Run(context.Background(), stdin); err != nil {
		logger.Error("Session failed", "err", err)
		return err
	}
	return nil
}

// connection returns a connection to the node at given address or, if the
// address is empty, to a new devnet.
func connection(tmAddr string, logger log.Logger) (client.Conn, error) {
	if tmAddr != "" {
		return client.NewHTTPConnection(tmAddr), nil
	}
	devnet, err := client.NewDevnet(ledger.DefaultGenesis(), logger)
	if err != nil {
		return nil, err
	}
	return devnet, nil
}

func newLogger(w io.Writer, level string) (log.Logger, error) {
	logger := log.NewTMLogger(log.NewSyncWriter(w))
	if level == "none" {
		return log.NewNopLogger(), nil
	}
	opt, err := log.AllowLevel(level)
	if err != nil {
		return nil, err
	}
	return log.NewFilter(logger, opt), nil
}

// env returns the value of an environment variable if provided (even if empty)
// or a fallback value.
func env(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
