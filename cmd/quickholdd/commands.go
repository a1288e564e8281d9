package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iov-one/quickhold"
	"github.com/iov-one/quickhold/coin"
	"github.com/iov-one/quickhold/errors"
	"github.com/iov-one/quickhold/ledger"
	"github.com/iov-one/quickhold/store/iavl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/tendermint/tendermint/abci/server"
	"github.com/tendermint/tendermint/libs/log"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quickholdd",
		Short: "QuickHold ledger node",
		Long: `quickholdd serves the QuickHold ledger application to a tendermint node
over an ABCI socket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newStartCmd(), newGenesisCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), quickhold.Version())
		},
	}
}

type startOptions struct {
	addr    string
	home    string
	metrics string
	debug   bool
}

func newStartCmd() *cobra.Command {
	defaultHome := filepath.Join(os.ExpandEnv("$HOME"), ".quickhold")
	opts := startOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.NewTMLogger(log.NewSyncWriter(cmd.ErrOrStderr())).
				With("module", "quickhold")
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return start(ctx, opts, logger)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&opts.addr, "addr", "tcp://localhost:26658", "Address the ABCI server listens on.")
	fl.StringVar(&opts.home, "home", defaultHome, "Directory to store the ledger state under.")
	fl.StringVar(&opts.metrics, "metrics", ":26660", "Address to serve prometheus metrics on. Empty disables metrics.")
	fl.BoolVar(&opts.debug, "debug", false, "Return stack traces of errors in results.")
	return cmd
}

// start runs the ledger until the context is cancelled.
func start(ctx context.Context, opts startOptions, logger log.Logger) error {
	if err := os.MkdirAll(opts.home, 0750); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	kv := iavl.NewCommitStore(opts.home, "quickhold")
	defer kv.Close()

	app, err := ledger.NewApp("quickhold", kv)
	if err != nil {
		return err
	}
	app.WithLogger(logger.With("module", "ledger")).WithDebug(opts.debug)

	if opts.metrics != "" {
		reg := prometheus.NewRegistry()
		app.WithMetrics(ledger.NewMetrics(reg))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		msrv := &http.Server{Addr: opts.metrics, Handler: mux}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "err", err)
			}
		}()
		defer msrv.Close()
		logger.Info("Serving metrics", "addr", opts.metrics)
	}

	srv, err := server.NewServer(opts.addr, "socket", app)
	if err != nil {
		return errors.Wrapf(errors.ErrNetwork, "creating listener: %s", err)
	}
	srv.SetLogger(logger.With("module", "abci-server"))
	if err := srv.Start(); err != nil {
		return errors.Wrapf(errors.ErrNetwork, "starting server: %s", err)
	}
	logger.Info("Starting ABCI app", "bind", opts.addr, "home", opts.home)

	<-ctx.Done()
	logger.Info("Shutting down")
	return srv.Stop()
}

// coinFlag adapts coin.Coin to a command line flag.
type coinFlag struct {
	*coin.Coin
}

func (coinFlag) Type() string { return "coin" }

func newGenesisCmd() *cobra.Command {
	g := ledger.DefaultGenesis()
	cmd := &cobra.Command{
		Use:   "genesis",
		Short: "Print the app_state of a tendermint genesis file",
		Long: `Print the ledger genesis as JSON. Use it as the app_state of the
tendermint genesis file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Defaults follow the chosen ticker.
			if !cmd.Flags().Changed("fee") {
				g.BaseFee.Ticker = g.Ticker
			}
			if !cmd.Flags().Changed("faucet") {
				g.Faucet.Ticker = g.Ticker
			}
			if err := g.Validate(); err != nil {
				return err
			}
			raw, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return errors.Wrap(errors.ErrInput, err.Error())
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&g.ChainID, "chain-id", g.ChainID, "Chain ID.")
	fl.StringVar(&g.Ticker, "ticker", g.Ticker, "Ticker of the native currency.")
	fl.Var(coinFlag{&g.BaseFee}, "fee", `Minimal fee of every signed transaction, for example "0.00001 IOV".`)
	fl.Var(coinFlag{&g.Faucet}, "faucet", `Amount credited by the faucet, for example "1000 IOV". Zero disables it.`)
	fl.BoolVar(&g.ManualReturn, "manual-return", false, "Do not return expired holds automatically.")
	return cmd
}
