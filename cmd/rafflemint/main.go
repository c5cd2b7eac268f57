package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/sigweihq/rafflemint/pkg/chains"
	"github.com/sigweihq/rafflemint/pkg/chains/evm"
	"github.com/sigweihq/rafflemint/pkg/config"
	"github.com/sigweihq/rafflemint/pkg/constants"
	"github.com/sigweihq/rafflemint/pkg/issuance"
	"github.com/sigweihq/rafflemint/pkg/logger"
	"github.com/sigweihq/rafflemint/pkg/orchestrator"
	"github.com/sigweihq/rafflemint/pkg/pricing"
	"github.com/sigweihq/rafflemint/pkg/router"
	"github.com/sigweihq/rafflemint/pkg/session"
	"github.com/sigweihq/rafflemint/pkg/storage"
	"github.com/sigweihq/rafflemint/pkg/types"
)

const usage = `usage: rafflemint <command> [flags]

commands:
  quote       show the price of a selection
  mint        pay for and mint raffle tickets
  balance     show the wallet's AVAX and BALLN balances
  unresolved  list paid attempts that never settled
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "rafflemint:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return errors.New("missing command")
	}
	command, args := args[0], args[1:]

	flags := flag.NewFlagSet(command, flag.ContinueOnError)
	envFile := flags.String("env", ".env", "dotenv file to load")
	quantity := flags.Int("quantity", int(types.DefaultQuantity), "tickets to mint (1, 3, 5 or 10)")
	method := flags.String("method", types.PaymentNative.String(), "payment method (avax or balln)")
	verbose := flags.Bool("v", false, "log to the console")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Configuration{
		LogFile:   cfg.LogFile,
		ErrorFile: cfg.ErrorLogFile,
		Level:     cfg.LogLevel,
		Console:   *verbose,
	})
	if err != nil {
		return err
	}
	defer log.Close()
	slog.SetDefault(log.Logger)

	sess := session.New()
	if !sess.SetQuantity(types.Quantity(*quantity)) {
		return fmt.Errorf("quantity must be one of %v", constants.AllowedQuantities)
	}
	paymentMethod, err := types.ParsePaymentMethod(*method)
	if err != nil {
		return err
	}
	sess.SetPaymentMethod(paymentMethod)

	resolver, err := pricing.NewResolver(pricing.Config{
		Recipient:    cfg.DeployerWallet,
		TokenAddress: cfg.TokenAddress,
	})
	if err != nil {
		return err
	}

	switch command {
	case "quote":
		return quote(stdout, resolver, sess, cfg.Network)
	case "unresolved":
		return unresolved(ctx, stdout, cfg, log.Logger)
	case "balance", "mint":
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", command)
	}

	adapter, err := chainAdapter(ctx, cfg, log.Logger)
	if err != nil {
		return err
	}
	wallet, err := adapter.Wallet(cfg.WalletPrivateKey)
	if err != nil {
		return err
	}

	if command == "balance" {
		return balance(ctx, stdout, adapter, wallet, cfg)
	}
	return mint(ctx, stdout, cfg, log.Logger, sess, resolver, adapter, wallet)
}

func quote(stdout io.Writer, resolver *pricing.Resolver, sess *session.Session, network string) error {
	snap := sess.Snapshot()
	instruction, err := resolver.Resolve(snap.Quantity, snap.PaymentMethod)
	if err != nil {
		return err
	}
	req := instruction.Requirements(network)
	fmt.Fprintf(stdout, "%d ticket(s): %s\n", snap.Quantity, instruction.HumanAmount())
	fmt.Fprintf(stdout, "pay to %s on %s (%s minimal units)\n", req.PayTo, req.Network, req.MaxAmountRequired)
	return nil
}

func chainAdapter(ctx context.Context, cfg *config.Config, log *slog.Logger) (chains.ChainAdapter, error) {
	var (
		registry *chains.Registry
		err      error
	)
	if len(cfg.RPCEndpoints) > 0 {
		registry, err = evm.InitEVMChainsWithEndpoints(log, map[string][]string{cfg.Network: cfg.RPCEndpoints})
	} else {
		registry, err = evm.InitEVMChains(ctx, log, cfg.Network)
	}
	if err != nil {
		return nil, err
	}
	return registry.Get(cfg.Network)
}

func openLedger(cfg *config.Config, log *slog.Logger) (storage.Storage, error) {
	if cfg.LedgerPath == "" {
		return nil, nil
	}
	return storage.NewSqliteStorage(cfg.LedgerPath, log)
}

func mint(
	ctx context.Context,
	stdout io.Writer,
	cfg *config.Config,
	log *slog.Logger,
	sess *session.Session,
	resolver *pricing.Resolver,
	adapter chains.ChainAdapter,
	wallet chains.Wallet,
) error {
	issuer, err := issuance.NewClient(cfg.MintAPIURL, nil, log)
	if err != nil {
		return err
	}

	orchestratorConfig := orchestrator.Config{
		Session:             sess,
		Resolver:            resolver,
		Wallet:              wallet,
		Issuer:              issuer,
		Router:              router.New(router.WriterNavigator{W: stdout}, router.WriterNotifier{W: stdout}, log),
		Validator:           adapter.TransactionValidator(),
		Network:             cfg.Network,
		ConfirmationTimeout: cfg.ConfirmationTimeout,
		Logger:              log,
	}
	ledger, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	if ledger != nil {
		defer ledger.Close()
		orchestratorConfig.Ledger = ledger
	}

	orch, err := orchestrator.New(orchestratorConfig)
	if err != nil {
		return err
	}

	if q, err := orch.Quote(); err == nil {
		fmt.Fprintf(stdout, "paying %s for %d ticket(s)\n", q.HumanAmount(), sess.Quantity())
	}

	outcome, err := orch.Mint(ctx)
	if err != nil {
		return err
	}
	if outcome.Err != nil {
		return outcome.Err
	}
	return nil
}

func balance(ctx context.Context, stdout io.Writer, adapter chains.ChainAdapter, wallet chains.Wallet, cfg *config.Config) error {
	address, ok := wallet.Address()
	if !ok {
		return fmt.Errorf("%s is not set", config.EnvWalletPrivateKey)
	}
	reader, ok := adapter.RPCClient().(chains.BalanceReader)
	if !ok {
		return fmt.Errorf("network %s cannot read balances", adapter.Network())
	}

	native, err := reader.NativeBalance(ctx, address)
	if err != nil {
		return err
	}
	token, err := reader.TokenBalance(ctx, cfg.TokenAddress.Hex(), address)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s\n", address)
	fmt.Fprintf(stdout, "  %s AVAX\n", decimal.NewFromBigInt(native, -constants.NativeDecimals).String())
	fmt.Fprintf(stdout, "  %s BALLN\n", decimal.NewFromBigInt(token, -constants.TokenDecimals).String())
	return nil
}

func unresolved(ctx context.Context, stdout io.Writer, cfg *config.Config, log *slog.Logger) error {
	if cfg.LedgerPath == "" {
		return fmt.Errorf("%s is not set", config.EnvLedgerPath)
	}
	ledger, err := openLedger(cfg, log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	attempts, err := ledger.ListUnresolved(ctx)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(stdout, "no unresolved attempts")
		return nil
	}
	for _, a := range attempts {
		fmt.Fprintf(stdout, "%s  %s  %d x %s  tx %s  stage %s  %s\n",
			a.CreatedAt.Format("2006-01-02 15:04:05"), a.Address, a.Quantity, a.PaymentMethod,
			a.TransactionHash, a.Stage, a.Error)
	}
	return nil
}
