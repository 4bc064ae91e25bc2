// Command blacklist replays a configured block range through one of the
// five taint-propagation policies and reports the resulting blacklist
// (§6). Exit codes: 0 success, -1 node unreachable, -2 invalid argument,
// -32 the start block is pruned at the configured RPC endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/RaphaelK77/EthereumBlacklisting/internal/chain"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/config"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/logsink"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/metricsexport"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/policy"
	"github.com/RaphaelK77/EthereumBlacklisting/internal/propagator"
)

// Exit codes per §6: 0 success, -1 node unreachable, -2 invalid argument,
// -32 start block is pruned at source.
const (
	exitNodeUnreachable = -1
	exitInvalidArgument = -2
	exitPruned          = -32
)

// errNodeUnreachable marks a config/dial error that should map to -1 rather
// than the generic -2 invalid-argument code.
var errNodeUnreachable = errors.New("blacklist: node unreachable")

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to the TOML configuration file",
		Value: "blacklist.toml",
	}
	policyFlag = &cli.StringFlag{
		Name:     "policy",
		Usage:    "taint-propagation policy: poison, haircut, seniority, reversed_seniority, fifo",
		Required: true,
	}
	datasetFlag = &cli.IntFlag{
		Name:     "dataset",
		Usage:    "index of the [[Datasets]] entry to replay",
		Required: true,
	}
	resumeFlag = &cli.BoolFlag{
		Name:  "resume",
		Usage: "resume from the dataset's saved checkpoint, if one exists",
		Value: true,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log verbosity: 0-1 error, 2 warn, 3 info, 4 and above debug",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:  "blacklist",
		Usage: "propagate taint through a dataset's block range under a chosen policy",
		Flags: []cli.Flag{configFlag, policyFlag, datasetFlag, resumeFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		gethlog.Error("blacklist: fatal", "err", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, chain.ErrPruned):
		return exitPruned
	case errors.Is(err, errNodeUnreachable):
		return exitNodeUnreachable
	default:
		return exitInvalidArgument
	}
}

func run(cliCtx *cli.Context) error {
	cfg, err := config.Load(cliCtx.String(configFlag.Name))
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}

	p, ok := policy.Parse(cliCtx.String(policyFlag.Name))
	if !ok {
		return cli.Exit(fmt.Errorf("blacklist: unknown policy %q", cliCtx.String(policyFlag.Name)), exitInvalidArgument)
	}

	dataset, err := cfg.Dataset(cliCtx.Int(datasetFlag.Name))
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}

	logPath := fmt.Sprintf("%s/%s_%s.log", cfg.Parameters.DataFolder, dataset.Name, p.String())
	closeLog, err := logsink.Install(logsink.Options{
		Path:       logPath,
		FreshStart: !cliCtx.Bool(resumeFlag.Name),
		Verbosity:  verbosityOf(cliCtx.Int(verbosityFlag.Name)),
	})
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}
	defer closeLog()

	ctx := context.Background()
	rpcSource, err := chain.DialRPCSource(ctx, cfg.Parameters.RPCEndpoint)
	if err != nil {
		return cli.Exit(fmt.Errorf("%w: %s: %v", errNodeUnreachable, cfg.Parameters.RPCEndpoint, err), exitNodeUnreachable)
	}
	src := chain.NewAdapter(rpcSource)

	seedAccounts, err := dataset.SeedAccountAddresses()
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}

	engine := policy.NewEngine(p, p.NewStore())
	prop, err := propagator.New(src, engine, cfg.Parameters.DataFolder, dataset.Name)
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}
	defer prop.Close()

	if err := prop.Propagate(ctx, dataset.StartBlock, dataset.BlockCount, cliCtx.Bool(resumeFlag.Name), seedAccounts, dataset.PermanentTaint); err != nil {
		return cli.Exit(err, exitCodeFor(err))
	}

	accountsPath := fmt.Sprintf("%s/%s_%s_accounts.csv", cfg.Parameters.DataFolder, dataset.Name, p.String())
	f, err := os.Create(accountsPath)
	if err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}
	defer f.Close()
	if err := metricsexport.WriteAccountCSV(f, engine.Store(), 1); err != nil {
		return cli.Exit(err, exitInvalidArgument)
	}

	gethlog.Info("blacklist: done", "dataset", dataset.Name, "policy", p.String())
	return nil
}

func verbosityOf(level int) slog.Level {
	switch {
	case level <= 1:
		return slog.LevelError
	case level == 2:
		return slog.LevelWarn
	case level == 3:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
