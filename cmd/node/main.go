package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/shu8h0-null/powledger/core"
	"github.com/shu8h0-null/powledger/core/config"
	"github.com/shu8h0-null/powledger/core/logger"
)

var log = logger.NewLogger()

func main() {
	defaults := config.Default()

	cmd := &cli.Command{
		Name:  "powledger-node",
		Usage: "run a proof-of-work ledger node with a JSON-RPC endpoint",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "difficulty",
				Aliases: []string{"d"},
				Value:   defaults.Difficulty,
				Usage:   "leading zero hex digits required in a block hash",
				Sources: cli.EnvVars("POWLEDGER_DIFFICULTY"),
			},
			&cli.IntFlag{
				Name:    "reward",
				Value:   int(defaults.MiningReward),
				Usage:   "amount paid to the miner of each block",
				Sources: cli.EnvVars("POWLEDGER_REWARD"),
			},
			&cli.BoolFlag{
				Name:    "aggregate-pending",
				Value:   defaults.AggregatePending,
				Usage:   "count pooled spends against the sender balance",
				Sources: cli.EnvVars("POWLEDGER_AGGREGATE_PENDING"),
			},
			&cli.BoolFlag{
				Name:    "time-lock",
				Value:   defaults.TimeLock,
				Usage:   "reject transactions locked until a future time",
				Sources: cli.EnvVars("POWLEDGER_TIME_LOCK"),
			},
			&cli.IntFlag{
				Name:    "workers",
				Value:   defaults.MinerWorkers,
				Usage:   "goroutines searching for a nonce",
				Sources: cli.EnvVars("POWLEDGER_WORKERS"),
			},
			&cli.StringFlag{
				Name:    "rpc",
				Value:   defaults.RPCAddr,
				Usage:   "address the JSON-RPC server listens on",
				Sources: cli.EnvVars("POWLEDGER_RPC"),
			},
			&cli.DurationFlag{
				Name:    "auto-mine",
				Usage:   "mine a block every interval (0 disables)",
				Sources: cli.EnvVars("POWLEDGER_AUTO_MINE"),
			},
			&cli.StringFlag{
				Name:    "miner-address",
				Usage:   "reward address for auto-mined blocks",
				Sources: cli.EnvVars("POWLEDGER_MINER_ADDRESS"),
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable coloured log prefixes",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromCommand(cmd)

			log.Info("Starting node...")
			node, err := core.NewNode(cfg, core.WithLogger(
				logger.NewLogger(logger.WithColor(!cfg.NoColor), logger.WithVerbose(cfg.Verbose)),
			))
			if err != nil {
				return err
			}
			return node.Run(ctx)
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func configFromCommand(cmd *cli.Command) config.Config {
	return config.Config{
		Difficulty:       int(cmd.Int("difficulty")),
		MiningReward:     int64(cmd.Int("reward")),
		AggregatePending: cmd.Bool("aggregate-pending"),
		TimeLock:         cmd.Bool("time-lock"),
		MinerWorkers:     int(cmd.Int("workers")),
		RPCAddr:          cmd.String("rpc"),
		AutoMine:         cmd.Duration("auto-mine"),
		MinerAddress:     cmd.String("miner-address"),
		Verbose:          cmd.Bool("verbose"),
		NoColor:          cmd.Bool("no-color"),
	}
}
