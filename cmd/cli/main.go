package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/shu8h0-null/powledger/core/blockchain"
	"github.com/shu8h0-null/powledger/core/config"
	"github.com/shu8h0-null/powledger/core/rpc"
	"github.com/shu8h0-null/powledger/tui"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#78dba9")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e05f65")).Bold(true)
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "powledger",
		Usage: "talk to a powledger node over JSON-RPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "rpc",
				Value:   config.Default().RPCAddr,
				Usage:   "node RPC address (host:port or URL)",
				Sources: cli.EnvVars("POWLEDGER_RPC"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "send",
				Usage: "submit a transfer to the pending pool",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "sender address", Required: true},
					&cli.StringFlag{Name: "to", Usage: "recipient address", Required: true},
					&cli.IntFlag{Name: "amount", Usage: "amount to transfer", Required: true},
					&cli.StringFlag{Name: "lock-until", Usage: "RFC3339 time before which the transfer is locked"},
					&cli.DurationFlag{Name: "lock-for", Usage: "lock the transfer for this long from now"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					lock, err := lockUntil(cmd, time.Now())
					if err != nil {
						return err
					}
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					receipt, err := client.SubmitTransaction(ctx, rpc.TxRequest{
						From:      cmd.String("from"),
						To:        cmd.String("to"),
						Amount:    int64(cmd.Int("amount")),
						LockUntil: lock,
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(out, okStyle.Render("transaction pooled"))
					printField(out, "id", receipt.TxID)
					printField(out, "pending", receipt.Pending)
					return nil
				},
			},
			{
				Name:  "mine",
				Usage: "mine the pending pool into a new block",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "address", Usage: "reward address", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					block, err := client.MinePending(ctx, cmd.String("address"))
					if err != nil {
						return err
					}
					fmt.Fprintln(out, okStyle.Render("block mined"))
					printField(out, "hash", block.Hash)
					printField(out, "nonce", block.Nonce)
					printField(out, "transactions", len(block.Transactions))
					return nil
				},
			},
			{
				Name:      "balance",
				Usage:     "show confirmed balances",
				ArgsUsage: "<address>...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					addrs := cmd.Args().Slice()
					if len(addrs) == 0 {
						return errors.New("at least one address is required")
					}
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					for _, addr := range addrs {
						balance, err := client.BalanceOf(ctx, addr)
						if err != nil {
							return err
						}
						printField(out, addr, balance)
					}
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check the chain's hashes and links",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					info, err := client.ChainInfo(ctx)
					if err != nil {
						return err
					}
					if !info.Valid {
						return errors.New("chain is invalid")
					}
					fmt.Fprintln(out, okStyle.Render("chain is valid"))
					if info.VerifyError != "" {
						printField(out, "strict check", info.VerifyError)
					}
					return nil
				},
			},
			{
				Name:  "get-block",
				Usage: "get block information",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "hash",
						Value: "",
						Usage: "hash of the block to query",
					},
					&cli.IntFlag{
						Name:  "height",
						Value: -1,
						Usage: "height of the block to query",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					var block *blockchain.Block
					switch {
					case cmd.String("hash") != "":
						block, err = client.GetBlockByHash(ctx, cmd.String("hash"))
					case cmd.Int("height") != -1:
						block, err = client.GetBlockByHeight(ctx, int(cmd.Int("height")))
					default:
						block, err = client.LatestBlock(ctx)
					}
					if err != nil {
						return err
					}
					return printJSON(out, block)
				},
			},
			{
				Name:  "pending",
				Usage: "list pooled transactions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					txs, err := client.PendingTransactions(ctx)
					if err != nil {
						return err
					}
					if len(txs) == 0 {
						fmt.Fprintln(out, labelStyle.Render("no pending transactions"))
						return nil
					}
					for _, tx := range txs {
						line := fmt.Sprintf("%s  %s -> %s  %d", tx.ID(), tx.Sender, tx.Recipient, tx.Amount)
						if !tx.LockUntil.IsZero() {
							line += labelStyle.Render("  locked until " + tx.LockUntil.Format(time.RFC3339))
						}
						fmt.Fprintln(out, line)
					}
					return nil
				},
			},
			{
				Name:  "info",
				Usage: "show chain summary",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					info, err := client.ChainInfo(ctx)
					if err != nil {
						return err
					}
					printField(out, "height", info.Height)
					printField(out, "latest hash", info.LatestHash)
					printField(out, "difficulty", info.Difficulty)
					printField(out, "mining reward", info.MiningReward)
					printField(out, "pending", info.Pending)
					printField(out, "valid", info.Valid)
					printField(out, "aggregate pending", info.AggregatePending)
					printField(out, "time lock", info.TimeLock)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "open the interactive chain explorer",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Value: 2 * time.Second, Usage: "refresh interval"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					client, closer, err := dial(ctx, cmd)
					if err != nil {
						return err
					}
					defer closer()

					return tui.Run(ctx, tui.ClientSource{Client: client}, cmd.Duration("interval"))
				},
			},
		},
	}
}

func dial(ctx context.Context, cmd *cli.Command) (*rpc.Client, func(), error) {
	client, closer, err := rpc.NewClient(ctx, cmd.String("rpc"))
	if err != nil {
		return nil, nil, err
	}
	return client, func() { closer() }, nil
}

// lockUntil resolves --lock-until and --lock-for; nil means no lock.
func lockUntil(cmd *cli.Command, now time.Time) (*time.Time, error) {
	until, lockFor := cmd.String("lock-until"), cmd.Duration("lock-for")
	switch {
	case until != "" && lockFor != 0:
		return nil, errors.New("use either --lock-until or --lock-for, not both")
	case until != "":
		t, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return nil, fmt.Errorf("parsing --lock-until: %w", err)
		}
		return &t, nil
	case lockFor < 0:
		return nil, errors.New("--lock-for can't be negative")
	case lockFor > 0:
		t := now.Add(lockFor)
		return &t, nil
	}
	return nil, nil
}

func printField(out io.Writer, label string, value any) {
	fmt.Fprintf(out, "%s %v\n", labelStyle.Render(label+":"), value)
}

func printJSON(out io.Writer, v any) error {
	jsonBytes, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return fmt.Errorf("marshalling response to json: %w", err)
	}
	fmt.Fprintln(out, string(jsonBytes))
	return nil
}
