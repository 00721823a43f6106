package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	blkchn "github.com/shu8h0-null/powledger/core/blockchain"
	"github.com/shu8h0-null/powledger/core/config"
	"github.com/shu8h0-null/powledger/core/logger"
	"github.com/shu8h0-null/powledger/core/rpc"
)

// Node owns a ledger and exposes it over JSON-RPC. Reads go straight to the
// embedded ledger; writes go through SubmitTransaction and Mine so they are
// logged and published on the event bus.
type Node struct {
	*blkchn.Ledger

	cfg    config.Config
	log    *logger.Logger
	events *blkchn.EventBus
}

type Option func(*nodeOptions)

type nodeOptions struct {
	clock  clock.Clock
	log    *logger.Logger
	events *blkchn.EventBus
}

func WithClock(c clock.Clock) Option {
	return func(o *nodeOptions) { o.clock = c }
}

func WithLogger(l *logger.Logger) Option {
	return func(o *nodeOptions) { o.log = l }
}

func WithEventBus(bus *blkchn.EventBus) Option {
	return func(o *nodeOptions) { o.events = bus }
}

func NewNode(cfg config.Config, opts ...Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewLogger(logger.WithColor(!cfg.NoColor), logger.WithVerbose(cfg.Verbose))
	}
	if o.events == nil {
		o.events = blkchn.NewEventBus()
	}

	ledgerOpts := cfg.LedgerOptions()
	ledgerOpts.Clock = o.clock
	ledger, err := blkchn.NewLedger(ledgerOpts)
	if err != nil {
		return nil, err
	}

	return &Node{
		Ledger: ledger,
		cfg:    cfg,
		log:    o.log,
		events: o.events,
	}, nil
}

func (n *Node) Events() *blkchn.EventBus {
	return n.events
}

func (n *Node) Now() time.Time {
	return n.Clock().Now()
}

func (n *Node) SubmitTransaction(tx blkchn.Transaction) error {
	event := blkchn.TxEvent{
		TxID:   tx.ID(),
		Sender: tx.Sender,
		Amount: tx.Amount,
	}

	if err := n.AddTransaction(tx); err != nil {
		n.log.Warnf("Rejected transaction %s from %s: %v", event.TxID, tx.Sender, err)
		event.Reason = err.Error()
		n.events.TxFeed.Send(event)
		return err
	}

	n.log.Infof("Accepted transaction %s: %s -> %s (%d)", event.TxID, tx.Sender, tx.Recipient, tx.Amount)
	event.Accepted = true
	n.events.TxFeed.Send(event)
	return nil
}

func (n *Node) Mine(ctx context.Context, rewardAddress blkchn.Address) (*blkchn.Block, error) {
	n.log.Infof("Mining block [%d] with %d pending transactions", n.Height()+1, len(n.Pending()))

	block, err := n.MinePendingContext(ctx, rewardAddress)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			n.log.Info("Mining aborted:", err)
		} else {
			n.log.Errorf("Mining failed: %v", err)
		}
		return nil, err
	}

	height, err := n.HeightOf(block.Hash)
	if err != nil {
		return nil, err
	}
	n.log.Successf("Block [%d]:[%s] mined, nonce %d", height, block.Hash, block.Nonce)
	n.events.BlockFeed.Send(blkchn.BlockMinedEvent{
		Height:       height,
		Hash:         block.Hash,
		Transactions: len(block.Transactions),
		Reward:       rewardAddress,
	})
	return block, nil
}

// RunMiner mines a block to the configured miner address on every AutoMine
// tick until ctx is done.
func (n *Node) RunMiner(ctx context.Context) error {
	if n.cfg.AutoMine <= 0 {
		return errors.New("auto-mine interval is not set")
	}
	rewardAddress := blkchn.Address(n.cfg.MinerAddress)

	ticker := n.Clock().Ticker(n.cfg.AutoMine)
	defer ticker.Stop()

	n.log.Infof("Auto-mining every %s to %s", n.cfg.AutoMine, rewardAddress)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := n.Mine(ctx, rewardAddress); err != nil && ctx.Err() == nil {
				return err
			}
		}
	}
}

// Run serves RPC, and auto-mines when configured, until ctx is cancelled or
// the process receives SIGINT/SIGTERM.
func (n *Node) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listenForQuitSignal(ctx, cancel, n.log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rpc.StartRPC(ctx, n.cfg.RPCAddr, rpc.NewRPCHandler(n))
	})
	if n.cfg.AutoMine > 0 {
		g.Go(func() error {
			return n.RunMiner(ctx)
		})
	}

	n.log.Infof("Node started, rpc at %s (difficulty %d, reward %d)", rpc.Endpoint(n.cfg.RPCAddr), n.Difficulty(), n.MiningReward())

	err := g.Wait()
	n.log.Info("Cleaning Up...")
	if err != nil {
		return fmt.Errorf("node stopped: %w", err)
	}
	return nil
}

func listenForQuitSignal(ctx context.Context, cancel context.CancelFunc, log *logger.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			log.Infof("Received signal: %s, shutting down...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
}
