package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shu8h0-null/powledger/core/blockchain"
)

const AppName = "powledger"

// Config holds everything a node needs. The zero value is not usable; start from Default.
type Config struct {
	Difficulty       int
	MiningReward     int64
	AggregatePending bool
	TimeLock         bool
	MinerWorkers     int

	RPCAddr string

	// AutoMine mines a block every interval when non-zero.
	AutoMine     time.Duration
	MinerAddress string

	Verbose bool
	NoColor bool
}

func Default() Config {
	opts := blockchain.DefaultOptions()
	return Config{
		Difficulty:       opts.Difficulty,
		MiningReward:     opts.MiningReward,
		AggregatePending: opts.Policy.AggregatePending,
		TimeLock:         opts.Policy.TimeLock,
		MinerWorkers:     opts.Workers,
		RPCAddr:          "localhost:8080",
	}
}

func (c Config) Validate() error {
	if err := c.LedgerOptions().Validate(); err != nil {
		return err
	}
	if c.MinerWorkers < 1 {
		return fmt.Errorf("miner workers must be at least 1, got %d", c.MinerWorkers)
	}
	if c.RPCAddr == "" {
		return errors.New("rpc address is required")
	}
	if c.AutoMine < 0 {
		return fmt.Errorf("auto-mine interval can't be negative, got %s", c.AutoMine)
	}
	if c.AutoMine > 0 && c.MinerAddress == "" {
		return errors.New("auto-mine needs a miner address")
	}
	return nil
}

// LedgerOptions converts the ledger part of c. The clock is left to the ledger default.
func (c Config) LedgerOptions() blockchain.Options {
	return blockchain.Options{
		Difficulty:   c.Difficulty,
		MiningReward: c.MiningReward,
		Policy: blockchain.Policy{
			AggregatePending: c.AggregatePending,
			TimeLock:         c.TimeLock,
		},
		Workers: c.MinerWorkers,
	}
}
