package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shu8h0-null/powledger/core/blockchain"
)

func TestDefault(t *testing.T) {
	c := Default()

	require.NoError(t, c.Validate())
	assert.Equal(t, 2, c.Difficulty)
	assert.Equal(t, int64(100), c.MiningReward)
	assert.True(t, c.AggregatePending)
	assert.True(t, c.TimeLock)

	opts := c.LedgerOptions()
	assert.Equal(t, blockchain.DefaultPolicy(), opts.Policy)
	assert.Equal(t, 1, opts.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "difficulty too high", modify: func(c *Config) { c.Difficulty = 65 }, wantErr: "difficulty"},
		{name: "zero reward", modify: func(c *Config) { c.MiningReward = 0 }, wantErr: "mining reward"},
		{name: "no workers", modify: func(c *Config) { c.MinerWorkers = 0 }, wantErr: "workers"},
		{name: "no rpc address", modify: func(c *Config) { c.RPCAddr = "" }, wantErr: "rpc address"},
		{name: "negative interval", modify: func(c *Config) { c.AutoMine = -time.Second }, wantErr: "negative"},
		{name: "auto-mine without address", modify: func(c *Config) { c.AutoMine = time.Second }, wantErr: "miner address"},
		{name: "auto-mine with address", modify: func(c *Config) {
			c.AutoMine = time.Second
			c.MinerAddress = "M"
		}},
		{name: "policies off", modify: func(c *Config) {
			c.AggregatePending = false
			c.TimeLock = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)

			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
