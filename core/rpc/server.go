package rpc

import (
	"context"
	"time"

	"github.com/shu8h0-null/powledger/core/blockchain"
)

// server is what the RPC handler needs from a node.
type server interface {
	SubmitTransaction(tx blockchain.Transaction) error
	Mine(ctx context.Context, rewardAddress blockchain.Address) (*blockchain.Block, error)
	Now() time.Time

	BalanceOf(address blockchain.Address) int64
	IsChainValid() bool
	Verify() error
	LatestBlock() (*blockchain.Block, error)
	BlockByHeight(height int) (*blockchain.Block, error)
	BlockByHash(hash string) (*blockchain.Block, error)
	Chain() []*blockchain.Block
	Pending() []blockchain.Transaction
	Height() int
	Difficulty() int
	MiningReward() int64
	Policy() blockchain.Policy
}

type TxRequest struct {
	From      string     `json:"from"`
	To        string     `json:"to"`
	Amount    int64      `json:"amount"`
	LockUntil *time.Time `json:"lock_until,omitempty"`
}

type TxReceipt struct {
	TxID    string `json:"tx_id"`
	Pending int    `json:"pending"`
}

type ChainInfo struct {
	Height           int    `json:"height"`
	LatestHash       string `json:"latest_hash"`
	Difficulty       int    `json:"difficulty"`
	MiningReward     int64  `json:"mining_reward"`
	Pending          int    `json:"pending"`
	Valid            bool   `json:"valid"`
	VerifyError      string `json:"verify_error,omitempty"`
	AggregatePending bool   `json:"aggregate_pending"`
	TimeLock         bool   `json:"time_lock"`
}

// Transaction converts the request into a ledger record created at now.
func (r TxRequest) Transaction(now time.Time) blockchain.Transaction {
	tx := blockchain.NewTransaction(blockchain.Address(r.From), blockchain.Address(r.To), r.Amount, now)
	if r.LockUntil != nil {
		tx = tx.WithLockUntil(*r.LockUntil)
	}
	return tx
}
