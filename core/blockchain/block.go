package blockchain

import (
	"context"
	"strconv"
	"time"
)

// GenesisPrevHash is the previous hash recorded by the first block.
const GenesisPrevHash = "0"

type Block struct {
	Timestamp    time.Time     `json:"timestamp"`
	Transactions []Transaction `json:"transactions"`
	PrevHash     string        `json:"prev_hash"`
	Nonce        uint64        `json:"nonce"`
	Hash         string        `json:"hash"`
}

// NewBlock builds an unmined block with nonce 0 and its hash filled in.
// The timestamp is kept at millisecond precision, the resolution it is hashed at.
func NewBlock(timestamp time.Time, txs []Transaction, prevHash string) *Block {
	b := &Block{
		Timestamp:    time.UnixMilli(timestamp.UnixMilli()).UTC(),
		Transactions: txs,
		PrevHash:     prevHash,
	}
	b.Hash = b.CalculateHash()
	return b
}

// CalculateHash hashes prevHash, timestamp, the canonical transaction list and the nonce.
func (b *Block) CalculateHash() string {
	return hashAtNonce(b.headerPrefix(), b.Nonce)
}

// headerPrefix is everything hashed before the nonce. It does not change while mining.
func (b *Block) headerPrefix() string {
	return b.PrevHash + strconv.FormatInt(b.Timestamp.UnixMilli(), 10) + TransactionsToString(b.Transactions)
}

// Mine searches nonces from 0 upwards until the hash has difficulty leading zeros.
// There is no upper bound: a large difficulty keeps the caller busy indefinitely.
func (b *Block) Mine(difficulty int) {
	_ = b.MineContext(context.Background(), difficulty)
}

// MineContext is Mine with cancellation. On cancellation it returns ctx.Err()
// and leaves the block as it was.
func (b *Block) MineContext(ctx context.Context, difficulty int) error {
	nonce, hash, err := searchNonce(ctx, b.headerPrefix(), 0, 1, difficulty)
	if err != nil {
		return err
	}
	b.Nonce = nonce
	b.Hash = hash
	return nil
}

// HasValidProof reports whether the stored hash is correct and meets difficulty.
func (b *Block) HasValidProof(difficulty int) bool {
	return b.Hash == b.CalculateHash() && MeetsDifficulty(b.Hash, difficulty)
}

// Clone returns a deep copy.
func (b *Block) Clone() *Block {
	c := *b
	if b.Transactions != nil {
		c.Transactions = make([]Transaction, len(b.Transactions))
		copy(c.Transactions, b.Transactions)
	}
	return &c
}
