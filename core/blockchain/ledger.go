package blockchain

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
)

// MaxDifficulty is the length of a hex SHA-256 digest. Anything above it can never be met.
const MaxDifficulty = 64

// Policy selects the optional checks run by AddTransaction.
type Policy struct {
	// AggregatePending rejects a transfer when it plus the sender's already pooled
	// transfers exceeds the sender's balance.
	AggregatePending bool
	// TimeLock rejects a transfer whose LockUntil is still in the future.
	TimeLock bool
}

func DefaultPolicy() Policy {
	return Policy{AggregatePending: true, TimeLock: true}
}

type Options struct {
	Difficulty   int
	MiningReward int64
	Policy       Policy
	// Workers is the number of goroutines sharing the nonce search.
	Workers int
	// Clock defaults to the wall clock.
	Clock clock.Clock
}

func DefaultOptions() Options {
	return Options{
		Difficulty:   2,
		MiningReward: 100,
		Policy:       DefaultPolicy(),
		Workers:      1,
	}
}

func (o Options) Validate() error {
	if o.Difficulty < 0 || o.Difficulty > MaxDifficulty {
		return fmt.Errorf("%w: difficulty %d not in [0, %d]", ErrInvalidConfig, o.Difficulty, MaxDifficulty)
	}
	if o.MiningReward <= 0 {
		return fmt.Errorf("%w: mining reward must be positive, got %d", ErrInvalidConfig, o.MiningReward)
	}
	return nil
}

type index map[string]int

// Ledger is an append-only chain of blocks plus the pool of transactions
// waiting to be mined. It is safe for concurrent use.
type Ledger struct {
	chain      []*Block
	blockIndex index
	pool       *Mempool
	mu         sync.RWMutex

	// mineMu serializes mining so the tip can't move during a nonce search.
	mineMu sync.Mutex

	difficulty   int
	miningReward int64
	policy       Policy
	clock        clock.Clock
	miner        *Miner
}

// NewLedger creates a ledger holding only the genesis block.
func NewLedger(opts Options) (*Ledger, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	l := &Ledger{
		blockIndex:   make(index),
		pool:         NewMempool(),
		difficulty:   opts.Difficulty,
		miningReward: opts.MiningReward,
		policy:       opts.Policy,
		clock:        opts.Clock,
		miner:        NewMiner(opts.Workers),
	}
	l.appendBlock(l.createGenesis())

	return l, nil
}

func (l *Ledger) createGenesis() *Block {
	return NewBlock(l.clock.Now(), []Transaction{}, GenesisPrevHash)
}

// appendBlock must be called with mu held for writing, or before l is shared.
func (l *Ledger) appendBlock(b *Block) {
	l.chain = append(l.chain, b)
	l.blockIndex[b.Hash] = len(l.chain) - 1
}

// LatestBlock returns a copy of the chain tip.
func (l *Ledger) LatestBlock() (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return nil, ErrEmptyChain
	}
	return l.chain[len(l.chain)-1].Clone(), nil
}

// BalanceOf sums every confirmed transfer to and from address. Rewards credit
// their recipient and debit nobody.
func (l *Ledger) BalanceOf(address Address) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balanceOf(address)
}

func (l *Ledger) balanceOf(address Address) int64 {
	var balance int64
	for _, b := range l.chain {
		for _, tx := range b.Transactions {
			if from, ok := tx.Sender.Address(); ok && from == address {
				balance -= tx.Amount
			}
			if tx.Recipient == address {
				balance += tx.Amount
			}
		}
	}
	return balance
}

// AddTransaction validates tx and pools it. Checks run in a fixed order and the
// first failure is returned; on any error the pool is unchanged.
func (l *Ledger) AddTransaction(tx Transaction) error {
	from, ok := tx.Sender.Address()
	if !ok || from == "" || tx.Recipient == "" {
		return ErrMissingAddress
	}
	if tx.Amount <= 0 {
		return fmt.Errorf("%w: got %d", ErrNonPositiveAmount, tx.Amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balanceOf(from)
	if balance < tx.Amount {
		return fmt.Errorf("%w: attempted to send %d, but balance is %d", ErrInsufficientBalance, tx.Amount, balance)
	}

	if l.policy.AggregatePending {
		pending := l.pool.PendingFrom(from)
		if pending+tx.Amount > balance {
			return fmt.Errorf("%w: attempted to spend %d, but only %d is available", ErrDoubleSpend, pending+tx.Amount, balance)
		}
	}

	if l.policy.TimeLock && tx.LockUntil.After(l.clock.Now()) {
		return fmt.Errorf("%w: locked until %s", ErrTimeLocked, tx.LockUntil.UTC().Format("2006-01-02 15:04:05.000"))
	}

	l.pool.Add(tx)
	return nil
}

// MinePending mines every pooled transaction plus a reward for rewardAddress
// into a new block, appends it and returns a copy. It blocks until the
// proof-of-work is found.
func (l *Ledger) MinePending(rewardAddress Address) *Block {
	b, _ := l.MinePendingContext(context.Background(), rewardAddress)
	return b
}

// MinePendingContext is MinePending with cancellation. If ctx ends first it
// returns ctx.Err() and neither the chain nor the pool changes.
//
// Reads and submissions are not blocked during the search. The pool is
// snapshotted when mining starts; only that snapshot is removed afterwards, so
// records submitted while the search ran wait for the next block. With
// AggregatePending off, such a record was checked against the balance before
// this block, so it may overdraw once the block lands; no serial ordering of
// the two calls allows that.
func (l *Ledger) MinePendingContext(ctx context.Context, rewardAddress Address) (*Block, error) {
	l.mineMu.Lock()
	defer l.mineMu.Unlock()

	l.mu.RLock()
	txs := l.pool.Snapshot()
	prevHash := l.chain[len(l.chain)-1].Hash
	l.mu.RUnlock()

	now := l.clock.Now()
	pooled := len(txs)
	txs = append(txs, l.miner.RewardTransaction(rewardAddress, l.miningReward, now))

	block := NewBlock(now, txs, prevHash)
	if err := l.miner.MineBlock(ctx, block, l.difficulty); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.appendBlock(block)
	l.pool.Drop(pooled)
	l.mu.Unlock()

	return block.Clone(), nil
}

// IsChainValid recomputes every non-genesis block hash and checks it links to
// its predecessor.
func (l *Ledger) IsChainValid() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 1; i < len(l.chain); i++ {
		current, previous := l.chain[i], l.chain[i-1]
		if current.Hash != current.CalculateHash() {
			return false
		}
		if current.PrevHash != previous.Hash {
			return false
		}
	}
	return true
}

// Verify is a stricter IsChainValid: it also checks the genesis link and the
// proof-of-work of every mined block, and says which block failed.
func (l *Ledger) Verify() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.chain) == 0 {
		return ErrEmptyChain
	}
	if l.chain[0].PrevHash != GenesisPrevHash {
		return fmt.Errorf("%w: genesis block has previous hash %q", ErrInvalidChain, l.chain[0].PrevHash)
	}

	for i := 1; i < len(l.chain); i++ {
		current, previous := l.chain[i], l.chain[i-1]
		if current.Hash != current.CalculateHash() {
			return fmt.Errorf("%w: block %d hash mismatch", ErrInvalidChain, i)
		}
		if current.PrevHash != previous.Hash {
			return fmt.Errorf("%w: block %d previous hash not matched", ErrInvalidChain, i)
		}
		if !MeetsDifficulty(current.Hash, l.difficulty) {
			return fmt.Errorf("%w: block %d does not meet difficulty %d", ErrInvalidChain, i, l.difficulty)
		}
	}
	return nil
}

// Chain returns a deep copy of every block, genesis first.
func (l *Ledger) Chain() []*Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]*Block, len(l.chain))
	for i, b := range l.chain {
		blocks[i] = b.Clone()
	}
	return blocks
}

func (l *Ledger) Pending() []Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pool.Snapshot()
}

// Height is the index of the tip; 0 when only genesis exists.
func (l *Ledger) Height() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain) - 1
}

func (l *Ledger) BlockByHeight(height int) (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if height < 0 || height >= len(l.chain) {
		return nil, fmt.Errorf("%w: height %d", ErrBlockNotFound, height)
	}
	return l.chain[height].Clone(), nil
}

func (l *Ledger) BlockByHash(hash string) (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height, exists := l.blockIndex[hash]
	if !exists {
		return nil, fmt.Errorf("%w: hash %s", ErrBlockNotFound, hash)
	}
	return l.chain[height].Clone(), nil
}

// HeightOf returns the height of the block with the given hash.
func (l *Ledger) HeightOf(hash string) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	height, exists := l.blockIndex[hash]
	if !exists {
		return 0, fmt.Errorf("%w: hash %s", ErrBlockNotFound, hash)
	}
	return height, nil
}

func (l *Ledger) Difficulty() int {
	return l.difficulty
}

func (l *Ledger) MiningReward() int64 {
	return l.miningReward
}

func (l *Ledger) Policy() Policy {
	return l.policy
}

func (l *Ledger) Clock() clock.Clock {
	return l.clock
}
