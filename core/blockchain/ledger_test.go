package blockchain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, configure ...func(*Options)) (*Ledger, *clock.Mock) {
	t.Helper()

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	opts := DefaultOptions()
	opts.Clock = mock
	for _, fn := range configure {
		fn(&opts)
	}

	l, err := NewLedger(opts)
	require.NoError(t, err)
	return l, mock
}

func transfer(l *Ledger, from, to Address, amount int64) Transaction {
	return NewTransaction(from, to, amount, l.Clock().Now())
}

func TestNewLedgerGenesis(t *testing.T) {
	l, _ := newTestLedger(t)

	require.Equal(t, 0, l.Height())
	genesis, err := l.LatestBlock()
	require.NoError(t, err)

	assert.Equal(t, GenesisPrevHash, genesis.PrevHash)
	assert.Empty(t, genesis.Transactions)
	assert.Equal(t, genesis.CalculateHash(), genesis.Hash)
	assert.True(t, l.IsChainValid())
	assert.NoError(t, l.Verify())
}

func TestNewLedgerRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{name: "negative difficulty", opts: Options{Difficulty: -1, MiningReward: 100}},
		{name: "difficulty beyond digest length", opts: Options{Difficulty: MaxDifficulty + 1, MiningReward: 100}},
		{name: "zero reward", opts: Options{Difficulty: 2, MiningReward: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedger(tt.opts)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestScenarioMineReward(t *testing.T) {
	l, _ := newTestLedger(t)

	block := l.MinePending("A")

	require.NotNil(t, block)
	assert.Equal(t, int64(100), l.BalanceOf("A"))
	assert.Equal(t, 1, l.Height())
	require.Len(t, block.Transactions, 1)
	assert.True(t, block.Transactions[0].IsReward())
	assert.True(t, l.IsChainValid())
}

func TestScenarioTransferThenMine(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")

	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 50)))
	l.MinePending("M")

	assert.Equal(t, int64(50), l.BalanceOf("A"))
	assert.Equal(t, int64(50), l.BalanceOf("B"))
	assert.Equal(t, int64(100), l.BalanceOf("M"))
	assert.Empty(t, l.Pending())
	assert.True(t, l.IsChainValid(), spew.Sdump(l.Chain()))
}

func TestScenarioAggregateDoubleSpend(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")

	require.NoError(t, l.AddTransaction(transfer(l, "A", "X", 70)))

	err := l.AddTransaction(transfer(l, "A", "Y", 70))
	require.ErrorIs(t, err, ErrDoubleSpend)

	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, Address("X"), pending[0].Recipient)
}

func TestScenarioTimeLock(t *testing.T) {
	l, mock := newTestLedger(t)
	l.MinePending("A")

	lockUntil := mock.Now().Add(5000 * time.Millisecond)
	locked := transfer(l, "A", "B", 50).WithLockUntil(lockUntil)

	err := l.AddTransaction(locked)
	require.ErrorIs(t, err, ErrTimeLocked)
	assert.Empty(t, l.Pending())

	mock.Add(6 * time.Second)
	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 50)))
	assert.Len(t, l.Pending(), 1)
}

func TestTimeLockBoundary(t *testing.T) {
	l, mock := newTestLedger(t)
	l.MinePending("A")

	lockUntil := mock.Now().Add(time.Second)
	locked := transfer(l, "A", "B", 10).WithLockUntil(lockUntil)

	mock.Add(time.Second - time.Millisecond)
	require.ErrorIs(t, l.AddTransaction(locked), ErrTimeLocked)

	// Only a lock strictly in the future rejects.
	mock.Set(lockUntil)
	require.NoError(t, l.AddTransaction(locked))

	block := l.MinePending("M")
	require.Len(t, block.Transactions, 2)
	assert.Equal(t, lockUntil.UnixMilli(), block.Transactions[0].LockUntil.UnixMilli())
	assert.True(t, l.IsChainValid())
}

func TestAddTransactionValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")
	now := l.Clock().Now()

	tests := []struct {
		name    string
		tx      Transaction
		wantErr error
	}{
		{
			name:    "reward sender is not accepted",
			tx:      NewRewardTransaction("B", 10, now),
			wantErr: ErrMissingAddress,
		},
		{
			name:    "empty sender address",
			tx:      NewTransaction("", "B", 10, now),
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing recipient",
			tx:      NewTransaction("A", "", 10, now),
			wantErr: ErrMissingAddress,
		},
		{
			name:    "missing address wins over bad amount",
			tx:      NewTransaction("A", "", -5, now),
			wantErr: ErrMissingAddress,
		},
		{
			name:    "zero amount",
			tx:      NewTransaction("A", "B", 0, now),
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "negative amount from empty account",
			tx:      NewTransaction("nobody", "B", -1, now),
			wantErr: ErrNonPositiveAmount,
		},
		{
			name:    "more than balance",
			tx:      NewTransaction("A", "B", 101, now),
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "unknown sender",
			tx:      NewTransaction("nobody", "B", 1, now),
			wantErr: ErrInsufficientBalance,
		},
		{
			name:    "insufficient balance wins over time lock",
			tx:      NewTransaction("A", "B", 500, now).WithLockUntil(now.Add(time.Hour)),
			wantErr: ErrInsufficientBalance,
		},
		{
			name: "whole balance",
			tx:   NewTransaction("A", "B", 100, now),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := l.Pending()
			err := l.AddTransaction(tt.tx)

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Len(t, l.Pending(), len(before)+1)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, l.Pending())
		})
	}
}

func TestAddTransactionErrorsAreDistinct(t *testing.T) {
	all := []error{ErrMissingAddress, ErrNonPositiveAmount, ErrInsufficientBalance, ErrDoubleSpend, ErrTimeLocked}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
			}
		}
	}
}

func TestPolicyToggles(t *testing.T) {
	tests := []struct {
		name          string
		policy        Policy
		wantDouble    error
		wantTimeLock  error
		wantPoolAfter int
	}{
		{
			name:          "both enabled",
			policy:        Policy{AggregatePending: true, TimeLock: true},
			wantDouble:    ErrDoubleSpend,
			wantTimeLock:  ErrTimeLocked,
			wantPoolAfter: 1,
		},
		{
			name:          "aggregate only",
			policy:        Policy{AggregatePending: true},
			wantDouble:    ErrDoubleSpend,
			wantPoolAfter: 2,
		},
		{
			name:          "time lock only",
			policy:        Policy{TimeLock: true},
			wantTimeLock:  ErrTimeLocked,
			wantPoolAfter: 2,
		},
		{
			name:          "neither",
			policy:        Policy{},
			wantPoolAfter: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mock := newTestLedger(t, func(o *Options) { o.Policy = tt.policy })
			l.MinePending("A")

			require.NoError(t, l.AddTransaction(transfer(l, "A", "X", 70)))

			err := l.AddTransaction(transfer(l, "A", "Y", 70))
			if tt.wantDouble != nil {
				require.ErrorIs(t, err, tt.wantDouble)
			} else {
				require.NoError(t, err)
			}

			locked := transfer(l, "A", "Z", 20).WithLockUntil(mock.Now().Add(time.Minute))
			err = l.AddTransaction(locked)
			if tt.wantTimeLock != nil {
				require.ErrorIs(t, err, tt.wantTimeLock)
			} else {
				require.NoError(t, err)
			}

			assert.Len(t, l.Pending(), tt.wantPoolAfter)
			assert.Equal(t, tt.policy, l.Policy())
		})
	}
}

func TestTamperDetection(t *testing.T) {
	tests := []struct {
		name   string
		tamper func(b *Block)
	}{
		{name: "amount", tamper: func(b *Block) { b.Transactions[0].Amount = 1 }},
		{name: "recipient", tamper: func(b *Block) { b.Transactions[0].Recipient = "mallory" }},
		{name: "sender", tamper: func(b *Block) { b.Transactions[0].Sender = From("mallory") }},
		{name: "reward sender", tamper: func(b *Block) { b.Transactions[1].Sender = From("A") }},
		{name: "lock", tamper: func(b *Block) { b.Transactions[0].LockUntil = time.UnixMilli(1) }},
		{name: "dropped transaction", tamper: func(b *Block) { b.Transactions = b.Transactions[1:] }},
		{name: "reordered transactions", tamper: func(b *Block) {
			b.Transactions[0], b.Transactions[1] = b.Transactions[1], b.Transactions[0]
		}},
		{name: "nonce", tamper: func(b *Block) { b.Nonce++ }},
		{name: "timestamp", tamper: func(b *Block) { b.Timestamp = b.Timestamp.Add(time.Second) }},
		{name: "previous hash", tamper: func(b *Block) { b.PrevHash = GenesisPrevHash }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newTestLedger(t)
			l.MinePending("A")
			require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 40)))
			l.MinePending("M")
			require.True(t, l.IsChainValid())

			tt.tamper(l.chain[2])

			assert.False(t, l.IsChainValid(), spew.Sdump(l.chain[2]))
			assert.ErrorIs(t, l.Verify(), ErrInvalidChain)
		})
	}
}

func TestTamperWithRecomputedHashBreaksLink(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")
	l.MinePending("B")

	forged := l.chain[1]
	forged.Transactions[0].Recipient = "mallory"
	forged.Hash = forged.CalculateHash()

	assert.False(t, l.IsChainValid())
	assert.ErrorIs(t, l.Verify(), ErrInvalidChain)
}

func TestProofOfWorkValidity(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = 3 })

	for i := 0; i < 4; i++ {
		l.MinePending(Address(fmt.Sprintf("miner-%d", i)))
	}

	for i, b := range l.Chain()[1:] {
		assert.True(t, MeetsDifficulty(b.Hash, l.Difficulty()), "block %d: %s", i+1, b.Hash)
		assert.Equal(t, b.CalculateHash(), b.Hash)
		assert.True(t, b.HasValidProof(l.Difficulty()))
	}
	assert.NoError(t, l.Verify())
}

func TestVerifyDetectsUnminedBlock(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = 4 })
	l.MinePending("A")

	// Correctly linked and hashed, but never mined.
	tip := l.chain[len(l.chain)-1]
	lazy := NewBlock(l.Clock().Now(), []Transaction{NewRewardTransaction("B", 100, l.Clock().Now())}, tip.Hash)
	for MeetsDifficulty(lazy.Hash, 4) {
		lazy.Nonce++
		lazy.Hash = lazy.CalculateHash()
	}
	l.appendBlock(lazy)

	assert.True(t, l.IsChainValid())
	assert.ErrorContains(t, l.Verify(), "does not meet difficulty")
}

func TestConservation(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = 1 })
	addresses := []Address{"A", "B", "C", "M"}

	l.MinePending("A")
	l.MinePending("B")
	require.NoError(t, l.AddTransaction(transfer(l, "A", "C", 30)))
	require.NoError(t, l.AddTransaction(transfer(l, "B", "A", 80)))
	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 70)))
	l.MinePending("M")
	require.NoError(t, l.AddTransaction(transfer(l, "C", "M", 30)))
	l.MinePending("M")

	var total int64
	for _, a := range addresses {
		assert.GreaterOrEqual(t, l.BalanceOf(a), int64(0), "address %s", a)
		total += l.BalanceOf(a)
	}

	assert.Equal(t, l.MiningReward()*int64(l.Height()), total)
}

func TestMinePendingIncludesPoolInOrder(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")

	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 10)))
	require.NoError(t, l.AddTransaction(transfer(l, "A", "C", 20)))

	prev, err := l.LatestBlock()
	require.NoError(t, err)

	block := l.MinePending("M")

	require.Len(t, block.Transactions, 3)
	assert.Equal(t, Address("B"), block.Transactions[0].Recipient)
	assert.Equal(t, Address("C"), block.Transactions[1].Recipient)
	assert.True(t, block.Transactions[2].IsReward())
	assert.Equal(t, Address("M"), block.Transactions[2].Recipient)
	assert.Equal(t, prev.Hash, block.PrevHash)
	assert.Empty(t, l.Pending())
}

func TestMinePendingContextCancelled(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = MaxDifficulty })
	l.pool.Add(NewTransaction("A", "B", 1, l.Clock().Now()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	block, err := l.MinePendingContext(ctx, "M")

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, block)
	assert.Equal(t, 0, l.Height())
	assert.Len(t, l.Pending(), 1)
}

func TestReadsDuringMining(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = MaxDifficulty })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.MinePendingContext(ctx, "M")
		done <- err
	}()

	// None of these wait for the nonce search.
	assert.Equal(t, int64(0), l.BalanceOf("M"))
	assert.True(t, l.IsChainValid())
	assert.Equal(t, 0, l.Height())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSubmissionDuringMiningStaysPending(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Policy = Policy{} })
	l.MinePending("A")
	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 10)))

	// Simulate a submission landing between the snapshot and the append by
	// mining the snapshot by hand, the way MinePendingContext does.
	l.mineMu.Lock()
	l.mu.RLock()
	snapshot := l.pool.Snapshot()
	l.mu.RUnlock()

	require.NoError(t, l.AddTransaction(transfer(l, "A", "C", 20)))

	l.mu.Lock()
	l.pool.Drop(len(snapshot))
	l.mu.Unlock()
	l.mineMu.Unlock()

	pending := l.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, Address("C"), pending[0].Recipient)
}

func TestParallelMinerLedger(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) {
		o.Workers = 4
		o.Difficulty = 3
	})

	l.MinePending("A")
	require.NoError(t, l.AddTransaction(transfer(l, "A", "B", 25)))
	l.MinePending("B")

	assert.NoError(t, l.Verify())
	assert.Equal(t, int64(75), l.BalanceOf("A"))
	assert.Equal(t, int64(125), l.BalanceOf("B"))
}

func TestConcurrentSubmissionsAndMining(t *testing.T) {
	l, _ := newTestLedger(t, func(o *Options) { o.Difficulty = 1 })
	l.MinePending("A")
	l.MinePending("A")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := l.AddTransaction(transfer(l, "A", Address(fmt.Sprintf("r-%d", i)), 15))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.True(t, errors.Is(err, ErrDoubleSpend) || errors.Is(err, ErrInsufficientBalance), err)
		}(i)
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.MinePending("M")
		}()
	}
	wg.Wait()
	l.MinePending("M")

	assert.True(t, l.IsChainValid())
	assert.GreaterOrEqual(t, l.BalanceOf("A"), int64(0))
	// 200 available, 15 each.
	assert.Equal(t, 13, accepted)
	assert.Equal(t, 200-int64(accepted)*15, l.BalanceOf("A"))
}

func TestChainReturnsCopies(t *testing.T) {
	l, _ := newTestLedger(t)
	l.MinePending("A")

	chain := l.Chain()
	chain[1].Transactions[0].Amount = 1_000_000
	chain[1].Hash = "forged"

	latest, err := l.LatestBlock()
	require.NoError(t, err)
	latest.Transactions[0].Recipient = "mallory"

	assert.Equal(t, int64(100), l.BalanceOf("A"))
	assert.True(t, l.IsChainValid())
}

func TestBlockLookup(t *testing.T) {
	l, _ := newTestLedger(t)
	mined := l.MinePending("A")

	byHeight, err := l.BlockByHeight(1)
	require.NoError(t, err)
	assert.Equal(t, mined.Hash, byHeight.Hash)

	byHash, err := l.BlockByHash(mined.Hash)
	require.NoError(t, err)
	assert.Equal(t, mined.Nonce, byHash.Nonce)

	height, err := l.HeightOf(mined.Hash)
	require.NoError(t, err)
	assert.Equal(t, 1, height)
	_, err = l.HeightOf("nope")
	assert.ErrorIs(t, err, ErrBlockNotFound)

	_, err = l.BlockByHeight(2)
	assert.ErrorIs(t, err, ErrBlockNotFound)
	_, err = l.BlockByHeight(-1)
	assert.ErrorIs(t, err, ErrBlockNotFound)
	_, err = l.BlockByHash("nope")
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestLatestBlockEmptyChain(t *testing.T) {
	l := &Ledger{}
	_, err := l.LatestBlock()
	assert.ErrorIs(t, err, ErrEmptyChain)
	assert.ErrorIs(t, l.Verify(), ErrEmptyChain)
}
