package blockchain

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

var errNonceFound = errors.New("nonce found")

type Miner struct {
	workers int
}

// NewMiner returns a miner that splits the nonce search over workers goroutines.
// workers <= 1 mines sequentially from nonce 0.
func NewMiner(workers int) *Miner {
	if workers < 1 {
		workers = 1
	}
	return &Miner{workers: workers}
}

func (m *Miner) Workers() int {
	return m.workers
}

// RewardTransaction builds the record minting reward to address.
func (m *Miner) RewardTransaction(address Address, reward int64, now time.Time) Transaction {
	return NewRewardTransaction(address, reward, now)
}

// MineBlock performs proof-of-work on block. With several workers, worker i tries
// nonces i, i+w, i+2w, ... and the first solution found wins; it need not be the
// lowest. The block is only modified when a solution is found.
func (m *Miner) MineBlock(ctx context.Context, block *Block, difficulty int) error {
	if m.workers == 1 {
		return block.MineContext(ctx, difficulty)
	}

	prefix := block.headerPrefix()
	step := uint64(m.workers)

	type solution struct {
		nonce uint64
		hash  string
	}
	found := make(chan solution, m.workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < m.workers; w++ {
		start := uint64(w)
		g.Go(func() error {
			nonce, hash, err := searchNonce(gctx, prefix, start, step, difficulty)
			if err != nil {
				return err
			}
			found <- solution{nonce: nonce, hash: hash}
			// stops the other workers
			return errNonceFound
		})
	}

	err := g.Wait()
	if !errors.Is(err, errNonceFound) {
		if err == nil {
			err = ctx.Err()
		}
		return err
	}

	s := <-found
	block.Nonce = s.nonce
	block.Hash = s.hash
	return nil
}
