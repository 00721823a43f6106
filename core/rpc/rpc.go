package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/filecoin-project/go-jsonrpc"
	"github.com/shu8h0-null/powledger/core/blockchain"
)

const (
	Namespace = "Ledger"
	Path      = "/rpc/v0"
)

type RPCHandler struct {
	rpcServer server
}

func NewRPCHandler(s server) *RPCHandler {
	return &RPCHandler{
		rpcServer: s,
	}
}

func (h *RPCHandler) SubmitTransaction(ctx context.Context, req TxRequest) (TxReceipt, error) {
	tx := req.Transaction(h.rpcServer.Now())
	if err := h.rpcServer.SubmitTransaction(tx); err != nil {
		return TxReceipt{}, err
	}
	return TxReceipt{TxID: tx.ID(), Pending: len(h.rpcServer.Pending())}, nil
}

func (h *RPCHandler) MinePending(ctx context.Context, rewardAddress string) (*blockchain.Block, error) {
	if rewardAddress == "" {
		return nil, errors.New("reward address is required")
	}
	return h.rpcServer.Mine(ctx, blockchain.Address(rewardAddress))
}

func (h *RPCHandler) BalanceOf(ctx context.Context, address string) (int64, error) {
	return h.rpcServer.BalanceOf(blockchain.Address(address)), nil
}

func (h *RPCHandler) IsChainValid(ctx context.Context) (bool, error) {
	return h.rpcServer.IsChainValid(), nil
}

func (h *RPCHandler) LatestBlock(ctx context.Context) (*blockchain.Block, error) {
	return h.rpcServer.LatestBlock()
}

func (h *RPCHandler) GetBlockByHeight(ctx context.Context, height int) (*blockchain.Block, error) {
	return h.rpcServer.BlockByHeight(height)
}

func (h *RPCHandler) GetBlockByHash(ctx context.Context, hash string) (*blockchain.Block, error) {
	return h.rpcServer.BlockByHash(hash)
}

// RecentBlocks returns up to n blocks, newest first.
func (h *RPCHandler) RecentBlocks(ctx context.Context, n int) ([]*blockchain.Block, error) {
	if n < 1 {
		return nil, fmt.Errorf("block count must be positive, got %d", n)
	}
	chain := h.rpcServer.Chain()
	if n > len(chain) {
		n = len(chain)
	}
	blocks := make([]*blockchain.Block, 0, n)
	for i := len(chain) - 1; i >= len(chain)-n; i-- {
		blocks = append(blocks, chain[i])
	}
	return blocks, nil
}

func (h *RPCHandler) PendingTransactions(ctx context.Context) ([]blockchain.Transaction, error) {
	return h.rpcServer.Pending(), nil
}

func (h *RPCHandler) ChainInfo(ctx context.Context) (ChainInfo, error) {
	latest, err := h.rpcServer.LatestBlock()
	if err != nil {
		return ChainInfo{}, err
	}
	policy := h.rpcServer.Policy()
	info := ChainInfo{
		Height:           h.rpcServer.Height(),
		LatestHash:       latest.Hash,
		Difficulty:       h.rpcServer.Difficulty(),
		MiningReward:     h.rpcServer.MiningReward(),
		Pending:          len(h.rpcServer.Pending()),
		Valid:            h.rpcServer.IsChainValid(),
		AggregatePending: policy.AggregatePending,
		TimeLock:         policy.TimeLock,
	}
	if err := h.rpcServer.Verify(); err != nil {
		info.VerifyError = err.Error()
	}
	return info, nil
}

// NewHTTPHandler mounts handler under Path.
func NewHTTPHandler(handler *RPCHandler) http.Handler {
	mux := http.NewServeMux()
	rpcServer := jsonrpc.NewServer()
	rpcServer.Register(Namespace, handler)
	mux.Handle(Path, rpcServer)
	return mux
}

// StartRPC serves handler on addr until ctx is cancelled.
func StartRPC(ctx context.Context, addr string, handler *RPCHandler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down rpc server: %w", err)
		}
		return nil
	}
}

// Client mirrors RPCHandler for go-jsonrpc.
type Client struct {
	SubmitTransaction   func(ctx context.Context, req TxRequest) (TxReceipt, error)
	MinePending         func(ctx context.Context, rewardAddress string) (*blockchain.Block, error)
	BalanceOf           func(ctx context.Context, address string) (int64, error)
	IsChainValid        func(ctx context.Context) (bool, error)
	LatestBlock         func(ctx context.Context) (*blockchain.Block, error)
	GetBlockByHeight    func(ctx context.Context, height int) (*blockchain.Block, error)
	GetBlockByHash      func(ctx context.Context, hash string) (*blockchain.Block, error)
	RecentBlocks        func(ctx context.Context, n int) ([]*blockchain.Block, error)
	PendingTransactions func(ctx context.Context) ([]blockchain.Transaction, error)
	ChainInfo           func(ctx context.Context) (ChainInfo, error)
}

// NewClient dials addr, which may be a bare host:port or a full URL.
func NewClient(ctx context.Context, addr string) (*Client, jsonrpc.ClientCloser, error) {
	var client Client
	closer, err := jsonrpc.NewClient(ctx, Endpoint(addr), Namespace, &client, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return &client, closer, nil
}

func Endpoint(addr string) string {
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		addr = "http://" + addr
	}
	addr = strings.TrimSuffix(addr, "/")
	if strings.HasSuffix(addr, Path) {
		return addr
	}
	return addr + Path
}
