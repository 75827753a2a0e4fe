// internal/chain/rpc/types.go
package rpc

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
)

// EthCaller is the read-only subset of ethclient.Client used by this layer.
// Kept as an interface so tests can substitute fakes without a live endpoint.
type EthCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close()
}

// NodeClient is one RPC endpoint with its health and latency bookkeeping.
type NodeClient struct {
	Client EthCaller
	URL    string

	mu           sync.RWMutex
	active       bool
	successCount uint64
	failureCount uint64
	lastLatency  time.Duration
	lastSuccess  time.Time
}

// Pool is an ordered set of endpoints for one chain, tried round-robin.
type Pool struct {
	ChainID int64

	clients    []*NodeClient
	logger     *zap.Logger
	currIndex  int
	mu         sync.Mutex
	retries    uint
	retryDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PoolMetrics is a point-in-time view of pool health.
type PoolMetrics struct {
	TotalClients  int
	ActiveClients int
	TotalSuccess  uint64
	TotalFailure  uint64
}
