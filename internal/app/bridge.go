// internal/app/bridge.go
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain/rpc"
)

// headlessBridge adapts the endpoint pool to the wallet bridge. A locally
// keyed signer has no wallet UI: the connected chain is whatever the
// endpoints serve, and a mismatch means misconfiguration, so switch prompts
// are always declined.
type headlessBridge struct {
	pool   *rpc.Pool
	logger *zap.Logger
}

func newHeadlessBridge(pool *rpc.Pool, logger *zap.Logger) *headlessBridge {
	return &headlessBridge{pool: pool, logger: logger.Named("headless_bridge")}
}

func (b *headlessBridge) ChainID(ctx context.Context) (int64, error) {
	var chainID int64
	err := b.pool.ExecuteWithRetry(ctx, func(n *rpc.NodeClient) error {
		id, err := n.Client.ChainID(ctx)
		if err != nil {
			return &rpc.Error{URL: n.URL, Method: "eth_chainId", Err: err}
		}
		chainID = id.Int64()
		return nil
	})
	return chainID, err
}

func (b *headlessBridge) ConfirmSwitch(ctx context.Context, actionLabel string, wantChainID int64) (bool, error) {
	b.logger.Warn("Endpoint chain mismatch, declining switch",
		zap.String("action", actionLabel),
		zap.Int64("required", wantChainID))
	return false, nil
}

func (b *headlessBridge) SwitchChain(ctx context.Context, chainID int64) error {
	return fmt.Errorf("headless signer cannot switch networks")
}
