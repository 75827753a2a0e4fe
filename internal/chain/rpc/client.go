// internal/chain/rpc/client.go
package rpc

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

const healthProbeTimeout = 5 * time.Second

// NewNodeClient dials url and returns a client marked active.
func NewNodeClient(url string) (*NodeClient, error) {
	cli, err := ethclient.Dial(url)
	if err != nil {
		return nil, &Error{URL: url, Method: "dial", Err: err}
	}
	return &NodeClient{Client: cli, URL: url, active: true}, nil
}

// newNodeClientWith wraps an existing caller; used by tests.
func newNodeClientWith(caller EthCaller, url string) *NodeClient {
	return &NodeClient{Client: caller, URL: url, active: true}
}

// IsActive reports whether the endpoint is currently usable.
func (n *NodeClient) IsActive() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.active
}

// SetActive marks the endpoint usable or not.
func (n *NodeClient) SetActive(active bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = active
}

// UpdateMetrics records the outcome and latency of one call.
func (n *NodeClient) UpdateMetrics(success bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.lastLatency = latency
	if success {
		n.successCount++
		n.lastSuccess = time.Now()
	} else {
		n.failureCount++
	}
}

// Counts returns the success/failure totals.
func (n *NodeClient) Counts() (success, failure uint64) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successCount, n.failureCount
}

// CheckHealth probes the endpoint with a cheap read and updates its state.
func (n *NodeClient) CheckHealth(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	start := time.Now()
	_, err := n.Client.BlockNumber(probeCtx)
	n.UpdateMetrics(err == nil, time.Since(start))

	n.SetActive(err == nil)
	return err == nil
}
