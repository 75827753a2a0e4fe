// internal/chain/rpc/pool.go
package rpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const healthCheckInterval = 30 * time.Second

// NewPool dials every URL and returns a pool over the reachable endpoints.
// Unreachable endpoints are kept in the rotation inactive; the health loop
// revives them when they come back.
func NewPool(urls []string, chainID int64, retries int, retryDelay time.Duration, logger *zap.Logger) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoActiveClients
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		ChainID:    chainID,
		logger:     logger.Named("rpc_pool"),
		retries:    uint(retries),
		retryDelay: retryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, url := range urls {
		node, err := NewNodeClient(url)
		if err != nil {
			p.logger.Warn("Failed to dial endpoint, keeping it inactive",
				zap.String("url", url), zap.Error(err))
			continue
		}
		p.clients = append(p.clients, node)
	}

	if len(p.clients) == 0 {
		cancel()
		return nil, ErrNoActiveClients
	}

	p.wg.Add(1)
	go p.healthLoop()

	return p, nil
}

// newPoolWith builds a pool over pre-constructed clients without the health
// loop; used by tests and by the reader package's fakes.
func newPoolWith(clients []*NodeClient, chainID int64, retries int, retryDelay time.Duration, logger *zap.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		ChainID:    chainID,
		clients:    clients,
		logger:     logger.Named("rpc_pool"),
		retries:    uint(retries),
		retryDelay: retryDelay,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// NewPoolWithClients is the exported test-and-wiring seam over newPoolWith.
func NewPoolWithClients(callers []EthCaller, urls []string, chainID int64, retries int, retryDelay time.Duration, logger *zap.Logger) *Pool {
	clients := make([]*NodeClient, 0, len(callers))
	for i, caller := range callers {
		url := ""
		if i < len(urls) {
			url = urls[i]
		}
		clients = append(clients, newNodeClientWith(caller, url))
	}
	return newPoolWith(clients, chainID, retries, retryDelay, logger)
}

// GetNextClient returns the next active client in rotation, or nil when the
// whole pool is down.
func (p *Pool) GetNextClient() *NodeClient {
	p.mu.Lock()
	defer p.mu.Unlock()

	initialIndex := p.currIndex
	for {
		p.currIndex = (p.currIndex + 1) % len(p.clients)
		if p.clients[p.currIndex].IsActive() {
			return p.clients[p.currIndex]
		}
		if p.currIndex == initialIndex {
			return nil
		}
	}
}

// HasActiveClients reports whether at least one endpoint is usable.
func (p *Pool) HasActiveClients() bool {
	for _, client := range p.clients {
		if client.IsActive() {
			return true
		}
	}
	return false
}

// ExecuteWithRetry runs operation against the pool, advancing to the next
// endpoint on transient failure with capped exponential backoff. Fatal errors
// (reverts, decode mismatches) stop immediately: they repeat identically on
// every endpoint.
func (p *Pool) ExecuteWithRetry(ctx context.Context, operation func(*NodeClient) error) error {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = p.retryDelay
	backoffPolicy.MaxInterval = p.retryDelay * 10

	notify := func(err error, duration time.Duration) {
		p.logger.Debug("Retrying RPC operation",
			zap.Error(err), zap.Duration("backoff", duration))
	}

	attempt := func() (struct{}, error) {
		client := p.GetNextClient()
		if client == nil {
			return struct{}{}, ErrNoActiveClients
		}

		start := time.Now()
		err := operation(client)
		client.UpdateMetrics(err == nil, time.Since(start))

		if err == nil {
			return struct{}{}, nil
		}

		if IsFatalError(err) {
			return struct{}{}, backoff.Permanent(err)
		}

		client.SetActive(false)
		return struct{}{}, err
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(p.retries),
		backoff.WithNotify(notify))
	return err
}

// Metrics aggregates per-client counters.
func (p *Pool) Metrics() PoolMetrics {
	m := PoolMetrics{TotalClients: len(p.clients)}
	for _, client := range p.clients {
		if client.IsActive() {
			m.ActiveClients++
		}
		success, failure := client.Counts()
		m.TotalSuccess += success
		m.TotalFailure += failure
	}
	return m
}

// healthLoop periodically probes inactive endpoints so a failed-over node
// rejoins the rotation once it recovers.
func (p *Pool) healthLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			for _, client := range p.clients {
				if client.IsActive() {
					continue
				}
				if client.CheckHealth(p.ctx) {
					p.logger.Info("Endpoint recovered",
						zap.String("url", client.URL))
				}
			}
		}
	}
}

// Close stops the health loop and releases every client.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
	for _, client := range p.clients {
		client.Client.Close()
	}
}
