// internal/chain/reader.go
package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/chain/rpc"
)

// ContractCall names one read-only method invocation.
type ContractCall struct {
	Contract *contracts.Contract
	Method   string
	Args     []interface{}
}

// Result is the outcome of a single read. A failed fetch is an explicit
// error, never a nil value, so callers cannot mistake a legitimate on-chain
// zero for an exhausted retry.
type Result struct {
	Values []interface{}
	Err    error
}

// Ok reports whether the call produced usable values.
func (r Result) Ok() bool {
	return r.Err == nil
}

// Single returns the first decoded value of a successful call.
func (r Result) Single() (interface{}, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if len(r.Values) == 0 {
		return nil, fmt.Errorf("call returned no values")
	}
	return r.Values[0], nil
}

// Reader executes read-only contract calls through the endpoint pool.
type Reader struct {
	pool    *rpc.Pool
	logger  *zap.Logger
	timeout time.Duration
}

// NewReader wraps pool with a per-call timeout.
func NewReader(pool *rpc.Pool, timeout time.Duration, logger *zap.Logger) *Reader {
	return &Reader{
		pool:    pool,
		logger:  logger.Named("reader"),
		timeout: timeout,
	}
}

// Call executes one read with retry and failover.
func (r *Reader) Call(ctx context.Context, call ContractCall) Result {
	data, err := call.Contract.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		// Pack failures are programming errors, not transport failures.
		return Result{Err: fmt.Errorf("pack %s.%s: %w", call.Contract.Name, call.Method, err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	msg := ethereum.CallMsg{To: &call.Contract.Address, Data: data}

	var values []interface{}
	err = r.pool.ExecuteWithRetry(callCtx, func(n *rpc.NodeClient) error {
		raw, callErr := n.Client.CallContract(callCtx, msg, nil)
		if callErr != nil {
			if rpc.IsFatalError(callErr) {
				return callErr
			}
			return &rpc.Error{URL: n.URL, Method: call.Method, Err: callErr}
		}

		decoded, decodeErr := call.Contract.ABI.Unpack(call.Method, raw)
		if decodeErr != nil {
			// A decode mismatch repeats on every endpoint.
			return &rpc.Error{URL: n.URL, Method: call.Method, Err: rpc.ErrInvalidResponse}
		}
		values = decoded
		return nil
	})

	if err != nil {
		r.logger.Debug("Contract read failed",
			zap.String("contract", call.Contract.Name),
			zap.String("method", call.Method),
			zap.Error(err))
		return Result{Err: fmt.Errorf("%s.%s: %w", call.Contract.Name, call.Method, err)}
	}

	return Result{Values: values}
}

// BatchCall fans the calls out concurrently and joins results positionally.
// A failure in one call never fails the others; each slot carries its own
// Result.
func (r *Reader) BatchCall(ctx context.Context, calls []ContractCall) []Result {
	results := make([]Result, len(calls))

	g, gCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.Call(gCtx, call)
			return nil // per-slot errors live in results[i]
		})
	}

	// Goroutines never return errors, so Wait only synchronizes.
	_ = g.Wait()
	return results
}
