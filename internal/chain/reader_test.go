package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/chain/rpc"
)

const (
	testTokenAddr = "0x4200000000000000000000000000000000000006"
	testVaultAddr = "0x4200000000000000000000000000000000000007"
	testHolder    = "0x1111111111111111111111111111111111111111"
)

// scriptedCaller answers eth_call by method selector.
type scriptedCaller struct {
	responses map[string][]byte // selector hex -> encoded return
	err       error
	calls     int
}

func (s *scriptedCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out, ok := s.responses[common.Bytes2Hex(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (s *scriptedCaller) BlockNumber(ctx context.Context) (uint64, error) { return 1, nil }
func (s *scriptedCaller) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(8453), nil
}
func (s *scriptedCaller) Close() {}

func encodeUint256(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func encodeBool(b bool) []byte {
	out := make([]byte, 32)
	if b {
		out[31] = 1
	}
	return out
}

func newTestReader(t *testing.T, callers ...rpc.EthCaller) *Reader {
	t.Helper()
	urls := make([]string, len(callers))
	for i := range callers {
		urls[i] = "http://node"
	}
	pool := rpc.NewPoolWithClients(callers, urls, 8453, 4, time.Millisecond, zaptest.NewLogger(t))
	return NewReader(pool, time.Second, zaptest.NewLogger(t))
}

func selector(c *contracts.Contract, method string) string {
	return common.Bytes2Hex(c.ABI.Methods[method].ID)
}

func TestReaderCall_DecodesBalance(t *testing.T) {
	token, err := contracts.NewERC20("cbBTC", testTokenAddr)
	require.NoError(t, err)

	caller := &scriptedCaller{responses: map[string][]byte{
		selector(token, "balanceOf"): encodeUint256(big.NewInt(123456789)),
	}}
	reader := newTestReader(t, caller)

	result := reader.Call(context.Background(), ContractCall{
		Contract: token,
		Method:   "balanceOf",
		Args:     []interface{}{common.HexToAddress(testHolder)},
	})

	require.True(t, result.Ok())
	value, err := result.Single()
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(123456789).Cmp(value.(*big.Int)))
}

func TestReaderCall_FailsOverBetweenEndpoints(t *testing.T) {
	token, err := contracts.NewERC20("cbBTC", testTokenAddr)
	require.NoError(t, err)

	down := &scriptedCaller{err: errors.New("connection refused")}
	up := &scriptedCaller{responses: map[string][]byte{
		selector(token, "balanceOf"): encodeUint256(big.NewInt(42)),
	}}
	reader := newTestReader(t, down, up)

	result := reader.Call(context.Background(), ContractCall{
		Contract: token,
		Method:   "balanceOf",
		Args:     []interface{}{common.HexToAddress(testHolder)},
	})

	require.True(t, result.Ok(), "call must succeed through the healthy endpoint")
	value, _ := result.Single()
	assert.Equal(t, 0, big.NewInt(42).Cmp(value.(*big.Int)))
}

func TestReaderCall_RevertIsNotRetried(t *testing.T) {
	token, err := contracts.NewERC20("cbBTC", testTokenAddr)
	require.NoError(t, err)

	reverting := &scriptedCaller{err: errors.New("execution reverted")}
	reader := newTestReader(t, reverting)

	result := reader.Call(context.Background(), ContractCall{
		Contract: token,
		Method:   "decimals",
	})

	require.False(t, result.Ok())
	assert.Equal(t, 1, reverting.calls, "reverts repeat identically, no retry")
}

func TestBatchCall_JoinsPositionallyAndIsolatesFailures(t *testing.T) {
	vault, err := contracts.New("Vault", testVaultAddr, contracts.VaultABI)
	require.NoError(t, err)
	token, err := contracts.NewERC20("BTC1", testTokenAddr)
	require.NoError(t, err)

	caller := &scriptedCaller{responses: map[string][]byte{
		selector(vault, "getCurrentCollateralRatio"): encodeUint256(big.NewInt(15000)),
		selector(vault, "isHealthy"):                 encodeBool(true),
		// balanceOf deliberately unscripted: it reverts.
	}}
	reader := newTestReader(t, caller)

	results := reader.BatchCall(context.Background(), []ContractCall{
		{Contract: vault, Method: "getCurrentCollateralRatio"},
		{Contract: token, Method: "balanceOf", Args: []interface{}{common.HexToAddress(testHolder)}},
		{Contract: vault, Method: "isHealthy"},
	})

	require.Len(t, results, 3)

	require.True(t, results[0].Ok())
	ratio, _ := results[0].Single()
	assert.Equal(t, 0, big.NewInt(15000).Cmp(ratio.(*big.Int)))

	assert.False(t, results[1].Ok(), "the failing slot carries its own error")

	require.True(t, results[2].Ok())
	healthy, _ := results[2].Single()
	assert.Equal(t, true, healthy.(bool))
}

func TestReaderCall_PackErrorIsImmediate(t *testing.T) {
	token, err := contracts.NewERC20("cbBTC", testTokenAddr)
	require.NoError(t, err)

	caller := &scriptedCaller{}
	reader := newTestReader(t, caller)

	result := reader.Call(context.Background(), ContractCall{
		Contract: token,
		Method:   "balanceOf", // missing the address argument
	})

	require.False(t, result.Ok())
	assert.Equal(t, 0, caller.calls, "pack errors never reach the wire")
}
