package protocol

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/chain/rpc"
	"github.com/btc1labs/btc1-client/internal/events"
	"github.com/btc1labs/btc1-client/internal/network"
	"github.com/btc1labs/btc1-client/internal/rewards"
	"github.com/btc1labs/btc1-client/internal/wallet"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// fakeBridge pins the wallet to one chain and declines any switch prompt.
type fakeBridge struct {
	chain int64
}

func (b *fakeBridge) ChainID(ctx context.Context) (int64, error) { return b.chain, nil }

func (b *fakeBridge) ConfirmSwitch(ctx context.Context, actionLabel string, wantChainID int64) (bool, error) {
	return false, nil
}

func (b *fakeBridge) SwitchChain(ctx context.Context, chainID int64) error { return nil }

// fakeSender records the last write instead of touching a node.
type fakeSender struct {
	calls    int
	contract string
	method   string
	args     []interface{}
	hash     string
	err      error
}

func (s *fakeSender) Send(ctx context.Context, contract *contracts.Contract, method string, args ...interface{}) (string, error) {
	s.calls++
	s.contract = contract.Name
	s.method = method
	s.args = args
	if s.err != nil {
		return "", s.err
	}
	return s.hash, nil
}

// nonceCaller answers every read with a fixed uint256, enough for the permit
// nonce lookup.
type nonceCaller struct {
	nonce int64
}

func (c *nonceCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out := make([]byte, 32)
	big.NewInt(c.nonce).FillBytes(out)
	return out, nil
}

func (c *nonceCaller) BlockNumber(ctx context.Context) (uint64, error) { return 1, nil }
func (c *nonceCaller) ChainID(ctx context.Context) (*big.Int, error)   { return big.NewInt(8453), nil }
func (c *nonceCaller) Close()                                          {}

func newTestService(t *testing.T, sender TxSender, bridge network.WalletBridge) (*Service, *events.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	registry, err := contracts.NewRegistry(
		"0x1000000000000000000000000000000000000001",
		"0x1000000000000000000000000000000000000002",
		"0x1000000000000000000000000000000000000003",
		"0x1000000000000000000000000000000000000004",
	)
	require.NoError(t, err)

	signer, err := wallet.NewSignerFromHex(testPrivateKey)
	require.NoError(t, err)

	pool := rpc.NewPoolWithClients(
		[]rpc.EthCaller{&nonceCaller{nonce: 7}},
		[]string{"http://node-a"}, 8453, 1, time.Millisecond, logger)
	t.Cleanup(pool.Close)

	bus := events.NewBus(logger, 16)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = bus.Shutdown(ctx)
	})

	svc := NewService(&ServiceConfig{
		Enforcer: network.NewEnforcer(8453, bridge, logger),
		Sender:   sender,
		Registry: registry,
		Signer:   signer,
		Reader:   chain.NewReader(pool, time.Second, logger),
		Bus:      bus,
		ChainID:  8453,
		Logger:   logger,
	})
	return svc, bus
}

func TestMint_SendsPermitTransaction(t *testing.T) {
	sender := &fakeSender{hash: "0xmint"}
	svc, bus := newTestService(t, sender, &fakeBridge{chain: 8453})

	var confirmed atomic.Int64
	bus.SubscribeFunc(events.TxConfirmed, func(ctx context.Context, e events.Event) error {
		confirmed.Add(1)
		return nil
	})

	collateral, err := contracts.NewERC20("cbBTC", "0x1000000000000000000000000000000000000005")
	require.NoError(t, err)

	txHash, flowErr := svc.Mint(context.Background(), collateral, "1.5")
	require.Nil(t, flowErr)
	assert.Equal(t, "0xmint", txHash)

	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "Vault", sender.contract)
	assert.Equal(t, "mintWithPermit", sender.method)
	require.Len(t, sender.args, 5)

	raw, ok := sender.args[0].(*big.Int)
	require.True(t, ok)
	assert.Zero(t, raw.Cmp(big.NewInt(150000000)))

	deadline, ok := sender.args[1].(*big.Int)
	require.True(t, ok)
	assert.Greater(t, deadline.Int64(), time.Now().Unix())

	_, ok = sender.args[2].(uint8)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		return confirmed.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMint_WrongNetworkBlocksBeforeSigning(t *testing.T) {
	sender := &fakeSender{hash: "0xmint"}
	svc, _ := newTestService(t, sender, &fakeBridge{chain: 1})

	collateral, err := contracts.NewERC20("cbBTC", "0x1000000000000000000000000000000000000005")
	require.NoError(t, err)

	_, flowErr := svc.Mint(context.Background(), collateral, "1.5")
	require.NotNil(t, flowErr)
	assert.Equal(t, KindWrongNetwork, flowErr.Kind)
	assert.Zero(t, sender.calls)
}

func TestMint_UserRejectionIsCancelled(t *testing.T) {
	sender := &fakeSender{err: errors.New("user rejected the request")}
	svc, _ := newTestService(t, sender, &fakeBridge{chain: 8453})

	collateral, err := contracts.NewERC20("cbBTC", "0x1000000000000000000000000000000000000005")
	require.NoError(t, err)

	_, flowErr := svc.Mint(context.Background(), collateral, "1.5")
	require.NotNil(t, flowErr)
	assert.Equal(t, KindCancelled, flowErr.Kind)
	assert.Equal(t, "cancelled", flowErr.Message)
}

func TestRedeem_Success(t *testing.T) {
	sender := &fakeSender{hash: "0xredeem"}
	svc, _ := newTestService(t, sender, &fakeBridge{chain: 8453})

	txHash, flowErr := svc.Redeem(context.Background(), "100")
	require.Nil(t, flowErr)
	assert.Equal(t, "0xredeem", txHash)

	assert.Equal(t, "Vault", sender.contract)
	assert.Equal(t, "redeem", sender.method)
	require.Len(t, sender.args, 1)

	raw, ok := sender.args[0].(*big.Int)
	require.True(t, ok)
	assert.Zero(t, raw.Cmp(big.NewInt(10000000000)))
}

func TestRedeem_InvalidAmount(t *testing.T) {
	sender := &fakeSender{hash: "0xredeem"}
	svc, _ := newTestService(t, sender, &fakeBridge{chain: 8453})

	_, flowErr := svc.Redeem(context.Background(), "not-a-number")
	require.NotNil(t, flowErr)
	assert.Zero(t, sender.calls)
}

func TestClaim_Success(t *testing.T) {
	sender := &fakeSender{hash: "0xclaim"}
	svc, _ := newTestService(t, sender, &fakeBridge{chain: 8453})

	txHash, flowErr := svc.Claim(context.Background(), rewards.MerkleClaim{
		DistributionID: 3,
		Index:          42,
		Amount:         "123450000",
		Proof: []string{
			"0x00000000000000000000000000000000000000000000000000000000000000aa",
			"0x00000000000000000000000000000000000000000000000000000000000000bb",
		},
	})
	require.Nil(t, flowErr)
	assert.Equal(t, "0xclaim", txHash)

	assert.Equal(t, "Distributor", sender.contract)
	assert.Equal(t, "claim", sender.method)
	require.Len(t, sender.args, 5)

	amount, ok := sender.args[3].(*big.Int)
	require.True(t, ok)
	assert.Zero(t, amount.Cmp(big.NewInt(123450000)))

	proof, ok := sender.args[4].([][32]byte)
	require.True(t, ok)
	require.Len(t, proof, 2)
	assert.Equal(t, byte(0xaa), proof[0][31])
}

func TestClaim_AlreadyClaimedTriggersRefresh(t *testing.T) {
	sender := &fakeSender{err: errors.New("execution reverted: already claimed")}
	svc, bus := newTestService(t, sender, &fakeBridge{chain: 8453})

	var refreshes atomic.Int64
	bus.SubscribeFunc(events.RefreshRequested, func(ctx context.Context, e events.Event) error {
		refreshes.Add(1)
		return nil
	})

	_, flowErr := svc.Claim(context.Background(), rewards.MerkleClaim{
		DistributionID: 3,
		Index:          42,
		Amount:         "100",
	})
	require.NotNil(t, flowErr)
	assert.Equal(t, KindAlreadyClaimed, flowErr.Kind)

	assert.Eventually(t, func() bool {
		return refreshes.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClaim_NoDistributorConfigured(t *testing.T) {
	logger := zaptest.NewLogger(t)
	registry, err := contracts.NewRegistry(
		"0x1000000000000000000000000000000000000001",
		"0x1000000000000000000000000000000000000002",
		"0x1000000000000000000000000000000000000003",
		"")
	require.NoError(t, err)

	signer, err := wallet.NewSignerFromHex(testPrivateKey)
	require.NoError(t, err)

	svc := NewService(&ServiceConfig{
		Enforcer: network.NewEnforcer(8453, &fakeBridge{chain: 8453}, logger),
		Sender:   &fakeSender{},
		Registry: registry,
		Signer:   signer,
		ChainID:  8453,
		Logger:   logger,
	})

	_, flowErr := svc.Claim(context.Background(), rewards.MerkleClaim{Amount: "1"})
	require.NotNil(t, flowErr)
	assert.Equal(t, KindUnknown, flowErr.Kind)
}
