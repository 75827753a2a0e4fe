package network

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeBridge struct {
	chainID      int64
	chainIDErr   error
	approve      bool
	approveErr   error
	switchErr    error
	switchedTo   int64
	confirmCalls int
}

func (f *fakeBridge) ChainID(ctx context.Context) (int64, error) {
	return f.chainID, f.chainIDErr
}

func (f *fakeBridge) ConfirmSwitch(ctx context.Context, actionLabel string, want int64) (bool, error) {
	f.confirmCalls++
	return f.approve, f.approveErr
}

func (f *fakeBridge) SwitchChain(ctx context.Context, chainID int64) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switchedTo = chainID
	f.chainID = chainID // wallet actually moves
	return nil
}

func TestEnforce_AlreadyOnAllowedChain(t *testing.T) {
	bridge := &fakeBridge{chainID: 8453}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.True(t, enforcer.Enforce(context.Background(), "mint"))
	assert.Equal(t, StateOK, enforcer.State())
	assert.Equal(t, 0, bridge.confirmCalls, "no prompt when already correct")
}

func TestEnforce_UserCancelsSwitch(t *testing.T) {
	// Wallet on Ethereum mainnet, allow-list is Base only.
	bridge := &fakeBridge{chainID: 1, approve: false}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.False(t, enforcer.Enforce(context.Background(), "redeem"))
	assert.Equal(t, StateFailed, enforcer.State())
	assert.Equal(t, int64(0), bridge.switchedTo, "cancel must not trigger a switch")
}

func TestEnforce_ApprovedSwitchSucceeds(t *testing.T) {
	bridge := &fakeBridge{chainID: 1, approve: true}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.True(t, enforcer.Enforce(context.Background(), "mint"))
	assert.Equal(t, StateOK, enforcer.State())
	assert.Equal(t, int64(8453), bridge.switchedTo)
}

func TestEnforce_SwitchFails(t *testing.T) {
	bridge := &fakeBridge{chainID: 1, approve: true, switchErr: errors.New("wallet_switchEthereumChain rejected")}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.False(t, enforcer.Enforce(context.Background(), "claim"))
	assert.Equal(t, StateFailed, enforcer.State())
}

func TestEnforce_SwitchAckedButChainUnchanged(t *testing.T) {
	bridge := &ackOnlyBridge{fakeBridge{chainID: 1, approve: true}}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.False(t, enforcer.Enforce(context.Background(), "mint"))
	assert.Equal(t, StateFailed, enforcer.State())
}

func TestEnforce_ChainIDReadFails(t *testing.T) {
	bridge := &fakeBridge{chainIDErr: errors.New("wallet disconnected")}
	enforcer := NewEnforcer(8453, bridge, zaptest.NewLogger(t))

	assert.False(t, enforcer.Enforce(context.Background(), "mint"))
	assert.Equal(t, StateFailed, enforcer.State())
}

// ackOnlyBridge acknowledges the switch request but never changes chains.
type ackOnlyBridge struct {
	fakeBridge
}

func (a *ackOnlyBridge) SwitchChain(ctx context.Context, chainID int64) error {
	return nil
}
