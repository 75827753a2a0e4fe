// internal/network/enforcer.go
package network

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// State is the enforcement progress for one gate invocation.
type State string

const (
	StateIdle       State = "idle"
	StateChecking   State = "checking"
	StateOK         State = "ok"
	StateMismatched State = "mismatched"
	StateSwitching  State = "switching"
	StateFailed     State = "failed"
)

// WalletBridge is the connected wallet surface the enforcer drives. The
// wallet itself (connection UI, signing) lives outside this module.
type WalletBridge interface {
	// ChainID returns the chain the wallet is currently connected to.
	ChainID(ctx context.Context) (int64, error)

	// ConfirmSwitch asks the user to approve switching networks before the
	// named action. False means the user cancelled.
	ConfirmSwitch(ctx context.Context, actionLabel string, wantChainID int64) (bool, error)

	// SwitchChain requests the wallet to change networks.
	SwitchChain(ctx context.Context, chainID int64) error
}

// Enforcer gates every state-mutating action on the allowed chain id. Read
// paths bypass it.
type Enforcer struct {
	allowed int64
	bridge  WalletBridge
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

// NewEnforcer builds a gate for the single allowed chain.
func NewEnforcer(allowedChainID int64, bridge WalletBridge, logger *zap.Logger) *Enforcer {
	return &Enforcer{
		allowed: allowedChainID,
		bridge:  bridge,
		logger:  logger.Named("network_enforcer"),
		state:   StateIdle,
	}
}

// State returns the last observed enforcement state.
func (e *Enforcer) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Enforcer) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Enforce returns true only when the wallet is on the allowed chain, either
// already or after a user-approved switch. Cancel or switch failure returns
// false; the caller must not build the transaction.
func (e *Enforcer) Enforce(ctx context.Context, actionLabel string) bool {
	e.setState(StateChecking)

	chainID, err := e.bridge.ChainID(ctx)
	if err != nil {
		e.logger.Warn("Failed to read wallet chain id",
			zap.String("action", actionLabel), zap.Error(err))
		e.setState(StateFailed)
		return false
	}

	if chainID == e.allowed {
		e.setState(StateOK)
		return true
	}

	e.setState(StateMismatched)
	e.logger.Info("Wallet on wrong network",
		zap.String("action", actionLabel),
		zap.Int64("connected", chainID),
		zap.Int64("required", e.allowed))

	approved, err := e.bridge.ConfirmSwitch(ctx, actionLabel, e.allowed)
	if err != nil || !approved {
		e.logger.Info("Network switch declined",
			zap.String("action", actionLabel), zap.Error(err))
		e.setState(StateFailed)
		return false
	}

	e.setState(StateSwitching)
	if err := e.bridge.SwitchChain(ctx, e.allowed); err != nil {
		e.logger.Warn("Network switch failed",
			zap.String("action", actionLabel), zap.Error(err))
		e.setState(StateFailed)
		return false
	}

	// Re-read rather than trust the switch call: some wallets ack the
	// request before actually changing networks.
	chainID, err = e.bridge.ChainID(ctx)
	if err != nil || chainID != e.allowed {
		e.logger.Warn("Wallet still on wrong network after switch",
			zap.String("action", actionLabel),
			zap.Int64("connected", chainID), zap.Error(err))
		e.setState(StateFailed)
		return false
	}

	e.setState(StateOK)
	return true
}
