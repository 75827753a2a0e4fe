// internal/protocol/service.go
package protocol

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/events"
	"github.com/btc1labs/btc1-client/internal/fetch"
	"github.com/btc1labs/btc1-client/internal/network"
	"github.com/btc1labs/btc1-client/internal/rewards"
	"github.com/btc1labs/btc1-client/internal/wallet"
)

const permitValidity = 30 * time.Minute

// Service drives the protocol's mutating flows. Every flow passes the
// network enforcement gate before a transaction is constructed; read paths
// never come through here.
type Service struct {
	enforcer *network.Enforcer
	sender   TxSender
	registry *contracts.Registry
	signer   *wallet.Signer
	reader   *chain.Reader
	rewards  *rewards.Client // nil when no backend is configured
	bus      *events.Bus
	chainID  int64
	logger   *zap.Logger
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Enforcer *network.Enforcer
	Sender   TxSender
	Registry *contracts.Registry
	Signer   *wallet.Signer
	Reader   *chain.Reader
	Rewards  *rewards.Client
	Bus      *events.Bus
	ChainID  int64
	Logger   *zap.Logger
}

// NewService builds the flow service.
func NewService(cfg *ServiceConfig) *Service {
	return &Service{
		enforcer: cfg.Enforcer,
		sender:   cfg.Sender,
		registry: cfg.Registry,
		signer:   cfg.Signer,
		reader:   cfg.Reader,
		rewards:  cfg.Rewards,
		bus:      cfg.Bus,
		chainID:  cfg.ChainID,
		logger:   cfg.Logger.Named("protocol"),
	}
}

// Mint deposits collateral and mints BTC1 in one transaction, authorizing the
// vault's pull via an EIP-2612 permit instead of a separate approval.
func (s *Service) Mint(ctx context.Context, collateral *contracts.Contract, amount string) (string, *FlowError) {
	const action = "mint"

	if !s.enforcer.Enforce(ctx, action) {
		return "", Classify(action, ErrWrongNetwork)
	}

	raw, err := fetch.ParseUnits(amount, fetch.DefaultTokenDecimals)
	if err != nil {
		return "", Classify(action, fmt.Errorf("invalid amount: %w", err))
	}

	nonce, err := s.permitNonce(ctx, collateral)
	if err != nil {
		return "", Classify(action, err)
	}

	deadline := big.NewInt(time.Now().Add(permitValidity).Unix())
	sig, err := s.signer.SignPermit(wallet.PermitParams{
		TokenName: collateral.Name,
		Version:   "1",
		ChainID:   big.NewInt(s.chainID),
		Token:     collateral.Address,
		Owner:     s.signer.Address(),
		Spender:   s.registry.Vault.Address,
		Value:     raw,
		Nonce:     nonce,
		Deadline:  deadline,
	})
	if err != nil {
		return "", Classify(action, err)
	}

	txHash, err := s.sender.Send(ctx, s.registry.Vault, "mintWithPermit",
		raw, deadline, sig.V, sig.R, sig.S)
	if err != nil {
		return txHash, s.classifyAndReact(action, err)
	}

	s.confirmed(action, txHash)
	return txHash, nil
}

// Redeem burns BTC1 for collateral at the vault's current pricing.
func (s *Service) Redeem(ctx context.Context, amount string) (string, *FlowError) {
	const action = "redeem"

	if !s.enforcer.Enforce(ctx, action) {
		return "", Classify(action, ErrWrongNetwork)
	}

	raw, err := fetch.ParseUnits(amount, fetch.DefaultTokenDecimals)
	if err != nil {
		return "", Classify(action, fmt.Errorf("invalid amount: %w", err))
	}

	txHash, err := s.sender.Send(ctx, s.registry.Vault, "redeem", raw)
	if err != nil {
		return txHash, s.classifyAndReact(action, err)
	}

	s.confirmed(action, txHash)
	return txHash, nil
}

// Claim redeems one merkle entitlement on-chain and best-effort syncs the
// backend afterwards.
func (s *Service) Claim(ctx context.Context, claim rewards.MerkleClaim) (string, *FlowError) {
	const action = "claim"

	if s.registry.Distributor == nil {
		return "", Classify(action, fmt.Errorf("no distributor configured"))
	}

	if !s.enforcer.Enforce(ctx, action) {
		return "", Classify(action, ErrWrongNetwork)
	}

	amount, ok := new(big.Int).SetString(claim.Amount, 10)
	if !ok {
		return "", Classify(action, fmt.Errorf("invalid claim amount %q", claim.Amount))
	}

	proof := make([][32]byte, len(claim.Proof))
	for i, h := range claim.Proof {
		proof[i] = common.HexToHash(h)
	}

	txHash, err := s.sender.Send(ctx, s.registry.Distributor, "claim",
		new(big.Int).SetUint64(claim.DistributionID),
		new(big.Int).SetUint64(claim.Index),
		s.signer.Address(),
		amount,
		proof)
	if err != nil {
		return txHash, s.classifyAndReact(action, err)
	}

	s.confirmed(action, txHash)

	if s.rewards != nil {
		// The chain is authoritative; a failed sync self-heals later.
		s.rewards.MarkClaimed(ctx, s.signer.Address().Hex(),
			claim.DistributionID, claim.Index, txHash)
	}
	return txHash, nil
}

// permitNonce reads the owner's current EIP-2612 nonce from the token.
func (s *Service) permitNonce(ctx context.Context, token *contracts.Contract) (*big.Int, error) {
	result := s.reader.Call(ctx, chain.ContractCall{
		Contract: token,
		Method:   "nonces",
		Args:     []interface{}{s.signer.Address()},
	})
	value, err := result.Single()
	if err != nil {
		return nil, fmt.Errorf("permit nonce: %w", err)
	}
	nonce, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("permit nonce: unexpected type %T", value)
	}
	return nonce, nil
}

// classifyAndReact maps the failure and triggers the refreshes certain kinds
// require.
func (s *Service) classifyAndReact(action string, err error) *FlowError {
	flowErr := Classify(action, err)

	switch flowErr.Kind {
	case KindCancelled:
		s.logger.Info("User cancelled signature", zap.String("action", action))
	case KindAlreadyClaimed:
		// Local claim state is stale; refetch everything.
		if s.bus != nil {
			_ = s.bus.Publish(events.NewRefreshRequested("already claimed"))
		}
		s.logger.Warn("Claim already redeemed", zap.String("action", action))
	default:
		s.logger.Error("Flow failed", zap.String("action", action), zap.Error(err))
	}

	return flowErr
}

func (s *Service) confirmed(action, txHash string) {
	s.logger.Info("Transaction confirmed",
		zap.String("action", action), zap.String("tx_hash", txHash))
	if s.bus != nil {
		_ = s.bus.Publish(events.NewTxConfirmed(txHash, action))
	}
}
