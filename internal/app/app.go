// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/chain/rpc"
	"github.com/btc1labs/btc1-client/internal/config"
	"github.com/btc1labs/btc1-client/internal/events"
	"github.com/btc1labs/btc1-client/internal/fetch"
	"github.com/btc1labs/btc1-client/internal/logger"
	"github.com/btc1labs/btc1-client/internal/network"
	"github.com/btc1labs/btc1-client/internal/pricing"
	"github.com/btc1labs/btc1-client/internal/protocol"
	"github.com/btc1labs/btc1-client/internal/rewards"
	"github.com/btc1labs/btc1-client/internal/wallet"
)

// walletKeyEnv names the env var holding the signing key. Keys never live in
// the config file.
const walletKeyEnv = "BTC1_WALLET_KEY"

const refetchTimeout = 30 * time.Second

// App owns the wired client: endpoint pool, reader, fetch caches, network
// gate and transaction flows.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	pool       *rpc.Pool
	reader     *chain.Reader
	registry   *contracts.Registry
	collateral []*contracts.Contract
	bus        *events.Bus
	enforcer   *network.Enforcer
	rewards    *rewards.Client
	signer     *wallet.Signer // nil without a key; read paths still work

	vaultStats         *fetch.VaultStatsFetcher
	stableBalance      *fetch.TokenBalanceFetcher
	collateralBalances *fetch.CollateralBalancesFetcher

	mu      sync.Mutex
	writer  *protocol.Writer
	service *protocol.Service

	shutdownCh chan os.Signal
}

// New loads configuration and wires every component. Transaction flows come
// online lazily on first use; everything else is ready when New returns.
func New(configPath string) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	if cfg.LogFile != "" {
		logCfg.LogFile = cfg.LogFile
	}
	logCfg.Development = cfg.DebugLogging

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	registry, err := contracts.NewRegistry(
		cfg.Contracts.StableToken,
		cfg.Contracts.Vault,
		cfg.Contracts.Oracle,
		cfg.Contracts.Distributor,
	)
	if err != nil {
		return nil, err
	}

	collateral, err := parseCollateralList(cfg.CollateralList)
	if err != nil {
		return nil, err
	}

	pool, err := rpc.NewPool(cfg.RPCList, cfg.ChainID, cfg.RPCRetries,
		time.Duration(cfg.RPCDelayMs)*time.Millisecond, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("init rpc pool: %w", err)
	}

	reader := chain.NewReader(pool,
		time.Duration(cfg.CallTimeoutMs)*time.Millisecond, log.Logger)

	app := &App{
		cfg:        cfg,
		log:        log,
		pool:       pool,
		reader:     reader,
		registry:   registry,
		collateral: collateral,
		bus:        events.NewBus(log.Logger, cfg.EventBufferSize),
		enforcer:   network.NewEnforcer(cfg.ChainID, newHeadlessBridge(pool, log.Logger), log.Logger),
		vaultStats: fetch.NewVaultStatsFetcher(reader, registry.Vault, registry.Oracle, log.Logger),
		shutdownCh: make(chan os.Signal, 1),
	}

	if cfg.RewardsAPIURL != "" {
		app.rewards = rewards.NewClient(cfg.RewardsAPIURL, log.Logger)
	}

	if key := os.Getenv(walletKeyEnv); key != "" {
		signer, err := wallet.NewSignerFromHex(key)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("wallet key: %w", err)
		}
		app.signer = signer
		app.stableBalance = fetch.NewTokenBalanceFetcher(
			reader, registry.StableToken, signer.Address(), log.Logger)
		app.collateralBalances = fetch.NewCollateralBalancesFetcher(
			reader, collateral, signer.Address(), log.Logger)
		log.Info("Wallet loaded", zap.String("address", signer.Address().Hex()))
	} else {
		log.Info("No wallet key set, read-only mode")
	}

	app.subscribeRefresh()
	return app, nil
}

// parseCollateralList accepts "SYMBOL=0xaddress" entries.
func parseCollateralList(entries []string) ([]*contracts.Contract, error) {
	tokens := make([]*contracts.Contract, 0, len(entries))
	for _, entry := range entries {
		symbol, address, found := strings.Cut(entry, "=")
		if !found {
			return nil, fmt.Errorf("collateral entry %q: want SYMBOL=0xaddress", entry)
		}
		token, err := contracts.NewERC20(strings.TrimSpace(symbol), strings.TrimSpace(address))
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, nil
}

// subscribeRefresh refetches every cache when a transaction confirms or a
// flow asks for a refresh.
func (a *App) subscribeRefresh() {
	refetch := func(ctx context.Context, e events.Event) error {
		refreshCtx, cancel := context.WithTimeout(context.Background(), refetchTimeout)
		defer cancel()
		a.refetchAll(refreshCtx)
		return nil
	}
	a.bus.SubscribeFunc(events.TxConfirmed, refetch)
	a.bus.SubscribeFunc(events.RefreshRequested, refetch)
}

func (a *App) refetchAll(ctx context.Context) {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.vaultStats.Refetch(gCtx)
		return nil
	})
	if a.stableBalance != nil {
		g.Go(func() error {
			a.stableBalance.Refetch(gCtx)
			return nil
		})
	}
	if a.collateralBalances != nil {
		g.Go(func() error {
			a.collateralBalances.Refetch(gCtx)
			return nil
		})
	}
	_ = g.Wait()
}

// Run warms the caches and blocks until the context ends or a shutdown
// signal arrives.
func (a *App) Run(ctx context.Context) error {
	signal.Notify(a.shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	a.refetchAll(ctx)

	stats := a.vaultStats.Snapshot()
	if stats.Err != nil {
		a.log.Warn("Initial vault stats fetch failed", zap.Error(stats.Err))
	} else {
		a.log.Info("Vault stats",
			zap.Float64("collateral_ratio_pct", stats.Value.CollateralRatioPercent),
			zap.Float64("btc_price_usd", stats.Value.BTCPriceUSD),
			zap.Bool("healthy", stats.Value.IsHealthy))
	}

	select {
	case <-ctx.Done():
	case sig := <-a.shutdownCh:
		a.log.Info("Signal received", zap.String("signal", sig.String()))
	}
	return nil
}

// VaultStats returns the cached protocol state, fetching on first use.
func (a *App) VaultStats(ctx context.Context) fetch.Snapshot[fetch.VaultStats] {
	return a.vaultStats.Fetch(ctx)
}

// StableBalance returns the wallet's BTC1 balance.
func (a *App) StableBalance(ctx context.Context) (fetch.Snapshot[fetch.TokenBalance], error) {
	if a.stableBalance == nil {
		return fetch.Snapshot[fetch.TokenBalance]{}, fmt.Errorf("no wallet configured")
	}
	return a.stableBalance.Fetch(ctx), nil
}

// CollateralBalances returns the wallet's balance of every accepted
// collateral token.
func (a *App) CollateralBalances(ctx context.Context) (fetch.Snapshot[map[string]fetch.TokenBalance], error) {
	if a.collateralBalances == nil {
		return fetch.Snapshot[map[string]fetch.TokenBalance]{}, fmt.Errorf("no wallet configured")
	}
	return a.collateralBalances.Fetch(ctx), nil
}

// QuoteMint prices a mint of the given BTC amount against live vault state.
func (a *App) QuoteMint(ctx context.Context, amount string) (pricing.MintCalculation, error) {
	stats := a.vaultStats.Fetch(ctx)
	if !stats.HasValue {
		return pricing.MintCalculation{}, fmt.Errorf("vault stats unavailable: %w", stats.Err)
	}
	return pricing.MintQuote(amount, stats.Value.CollateralRatioPercent, stats.Value.BTCPriceUSD), nil
}

// QuoteRedeem prices a redemption of the given BTC1 amount.
func (a *App) QuoteRedeem(ctx context.Context, amount string) (pricing.RedeemCalculation, error) {
	stats := a.vaultStats.Fetch(ctx)
	if !stats.HasValue {
		return pricing.RedeemCalculation{}, fmt.Errorf("vault stats unavailable: %w", stats.Err)
	}
	return pricing.RedeemQuote(amount, stats.Value.CollateralRatioPercent, stats.Value.BTCPriceUSD), nil
}

// UnclaimedRewards lists the wallet's pending merkle entitlements.
func (a *App) UnclaimedRewards(ctx context.Context) ([]rewards.MerkleClaim, error) {
	if a.rewards == nil {
		return nil, fmt.Errorf("no rewards backend configured")
	}
	if a.signer == nil {
		return nil, fmt.Errorf("no wallet configured")
	}
	return a.rewards.Unclaimed(ctx, a.signer.Address().Hex())
}

// Service returns the transaction flow service, dialing the write endpoint
// on first use.
func (a *App) Service(ctx context.Context) (*protocol.Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.service != nil {
		return a.service, nil
	}
	if a.signer == nil {
		return nil, fmt.Errorf("no wallet configured: set %s", walletKeyEnv)
	}

	// Writes pin to the first endpoint; resubmitting through the failover
	// pool after an ambiguous failure risks a double spend.
	writer, err := protocol.NewWriter(ctx, a.cfg.RPCList[0], a.signer, a.log.Logger)
	if err != nil {
		return nil, err
	}

	a.writer = writer
	a.service = protocol.NewService(&protocol.ServiceConfig{
		Enforcer: a.enforcer,
		Sender:   writer,
		Registry: a.registry,
		Signer:   a.signer,
		Reader:   a.reader,
		Rewards:  a.rewards,
		Bus:      a.bus,
		ChainID:  a.cfg.ChainID,
		Logger:   a.log.Logger,
	})
	return a.service, nil
}

// CollateralToken resolves a configured collateral token by symbol.
func (a *App) CollateralToken(symbol string) (*contracts.Contract, error) {
	for _, token := range a.collateral {
		if strings.EqualFold(token.Name, symbol) {
			return token, nil
		}
	}
	return nil, fmt.Errorf("unknown collateral token %q", symbol)
}

// Shutdown flushes and releases every component.
func (a *App) Shutdown(ctx context.Context) {
	if err := a.bus.Shutdown(ctx); err != nil {
		a.log.Warn("Event bus shutdown", zap.Error(err))
	}

	a.mu.Lock()
	if a.writer != nil {
		a.writer.Close()
	}
	a.mu.Unlock()

	a.pool.Close()

	if err := a.log.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync logger: %v\n", err)
	}
}
