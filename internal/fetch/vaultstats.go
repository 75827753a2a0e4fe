// internal/fetch/vaultstats.go
package fetch

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
)

// On-chain fixed-point scales. The vault reports the collateral ratio as a
// percentage scaled by 1e2 (15000 = 150.00%); USD amounts carry 8 decimals.
const (
	ratioScale = 100
	usdScale   = 1e8
)

// VaultStats is the protocol-level state the pricing calculator consumes.
type VaultStats struct {
	CollateralRatioPercent  float64
	TotalCollateralValueUSD float64
	BTCPriceUSD             float64
	IsHealthy               bool
}

// VaultStatsFetcher caches the vault/oracle reads behind one batch call.
type VaultStatsFetcher struct {
	*Fetcher[VaultStats]
}

// NewVaultStatsFetcher batches the ratio, total collateral, oracle price and
// health reads. Individual slots degrade to zero values; the fetch only
// errors when every slot failed.
func NewVaultStatsFetcher(reader *chain.Reader, vault, oracle *contracts.Contract, logger *zap.Logger) *VaultStatsFetcher {
	fn := func(ctx context.Context) (VaultStats, error) {
		results := reader.BatchCall(ctx, []chain.ContractCall{
			{Contract: vault, Method: "getCurrentCollateralRatio"},
			{Contract: vault, Method: "getTotalCollateralAmount"},
			{Contract: oracle, Method: "getBTCPrice"},
			{Contract: vault, Method: "isHealthy"},
		})

		anyOk := false
		for _, r := range results {
			if r.Ok() {
				anyOk = true
				break
			}
		}
		if !anyOk {
			return VaultStats{}, fmt.Errorf("vault stats: %w", results[0].Err)
		}

		stats := VaultStats{
			CollateralRatioPercent:  scaledFloat(results[0], ratioScale),
			TotalCollateralValueUSD: scaledFloat(results[1], usdScale),
			BTCPriceUSD:             scaledFloat(results[2], usdScale),
		}
		if results[3].Ok() {
			if healthy, ok := results[3].Values[0].(bool); ok {
				stats.IsHealthy = healthy
			}
		}
		return stats, nil
	}

	return &VaultStatsFetcher{
		Fetcher: New("vault_stats", VaultStats{}, fn, logger),
	}
}

// scaledFloat converts a fixed-point uint256 slot to float64, zero on a
// failed slot.
func scaledFloat(r chain.Result, scale float64) float64 {
	if !r.Ok() {
		return 0
	}
	raw, ok := r.Values[0].(*big.Int)
	if !ok {
		return 0
	}
	value, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(scale)).Float64()
	return value
}
