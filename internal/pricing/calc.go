// =============================
// File: internal/pricing/calc.go
// =============================

package pricing

import (
	"fmt"
	"math"
	"strconv"
)

const (
	// MintPriceFloor is the minimum collateralization the protocol charges
	// for newly minted stablecoins, regardless of the live ratio.
	MintPriceFloor = 1.20

	// RedeemRatioFloor is the stress threshold: redemptions below this
	// collateralization level pay out at a penalty multiplier.
	RedeemRatioFloor = 1.10

	// StressMultiplier discounts the USD value of a stress redemption to
	// protect the remaining collateral pool.
	StressMultiplier = 0.90

	mintFeePercent   = 1.0 // dev and endowment fee, each, % of base output
	redeemFeePercent = 0.1 // dev fee, % of collateral out
)

// RedeemType distinguishes the stable (1:1) and stress (penalized) branches.
type RedeemType string

const (
	RedeemStable RedeemType = "stable"
	RedeemStress RedeemType = "stress"
)

// MintCalculation is the quoted outcome of minting against a collateral
// deposit. All amounts are formatted to 2 decimal places.
type MintCalculation struct {
	OutputAmount string
	DevFee       string
	EndowmentFee string
	TotalToMint  string
	MintPrice    float64
}

// RedeemCalculation is the quoted outcome of burning stablecoins for
// collateral. Amounts use 8 decimal places (Bitcoin-style precision).
type RedeemCalculation struct {
	CollateralOut string
	DevFee        string
	NetAmount     string
	RedeemType    RedeemType
}

// PriceQuote carries the derived pricing inputs for the current vault state.
type PriceQuote struct {
	MintPrice              float64
	BTCPrice               float64
	CollateralRatioPercent float64
}

// QuoteFromVaultStats derives the effective mint price from the live
// collateral ratio and oracle BTC price.
func QuoteFromVaultStats(collateralRatioPercent, btcPriceUSD float64) PriceQuote {
	return PriceQuote{
		MintPrice:              math.Max(collateralRatioPercent/100, MintPriceFloor),
		BTCPrice:               btcPriceUSD,
		CollateralRatioPercent: collateralRatioPercent,
	}
}

// MintQuote computes the stablecoin output for a BTC collateral deposit.
//
// Invalid or non-positive amounts quote as zero rather than erroring; the
// caller is expected to gate submission, not to branch on a failure here.
func MintQuote(amount string, collateralRatioPercent, btcPriceUSD float64) MintCalculation {
	mintPrice := math.Max(collateralRatioPercent/100, MintPriceFloor)

	value, ok := parseAmount(amount)
	if !ok || btcPriceUSD <= 0 {
		return MintCalculation{
			OutputAmount: "0.00",
			DevFee:       "0.00",
			EndowmentFee: "0.00",
			TotalToMint:  "0.00",
			MintPrice:    mintPrice,
		}
	}

	usdValue := value * btcPriceUSD
	base := usdValue / mintPrice
	fee := base * (mintFeePercent / 100.0)
	total := base + 2*fee

	return MintCalculation{
		OutputAmount: format2(base),
		DevFee:       format2(fee),
		EndowmentFee: format2(fee),
		TotalToMint:  format2(total),
		MintPrice:    mintPrice,
	}
}

// RedeemQuote computes the collateral payout for burning stablecoins.
//
// The ratio is clamped to RedeemRatioFloor before the stress comparison, so
// the stress branch cannot trigger here. The upstream protocol client ships
// the same clamp-then-compare order; it is reproduced as the contract rather
// than fixed, since the on-chain redemption path is authoritative either way.
func RedeemQuote(amount string, collateralRatioPercent, btcPriceUSD float64) RedeemCalculation {
	value, ok := parseAmount(amount)
	if !ok || btcPriceUSD <= 0 {
		return RedeemCalculation{
			CollateralOut: "0.00000000",
			DevFee:        "0.00000000",
			NetAmount:     "0.00000000",
			RedeemType:    RedeemStable,
		}
	}

	ratio := math.Max(collateralRatioPercent/100, RedeemRatioFloor)

	redeemType := RedeemStable
	usdValue := value
	if ratio < RedeemRatioFloor {
		redeemType = RedeemStress
		usdValue = stressUSDValue(value, ratio)
	}

	collateralOut := usdValue / btcPriceUSD
	devFee := collateralOut * (redeemFeePercent / 100.0)
	net := collateralOut - devFee

	return RedeemCalculation{
		CollateralOut: format8(collateralOut),
		DevFee:        format8(devFee),
		NetAmount:     format8(net),
		RedeemType:    redeemType,
	}
}

// stressUSDValue applies the below-floor penalty multiplier.
func stressUSDValue(amount, ratio float64) float64 {
	return amount * ratio * StressMultiplier
}

func parseAmount(amount string) (float64, bool) {
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return 0, false
	}
	return value, true
}

func format2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func format8(v float64) string {
	return fmt.Sprintf("%.8f", v)
}
