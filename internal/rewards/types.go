// internal/rewards/types.go
package rewards

import "time"

// MerkleClaim is one reward entitlement, provable against the distribution's
// published root and redeemable once on-chain.
type MerkleClaim struct {
	DistributionID uint64    `json:"distributionId"`
	Index          uint64    `json:"index"`
	Amount         string    `json:"amount"` // smallest-unit integer string
	Proof          []string  `json:"proof"`  // ordered 0x-prefixed hashes
	CreatedAt      time.Time `json:"createdAt"`
}

// Summary is a user's aggregate reward position as reported by the backend.
// On-chain state stays authoritative; this is display data.
type Summary struct {
	Address     string `json:"address"`
	TotalEarned string `json:"totalEarned"`
	Unclaimed   int    `json:"unclaimed"`
}

type distributionResponse struct {
	DistributionID uint64 `json:"distributionId"`
}

type claimsResponse struct {
	Claims []MerkleClaim `json:"claims"`
}

type markClaimedRequest struct {
	Address        string `json:"address"`
	DistributionID uint64 `json:"distributionId"`
	Index          uint64 `json:"index"`
	TxHash         string `json:"txHash"`
}
