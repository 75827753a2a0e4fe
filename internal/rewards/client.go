// internal/rewards/client.go
package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetryCount = 3
)

// Client talks to the rewards data service: distribution ids, unclaimed
// merkle entitlements and earned totals.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount)

	return &Client{
		http:   http,
		logger: logger.Named("rewards_client"),
	}
}

// CurrentDistribution returns the id of the latest published distribution.
func (c *Client) CurrentDistribution(ctx context.Context) (uint64, error) {
	var out distributionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/distributions/current")
	if err != nil {
		return 0, fmt.Errorf("current distribution: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("current distribution: status %d", resp.StatusCode())
	}
	return out.DistributionID, nil
}

// Unclaimed returns the user's unredeemed entitlements across all
// distributions.
func (c *Client) Unclaimed(ctx context.Context, address string) ([]MerkleClaim, error) {
	var out claimsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&out).
		Get("/claims/{address}/unclaimed")
	if err != nil {
		return nil, fmt.Errorf("unclaimed entitlements: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unclaimed entitlements: status %d", resp.StatusCode())
	}
	return out.Claims, nil
}

// TotalEarned returns the user's lifetime reward total.
func (c *Client) TotalEarned(ctx context.Context, address string) (Summary, error) {
	var out Summary
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("address", address).
		SetResult(&out).
		Get("/claims/{address}/summary")
	if err != nil {
		return Summary{}, fmt.Errorf("rewards summary: %w", err)
	}
	if resp.IsError() {
		return Summary{}, fmt.Errorf("rewards summary: status %d", resp.StatusCode())
	}
	return out, nil
}

// MarkClaimed tells the backend a claim was confirmed on-chain. Best effort:
// the chain is authoritative and the backend re-syncs on its own, so a
// failure here is logged and swallowed.
func (c *Client) MarkClaimed(ctx context.Context, address string, distributionID, index uint64, txHash string) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(markClaimedRequest{
			Address:        address,
			DistributionID: distributionID,
			Index:          index,
			TxHash:         txHash,
		}).
		Post("/claims/mark-claimed")

	if err != nil {
		c.logger.Warn("Failed to sync claim status with backend",
			zap.String("address", address),
			zap.Uint64("distribution_id", distributionID),
			zap.Error(err))
		return
	}
	if resp.IsError() {
		c.logger.Warn("Backend rejected claim status sync",
			zap.String("address", address),
			zap.Uint64("distribution_id", distributionID),
			zap.Int("status", resp.StatusCode()))
	}
}
