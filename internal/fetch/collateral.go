// internal/fetch/collateral.go
package fetch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
)

// CollateralBalancesFetcher reads the holder's balance of every accepted
// collateral token in a single batch. A failed token is annotated in place so
// the rest of the set still renders.
type CollateralBalancesFetcher struct {
	*Fetcher[map[string]TokenBalance]
}

// NewCollateralBalancesFetcher batches balanceOf+decimals per token.
func NewCollateralBalancesFetcher(reader *chain.Reader, tokens []*contracts.Contract, holder common.Address, logger *zap.Logger) *CollateralBalancesFetcher {
	fn := func(ctx context.Context) (map[string]TokenBalance, error) {
		calls := make([]chain.ContractCall, 0, len(tokens)*2)
		for _, token := range tokens {
			calls = append(calls,
				chain.ContractCall{Contract: token, Method: "balanceOf", Args: []interface{}{holder}},
				chain.ContractCall{Contract: token, Method: "decimals"},
			)
		}

		results := reader.BatchCall(ctx, calls)

		balances := make(map[string]TokenBalance, len(tokens))
		failures := 0
		for i, token := range tokens {
			balance, err := decodeBalance(token, results[2*i], results[2*i+1])
			if err != nil {
				failures++
				balances[token.Name] = TokenBalance{
					Symbol:    token.Name,
					Address:   token.Address,
					Raw:       "0",
					Formatted: "0",
					Decimals:  DefaultTokenDecimals,
					Err:       err,
				}
				continue
			}
			balances[token.Name] = balance
		}

		if failures == len(tokens) && len(tokens) > 0 {
			return nil, fmt.Errorf("all %d collateral balance reads failed", len(tokens))
		}
		return balances, nil
	}

	return &CollateralBalancesFetcher{
		Fetcher: New("collateral_balances", map[string]TokenBalance{}, fn, logger),
	}
}
