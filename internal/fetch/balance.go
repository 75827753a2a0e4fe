// internal/fetch/balance.go
package fetch

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain"
	"github.com/btc1labs/btc1-client/internal/chain/contracts"
)

// DefaultTokenDecimals is assumed when the decimals() read fails; every token
// this protocol touches uses 8 (Bitcoin-style) except where decimals() says
// otherwise.
const DefaultTokenDecimals uint8 = 8

// TokenBalance is one holder's balance of one token.
type TokenBalance struct {
	Symbol    string
	Address   common.Address
	Raw       string // smallest-unit integer
	Formatted string
	Decimals  uint8
	Err       error // per-token annotation inside batch results
}

// TokenBalanceFetcher caches a single token balance. The BTC1 stablecoin
// balance is this fetcher pointed at the stable token address.
type TokenBalanceFetcher struct {
	*Fetcher[TokenBalance]
}

// NewTokenBalanceFetcher reads balanceOf and decimals in one batch.
func NewTokenBalanceFetcher(reader *chain.Reader, token *contracts.Contract, holder common.Address, logger *zap.Logger) *TokenBalanceFetcher {
	zero := TokenBalance{
		Symbol:    token.Name,
		Address:   token.Address,
		Raw:       "0",
		Formatted: "0",
		Decimals:  DefaultTokenDecimals,
	}

	fn := balanceFetchFunc(reader, token, holder)
	return &TokenBalanceFetcher{
		Fetcher: New("balance_"+token.Name, zero, fn, logger),
	}
}

// RekeyHolder repoints the fetcher at a different holder address.
func (f *TokenBalanceFetcher) RekeyHolder(reader *chain.Reader, token *contracts.Contract, holder common.Address) {
	f.Rekey(balanceFetchFunc(reader, token, holder))
}

func balanceFetchFunc(reader *chain.Reader, token *contracts.Contract, holder common.Address) FetchFunc[TokenBalance] {
	return func(ctx context.Context) (TokenBalance, error) {
		results := reader.BatchCall(ctx, []chain.ContractCall{
			{Contract: token, Method: "balanceOf", Args: []interface{}{holder}},
			{Contract: token, Method: "decimals"},
		})

		balance, err := decodeBalance(token, results[0], results[1])
		if err != nil {
			return TokenBalance{}, err
		}
		return balance, nil
	}
}

// decodeBalance folds a balanceOf/decimals result pair into a TokenBalance.
// The balance read is mandatory; a failed decimals read falls back to the
// protocol default.
func decodeBalance(token *contracts.Contract, balRes, decRes chain.Result) (TokenBalance, error) {
	if !balRes.Ok() {
		return TokenBalance{}, fmt.Errorf("balanceOf %s: %w", token.Name, balRes.Err)
	}

	raw, ok := balRes.Values[0].(*big.Int)
	if !ok {
		return TokenBalance{}, fmt.Errorf("balanceOf %s: unexpected type %T", token.Name, balRes.Values[0])
	}

	decimals := DefaultTokenDecimals
	if decRes.Ok() {
		if d, ok := decRes.Values[0].(uint8); ok {
			decimals = d
		}
	}

	return TokenBalance{
		Symbol:    token.Name,
		Address:   token.Address,
		Raw:       raw.String(),
		Formatted: FormatUnits(raw, decimals),
		Decimals:  decimals,
	}, nil
}
