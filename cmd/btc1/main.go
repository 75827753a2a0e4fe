// cmd/btc1/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/btc1labs/btc1-client/internal/app"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := app.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "btc1: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		client.Shutdown(shutdownCtx)
	}()

	args := flag.Args()
	command := "run"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	if err := dispatch(ctx, client, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "btc1 %s: %v\n", command, err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, client *app.App, command string, args []string) error {
	switch command {
	case "run":
		return client.Run(ctx)

	case "stats":
		stats := client.VaultStats(ctx)
		if !stats.HasValue {
			return stats.Err
		}
		fmt.Printf("collateral ratio: %.2f%%\n", stats.Value.CollateralRatioPercent)
		fmt.Printf("total collateral: $%.2f\n", stats.Value.TotalCollateralValueUSD)
		fmt.Printf("BTC price:        $%.2f\n", stats.Value.BTCPriceUSD)
		fmt.Printf("healthy:          %t\n", stats.Value.IsHealthy)
		return nil

	case "balances":
		stable, err := client.StableBalance(ctx)
		if err != nil {
			return err
		}
		if stable.Err != nil && !stable.HasValue {
			return stable.Err
		}
		fmt.Printf("%s: %s\n", stable.Value.Symbol, stable.Value.Formatted)

		collateral, err := client.CollateralBalances(ctx)
		if err != nil {
			return err
		}
		for symbol, balance := range collateral.Value {
			if balance.Err != nil {
				fmt.Printf("%s: unavailable\n", symbol)
				continue
			}
			fmt.Printf("%s: %s\n", symbol, balance.Formatted)
		}
		return nil

	case "quote-mint":
		if len(args) != 1 {
			return fmt.Errorf("usage: quote-mint <btc-amount>")
		}
		quote, err := client.QuoteMint(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("mint price: $%.2f\n", quote.MintPrice)
		fmt.Printf("output:     %s BTC1\n", quote.OutputAmount)
		fmt.Printf("dev fee:    %s BTC1\n", quote.DevFee)
		fmt.Printf("endowment:  %s BTC1\n", quote.EndowmentFee)
		fmt.Printf("total:      %s BTC1\n", quote.TotalToMint)
		return nil

	case "quote-redeem":
		if len(args) != 1 {
			return fmt.Errorf("usage: quote-redeem <btc1-amount>")
		}
		quote, err := client.QuoteRedeem(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("redeem type:    %s\n", quote.RedeemType)
		fmt.Printf("collateral out: %s BTC\n", quote.CollateralOut)
		fmt.Printf("dev fee:        %s BTC\n", quote.DevFee)
		fmt.Printf("net:            %s BTC\n", quote.NetAmount)
		return nil

	case "mint":
		if len(args) != 2 {
			return fmt.Errorf("usage: mint <collateral-symbol> <amount>")
		}
		token, err := client.CollateralToken(args[0])
		if err != nil {
			return err
		}
		svc, err := client.Service(ctx)
		if err != nil {
			return err
		}
		txHash, flowErr := svc.Mint(ctx, token, args[1])
		if flowErr != nil {
			return flowErr
		}
		fmt.Printf("minted, tx %s\n", txHash)
		return nil

	case "redeem":
		if len(args) != 1 {
			return fmt.Errorf("usage: redeem <btc1-amount>")
		}
		svc, err := client.Service(ctx)
		if err != nil {
			return err
		}
		txHash, flowErr := svc.Redeem(ctx, args[0])
		if flowErr != nil {
			return flowErr
		}
		fmt.Printf("redeemed, tx %s\n", txHash)
		return nil

	case "rewards":
		claims, err := client.UnclaimedRewards(ctx)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			fmt.Println("no unclaimed rewards")
			return nil
		}
		for _, claim := range claims {
			fmt.Printf("distribution %d index %d: %s\n",
				claim.DistributionID, claim.Index, claim.Amount)
		}
		return nil

	case "claim":
		claims, err := client.UnclaimedRewards(ctx)
		if err != nil {
			return err
		}
		if len(claims) == 0 {
			fmt.Println("no unclaimed rewards")
			return nil
		}
		svc, err := client.Service(ctx)
		if err != nil {
			return err
		}
		for _, claim := range claims {
			txHash, flowErr := svc.Claim(ctx, claim)
			if flowErr != nil {
				return flowErr
			}
			fmt.Printf("claimed distribution %d index %d, tx %s\n",
				claim.DistributionID, claim.Index, txHash)
		}
		return nil

	default:
		return fmt.Errorf("unknown command (want run, stats, balances, quote-mint, quote-redeem, mint, redeem, rewards or claim)")
	}
}
