// internal/protocol/writer.go
package protocol

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/btc1labs/btc1-client/internal/chain/contracts"
	"github.com/btc1labs/btc1-client/internal/wallet"
)

// TxSender submits one contract write and waits for it to mine. Abstracted so
// flows can be exercised against fakes; Writer is the live implementation.
type TxSender interface {
	Send(ctx context.Context, contract *contracts.Contract, method string, args ...interface{}) (txHash string, err error)
}

// Writer signs and submits transactions through a single dedicated endpoint.
// Writes do not go through the failover pool: resubmitting a transaction to a
// second endpoint after an ambiguous failure risks a double spend.
type Writer struct {
	client *ethclient.Client
	opts   *bind.TransactOpts
	logger *zap.Logger
}

// NewWriter dials rpcURL and prepares a keyed transactor for signer.
func NewWriter(ctx context.Context, rpcURL string, signer *wallet.Signer, logger *zap.Logger) (*Writer, error) {
	cli, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(signer.Key(), chainID)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("transactor: %w", err)
	}
	opts.GasLimit = 0 // let the node estimate

	return &Writer{
		client: cli,
		opts:   opts,
		logger: logger.Named("writer"),
	}, nil
}

// Send submits the write and blocks until it is mined or ctx expires.
func (w *Writer) Send(ctx context.Context, contract *contracts.Contract, method string, args ...interface{}) (string, error) {
	bound := bind.NewBoundContract(contract.Address, contract.ABI, w.client, w.client, w.client)

	opts := *w.opts
	opts.Context = ctx

	tx, err := bound.Transact(&opts, method, args...)
	if err != nil {
		return "", fmt.Errorf("%s.%s: %w", contract.Name, method, err)
	}

	w.logger.Info("Transaction submitted",
		zap.String("contract", contract.Name),
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()))

	receipt, err := bind.WaitMined(ctx, w.client, tx)
	if err != nil {
		return tx.Hash().Hex(), fmt.Errorf("wait mined %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status == 0 {
		return tx.Hash().Hex(), fmt.Errorf("execution reverted: tx %s", tx.Hash().Hex())
	}

	return tx.Hash().Hex(), nil
}

// Close releases the underlying RPC connection.
func (w *Writer) Close() {
	w.client.Close()
}
