// internal/chain/contracts/contracts.go
package contracts

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ABI definitions for the protocol surface this client reads and writes.
// Only the methods the client actually calls are declared.

const ERC20ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"name":"symbol","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"name":"nonces","type":"function","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const VaultABI = `[
	{"name":"getCurrentCollateralRatio","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"getTotalCollateralAmount","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"isHealthy","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"name":"mintWithPermit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"collateralAmount","type":"uint256"},{"name":"deadline","type":"uint256"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]},
	{"name":"redeem","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]}
]`

const OracleABI = `[
	{"name":"getBTCPrice","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const DistributorABI = `[
	{"name":"currentDistributionId","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"isClaimed","type":"function","stateMutability":"view","inputs":[{"name":"distributionId","type":"uint256"},{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"claim","type":"function","stateMutability":"nonpayable","inputs":[{"name":"distributionId","type":"uint256"},{"name":"index","type":"uint256"},{"name":"account","type":"address"},{"name":"amount","type":"uint256"},{"name":"proof","type":"bytes32[]"}],"outputs":[]}
]`

// Contract pairs a parsed ABI with its deployed address.
type Contract struct {
	Name    string
	Address common.Address
	ABI     abi.ABI
}

// New parses abiJSON and binds it to address.
func New(name, address, abiJSON string) (*Contract, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("contract %s: invalid address %q", name, address)
	}
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("contract %s: parse abi: %w", name, err)
	}
	return &Contract{
		Name:    name,
		Address: common.HexToAddress(address),
		ABI:     parsed,
	}, nil
}

// NewERC20 binds the ERC20 ABI to a token address.
func NewERC20(symbol, address string) (*Contract, error) {
	return New(symbol, address, ERC20ABI)
}

// Registry holds the bound protocol contracts for one chain.
type Registry struct {
	StableToken *Contract
	Vault       *Contract
	Oracle      *Contract
	Distributor *Contract // nil when rewards are not configured
}

// NewRegistry binds every configured protocol contract.
func NewRegistry(stableToken, vault, oracle, distributor string) (*Registry, error) {
	st, err := New("BTC1", stableToken, ERC20ABI)
	if err != nil {
		return nil, err
	}
	v, err := New("Vault", vault, VaultABI)
	if err != nil {
		return nil, err
	}
	o, err := New("Oracle", oracle, OracleABI)
	if err != nil {
		return nil, err
	}

	reg := &Registry{StableToken: st, Vault: v, Oracle: o}
	if distributor != "" {
		d, err := New("Distributor", distributor, DistributorABI)
		if err != nil {
			return nil, err
		}
		reg.Distributor = d
	}
	return reg, nil
}
