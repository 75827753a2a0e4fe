// internal/wallet/wallet.go
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds a local key for transaction and permit signing. Hosted wallet
// apps replace this behind the same call sites; the local signer exists for
// the CLI and for tests.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSignerFromHex parses a hex private key, with or without the 0x prefix.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the signer's account address.
func (s *Signer) Address() common.Address {
	return s.address
}

// Key exposes the raw key for go-ethereum's keyed transactor.
func (s *Signer) Key() *ecdsa.PrivateKey {
	return s.key
}
