// internal/wallet/permit.go
package wallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// EIP-2612 permit: a signed spend authorization the vault redeems in the same
// transaction as the mint, so the user never sends a separate approval.

var (
	eip712DomainTypehash = crypto.Keccak256Hash(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	permitTypehash = crypto.Keccak256Hash(
		[]byte("Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)"))
)

// PermitParams are the inputs of one EIP-2612 signature.
type PermitParams struct {
	TokenName string
	Version   string
	ChainID   *big.Int
	Token     common.Address // verifying contract
	Owner     common.Address
	Spender   common.Address
	Value     *big.Int
	Nonce     *big.Int
	Deadline  *big.Int
}

// PermitSignature is the (v, r, s) triple the vault's mintWithPermit expects.
type PermitSignature struct {
	V        uint8
	R        [32]byte
	S        [32]byte
	Deadline *big.Int
}

// PermitDigest computes the EIP-712 signing hash for the permit.
func PermitDigest(p PermitParams) common.Hash {
	domainSeparator := crypto.Keccak256Hash(
		eip712DomainTypehash.Bytes(),
		crypto.Keccak256([]byte(p.TokenName)),
		crypto.Keccak256([]byte(p.Version)),
		common.LeftPadBytes(p.ChainID.Bytes(), 32),
		common.LeftPadBytes(p.Token.Bytes(), 32),
	)

	structHash := crypto.Keccak256Hash(
		permitTypehash.Bytes(),
		common.LeftPadBytes(p.Owner.Bytes(), 32),
		common.LeftPadBytes(p.Spender.Bytes(), 32),
		common.LeftPadBytes(p.Value.Bytes(), 32),
		common.LeftPadBytes(p.Nonce.Bytes(), 32),
		common.LeftPadBytes(p.Deadline.Bytes(), 32),
	)

	return crypto.Keccak256Hash(
		[]byte{0x19, 0x01},
		domainSeparator.Bytes(),
		structHash.Bytes(),
	)
}

// SignPermit signs the permit digest with the local key.
func (s *Signer) SignPermit(p PermitParams) (PermitSignature, error) {
	if p.ChainID == nil || p.Value == nil || p.Nonce == nil || p.Deadline == nil {
		return PermitSignature{}, fmt.Errorf("permit: missing numeric parameter")
	}

	digest := PermitDigest(p)
	sig, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return PermitSignature{}, fmt.Errorf("sign permit: %w", err)
	}

	out := PermitSignature{
		V:        sig[64] + 27, // Ethereum recovery id offset
		Deadline: p.Deadline,
	}
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	return out, nil
}
