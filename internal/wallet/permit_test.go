package wallet

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Throwaway key for signature tests.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testParams() PermitParams {
	return PermitParams{
		TokenName: "BTC1",
		Version:   "1",
		ChainID:   big.NewInt(8453),
		Token:     common.HexToAddress("0x4200000000000000000000000000000000000006"),
		Owner:     common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Spender:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Value:     big.NewInt(150000000),
		Nonce:     big.NewInt(0),
		Deadline:  big.NewInt(1900000000),
	}
}

func TestNewSignerFromHex(t *testing.T) {
	signer, err := NewSignerFromHex(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", signer.Address().Hex())

	withPrefix, err := NewSignerFromHex("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), withPrefix.Address())
}

func TestNewSignerFromHex_Invalid(t *testing.T) {
	_, err := NewSignerFromHex("not-a-key")
	assert.Error(t, err)
}

func TestPermitDigest_Deterministic(t *testing.T) {
	a := PermitDigest(testParams())
	b := PermitDigest(testParams())
	assert.Equal(t, a, b)

	changed := testParams()
	changed.Value = big.NewInt(1)
	assert.NotEqual(t, a, PermitDigest(changed), "digest must bind the value")

	changed = testParams()
	changed.Nonce = big.NewInt(1)
	assert.NotEqual(t, a, PermitDigest(changed), "digest must bind the nonce")

	changed = testParams()
	changed.ChainID = big.NewInt(1)
	assert.NotEqual(t, a, PermitDigest(changed), "digest must bind the chain")
}

func TestSignPermit_RecoversToSigner(t *testing.T) {
	signer, err := NewSignerFromHex(testKeyHex)
	require.NoError(t, err)

	params := testParams()
	params.Owner = signer.Address()

	sig, err := signer.SignPermit(params)
	require.NoError(t, err)
	assert.Contains(t, []uint8{27, 28}, sig.V)

	// Reassemble the 65-byte signature and recover the public key.
	raw := make([]byte, 65)
	copy(raw[:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.V - 27

	digest := PermitDigest(params)
	pub, err := crypto.SigToPub(digest.Bytes(), raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
}

func TestSignPermit_MissingParams(t *testing.T) {
	signer, err := NewSignerFromHex(testKeyHex)
	require.NoError(t, err)

	params := testParams()
	params.Deadline = nil
	_, err = signer.SignPermit(params)
	assert.Error(t, err)
}
