package deploy

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well known hardhat/anvil account #0.
const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestDecodeHex(t *testing.T) {
	for _, in := range []string{"0x6080", "6080", " 0X6080 "} {
		b, err := DecodeHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, []byte{0x60, 0x80}, b)
	}

	_, err := DecodeHex("0xzz")
	assert.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	_, addr, err := ParsePrivateKey("0x" + testKey)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), addr)

	_, _, err = ParsePrivateKey("not-a-key")
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" " + testAddress + " ")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), addr)

	_, err = ParseAddress("0x")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestRequireAddress(t *testing.T) {
	assert.ErrorIs(t, RequireAddress("governance", common.Address{}), ErrZeroAddress)
	assert.NoError(t, RequireAddress("governance", common.HexToAddress(testAddress)))
}

func TestCheckReceipt(t *testing.T) {
	ok := &types.Receipt{Status: types.ReceiptStatusSuccessful}
	assert.NoError(t, CheckReceipt("deploy SwapWrapper", ok))

	failed := &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: common.HexToHash("0x01")}
	err := CheckReceipt("deploy SwapWrapper", failed)
	require.ErrorIs(t, err, ErrReverted)
	assert.Contains(t, err.Error(), "deploy SwapWrapper")

	assert.Error(t, CheckReceipt("deploy SwapWrapper", nil))
}

func TestDeployerDialFailsWithoutKey(t *testing.T) {
	_, err := NewDeployer("http://127.0.0.1:8545", 128, nil, GasOptions{})
	assert.Error(t, err)
}
