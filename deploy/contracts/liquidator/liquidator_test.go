package liquidator

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwollemi/liquidator/deploy"
)

func TestEncodeInit(t *testing.T) {
	args := InitArgs{
		Governance:       common.HexToAddress("0x1000000000000000000000000000000000000001"),
		LiquidateWrapper: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		HUSD:             common.HexToAddress("0x3000000000000000000000000000000000000003"),
		USDT:             common.HexToAddress("0x4000000000000000000000000000000000000004"),
	}

	data, err := EncodeInit(args)
	require.NoError(t, err)
	require.Len(t, data, 4+4*32)
	assert.Equal(t, crypto.Keccak256([]byte("initialize(address,address,address,address)"))[:4], data[:4])
	assert.Equal(t, common.LeftPadBytes(args.LiquidateWrapper.Bytes(), 32), data[36:68])
	assert.Equal(t, common.LeftPadBytes(args.USDT.Bytes(), 32), data[100:132])
}

func TestEncodeInitMissingUSDT(t *testing.T) {
	args := InitArgs{
		Governance:       common.HexToAddress("0x01"),
		LiquidateWrapper: common.HexToAddress("0x02"),
		HUSD:             common.HexToAddress("0x03"),
	}
	_, err := EncodeInit(args)
	require.ErrorIs(t, err, deploy.ErrZeroAddress)
	assert.Contains(t, err.Error(), "usdt")
}
