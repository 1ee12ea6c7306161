package migrate

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pwollemi/liquidator/deploy"
	"github.com/pwollemi/liquidator/deploy/config"
	"github.com/pwollemi/liquidator/deploy/ledger"
)

type sentTx struct {
	To       *common.Address
	Data     []byte
	GasLimit uint64
	Created  common.Address
}

// fakeChain mines every transaction instantly. revertAt makes the n-th
// transaction (1-based) fail.
type fakeChain struct {
	from     common.Address
	sent     []sentTx
	receipts map[common.Hash]*types.Receipt
	revertAt int
	sendErr  error
	codeless map[common.Address]bool
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		from:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		receipts: map[common.Hash]*types.Receipt{},
		codeless: map[common.Address]bool{},
	}
}

func (f *fakeChain) Address() common.Address { return f.from }

func (f *fakeChain) mine(tx sentTx) common.Hash {
	f.sent = append(f.sent, tx)
	n := len(f.sent)
	hash := common.BigToHash(big.NewInt(int64(n)))
	status := types.ReceiptStatusSuccessful
	if n == f.revertAt {
		status = types.ReceiptStatusFailed
	}
	f.receipts[hash] = &types.Receipt{Status: status, TxHash: hash, ContractAddress: tx.Created}
	return hash
}

func (f *fakeChain) DeployContract(_ context.Context, data []byte, gasLimit uint64) (deploy.DeployResult, error) {
	if f.sendErr != nil {
		return deploy.DeployResult{}, f.sendErr
	}
	addr := crypto.CreateAddress(f.from, uint64(len(f.sent)))
	hash := f.mine(sentTx{Data: append([]byte(nil), data...), GasLimit: gasLimit, Created: addr})
	return deploy.DeployResult{TxHash: hash, ContractAddress: addr}, nil
}

func (f *fakeChain) Transact(_ context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	return f.mine(sentTx{To: &to, Data: append([]byte(nil), data...), GasLimit: gasLimit}), nil
}

func (f *fakeChain) WaitForReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	r, ok := f.receipts[txHash]
	if !ok {
		return nil, errors.New("unknown tx")
	}
	return r, nil
}

func (f *fakeChain) CodeAt(_ context.Context, addr common.Address) ([]byte, error) {
	if f.codeless[addr] {
		return nil, nil
	}
	return []byte{0x00}, nil
}

type fakeArtifacts map[string][]byte

func (f fakeArtifacts) Bytecode(name string) ([]byte, error) {
	code, ok := f[name]
	if !ok {
		return nil, errors.New("no artifact " + name)
	}
	return append([]byte(nil), code...), nil
}

func testArtifacts() fakeArtifacts {
	return fakeArtifacts{
		"SwapWrapper":      {0x60, 0x01},
		"LiquidatorProxy":  {0x60, 0x02},
		"SwapRepayTool":    {0x60, 0x03},
		"LiquidateWrapper": {0x60, 0x04},
		"Liquidator":       {0x60, 0x05},
	}
}

func testAddresses() config.Addresses {
	return config.Addresses{
		Governance: "0x1111111111111111111111111111111111111111",
		Factory:    "0x2222222222222222222222222222222222222222",
		Router:     "0x3333333333333333333333333333333333333333",
		CEther:     "0x4444444444444444444444444444444444444444",
		HUSD:       "0x5555555555555555555555555555555555555555",
		USDT:       "0x6666666666666666666666666666666666666666",
	}
}

func newTestEnv(t *testing.T, chain *fakeChain) *Env {
	t.Helper()
	l, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	return &Env{
		Network:   "heco",
		Chain:     chain,
		Artifacts: testArtifacts(),
		Ledger:    l,
		Addresses: testAddresses(),
		Log:       zaptest.NewLogger(t),
		RunID:     "test-run",
	}
}
