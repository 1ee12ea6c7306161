package deploy

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/lmittmann/w3"
	"github.com/lmittmann/w3/module/eth"
)

const DefaultPollInterval = 2 * time.Second

var (
	ErrChainIDMismatch = errors.New("chain id mismatch")
	ErrEmptyBytecode   = errors.New("empty bytecode")
)

type (
	DeployResult struct {
		TxHash          common.Hash
		ContractAddress common.Address
	}

	// GasOptions selects how transactions are priced. Dynamic fee
	// (EIP-1559) is used unless Legacy is set.
	GasOptions struct {
		Legacy    bool
		GasPrice  *big.Int
		GasFeeCap *big.Int
		GasTipCap *big.Int
	}

	Deployer struct {
		client  *w3.Client
		chainID int64
		signer  types.Signer
		key     *ecdsa.PrivateKey
		address common.Address
		gas     GasOptions
		poll    time.Duration
	}
)

func NewDeployer(rpcURL string, chainID int64, privateKey *ecdsa.PrivateKey, gas GasOptions) (*Deployer, error) {
	if privateKey == nil {
		return nil, errors.New("private key is required")
	}
	client, err := w3.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Deployer{
		client:  client,
		chainID: chainID,
		signer:  types.NewLondonSigner(big.NewInt(chainID)),
		key:     privateKey,
		address: crypto.PubkeyToAddress(privateKey.PublicKey),
		gas:     gas,
		poll:    DefaultPollInterval,
	}, nil
}

func (d *Deployer) Address() common.Address {
	return d.address
}

// SetPollInterval changes how often WaitForReceipt polls the node.
func (d *Deployer) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		d.poll = interval
	}
}

func (d *Deployer) Close() error {
	return d.client.Close()
}

func (d *Deployer) ChainID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := d.client.CallCtx(ctx, eth.ChainID().Returns(&id)); err != nil {
		return 0, fmt.Errorf("get chain id: %w", err)
	}
	return id, nil
}

// Verify checks that the node serves the chain the deployer signs for.
func (d *Deployer) Verify(ctx context.Context) error {
	id, err := d.ChainID(ctx)
	if err != nil {
		return err
	}
	if id != uint64(d.chainID) {
		return fmt.Errorf("%w: node reports %d, configured %d", ErrChainIDMismatch, id, d.chainID)
	}
	return nil
}

func (d *Deployer) CodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	var code []byte
	if err := d.client.CallCtx(ctx, eth.Code(addr, nil).Returns(&code)); err != nil {
		return nil, fmt.Errorf("get code %s: %w", addr.Hex(), err)
	}
	return code, nil
}

func (d *Deployer) getNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	if err := d.client.CallCtx(ctx, eth.Nonce(d.address, nil).Returns(&nonce)); err != nil {
		return 0, fmt.Errorf("get nonce: %w", err)
	}
	return nonce, nil
}

func (d *Deployer) gasPrice(ctx context.Context) (*big.Int, error) {
	if d.gas.GasPrice != nil && d.gas.GasPrice.Sign() > 0 {
		return d.gas.GasPrice, nil
	}
	price := new(big.Int)
	if err := d.client.CallCtx(ctx, eth.GasPrice().Returns(price)); err != nil {
		return nil, fmt.Errorf("get gas price: %w", err)
	}
	return price, nil
}

func (d *Deployer) newTx(ctx context.Context, nonce uint64, to *common.Address, data []byte, gasLimit uint64) (*types.Transaction, error) {
	if !d.gas.Legacy {
		return types.NewTx(&types.DynamicFeeTx{
			Nonce:     nonce,
			To:        to,
			GasFeeCap: d.gas.GasFeeCap,
			GasTipCap: d.gas.GasTipCap,
			Gas:       gasLimit,
			Data:      data,
		}), nil
	}

	price, err := d.gasPrice(ctx)
	if err != nil {
		return nil, err
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		GasPrice: price,
		Gas:      gasLimit,
		Data:     data,
	}), nil
}

func (d *Deployer) sendTx(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, d.signer, d.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	var txHash common.Hash
	if err := d.client.CallCtx(ctx, eth.SendTx(signedTx).Returns(&txHash)); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signedTx.Hash(), nil
}

// DeployContract sends a contract creation transaction. data is the
// creation bytecode with any ABI encoded constructor arguments appended.
func (d *Deployer) DeployContract(ctx context.Context, data []byte, gasLimit uint64) (DeployResult, error) {
	if len(data) == 0 {
		return DeployResult{}, ErrEmptyBytecode
	}

	nonce, err := d.getNonce(ctx)
	if err != nil {
		return DeployResult{}, err
	}

	contractAddr := crypto.CreateAddress(d.address, nonce)

	tx, err := d.newTx(ctx, nonce, nil, data, gasLimit)
	if err != nil {
		return DeployResult{}, err
	}

	txHash, err := d.sendTx(ctx, tx)
	if err != nil {
		return DeployResult{}, err
	}

	return DeployResult{
		TxHash:          txHash,
		ContractAddress: contractAddr,
	}, nil
}

func (d *Deployer) Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error) {
	nonce, err := d.getNonce(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := d.newTx(ctx, nonce, &to, data, gasLimit)
	if err != nil {
		return common.Hash{}, err
	}

	return d.sendTx(ctx, tx)
}

func (d *Deployer) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		receipt := new(types.Receipt)
		err := d.client.CallCtx(ctx, eth.TxReceipt(txHash).Returns(receipt))
		if err == nil && receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt %s: %w", txHash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// DecodeHex decodes a hex string with or without the 0x prefix.
func DecodeHex(hexStr string) ([]byte, error) {
	hexStr = strings.TrimSpace(hexStr)
	hexStr = strings.TrimPrefix(strings.TrimPrefix(hexStr, "0x"), "0X")
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}
