package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/pwollemi/liquidator/deploy"
	"github.com/pwollemi/liquidator/deploy/contracts/liquidatorproxy"
	"github.com/pwollemi/liquidator/deploy/ledger"
)

var banner = strings.Repeat("*", 47)

// Deployed is the outcome of one executed migration.
type Deployed struct {
	Contract       string
	Address        common.Address
	Implementation common.Address
	TxHash         common.Hash
}

func (e *Env) execute(ctx context.Context, step Step) (Deployed, error) {
	if step.Pending {
		return Deployed{}, fmt.Errorf("%s: unresolved arguments", step.Contract)
	}
	if step.Proxied {
		return e.deployProxied(ctx, step)
	}

	bytecode, err := e.Artifacts.Bytecode(step.Contract)
	if err != nil {
		return Deployed{}, err
	}
	data := bytecode
	if step.constructor != nil {
		if data, err = step.constructor(bytecode); err != nil {
			return Deployed{}, fmt.Errorf("encode %s constructor: %w", step.Contract, err)
		}
	}
	addr, txHash, err := e.deployPlain(ctx, step.Contract, data, step.GasLimit)
	if err != nil {
		return Deployed{}, err
	}
	return Deployed{Contract: step.Contract, Address: addr, TxHash: txHash}, nil
}

func (e *Env) deployPlain(ctx context.Context, name string, data []byte, gasLimit uint64) (common.Address, common.Hash, error) {
	log := e.logger().With(zap.String("contract", name))
	log.Debug("deploying", zap.Uint64("gas_limit", gasLimit), zap.Int("size", len(data)))

	result, err := e.Chain.DeployContract(ctx, data, gasLimit)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("deploy %s: %w", name, err)
	}
	receipt, err := e.Chain.WaitForReceipt(ctx, result.TxHash)
	if err != nil {
		return common.Address{}, common.Hash{}, fmt.Errorf("wait %s: %w", name, err)
	}
	if err := deploy.CheckReceipt("deploy "+name, receipt); err != nil {
		return common.Address{}, common.Hash{}, err
	}

	addr := result.ContractAddress
	if receipt.ContractAddress != (common.Address{}) {
		addr = receipt.ContractAddress
	}
	code, err := e.Chain.CodeAt(ctx, addr)
	if err != nil {
		return common.Address{}, common.Hash{}, err
	}
	if len(code) == 0 {
		return common.Address{}, common.Hash{}, fmt.Errorf("deploy %s: no code at %s", name, addr.Hex())
	}
	log.Info("deployed", zap.String("address", addr.Hex()), zap.String("tx", result.TxHash.Hex()))
	return addr, result.TxHash, nil
}

// deployProxied deploys the implementation, a LiquidatorProxy pointing at
// it, then calls initialize through the proxy.
func (e *Env) deployProxied(ctx context.Context, step Step) (Deployed, error) {
	implCode, err := e.Artifacts.Bytecode(step.Contract)
	if err != nil {
		return Deployed{}, err
	}
	proxyCode, err := e.Artifacts.Bytecode(liquidatorproxy.Name())
	if err != nil {
		return Deployed{}, err
	}

	implAddr, _, err := e.deployPlain(ctx, step.Contract, implCode, step.GasLimit)
	if err != nil {
		return Deployed{}, err
	}

	proxyData, err := liquidatorproxy.CreationData(proxyCode, liquidatorproxy.ConstructorArgs{Implementation: implAddr})
	if err != nil {
		return Deployed{}, fmt.Errorf("encode %s proxy: %w", step.Contract, err)
	}
	proxyName := liquidatorproxy.Name() + "(" + step.Contract + ")"
	proxyAddr, proxyTx, err := e.deployPlain(ctx, proxyName, proxyData, e.gasLimit(liquidatorproxy.Name(), liquidatorproxy.GasLimit))
	if err != nil {
		return Deployed{}, err
	}

	txHash, err := e.Chain.Transact(ctx, proxyAddr, step.initData, step.InitGasLimit)
	if err != nil {
		return Deployed{}, fmt.Errorf("initialize %s: %w", step.Contract, err)
	}
	receipt, err := e.Chain.WaitForReceipt(ctx, txHash)
	if err != nil {
		return Deployed{}, fmt.Errorf("wait %s initialize: %w", step.Contract, err)
	}
	if err := deploy.CheckReceipt("initialize "+step.Contract, receipt); err != nil {
		return Deployed{}, err
	}
	e.logger().Info("initialized",
		zap.String("contract", step.Contract),
		zap.String("proxy", proxyAddr.Hex()),
		zap.String("tx", txHash.Hex()),
	)

	return Deployed{
		Contract:       step.Contract,
		Address:        proxyAddr,
		Implementation: implAddr,
		TxHash:         proxyTx,
	}, nil
}

func (e *Env) record(m Migration, d Deployed) (ledger.Record, error) {
	rec := ledger.Record{
		Network:   e.Network,
		Contract:  d.Contract,
		Address:   d.Address.Hex(),
		TxHash:    d.TxHash.Hex(),
		Migration: m.ID,
		RunID:     e.RunID,
	}
	if d.Implementation != (common.Address{}) {
		rec.Implementation = d.Implementation.Hex()
	}
	if err := e.Ledger.Put(rec); err != nil {
		return ledger.Record{}, fmt.Errorf("record %s: %w", d.Contract, err)
	}
	return e.Ledger.Get(e.Network, d.Contract)
}

func (e *Env) announce(d Deployed) {
	if e.Out == nil {
		return
	}
	fmt.Fprintln(e.Out, banner)
	fmt.Fprintf(e.Out, "%s address: %s\n", d.Contract, d.Address.Hex())
	fmt.Fprintln(e.Out, banner)
}
