package migrate

import (
	"fmt"
	"strings"

	"github.com/pwollemi/liquidator/deploy/contracts/liquidatewrapper"
	"github.com/pwollemi/liquidator/deploy/contracts/liquidator"
	"github.com/pwollemi/liquidator/deploy/contracts/swaprepaytool"
	"github.com/pwollemi/liquidator/deploy/contracts/swapwrapper"
)

// Migration is one numbered deployment procedure.
type Migration struct {
	ID       int
	Name     string
	Contract string
	build    func(r *resolver) (Step, error)
}

// Step is a resolved migration, ready to be sent.
type Step struct {
	Contract string
	Proxied  bool
	Args     []Arg
	// Pending is set when an argument depends on a migration that has not
	// run yet. Pending steps carry no encoded data.
	Pending bool

	GasLimit     uint64
	InitGasLimit uint64

	initData    []byte
	constructor func(bytecode []byte) ([]byte, error)
}

// All returns the migrations in execution order.
func All() []Migration {
	return []Migration{
		{ID: 1, Name: "swapwrapper", Contract: swapwrapper.Name(), build: buildSwapWrapper},
		{ID: 2, Name: "swaprepaytool", Contract: swaprepaytool.Name(), build: buildSwapRepayTool},
		{ID: 3, Name: "liquidatewrapper", Contract: liquidatewrapper.Name(), build: buildLiquidateWrapper},
		{ID: 4, Name: "liquidator", Contract: liquidator.Name(), build: buildLiquidator},
	}
}

// Lookup finds a migration by name, contract name or id.
func Lookup(key string) (Migration, error) {
	key = strings.TrimSpace(key)
	for _, m := range All() {
		if strings.EqualFold(key, m.Name) || strings.EqualFold(key, m.Contract) || key == fmt.Sprint(m.ID) {
			return m, nil
		}
	}
	return Migration{}, fmt.Errorf("unknown migration %q", key)
}

func buildSwapWrapper(r *resolver) (Step, error) {
	a := r.env.Addresses
	args := swapwrapper.InitArgs{
		Governance: r.address("governance", a.Governance, ""),
		Factory:    r.address("factory", a.Factory, ""),
		Router:     r.address("router", a.Router, ""),
	}
	return r.proxied(swapwrapper.Name(), swapwrapper.ImplGasLimit, swapwrapper.InitGasLimit, func() ([]byte, error) {
		return swapwrapper.EncodeInit(args)
	})
}

func buildSwapRepayTool(r *resolver) (Step, error) {
	args := swaprepaytool.ConstructorArgs{
		SwapWrapper: r.address("swapWrapper", r.env.Addresses.SwapWrapper, swapwrapper.Name()),
	}
	if err := r.err(); err != nil {
		return Step{}, err
	}
	step := Step{
		Contract: swaprepaytool.Name(),
		Args:     r.args,
		Pending:  r.pending,
		GasLimit: r.env.gasLimit(swaprepaytool.Name(), swaprepaytool.GasLimit),
	}
	if r.pending {
		return step, nil
	}
	if err := args.Validate(); err != nil {
		return Step{}, err
	}
	step.constructor = func(bytecode []byte) ([]byte, error) {
		return swaprepaytool.CreationData(bytecode, args)
	}
	return step, nil
}

func buildLiquidateWrapper(r *resolver) (Step, error) {
	a := r.env.Addresses
	args := liquidatewrapper.InitArgs{
		Governance:  r.address("governance", a.Governance, ""),
		SwapWrapper: r.address("swapWrapper", a.SwapWrapper, swapwrapper.Name()),
		CEther:      r.address("cEther", a.CEther, ""),
	}
	return r.proxied(liquidatewrapper.Name(), liquidatewrapper.ImplGasLimit, liquidatewrapper.InitGasLimit, func() ([]byte, error) {
		return liquidatewrapper.EncodeInit(args)
	})
}

func buildLiquidator(r *resolver) (Step, error) {
	a := r.env.Addresses
	args := liquidator.InitArgs{
		Governance:       r.address("governance", a.Governance, ""),
		LiquidateWrapper: r.address("liquidateWrapper", a.LiquidateWrapper, liquidatewrapper.Name()),
		HUSD:             r.address("husd", a.HUSD, ""),
		USDT:             r.address("usdt", a.USDT, ""),
	}
	return r.proxied(liquidator.Name(), liquidator.ImplGasLimit, liquidator.InitGasLimit, func() ([]byte, error) {
		return liquidator.EncodeInit(args)
	})
}

func (r *resolver) proxied(contract string, implGas, initGas uint64, encode func() ([]byte, error)) (Step, error) {
	if err := r.err(); err != nil {
		return Step{}, err
	}
	step := Step{
		Contract:     contract,
		Proxied:      true,
		Args:         r.args,
		Pending:      r.pending,
		GasLimit:     r.env.gasLimit(contract, implGas),
		InitGasLimit: r.env.gasLimit(contract+".initialize", initGas),
	}
	if r.pending {
		return step, nil
	}
	data, err := encode()
	if err != nil {
		return Step{}, fmt.Errorf("encode %s initialize: %w", contract, err)
	}
	step.initData = data
	return step, nil
}
