package swaprepaytool

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pwollemi/liquidator/deploy"
)

const (
	name     = "SwapRepayTool"
	GasLimit = 3_000_000
)

var constructorArgs = abi.Arguments{{Name: "_swapWrapper", Type: mustType("address")}}

type ConstructorArgs struct {
	SwapWrapper common.Address
}

func Name() string { return name }

func (a ConstructorArgs) Validate() error {
	return deploy.RequireAddress("swapWrapper", a.SwapWrapper)
}

func EncodeConstructor(args ConstructorArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return constructorArgs.Pack(args.SwapWrapper)
}

func CreationData(bytecode []byte, args ConstructorArgs) ([]byte, error) {
	encoded, err := EncodeConstructor(args)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(bytecode)+len(encoded))
	out = append(out, bytecode...)
	return append(out, encoded...), nil
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}
