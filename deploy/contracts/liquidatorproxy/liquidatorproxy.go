package liquidatorproxy

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pwollemi/liquidator/deploy"
)

const (
	name     = "LiquidatorProxy"
	GasLimit = 1_000_000
)

var constructorArgs = abi.Arguments{{Name: "implementation", Type: mustType("address")}}

type ConstructorArgs struct {
	Implementation common.Address
}

func Name() string { return name }

func (a ConstructorArgs) Validate() error {
	return deploy.RequireAddress("implementation", a.Implementation)
}

// EncodeConstructor returns the ABI encoded constructor arguments to append
// to the proxy creation bytecode.
func EncodeConstructor(args ConstructorArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return constructorArgs.Pack(args.Implementation)
}

// CreationData joins bytecode and encoded constructor arguments.
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
