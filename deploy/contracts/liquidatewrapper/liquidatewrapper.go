package liquidatewrapper

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/pwollemi/liquidator/deploy"
)

const (
	name         = "LiquidateWrapper"
	ImplGasLimit = 5_000_000
	InitGasLimit = 300_000
)

var funcInitialize = w3.MustNewFunc(
	"initialize(address,address,address)", "",
)

type InitArgs struct {
	Governance  common.Address
	SwapWrapper common.Address
	CEther      common.Address
}

func Name() string { return name }

func (a InitArgs) Validate() error {
	return errors.Join(
		deploy.RequireAddress("governance", a.Governance),
		deploy.RequireAddress("swapWrapper", a.SwapWrapper),
		deploy.RequireAddress("cEther", a.CEther),
	)
}

func EncodeInit(args InitArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return funcInitialize.EncodeArgs(args.Governance, args.SwapWrapper, args.CEther)
}
