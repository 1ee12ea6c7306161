package swapwrapper

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/pwollemi/liquidator/deploy"
)

const (
	name         = "SwapWrapper"
	ImplGasLimit = 4_000_000
	InitGasLimit = 300_000
)

var funcInitialize = w3.MustNewFunc(
	"initialize(address,address,address)", "",
)

type InitArgs struct {
	Governance common.Address
	Factory    common.Address
	Router     common.Address
}

func Name() string { return name }

func (a InitArgs) Validate() error {
	return errors.Join(
		deploy.RequireAddress("governance", a.Governance),
		deploy.RequireAddress("factory", a.Factory),
		deploy.RequireAddress("router", a.Router),
	)
}

func EncodeInit(args InitArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return funcInitialize.EncodeArgs(args.Governance, args.Factory, args.Router)
}
