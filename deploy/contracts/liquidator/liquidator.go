package liquidator

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lmittmann/w3"

	"github.com/pwollemi/liquidator/deploy"
)

const (
	name         = "Liquidator"
	ImplGasLimit = 5_000_000
	InitGasLimit = 350_000
)

var funcInitialize = w3.MustNewFunc(
	"initialize(address,address,address,address)", "",
)

type InitArgs struct {
	Governance       common.Address
	LiquidateWrapper common.Address
	HUSD             common.Address
	USDT             common.Address
}

func Name() string { return name }

func (a InitArgs) Validate() error {
	return errors.Join(
		deploy.RequireAddress("governance", a.Governance),
		deploy.RequireAddress("liquidateWrapper", a.LiquidateWrapper),
		deploy.RequireAddress("husd", a.HUSD),
		deploy.RequireAddress("usdt", a.USDT),
	)
}

func EncodeInit(args InitArgs) ([]byte, error) {
	if err := args.Validate(); err != nil {
		return nil, err
	}
	return funcInitialize.EncodeArgs(args.Governance, args.LiquidateWrapper, args.HUSD, args.USDT)
}
