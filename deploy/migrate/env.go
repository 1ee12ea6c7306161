package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/pwollemi/liquidator/deploy"
	"github.com/pwollemi/liquidator/deploy/config"
	"github.com/pwollemi/liquidator/deploy/ledger"
)

var ErrUnresolved = errors.New("address not configured")

// Chain is what migrations need from a node. *deploy.Deployer implements it.
type Chain interface {
	Address() common.Address
	DeployContract(ctx context.Context, data []byte, gasLimit uint64) (deploy.DeployResult, error)
	Transact(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (common.Hash, error)
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, addr common.Address) ([]byte, error)
}

// Bytecodes returns creation bytecode by contract name.
type Bytecodes interface {
	Bytecode(name string) ([]byte, error)
}

// Env is shared by every migration in a run.
type Env struct {
	Network   string
	Chain     Chain
	Artifacts Bytecodes
	Ledger    *ledger.Ledger
	Addresses config.Addresses
	// GasLimits overrides per contract name, or "<Contract>.initialize"
	// for an initializer call; nil uses the defaults.
	GasLimits map[string]uint64
	Log       *zap.Logger
	Out       io.Writer
	RunID     string
}

func (e *Env) gasLimit(contract string, fallback uint64) uint64 {
	if v, ok := e.GasLimits[contract]; ok && v > 0 {
		return v
	}
	return fallback
}

func (e *Env) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Arg is one resolved constructor or initializer argument.
type Arg struct {
	Name    string
	Value   string
	Source  string
	Pending bool
}

// resolver collects the arguments of one migration. In dry mode an
// address that an earlier migration of the same run will produce (listed
// in upcoming) is marked pending instead of failing.
type resolver struct {
	env      *Env
	dry      bool
	upcoming map[string]bool
	args     []Arg
	errs     []error
	pending  bool
}

func (r *resolver) address(name, configured, fromContract string) common.Address {
	if configured != "" {
		addr, err := deploy.ParseAddress(configured)
		if err != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
			return common.Address{}
		}
		if err := deploy.RequireAddress(name, addr); err != nil {
			r.errs = append(r.errs, err)
			return common.Address{}
		}
		r.args = append(r.args, Arg{Name: name, Value: addr.Hex(), Source: "config"})
		return addr
	}

	if fromContract == "" {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, ErrUnresolved))
		return common.Address{}
	}

	rec, err := r.env.Ledger.Get(r.env.Network, fromContract)
	switch {
	case err == nil:
		addr, perr := deploy.ParseAddress(rec.Address)
		if perr == nil {
			perr = deploy.RequireAddress("address", addr)
		}
		if perr != nil {
			r.errs = append(r.errs, fmt.Errorf("%s: recorded %s: %w", name, fromContract, perr))
			return common.Address{}
		}
		r.args = append(r.args, Arg{Name: name, Value: addr.Hex(), Source: "ledger:" + fromContract})
		return addr
	case errors.Is(err, ledger.ErrNotFound) && r.dry && r.upcoming[fromContract]:
		r.pending = true
		r.args = append(r.args, Arg{Name: name, Source: "ledger:" + fromContract, Pending: true})
		return common.Address{}
	case errors.Is(err, ledger.ErrNotFound):
		r.errs = append(r.errs, fmt.Errorf("%s: %w and no %s deployment recorded on %s", name, ErrUnresolved, fromContract, r.env.Network))
		return common.Address{}
	default:
		r.errs = append(r.errs, fmt.Errorf("%s: %w", name, err))
		return common.Address{}
	}
}

func (r *resolver) err() error {
	return errors.Join(r.errs...)
}
