package migrate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pwollemi/liquidator/deploy/contracts/liquidatorproxy"
	"github.com/pwollemi/liquidator/deploy/ledger"
)

type Options struct {
	// To stops after the migration with this id. Zero means all.
	To int
	// Only runs the named migration regardless of recorded progress.
	Only string
	// Reset discards recorded progress and deployments first.
	Reset bool
}

// Plan is a pending migration with its resolved arguments.
type Plan struct {
	Migration Migration
	Step      Step
	Err       error
}

type Runner struct {
	env        *Env
	migrations []Migration
}

func NewRunner(env *Env) *Runner {
	return &Runner{env: env, migrations: All()}
}

// Pending returns the migrations Run would execute.
func (r *Runner) Pending(opts Options) ([]Migration, error) {
	if opts.Only != "" {
		m, err := Lookup(opts.Only)
		if err != nil {
			return nil, err
		}
		return []Migration{m}, nil
	}

	last := 0
	if !opts.Reset {
		var err error
		if last, err = r.env.Ledger.LastCompleted(r.env.Network); err != nil {
			return nil, fmt.Errorf("read progress: %w", err)
		}
	}

	var out []Migration
	for _, m := range r.migrations {
		if m.ID <= last {
			continue
		}
		if opts.To > 0 && m.ID > opts.To {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

// Plan resolves every pending migration without sending anything.
func (r *Runner) Plan(opts Options) ([]Plan, error) {
	pending, err := r.Pending(opts)
	if err != nil {
		return nil, err
	}
	return r.resolve(pending), nil
}

// resolve builds each migration in dry mode. A dependency may stay
// pending only when an earlier migration in the same batch deploys it.
func (r *Runner) resolve(pending []Migration) []Plan {
	upcoming := map[string]bool{}
	out := make([]Plan, 0, len(pending))
	for _, m := range pending {
		step, err := m.build(&resolver{env: r.env, dry: true, upcoming: upcoming})
		out = append(out, Plan{Migration: m, Step: step, Err: err})
		upcoming[m.Contract] = true
	}
	return out
}

// preflight checks every pending migration's arguments and artifacts
// before the first transaction goes out.
func (r *Runner) preflight(pending []Migration) error {
	var errs []error
	for _, p := range r.resolve(pending) {
		if p.Err != nil {
			errs = append(errs, fmt.Errorf("migration %d %s: %w", p.Migration.ID, p.Migration.Name, p.Err))
			continue
		}
		names := []string{p.Step.Contract}
		if p.Step.Proxied {
			names = append(names, liquidatorproxy.Name())
		}
		for _, name := range names {
			if _, err := r.env.Artifacts.Bytecode(name); err != nil {
				errs = append(errs, fmt.Errorf("migration %d %s: %w", p.Migration.ID, p.Migration.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Run executes pending migrations in order and records each on success.
// It stops at the first failure; earlier migrations stay recorded.
func (r *Runner) Run(ctx context.Context, opts Options) ([]ledger.Record, error) {
	log := r.env.logger()

	if opts.Reset && opts.Only == "" {
		log.Warn("resetting recorded deployments", zap.String("network", r.env.Network))
		if err := r.env.Ledger.Reset(r.env.Network); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
	}

	pending, err := r.Pending(opts)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		log.Info("nothing to migrate", zap.String("network", r.env.Network))
		return nil, nil
	}
	if err := r.preflight(pending); err != nil {
		return nil, err
	}

	var out []ledger.Record
	for _, m := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		mlog := log.With(zap.Int("migration", m.ID), zap.String("name", m.Name))
		mlog.Info("running migration")

		step, err := m.build(&resolver{env: r.env})
		if err != nil {
			return out, fmt.Errorf("migration %d %s: %w", m.ID, m.Name, err)
		}
		deployed, err := r.env.execute(ctx, step)
		if err != nil {
			return out, fmt.Errorf("migration %d %s: %w", m.ID, m.Name, err)
		}
		rec, err := r.env.record(m, deployed)
		if err != nil {
			return out, err
		}
		if err := r.markCompleted(m.ID); err != nil {
			return out, err
		}
		r.env.announce(deployed)
		out = append(out, rec)
	}
	return out, nil
}

func (r *Runner) markCompleted(id int) error {
	last, err := r.env.Ledger.LastCompleted(r.env.Network)
	if err != nil {
		return err
	}
	// Progress only moves forward contiguously, so running a later
	// migration on its own does not mark earlier ones as done.
	if id != last+1 {
		return nil
	}
	return r.env.Ledger.SetCompleted(r.env.Network, id)
}
