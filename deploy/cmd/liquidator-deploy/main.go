package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pwollemi/liquidator/deploy"
	"github.com/pwollemi/liquidator/deploy/artifact"
	"github.com/pwollemi/liquidator/deploy/config"
	"github.com/pwollemi/liquidator/deploy/ledger"
	"github.com/pwollemi/liquidator/deploy/migrate"
)

type app struct {
	configPath string
	network    string
	privateKey string
	verbose    bool
	jsonOut    bool

	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "liquidator-deploy",
		Short: "Deploy and initialize the liquidator contracts",
		Long: `liquidator-deploy runs the numbered deployment migrations for the
liquidator contracts: SwapWrapper, SwapRepayTool, LiquidateWrapper and
Liquidator. Proxied contracts are deployed behind a LiquidatorProxy and
initialized through it.

Completed migrations are recorded per network in a local ledger, so
re-running only deploys what is missing.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			log, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "deploy.yaml", "config file")
	root.PersistentFlags().StringVarP(&a.network, "network", "n", envOr("NETWORK", "heco"), "network name from the config")
	root.PersistentFlags().StringVar(&a.privateKey, "private-key", "", "deployer private key hex (or PRIVATE_KEY env)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print a JSON report of deployed addresses")

	root.AddCommand(
		newMigrateCmd(a),
		newDeployCmd(a),
		newPlanCmd(a),
		newStatusCmd(a),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) logger() *zap.Logger {
	if a.log == nil {
		return zap.NewNop()
	}
	return a.log
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "deploy.yaml" {
		// The default file is optional; the environment may describe everything.
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if a.privateKey != "" {
		cfg.PrivateKey = a.privateKey
	}
	return cfg, nil
}

// session holds what a command opened and must close.
type session struct {
	cfg      *config.Config
	network  *config.Network
	ledger   *ledger.Ledger
	deployer *deploy.Deployer
	env      *migrate.Env
}

func (s *session) Close() {
	if s.deployer != nil {
		s.deployer.Close()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
}

// open resolves the network and opens the ledger. withChain also dials
// the node and checks the deployer key; commands that only read local
// state skip it.
func (a *app) open(ctx context.Context, cfg *config.Config, out io.Writer, withChain bool) (*session, error) {
	s := &session{cfg: cfg}
	var err error

	if withChain || cfg.Networks[a.network] != nil {
		if s.network, err = cfg.Network(a.network); err != nil {
			return nil, err
		}
	}

	if s.ledger, err = ledger.Open(cfg.LedgerPath); err != nil {
		return nil, err
	}

	s.env = &migrate.Env{
		Network:   a.network,
		Artifacts: artifact.NewStore(cfg.ArtifactsDir),
		Ledger:    s.ledger,
		Log:       a.logger().With(zap.String("network", a.network)),
		Out:       out,
		RunID:     uuid.NewString(),
	}
	if s.network != nil {
		s.env.Addresses = s.network.Addresses
		s.env.GasLimits = s.network.GasLimits
	}

	if withChain {
		if err := a.dial(ctx, s); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (a *app) dial(ctx context.Context, s *session) error {
	if strings.TrimSpace(s.cfg.PrivateKey) == "" {
		return fmt.Errorf("private key is required (--private-key or PRIVATE_KEY)")
	}
	key, deployerAddr, err := deploy.ParsePrivateKey(s.cfg.PrivateKey)
	if err != nil {
		return err
	}
	if s.cfg.PublicAddress != "" {
		pub, err := deploy.ParseAddress(s.cfg.PublicAddress)
		if err != nil {
			return err
		}
		if pub != deployerAddr {
			return fmt.Errorf("public-address %s does not match private key address %s", pub.Hex(), deployerAddr.Hex())
		}
	}

	feeCap, tipCap, gasPrice, err := s.network.Fees()
	if err != nil {
		return err
	}
	d, err := deploy.NewDeployer(s.network.RPCURL, s.network.ChainID, key, deploy.GasOptions{
		Legacy:    s.network.Legacy,
		GasPrice:  gasPrice,
		GasFeeCap: feeCap,
		GasTipCap: tipCap,
	})
	if err != nil {
		return err
	}
	s.deployer = d

	poll, err := s.cfg.PollDuration()
	if err != nil {
		return err
	}
	d.SetPollInterval(poll)

	if err := d.Verify(ctx); err != nil {
		return err
	}
	s.env.Chain = d
	a.logger().Info("deployer ready",
		zap.String("network", a.network),
		zap.Int64("chain_id", s.network.ChainID),
		zap.String("from", deployerAddr.Hex()),
	)
	return nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}
