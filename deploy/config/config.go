// Package config loads deployment settings from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	DefaultArtifactsDir = "build/contracts"
	DefaultLedgerPath   = "deployments.db"
	DefaultTimeout      = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
	DefaultGasFeeCap    = 2_000_000_000
	DefaultGasTipCap    = 1_000_000_000
)

var ErrUnknownNetwork = errors.New("unknown network")

// Config holds all deployment configuration.
type Config struct {
	ArtifactsDir string              `yaml:"artifacts_dir"`
	LedgerPath   string              `yaml:"ledger_path"`
	Timeout      string              `yaml:"timeout"`
	PollInterval string              `yaml:"poll_interval"`
	Networks     map[string]*Network `yaml:"networks"`

	// Never read from the file.
	PrivateKey    string `yaml:"-"`
	PublicAddress string `yaml:"-"`
}

// Network is one deployment target.
type Network struct {
	RPCURL    string            `yaml:"rpc_url"`
	ChainID   int64             `yaml:"chain_id"`
	Legacy    bool              `yaml:"legacy"`
	GasPrice  string            `yaml:"gas_price"`
	GasFeeCap string            `yaml:"gas_fee_cap"`
	GasTipCap string            `yaml:"gas_tip_cap"`
	GasLimits map[string]uint64 `yaml:"gas_limits"`
	Addresses Addresses         `yaml:"addresses"`
}

// Addresses are the externally supplied initializer arguments.
// SwapWrapper and LiquidateWrapper are optional; when empty they are taken
// from earlier recorded deployments.
type Addresses struct {
	Governance       string `yaml:"governance"`
	Factory          string `yaml:"factory"`
	Router           string `yaml:"router"`
	CEther           string `yaml:"cether"`
	HUSD             string `yaml:"husd"`
	USDT             string `yaml:"usdt"`
	SwapWrapper      string `yaml:"swap_wrapper"`
	LiquidateWrapper string `yaml:"liquidate_wrapper"`
}

// Default returns a Config with default values applied and no networks.
func Default() *Config {
	return &Config{
		ArtifactsDir: DefaultArtifactsDir,
		LedgerPath:   DefaultLedgerPath,
		Timeout:      DefaultTimeout.String(),
		PollInterval: DefaultPollInterval.String(),
		Networks:     map[string]*Network{},
	}
}

// Load reads path (if non-empty) and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", path, err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", expanded, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ArtifactsDir = envOr("ARTIFACTS_DIR", c.ArtifactsDir)
	c.LedgerPath = envOr("LEDGER_PATH", c.LedgerPath)
	c.PrivateKey = envOr("PRIVATE_KEY", c.PrivateKey)
	c.PublicAddress = envOr("PUBLIC_ADDRESS", c.PublicAddress)
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.ArtifactsDir, &c.LedgerPath} {
		if *p == "" || *p == ":memory:" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %s: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Network returns the named network with RPC_URL and CHAIN_ID
// environment overrides applied. An unknown name is allowed when the
// environment supplies both.
func (c *Config) Network(name string) (*Network, error) {
	n, ok := c.Networks[name]
	if !ok {
		n = &Network{}
	}
	out := *n
	out.RPCURL = envOr("RPC_URL", out.RPCURL)
	out.ChainID = envInt64("CHAIN_ID", out.ChainID)

	if !ok && (out.RPCURL == "" || out.ChainID == 0) {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownNetwork, name, strings.Join(c.NetworkNames(), ", "))
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("network %s: %w", name, err)
	}
	return &out, nil
}

func (c *Config) NetworkNames() []string {
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parseDuration("timeout", c.Timeout, DefaultTimeout)
}

func (c *Config) PollDuration() (time.Duration, error) {
	return parseDuration("poll_interval", c.PollInterval, DefaultPollInterval)
}

func (n *Network) Validate() error {
	var errs []error
	if strings.TrimSpace(n.RPCURL) == "" {
		errs = append(errs, errors.New("rpc_url is required"))
	}
	if n.ChainID <= 0 {
		errs = append(errs, errors.New("chain_id is required"))
	}
	for _, f := range []struct{ field, value string }{
		{"gas_price", n.GasPrice},
		{"gas_fee_cap", n.GasFeeCap},
		{"gas_tip_cap", n.GasTipCap},
	} {
		if _, err := parseWei(f.value, 0); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.field, err))
		}
	}
	return errors.Join(errs...)
}

// Fees returns the fee cap, tip cap and legacy gas price in wei. A nil
// gas price means the node is asked at send time.
func (n *Network) Fees() (feeCap, tipCap, gasPrice *big.Int, err error) {
	if feeCap, err = parseWei(n.GasFeeCap, DefaultGasFeeCap); err != nil {
		return nil, nil, nil, err
	}
	if tipCap, err = parseWei(n.GasTipCap, DefaultGasTipCap); err != nil {
		return nil, nil, nil, err
	}
	if gasPrice, err = parseWei(n.GasPrice, 0); err != nil {
		return nil, nil, nil, err
	}
	if gasPrice.Sign() == 0 {
		gasPrice = nil
	}
	return feeCap, tipCap, gasPrice, nil
}

func parseWei(v string, fallback int64) (*big.Int, error) {
	v = strings.TrimSpace(strings.ReplaceAll(v, "_", ""))
	if v == "" {
		return big.NewInt(fallback), nil
	}
	n, ok := new(big.Int).SetString(v, 10)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid wei amount %q", v)
	}
	return n, nil
}

func parseDuration(field, v string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", field)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
