package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
artifacts_dir: out/contracts
timeout: 90s
networks:
  heco:
    rpc_url: https://http-mainnet.hecochain.com
    chain_id: 128
    legacy: true
    gas_price: "2_250_000_000"
    gas_limits:
      Liquidator: 6000000
      Liquidator.initialize: 400000
    addresses:
      governance: "0x1111111111111111111111111111111111111111"
      factory: "0x2222222222222222222222222222222222222222"
      router: "0x3333333333333333333333333333333333333333"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RPC_URL", "CHAIN_ID", "PRIVATE_KEY", "PUBLIC_ADDRESS", "LEDGER_PATH", "ARTIFACTS_DIR"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultArtifactsDir, cfg.ArtifactsDir)
	assert.Equal(t, DefaultLedgerPath, cfg.LedgerPath)

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, timeout)

	poll, err := cfg.PollDuration()
	require.NoError(t, err)
	assert.Equal(t, DefaultPollInterval, poll)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "out/contracts", cfg.ArtifactsDir)
	assert.Equal(t, []string{"heco"}, cfg.NetworkNames())

	timeout, err := cfg.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, timeout)

	n, err := cfg.Network("heco")
	require.NoError(t, err)
	assert.Equal(t, int64(128), n.ChainID)
	assert.True(t, n.Legacy)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", n.Addresses.Factory)
	assert.Equal(t, map[string]uint64{"Liquidator": 6_000_000, "Liquidator.initialize": 400_000}, n.GasLimits)

	feeCap, tipCap, gasPrice, err := n.Fees()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(DefaultGasFeeCap), feeCap)
	assert.Equal(t, big.NewInt(DefaultGasTipCap), tipCap)
	assert.Equal(t, big.NewInt(2_250_000_000), gasPrice)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("RPC_URL", "http://127.0.0.1:8545")
	t.Setenv("CHAIN_ID", "31337")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("LEDGER_PATH", ":memory:")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", cfg.PrivateKey)
	assert.Equal(t, ":memory:", cfg.LedgerPath)

	n, err := cfg.Network("heco")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8545", n.RPCURL)
	assert.Equal(t, int64(31337), n.ChainID)

	// Not in the file, but the environment fully describes it.
	_, err = cfg.Network("local")
	assert.NoError(t, err)

	// The file value is left untouched.
	assert.Equal(t, int64(128), cfg.Networks["heco"].ChainID)
}

func TestUnknownNetwork(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	_, err = cfg.Network("bsc")
	require.ErrorIs(t, err, ErrUnknownNetwork)
	assert.Contains(t, err.Error(), "heco")
}

func TestNetworkValidate(t *testing.T) {
	err := (&Network{GasFeeCap: "-1", GasTipCap: "abc"}).Validate()
	require.Error(t, err)
	for _, want := range []string{"rpc_url", "chain_id", "gas_fee_cap", "gas_tip_cap"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "networks: [oops"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, "timeout: soon\n"))
	require.NoError(t, err)
	_, err = cfg.TimeoutDuration()
	assert.Error(t, err)
}
