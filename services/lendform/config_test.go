package lendform

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lendform.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const baseConfig = `
evm:
  rpc_url: http://127.0.0.1:8545
  chain_id: 31337
  token: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  lending_contract: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
wallet:
  keystore_dir: ./keystore
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, baseConfig))
	require.NoError(t, err)
	require.Equal(t, ":7090", cfg.ListenAddress)
	require.Equal(t, "USDT", cfg.Token.Symbol)
	require.Equal(t, uint8(6), cfg.Token.Precision())
	require.Equal(t, uint64(1), cfg.EVM.Confirmations)
	require.Equal(t, 2*time.Second, cfg.EVM.PollInterval.Duration)
	require.Equal(t, 2*time.Minute, cfg.EVM.TxTimeout.Duration)
	require.Equal(t, float64(30), cfg.RateLimit.SubmitPerMinute)
	require.Equal(t, 5, cfg.RateLimit.Burst)
	require.False(t, cfg.Auth.Enabled())
	require.Equal(t, "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512", cfg.EVM.LendingAddress().Hex())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TEST_LENDFORM_SECRET", "s3cret")
	contents := baseConfig + `
listen: ":9000"
token:
  symbol: DAI
  decimals: 18
auth:
  hmac_secret_env: TEST_LENDFORM_SECRET
  issuer: corefi
`
	contents = contents + "rate_limit:\n  submit_per_minute: 2\n  burst: 1\n"
	cfg, err := LoadConfig(writeTempConfig(t, contents))
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, "DAI", cfg.Token.Symbol)
	require.Equal(t, uint8(18), cfg.Token.Precision())
	require.True(t, cfg.Auth.Enabled())
	require.Equal(t, "s3cret", cfg.Auth.HMACSecret)
	require.Equal(t, float64(2), cfg.RateLimit.SubmitPerMinute)
}

func TestLoadConfigKeepsZeroDecimals(t *testing.T) {
	cfg, err := LoadConfig(writeTempConfig(t, baseConfig+"token:\n  symbol: PTS\n  decimals: 0\n"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Token.Decimals)
	require.Equal(t, uint8(0), cfg.Token.Precision())

	_, err = LoadConfig(writeTempConfig(t, baseConfig+"token:\n  decimals: 40\n"))
	require.ErrorContains(t, err, "token.decimals")
}

func TestLoadConfigDurations(t *testing.T) {
	contents := `
evm:
  rpc_url: http://127.0.0.1:8545
  chain_id: 31337
  token: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  lending_contract: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
  confirmations: 3
  poll_interval: 250ms
  tx_timeout: 45s
wallet:
  keystore_dir: ./keystore
`
	cfg, err := LoadConfig(writeTempConfig(t, contents))
	require.NoError(t, err)
	require.Equal(t, uint64(3), cfg.EVM.Confirmations)
	require.Equal(t, 250*time.Millisecond, cfg.EVM.PollInterval.Duration)
	require.Equal(t, 45*time.Second, cfg.EVM.TxTimeout.Duration)

	_, err = LoadConfig(writeTempConfig(t, strings.Replace(contents, "45s", "soon", 1)))
	require.ErrorContains(t, err, "parse duration")
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"rpc_url":   "evm:\n  chain_id: 1\n",
		"chain_id":  "evm:\n  rpc_url: http://x\n",
		"evm.token": "evm:\n  rpc_url: http://x\n  chain_id: 1\n  token: nope\n",
	}
	for want, contents := range cases {
		_, err := LoadConfig(writeTempConfig(t, contents))
		require.ErrorContains(t, err, want)
	}

	t.Setenv("TEST_LENDFORM_EMPTY", "")
	_, err := LoadConfig(writeTempConfig(t, baseConfig+"auth:\n  hmac_secret_env: TEST_LENDFORM_EMPTY\n"))
	require.ErrorContains(t, err, "hmac_secret_env")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "open config")
}
