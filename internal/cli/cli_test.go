package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(args ...string) (*bytes.Buffer, bool, error) {
	out := &bytes.Buffer{}
	_, exit, err := parse(args, out, viper.New())
	return out, exit, err
}

func TestParse_Help(t *testing.T) {
	out, exit, err := parseArgs("-h")

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "--algod-server")
}

func TestParse_NoCommandPrintsUsage(t *testing.T) {
	out, exit, err := parseArgs()

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Contains(t, out.String(), "toolbox, generate, run, export-script, export-flow, serve")
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"--nope", "toolbox"}, "unknown flag: --nope"},
		{"bad log level", []string{"--log-level", "loud", "toolbox"}, "invalid log-level"},
		{"bad log format", []string{"--log-format", "xml", "toolbox"}, "invalid log-format"},
		{"unknown command", []string{"deploy"}, "unknown command"},
		{"missing workspace", []string{"generate"}, "needs a workspace file"},
		{"missing config file", []string{"--config", "/does/not/exist.yaml", "toolbox"}, "failed to read config file"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := parse(tc.args, &bytes.Buffer{}, viper.New())

			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}

func TestParse_CommandAndWorkspace(t *testing.T) {
	// --- Act ---
	cfg, exit, err := parse([]string{"--out-dir", "dist", "--mode=transactions", "export-flow", "shop.json"}, &bytes.Buffer{}, viper.New())

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "export-flow", cfg.Command)
	assert.Equal(t, "shop.json", cfg.WorkspacePath)
	assert.Equal(t, "dist", cfg.OutDir)
	assert.Equal(t, "transactions", cfg.Mode)
	assert.Equal(t, "https://testnet-api.algonode.cloud", cfg.AlgodServer)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Empty(t, cfg.Mnemonic)
}

func TestParse_EnvironmentAndPrecedence(t *testing.T) {
	// --- Arrange ---
	t.Setenv("ALGOFLOW_ALGOD_SERVER", "http://localhost:4001")
	t.Setenv("ALGOFLOW_PORT", "9000")
	t.Setenv("ALGOFLOW_MNEMONIC", "abandon ability")

	// --- Act ---
	cfg, _, err := parse([]string{"--port", "9100", "serve"}, &bytes.Buffer{}, viper.New())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4001", cfg.AlgodServer, "env overrides defaults")
	assert.Equal(t, 9100, cfg.HTTPPort, "flags override env")
	assert.Equal(t, "abandon ability", cfg.Mnemonic)
}

func TestParse_ConfigFile(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "algoflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mnemonic: from file\nlog-level: debug\nworkspace: ws.hcl\n"), 0o600))

	// --- Act ---
	cfg, _, err := parse([]string{"--config", path, "run"}, &bytes.Buffer{}, viper.New())

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "from file", cfg.Mnemonic)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "ws.hcl", cfg.WorkspacePath)
}
