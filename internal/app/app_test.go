package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
	"github.com/specialistvlad/algoflow/internal/app"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopHCL = `
block "app_create" {
  input "NAME" {
    block "text_value" { fields = { TEXT = "Shop" } }
  }
  input "PRICING" {
    block "number_value" { fields = { NUM = 5 } }
  }
  next {
    block "app_call" {
      input "METHOD" {
        block "text_value" { fields = { TEXT = "buy" } }
      }
    }
  }
}
`

const shopProgram = "await createApplication(\"Shop\", \"\", 5);\nawait callApplication(0, \"buy\");\n"

var fixedNow = time.UnixMilli(1760000000123)

func fakeDialer(node *testutil.FakeNode) app.Option {
	return app.WithDialer(func(context.Context) (chain.Node, error) { return node, nil })
}

func newMnemonic(t *testing.T) string {
	t.Helper()
	phrase, err := mnemonic.FromPrivateKey(crypto.GenerateAccount().PrivateKey)
	require.NoError(t, err)
	return phrase
}

func TestApp_Toolbox(t *testing.T) {
	t.Parallel()

	t.Run("json", func(t *testing.T) {
		res := testutil.RunApp(t, nil, app.Config{Command: app.CommandToolbox})

		require.NoError(t, res.Err)
		assert.Contains(t, res.Output, `"kind": "categoryToolbox"`)
		assert.Contains(t, res.Output, `"type": "app_create"`)
	})

	t.Run("xml", func(t *testing.T) {
		res := testutil.RunApp(t, nil, app.Config{Command: app.CommandToolbox, Format: "xml"})

		require.NoError(t, res.Err)
		assert.True(t, strings.HasPrefix(res.Output, "<xml "), res.Output)
	})
}

func TestApp_Toolbox_DanglingMemberDropped(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"toolbox/main.hcl": `
category "Mine" {
  colour = "20"
  blocks = ["app_create", "does_not_exist"]
}
`,
	}

	// --- Act ---
	res := testutil.RunApp(t, files, app.Config{Command: app.CommandToolbox, ToolboxPath: "toolbox"})

	// --- Assert ---
	require.NoError(t, res.Err)
	desc := res.App.Toolbox()
	require.Len(t, desc.Contents, 1)
	require.Len(t, desc.Contents[0].Contents, 1)
	assert.Equal(t, "app_create", desc.Contents[0].Contents[0].Type)
	assert.Contains(t, res.LogOutput, "Dropped toolbox entry.")
	assert.Contains(t, res.LogOutput, "does_not_exist")
}

func TestApp_Generate(t *testing.T) {
	t.Parallel()
	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL},
		app.Config{Command: app.CommandGenerate, WorkspacePath: "shop.hcl"})

	require.NoError(t, res.Err)
	assert.Equal(t, shopProgram, res.Output)
}

func TestApp_Generate_DefinitionWithoutGenerator(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	files := map[string]string{
		"blocks/extra.hcl": `
block "mystery" {
  message = "Mystery"
  output  = "statement"
}
`,
		"ws.hcl": `block "mystery" { id = "m" }`,
	}

	// --- Act ---
	res := testutil.RunApp(t, files, app.Config{
		Command:       app.CommandGenerate,
		WorkspacePath: "ws.hcl",
		BlocksPath:    "blocks",
	})

	// --- Assert ---
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), `cannot generate block "m"`)
	assert.Contains(t, res.LogOutput, "Block definitions without a generator")
	assert.True(t, res.App.Registry().Has("mystery"))
}

func TestApp_StartupPanic(t *testing.T) {
	t.Parallel()
	res := testutil.RunApp(t, nil, app.Config{Command: app.CommandToolbox, BlocksPath: "missing"})

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "application startup panicked")
	assert.Contains(t, res.Err.Error(), "failed to load block definitions")
}

func TestApp_Run(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	node := testutil.NewFakeNode()

	// --- Act ---
	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL}, app.Config{
		Command:       app.CommandRun,
		WorkspacePath: "shop.hcl",
		Mnemonic:      newMnemonic(t),
	}, fakeDialer(node))

	// --- Assert ---
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "[INFO] Starting smart contract deployment...\n")
	assert.Contains(t, res.Output, "[INFO] Genesis ID: testnet-v1.0\n")
	assert.True(t, strings.HasSuffix(res.Output, "[SUCCESS] Contract deployment completed successfully!\n"), res.Output)
	assert.Len(t, node.Submitted, 2)
	assert.Contains(t, res.LogOutput, "Contract Execution Complete")
}

func TestApp_Run_WithoutWallet(t *testing.T) {
	t.Parallel()
	node := testutil.NewFakeNode()

	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL}, app.Config{
		Command:       app.CommandRun,
		WorkspacePath: "shop.hcl",
	}, fakeDialer(node))

	require.ErrorIs(t, res.Err, app.ErrRunFailed)
	assert.Contains(t, res.Output, "[ERROR] Execution failed: no wallet connected\n")
	assert.Empty(t, node.Submitted)
}

func TestApp_Run_BadMnemonic(t *testing.T) {
	t.Parallel()
	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL}, app.Config{
		Command:       app.CommandRun,
		WorkspacePath: "shop.hcl",
		Mnemonic:      "not a mnemonic",
	})

	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "failed to connect wallet")
}

func TestApp_ExportScript(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	dialed := app.WithDialer(func(context.Context) (chain.Node, error) {
		t.Error("export must not connect to a node")
		return nil, errors.New("unexpected dial")
	})

	// --- Act ---
	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL}, app.Config{
		Command:       app.CommandExportScript,
		WorkspacePath: "shop.hcl",
		OutDir:        "out",
	}, app.WithClock(func() time.Time { return fixedNow }), dialed)

	// --- Assert ---
	require.NoError(t, res.Err)
	require.NotNil(t, res.App)
	assert.Empty(t, res.App.Log().Lines(), "export must not write to the execution log")
	path := filepath.Join(res.Dir, "out", "algorand-contract-1760000000123.js")
	assert.Equal(t, path+"\n", res.Output)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, shopProgram, string(data))
}

func TestApp_ExportFlow(t *testing.T) {
	t.Parallel()
	res := testutil.RunApp(t, map[string]string{"shop.hcl": shopHCL}, app.Config{
		Command:       app.CommandExportFlow,
		WorkspacePath: "shop.hcl",
		Mode:          "transactions",
	}, app.WithClock(func() time.Time { return fixedNow }))

	require.NoError(t, res.Err)
	path := filepath.Join(res.Dir, "algoflow-transactions-1760000000123.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": "transactions"`)
	assert.Contains(t, string(data), `"timestamp": "2025-10-09T08:53:20.123Z"`)
}

func TestApp_Serve_StopsOnCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	res := testutil.RunAppWithContext(ctx, t, nil, app.Config{Command: app.CommandServe})

	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, "Shutting down HTTP server...")
}

func TestApp_UnsupportedWorkspace(t *testing.T) {
	t.Parallel()
	res := testutil.RunApp(t, map[string]string{"ws.txt": "x"},
		app.Config{Command: app.CommandGenerate, WorkspacePath: "ws.txt"})

	assert.ErrorContains(t, res.Err, "expected .json or .hcl")
}

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     app.Config
		wantErr string
	}{
		{"unknown command", app.Config{Command: "deploy"}, "unknown command"},
		{"missing workspace", app.Config{Command: app.CommandRun}, "needs a workspace file"},
		{"bad mode", app.Config{Command: app.CommandToolbox, Mode: "nfts"}, "invalid mode"},
		{"bad format", app.Config{Command: app.CommandToolbox, Format: "yaml"}, "invalid format"},
		{"bad port", app.Config{Command: app.CommandServe, HTTPPort: 70000}, "invalid port"},
		{"valid", app.Config{Command: app.CommandGenerate, WorkspacePath: "ws.json"}, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := app.NewConfig(tc.cfg)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "contracts", cfg.Mode, "mode defaults to contracts")
			assert.Equal(t, "json", cfg.Format)
			assert.Equal(t, ".", cfg.OutDir)
		})
	}
}
