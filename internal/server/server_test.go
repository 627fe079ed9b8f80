package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/pipeline"
	"github.com/specialistvlad/algoflow/internal/registry"
	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/server"
	"github.com/specialistvlad/algoflow/internal/testutil"
	"github.com/specialistvlad/algoflow/internal/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shopWorkspace = `{"blocks": {"blocks": [
  {"type": "app_create", "id": "create", "x": 0, "y": 0,
   "inputs": {"NAME": {"block": {"type": "text_value", "id": "name", "fields": {"TEXT": "Shop"}}}},
   "next": {"block": {"type": "app_call", "id": "call",
     "inputs": {"METHOD": {"block": {"type": "text_value", "id": "m", "fields": {"TEXT": "buy"}}}}}}}
]}}`

const shopProgram = "await createApplication(\"Shop\", \"\", 0);\nawait callApplication(0, \"buy\");\n"

var exportTime = time.UnixMilli(1760000000123).UTC()

type fixedSigner struct{ signer chain.Signer }

func (f fixedSigner) ActiveSigner() (chain.Signer, error) { return f.signer, nil }

func newTestServer(t *testing.T) (*httptest.Server, *pipeline.Runner, *testutil.FakeNode) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := registry.New()
	require.NoError(t, reg.LoadBuiltin(ctx))
	desc, refErrs := toolbox.Build(toolbox.Default(), reg.Has)
	require.Empty(t, refErrs)

	node := testutil.NewFakeNode()
	gen := codegen.NewBuiltin(reg)
	log := sandbox.NewLog()
	runner := &pipeline.Runner{
		Generator: gen,
		Dial:      func(context.Context) (chain.Node, error) { return node, nil },
		Wallet:    fixedSigner{testutil.NewFakeSigner()},
		Log:       log,
	}
	srv := server.New(ctx, server.Deps{
		Definitions: reg,
		Toolbox:     desc,
		Generator:   gen,
		Runner:      runner,
		Log:         log,
		Mode:        "contracts",
		Now:         func() time.Time { return exportTime },
	}, 0)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, runner, node
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_Blocks(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/blocks")
	require.NoError(t, err)
	defer resp.Body.Close()

	var defs []map[string]any
	decode(t, resp, &defs)
	types := make([]string, 0, len(defs))
	for _, d := range defs {
		types = append(types, d["type"].(string))
	}
	assert.Contains(t, types, "app_create")
	assert.Contains(t, types, "number_value")
}

func TestServer_Toolbox(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	t.Run("json", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/toolbox")
		require.NoError(t, err)
		defer resp.Body.Close()

		var desc toolbox.Description
		decode(t, resp, &desc)
		assert.Equal(t, "categoryToolbox", desc.Kind)
		require.Len(t, desc.Contents, 4)
		assert.Equal(t, "Core", desc.Contents[0].Name)
	})

	t.Run("xml", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/v1/toolbox?format=xml")
		require.NoError(t, err)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
		assert.Contains(t, string(body), `<block type="app_create"></block>`)
	})
}

func TestServer_Generate(t *testing.T) {
	t.Parallel()
	ts, _, node := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/generate", shopWorkspace)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, shopProgram, body["program"])
	assert.Empty(t, node.Calls, "generating never touches the node")
}

func TestServer_Generate_Errors(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	testCases := []struct {
		name    string
		body    string
		status  int
		blockID string
	}{
		{"malformed workspace", "{", http.StatusBadRequest, ""},
		{"null block", `{"blocks":{"blocks":[null]}}`, http.StatusBadRequest, ""},
		{"unknown block type", `{"blocks":{"blocks":[{"type":"mystery","id":"m"}]}}`, http.StatusUnprocessableEntity, "m"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/v1/generate", tc.body)

			assert.Equal(t, tc.status, resp.StatusCode)
			var body map[string]string
			decode(t, resp, &body)
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, tc.blockID, body["blockId"])
		})
	}
}

func TestServer_Run(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	ts, _, node := newTestServer(t)

	// --- Act ---
	resp := post(t, ts.URL+"/api/v1/run", shopWorkspace)

	// --- Assert ---
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		ID      string `json:"id"`
		Program string `json:"program"`
		OK      bool   `json:"ok"`
		Log     string `json:"log"`
	}
	decode(t, resp, &body)
	assert.True(t, body.OK)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, shopProgram, body.Program)
	assert.Contains(t, body.Log, "[SUCCESS] Contract deployment completed successfully!")
	assert.Len(t, node.Submitted, 2)
}

func TestServer_Run_Conflict(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	ts, runner, node := newTestServer(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	runner.Dial = func(context.Context) (chain.Node, error) {
		close(entered)
		<-release
		return node, nil
	}
	first := make(chan int, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/api/v1/run", "application/json", strings.NewReader(shopWorkspace))
		if err != nil {
			first <- 0
			return
		}
		resp.Body.Close()
		first <- resp.StatusCode
	}()
	<-entered

	// --- Act ---
	resp := post(t, ts.URL+"/api/v1/run", shopWorkspace)

	// --- Assert ---
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	close(release)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestServer_ExportScript(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	ts, runner, _ := newTestServer(t)
	runner.Dial = func(context.Context) (chain.Node, error) {
		t.Error("export must not connect to a node")
		return nil, errors.New("unexpected dial")
	}

	// --- Act ---
	resp := post(t, ts.URL+"/api/v1/export/script", shopWorkspace)

	// --- Assert ---
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, runner.Log.Lines(), "export must not write to the execution log")
	assert.Equal(t, `attachment; filename="algorand-contract-1760000000123.js"`, resp.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, shopProgram, string(body))
}

func TestServer_ExportFlow(t *testing.T) {
	t.Parallel()
	ts, _, _ := newTestServer(t)

	t.Run("default mode", func(t *testing.T) {
		resp := post(t, ts.URL+"/api/v1/export/flow", shopWorkspace)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, `attachment; filename="algoflow-contracts-1760000000123.json"`, resp.Header.Get("Content-Disposition"))
		var flow struct {
			Nodes     []map[string]any `json:"nodes"`
			Edges     []map[string]any `json:"edges"`
			Type      string           `json:"type"`
			Timestamp string           `json:"timestamp"`
		}
		decode(t, resp, &flow)
		assert.Len(t, flow.Nodes, 4)
		assert.Len(t, flow.Edges, 3)
		assert.Equal(t, "contracts", flow.Type)
		assert.Equal(t, "2025-10-09T08:53:20.123Z", flow.Timestamp)
	})

	t.Run("explicit mode", func(t *testing.T) {
		resp := post(t, ts.URL+"/api/v1/export/flow?mode=transactions", shopWorkspace)
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "algoflow-transactions-")
	})

	t.Run("unknown mode", func(t *testing.T) {
		resp := post(t, ts.URL+"/api/v1/export/flow?mode=nfts", shopWorkspace)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_TerminalStream(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	ts, runner, _ := newTestServer(t)
	runner.Log.Append(sandbox.TagInfo, "hello")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/terminal"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg struct {
		Output string `json:"output"`
	}

	// --- Act & Assert ---
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "[INFO] hello\n", msg.Output, "the current snapshot is sent on connect")

	runner.Log.Append(sandbox.TagLog, "world")
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "[INFO] hello\n[LOG] world\n", msg.Output)
}

func TestServer_TerminalSnapshot(t *testing.T) {
	t.Parallel()
	ts, runner, _ := newTestServer(t)
	runner.Log.Append(sandbox.TagWarn, "careful")

	resp, err := http.Get(ts.URL + "/api/v1/terminal/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[WARN] careful\n", string(body))
}
