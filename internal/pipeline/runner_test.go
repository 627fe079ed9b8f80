package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/pipeline"
	"github.com/specialistvlad/algoflow/internal/registry"
	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signerSource struct {
	signer chain.Signer
}

func (s signerSource) ActiveSigner() (chain.Signer, error) {
	if s.signer == nil {
		return nil, errors.New("wallet: not connected")
	}
	return s.signer, nil
}

type recorder struct {
	mu   sync.Mutex
	sent []pipeline.Notification
}

func (r *recorder) Notify(_ context.Context, n pipeline.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recorder) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.sent {
		out = append(out, n.Title)
	}
	return out
}

func newRunner(t *testing.T, node *testutil.FakeNode, withSigner bool) (*pipeline.Runner, *recorder) {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.LoadBuiltin(context.Background()))
	src := signerSource{}
	if withSigner {
		src.signer = testutil.NewFakeSigner()
	}
	rec := &recorder{}
	return &pipeline.Runner{
		Generator: codegen.NewBuiltin(reg),
		Dial:      func(context.Context) (chain.Node, error) { return node, nil },
		Wallet:    src,
		Log:       sandbox.NewLog(),
		Notifier:  rec,
	}, rec
}

func shop() []*block.Instance {
	return []*block.Instance{testutil.Stack(
		testutil.Block("create", "app_create", map[string]*block.Instance{"NAME": testutil.Text("n", "Shop")}),
		testutil.Block("call", "app_call", map[string]*block.Instance{"METHOD": testutil.Text("m", "buy")}),
	)}
}

func TestRunner_Success(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	node := testutil.NewFakeNode()
	r, rec := newRunner(t, node, true)

	// --- Act ---
	res, err := r.Run(context.Background(), shop())

	// --- Assert ---
	require.NoError(t, err)
	require.NoError(t, res.Outcome.Err)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "await createApplication(\"Shop\", \"\", 0);\nawait callApplication(0, \"buy\");\n", res.Program)

	want := []string{
		"[INFO] Starting smart contract deployment...",
		"[INFO] Connecting to Algorand TestNet...",
		"[INFO] Fetching transaction parameters...",
		"[INFO] Current round: 1000",
		"[INFO] Fee: 1000 microAlgos",
		"[INFO] Genesis ID: testnet-v1.0",
		"[INFO] Executing contract deployment...",
		sandbox.Separator,
		sandbox.Separator,
		"[SUCCESS] Contract deployment completed successfully!",
	}
	var got []string
	for _, l := range r.Log.Lines() {
		got = append(got, l.String())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"Running Contract", "Contract Execution Complete"}, rec.titles())
	assert.Len(t, node.Submitted, 2)
	assert.False(t, r.Busy())
}

func TestRunner_ResultLine(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	node := testutil.NewFakeNode()
	r, _ := newRunner(t, node, false)
	r.Generator.ForBlock["text_value"] = func(*codegen.Pass, *block.Instance) (codegen.Fragment, error) {
		return codegen.Statement("return {ok: 1};\n"), nil
	}

	// --- Act ---
	res, err := r.Run(context.Background(), []*block.Instance{testutil.Text("t", "x")})

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, res.Outcome.Defined())
	lines := r.Log.Lines()
	require.GreaterOrEqual(t, len(lines), 3)
	tail := lines[len(lines)-3:]
	want := []sandbox.Line{
		{Tag: sandbox.TagResult, Text: "{\n  \"ok\": 1\n}"},
		{Tag: sandbox.TagNone, Text: sandbox.Separator},
		{Tag: sandbox.TagSuccess, Text: "Contract deployment completed successfully!"},
	}
	if diff := cmp.Diff(want, tail); diff != "" {
		t.Errorf("log tail mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_ExecutionFailure(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	node := testutil.NewFakeNode()
	r, rec := newRunner(t, node, false)

	// --- Act ---
	res, err := r.Run(context.Background(), shop())

	// --- Assert ---
	require.NoError(t, err, "a failing run is reported in the outcome")
	require.Error(t, res.Outcome.Err)
	assert.Contains(t, res.Outcome.Err.Error(), chain.ErrNoSigner.Error())

	var errs []string
	for _, l := range r.Log.Lines() {
		if l.Tag == sandbox.TagError {
			errs = append(errs, l.Text)
		}
	}
	require.NotEmpty(t, errs)
	assert.Equal(t, "Execution failed: "+chain.ErrNoSigner.Error(), errs[0])
	assert.NotContains(t, r.Log.Snapshot(), "[SUCCESS]")
	require.Len(t, rec.sent, 2)
	assert.Equal(t, "Contract Execution Failed", rec.sent[1].Title)
	assert.True(t, rec.sent[1].Destructive)
}

func TestRunner_GenerationFailure(t *testing.T) {
	t.Parallel()
	node := testutil.NewFakeNode()
	r, rec := newRunner(t, node, true)
	roots := []*block.Instance{{ID: "x", Type: "mystery"}}

	res, err := r.Run(context.Background(), roots)

	require.NoError(t, err)
	var genErr *codegen.GenerationError
	require.ErrorAs(t, res.Outcome.Err, &genErr)
	assert.Equal(t, "x", genErr.BlockID)
	assert.Empty(t, node.Calls, "the node is never contacted")
	assert.Contains(t, r.Log.Snapshot(), "[ERROR] Execution failed: ")
	assert.Equal(t, "Block x could not be generated: block type is not registered", rec.sent[1].Description)
}

func TestRunner_DialFailure(t *testing.T) {
	t.Parallel()
	node := testutil.NewFakeNode()
	r, _ := newRunner(t, node, true)
	r.Dial = func(context.Context) (chain.Node, error) { return nil, errors.New("connection refused") }

	res, err := r.Run(context.Background(), shop())

	require.NoError(t, err)
	assert.EqualError(t, res.Outcome.Err, "connection refused")
	assert.Contains(t, r.Log.Snapshot(), "[ERROR] Execution failed: connection refused")
	assert.NotContains(t, r.Log.Snapshot(), "Fetching transaction parameters")
}

func TestRunner_ParamsFailure(t *testing.T) {
	t.Parallel()
	node := testutil.NewFakeNode()
	node.Fail["getTransactionParams"] = errors.New("503 Service Unavailable")
	r, _ := newRunner(t, node, true)

	res, err := r.Run(context.Background(), shop())

	require.NoError(t, err)
	var reqErr *chain.RequestError
	require.ErrorAs(t, res.Outcome.Err, &reqErr)
	assert.Contains(t, r.Log.Snapshot(), `"operation": "getTransactionParams"`)
}

func TestRunner_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	node := testutil.NewFakeNode()
	r, _ := newRunner(t, node, true)
	entered := make(chan struct{})
	release := make(chan struct{})
	r.Dial = func(context.Context) (chain.Node, error) {
		close(entered)
		<-release
		return node, nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), shop())
		done <- err
	}()
	<-entered

	// --- Act ---
	_, err := r.Run(context.Background(), shop())

	// --- Assert ---
	assert.ErrorIs(t, err, pipeline.ErrRunInFlight)
	assert.True(t, r.Busy())
	close(release)
	require.NoError(t, <-done)
	assert.False(t, r.Busy())
}

func TestNotifiers(t *testing.T) {
	t.Parallel()
	a, b := &recorder{}, &recorder{}
	ns := pipeline.Notifiers{a, b, pipeline.LogNotifier{}}

	ns.Notify(context.Background(), pipeline.Notification{Title: "hello"})

	assert.Equal(t, []string{"hello"}, a.titles())
	assert.Equal(t, []string{"hello"}, b.titles())
}
