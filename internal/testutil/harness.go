package testutil

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/specialistvlad/algoflow/internal/app"
	"github.com/stretchr/testify/require"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an application test run.
type HarnessResult struct {
	Dir       string
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// RunApp provides a standardized harness for running the application end
// to end using a default background context.
func RunApp(t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()
	return RunAppWithContext(context.Background(), t, files, cfg, opts...)
}

// RunAppWithContext writes files into a temporary directory, resolves the
// relative paths of cfg against it, builds the App and runs its command.
// A startup panic is reported in Err like any other failure.
func RunAppWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()

	tmpDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0o755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0o644))
	}
	for _, p := range []*string{&cfg.WorkspacePath, &cfg.BlocksPath, &cfg.ToolboxPath, &cfg.OutDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(tmpDir, *p)
		}
	}
	if cfg.OutDir == "" {
		cfg.OutDir = tmpDir
	}
	cfg.LogLevel = "debug"
	cfg.LogFormat = "text"

	out := &SafeBuffer{}
	logBuffer := &SafeBuffer{}
	result := &HarnessResult{Dir: tmpDir}
	defer func() {
		result.Output = out.String()
		result.LogOutput = logBuffer.String()
		if os.Getenv("ALGOFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), result.LogOutput)
		}
	}()

	config, err := app.NewConfig(cfg)
	if err != nil {
		result.Err = err
		return result
	}

	var panicErr any
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = r
			}
		}()
		result.App = app.NewApp(ctx, out, logBuffer, config, opts...)
	}()
	if panicErr != nil {
		result.Err = fmt.Errorf("application startup panicked | %v", panicErr)
		return result
	}

	result.Err = result.App.Run(ctx)
	return result
}
