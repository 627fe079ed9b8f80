// Package export writes the downloadable artifacts of the editor: the
// generated program and the flow snapshot. Exporting never touches the
// network or the execution log.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/algoflow/internal/workspace"
)

// ScriptName is the file name of a program exported at now.
func ScriptName(now time.Time) string {
	return fmt.Sprintf("algorand-contract-%d.js", now.UnixMilli())
}

// FlowName is the file name of a flow exported from mode at now.
func FlowName(mode string, now time.Time) string {
	return fmt.Sprintf("algoflow-%s-%d.json", mode, now.UnixMilli())
}

// FlowJSON renders a flow the way it is downloaded: indented by two spaces.
func FlowJSON(flow workspace.Flow) ([]byte, error) {
	return json.MarshalIndent(flow, "", "  ")
}

// WriteScript writes program to dir and returns the file path.
func WriteScript(dir, program string, now time.Time) (string, error) {
	return write(dir, ScriptName(now), []byte(program))
}

// WriteFlow writes flow to dir and returns the file path.
func WriteFlow(dir string, flow workspace.Flow, now time.Time) (string, error) {
	data, err := FlowJSON(flow)
	if err != nil {
		return "", fmt.Errorf("failed to encode flow: %w", err)
	}
	return write(dir, FlowName(flow.Type, now), data)
}

func write(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
