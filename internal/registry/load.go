package registry

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/fsutil"
)

//go:embed builtin.hcl
var builtinHCL []byte

// Builtin parses the stock block definitions shipped with the binary.
func Builtin(ctx context.Context) ([]*block.Type, error) {
	file, diags := hclparse.NewParser().ParseHCL(builtinHCL, "builtin.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse builtin definitions: %w", diags)
	}
	defs, diags := block.ParseDefinitionsHCL(ctx, file, "builtin.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid builtin definitions: %w", diags)
	}
	return defs, nil
}

// LoadBuiltin registers the stock block definitions.
func (r *Registry) LoadBuiltin(ctx context.Context) error {
	defs, err := Builtin(ctx)
	if err != nil {
		return err
	}
	if errs := r.Register(ctx, defs...); len(errs) > 0 {
		return fmt.Errorf("failed to register builtin definitions: %w", errs[0])
	}
	ctxlog.FromContext(ctx).Debug("Registered builtin block definitions", "count", len(defs))
	return nil
}

// LoadDefinitions walks path for .hcl and .json definition files and
// registers every valid entry. Files that fail to parse and entries that
// fail validation are logged, skipped and returned in skipped; err is only
// set when path itself cannot be read.
func (r *Registry) LoadDefinitions(ctx context.Context, path string) (skipped []error, err error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading block definitions", "path", path)

	filePaths, err := fsutil.FindFiles(path, ".hcl", ".json")
	if err != nil {
		logger.Error("Failed to walk definitions path", "path", path, "error", err)
		return nil, err
	}
	if len(filePaths) == 0 {
		logger.Warn("No block definition files found in path", "path", path)
		return nil, nil
	}

	parser := hclparse.NewParser()
	loaded := 0
	for _, filePath := range filePaths {
		var (
			defs  []*block.Type
			diags hcl.Diagnostics
		)
		switch filepath.Ext(filePath) {
		case ".json":
			data, readErr := os.ReadFile(filePath)
			if readErr != nil {
				logger.Warn("Skipping unreadable definition file", "file", filePath, "error", readErr)
				skipped = append(skipped, readErr)
				continue
			}
			defs, diags = block.ParseDefinitionsJSON(ctx, data, filePath)
		default:
			file, parseDiags := parser.ParseHCLFile(filePath)
			if parseDiags.HasErrors() {
				logger.Warn("Skipping malformed definition file", "file", filePath, "error", parseDiags.Error())
				skipped = append(skipped, fmt.Errorf("failed to parse %s: %w", filePath, parseDiags))
				continue
			}
			defs, diags = block.ParseDefinitionsHCL(ctx, file, filePath)
		}

		for _, d := range diags.Errs() {
			logger.Warn("Skipping malformed block definition", "file", filePath, "error", d)
			skipped = append(skipped, d)
		}
		skipped = append(skipped, r.Register(ctx, defs...)...)
		loaded += len(defs)
		logger.Debug("Loaded definitions from file", "file", filePath, "count", len(defs))
	}

	logger.Info("Registry loaded block definitions.", "definitions_loaded", loaded, "skipped", len(skipped))
	return skipped, nil
}
