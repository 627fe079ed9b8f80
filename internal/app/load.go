package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/registry"
	"github.com/specialistvlad/algoflow/internal/toolbox"
	"github.com/specialistvlad/algoflow/internal/workspace"
)

// loadRegistry registers the stock definitions, then any from BlocksPath,
// and builds the generator over them.
func (a *App) loadRegistry() error {
	logger := ctxlog.FromContext(a.ctx)
	logger.Debug("Loading block definitions...", "blocks_path", a.config.BlocksPath)

	reg := registry.New()
	if err := reg.LoadBuiltin(a.ctx); err != nil {
		return err
	}
	if a.config.BlocksPath != "" {
		skipped, err := reg.LoadDefinitions(a.ctx, a.config.BlocksPath)
		if err != nil {
			return err
		}
		for _, s := range skipped {
			logger.Warn("Skipped block definition.", "error", s)
		}
	}
	reg.Seal()

	gen := codegen.New(reg)
	for _, register := range coreGenerators {
		register(gen)
	}
	// Missing generators only fail the blocks that are actually placed.
	_ = reg.ValidateGenerators(a.ctx, gen.Has)

	a.registry = reg
	a.generator = gen
	logger.Info("Block definitions loaded.", "count", reg.Len())
	return nil
}

// loadToolbox assembles the palette from ToolboxPath or the stock
// categories. Dangling members are dropped with a warning.
func (a *App) loadToolbox() error {
	logger := ctxlog.FromContext(a.ctx)

	categories := toolbox.Default()
	if a.config.ToolboxPath != "" {
		loaded, err := toolbox.LoadCategories(a.ctx, a.config.ToolboxPath)
		if err != nil {
			return err
		}
		categories = loaded
	}

	desc, refErrs := toolbox.Build(categories, a.registry.Has)
	for _, refErr := range refErrs {
		logger.Warn("Dropped toolbox entry.", "category", refErr.Category, "block", refErr.Block)
	}
	a.toolbox = desc
	logger.Debug("Toolbox assembled.", "categories", len(desc.Contents))
	return nil
}

func (a *App) connectWallet() error {
	if a.config.Mnemonic == "" {
		ctxlog.FromContext(a.ctx).Debug("No mnemonic configured; running without a wallet.")
		return nil
	}
	return a.wallet.Connect(a.ctx, a.config.Mnemonic)
}

// loadWorkspace reads the configured workspace; the extension picks the
// format.
func (a *App) loadWorkspace() ([]*block.Instance, error) {
	path := a.config.WorkspacePath
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return workspace.LoadHCL(a.ctx, path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open workspace: %w", err)
		}
		defer f.Close()
		return workspace.LoadJSON(a.ctx, f)
	default:
		return nil, fmt.Errorf("unsupported workspace file %s: expected .json or .hcl", path)
	}
}
