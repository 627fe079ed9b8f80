package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/algoflow/internal/workspace"
)

// Commands understood by App.Run.
const (
	CommandToolbox      = "toolbox"
	CommandGenerate     = "generate"
	CommandRun          = "run"
	CommandExportScript = "export-script"
	CommandExportFlow   = "export-flow"
	CommandServe        = "serve"
)

// Commands lists every command in help order.
var Commands = []string{
	CommandToolbox, CommandGenerate, CommandRun,
	CommandExportScript, CommandExportFlow, CommandServe,
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command       string
	WorkspacePath string // .json editor workspace or .hcl workspace file
	BlocksPath    string // extra block definitions, file or directory
	ToolboxPath   string // toolbox categories, file or directory
	Mode          string
	Format        string // toolbox output: json or xml

	AlgodServer string
	AlgodToken  string
	Mnemonic    string

	OutDir           string
	HTTPPort         int
	TerminalRelayURL string

	LogFormat string
	LogLevel  string
	Color     bool
}

func NewConfig(cfg Config) (*Config, error) {
	known := false
	for _, c := range Commands {
		known = known || c == cfg.Command
	}
	if !known {
		return nil, fmt.Errorf("unknown command %q: must be one of %s", cfg.Command, strings.Join(Commands, ", "))
	}

	switch cfg.Command {
	case CommandGenerate, CommandRun, CommandExportScript, CommandExportFlow:
		if cfg.WorkspacePath == "" {
			return nil, fmt.Errorf("the %s command needs a workspace file", cfg.Command)
		}
	}

	if cfg.Mode == "" {
		cfg.Mode = workspace.ModeContracts
	}
	if cfg.Mode != workspace.ModeContracts && cfg.Mode != workspace.ModeTransactions {
		return nil, fmt.Errorf("invalid mode %q: must be %q or %q", cfg.Mode, workspace.ModeContracts, workspace.ModeTransactions)
	}

	if cfg.Format == "" {
		cfg.Format = "json"
	}
	if cfg.Format != "json" && cfg.Format != "xml" {
		return nil, errors.New("invalid format: must be 'json' or 'xml'")
	}

	if cfg.HTTPPort < 0 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.HTTPPort)
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "."
	}
	return &cfg, nil
}
