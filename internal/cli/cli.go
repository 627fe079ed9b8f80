package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/specialistvlad/algoflow/internal/app"
	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variable of every option, e.g.
// ALGOFLOW_ALGOD_SERVER. The wallet mnemonic is only read from
// ALGOFLOW_MNEMONIC or the config file, never from a flag.
const EnvPrefix = "ALGOFLOW"

const (
	workspaceKey   = "workspace"
	blocksKey      = "blocks"
	toolboxKey     = "toolbox"
	modeKey        = "mode"
	formatKey      = "format"
	algodServerKey = "algod-server"
	algodTokenKey  = "algod-token"
	mnemonicKey    = "mnemonic"
	outDirKey      = "out-dir"
	portKey        = "port"
	relayURLKey    = "relay-url"
	logFormatKey   = "log-format"
	logLevelKey    = "log-level"
	colorKey       = "color"
	configKey      = "config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func buildFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("algoflow", flag.ContinueOnError)

	fs.String(workspaceKey, "", "Path to the workspace file (.json editor export or .hcl).")
	fs.String(blocksKey, "", "Path to extra block definition files (.hcl or .json), file or directory.")
	fs.String(toolboxKey, "", "Path to toolbox category files (.hcl). Defaults to the stock toolbox.")
	fs.String(modeKey, "contracts", "Editor mode recorded in exported flows. Options: 'contracts' or 'transactions'.")
	fs.String(formatKey, "json", "Toolbox output format. Options: 'json' or 'xml'.")
	fs.String(algodServerKey, chain.DefaultServer, "Algod endpoint runs connect to.")
	fs.String(algodTokenKey, "", "Algod API token.")
	fs.String(outDirKey, ".", "Directory exported files are written to.")
	fs.Int(portKey, 8080, "Port of the HTTP API started by the serve command.")
	fs.String(relayURLKey, "", "Socket.IO URL the execution log is mirrored to. Empty disables the relay.")
	fs.String(logFormatKey, "text", "Log output format. Options: 'text' or 'json'.")
	fs.String(logLevelKey, "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.Bool(colorKey, !color.NoColor, "Colour the terminal output.")
	fs.String(configKey, "", "Optional config file (yaml, json or toml) providing any of the options above.")
	return fs
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Options resolve as flag, then environment, then config file, then default.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	return parse(args, output, viper.New())
}

func parse(args []string, output io.Writer, v *viper.Viper) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("algoflow", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.AddGoFlagSet(buildFlagSet())
	flagSet.SortFlags = false

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprintf(output, `
AlgoFlow - Build Algorand programs from blocks, then generate, run and export them.

Usage:
  algoflow [options] COMMAND [WORKSPACE]

Commands:
  %s

Arguments:
  WORKSPACE
    Path to a workspace file. Required by generate, run, export-script and export-flow.

Environment:
  Every option may be set as %s_<OPTION>, e.g. %s_ALGOD_SERVER.
  The wallet mnemonic is read from %s_MNEMONIC or the config file only.

Options:
`, strings.Join(app.Commands, ", "), EnvPrefix, EnvPrefix, EnvPrefix)
		fmt.Fprint(output, flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flagSet); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if path := v.GetString(configKey); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("failed to read config file: %v", err)}
		}
		slog.Debug("Config file loaded.", "path", path)
	}

	command := flagSet.Arg(0)
	if command == "" {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	workspace := v.GetString(workspaceKey)
	if workspace == "" && flagSet.NArg() > 1 {
		workspace = flagSet.Arg(1)
	}
	slog.Debug("Command determined.", "command", command, "workspace", workspace)

	logFormat := strings.ToLower(v.GetString(logFormatKey))
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(v.GetString(logLevelKey))
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:          command,
		WorkspacePath:    workspace,
		BlocksPath:       v.GetString(blocksKey),
		ToolboxPath:      v.GetString(toolboxKey),
		Mode:             strings.ToLower(v.GetString(modeKey)),
		Format:           strings.ToLower(v.GetString(formatKey)),
		AlgodServer:      v.GetString(algodServerKey),
		AlgodToken:       v.GetString(algodTokenKey),
		Mnemonic:         v.GetString(mnemonicKey),
		OutDir:           v.GetString(outDirKey),
		HTTPPort:         v.GetInt(portKey),
		TerminalRelayURL: v.GetString(relayURLKey),
		LogFormat:        logFormat,
		LogLevel:         logLevel,
		Color:            v.GetBool(colorKey),
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
