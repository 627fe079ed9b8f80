package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/export"
	"github.com/specialistvlad/algoflow/internal/terminal"
	"github.com/specialistvlad/algoflow/internal/workspace"
)

// ErrRunFailed is returned by the run command when the program failed. The
// details are already in the terminal output.
var ErrRunFailed = errors.New("run failed")

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.", "command", a.config.Command)
	defer a.logger.Debug("App.Run method finished.")

	switch a.config.Command {
	case CommandToolbox:
		return a.printToolbox()
	case CommandGenerate:
		return a.generate(ctx)
	case CommandRun:
		return a.run(ctx)
	case CommandExportScript:
		return a.exportScript(ctx)
	case CommandExportFlow:
		return a.exportFlow()
	case CommandServe:
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", a.config.Command)
	}
}

func (a *App) printToolbox() error {
	if a.config.Format == "xml" {
		_, err := fmt.Fprintln(a.outW, a.toolbox.XML())
		return err
	}
	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	return enc.Encode(a.toolbox)
}

// program loads the workspace and generates its text.
func (a *App) program(ctx context.Context) (string, error) {
	roots, err := a.loadWorkspace()
	if err != nil {
		return "", err
	}
	program, err := a.generator.Generate(ctx, roots)
	if err != nil {
		return program, fmt.Errorf("failed to generate program: %w", err)
	}
	return program, nil
}

func (a *App) generate(ctx context.Context) error {
	program, err := a.program(ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(a.outW, program)
	return err
}

// run executes the workspace with the terminal view open on outW and, when
// configured, mirrored to the relay.
func (a *App) run(ctx context.Context) error {
	roots, err := a.loadWorkspace()
	if err != nil {
		return err
	}

	view := terminal.NewView(a.outW, a.config.Color)
	view.Open()
	defer a.log.Subscribe(view.Render)()

	if a.config.TerminalRelayURL != "" {
		relay, err := terminal.DialRelay(ctx, a.config.TerminalRelayURL, "/")
		if err != nil {
			a.logger.Warn("Terminal relay unavailable; continuing without it.", "error", err)
		} else {
			defer relay.Close()
			defer a.log.Subscribe(relay.Render)()
		}
	}

	a.logger.Info("Starting run...")
	res, err := a.runner.Run(ctx, roots)
	if err != nil {
		return err
	}
	if res.Outcome.Failed() {
		return fmt.Errorf("%w: %v", ErrRunFailed, res.Outcome.Err)
	}
	a.logger.Info("Run finished.", "run_id", res.ID)
	return nil
}

func (a *App) exportScript(ctx context.Context) error {
	program, err := a.program(ctx)
	if err != nil {
		return err
	}
	path, err := export.WriteScript(a.config.OutDir, program, a.now())
	if err != nil {
		return err
	}
	a.logger.Info("Exported script.", "file_path", path)
	_, err = fmt.Fprintln(a.outW, path)
	return err
}

func (a *App) exportFlow() error {
	roots, err := a.loadWorkspace()
	if err != nil {
		return err
	}
	now := a.now()
	path, err := export.WriteFlow(a.config.OutDir, workspace.NewFlow(roots, a.config.Mode, now), now)
	if err != nil {
		return err
	}
	a.logger.Info("Exported flow.", "file_path", path, "mode", a.config.Mode)
	_, err = fmt.Fprintln(a.outW, path)
	return err
}
