package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/specialistvlad/algoflow/internal/chain"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/pipeline"
	"github.com/specialistvlad/algoflow/internal/registry"
	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/toolbox"
	"github.com/specialistvlad/algoflow/internal/wallet"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx    context.Context
	outW   io.Writer
	logger *slog.Logger
	config *Config

	registry  *registry.Registry
	generator *codegen.Generator
	toolbox   toolbox.Description
	wallet    *wallet.Wallet
	log       *sandbox.Log
	runner    *pipeline.Runner

	dial pipeline.Dialer
	now  func() time.Time
}

// Option customizes an App at construction, mostly for tests.
type Option func(*App)

// WithDialer replaces the node the run pipeline connects to.
func WithDialer(dial pipeline.Dialer) Option {
	return func(a *App) { a.dial = dial }
}

// WithClock replaces the clock used for export names and timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp is the constructor for the main application. Program output goes
// to outW and logs to logW. A failure to load definitions, the toolbox or
// the wallet is a fatal startup error and panics; the CLI recovers it.
func NewApp(ctx context.Context, outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{
		ctx:    ctx,
		outW:   outW,
		logger: logger,
		config: cfg,
		log:    sandbox.NewLog(),
		wallet: wallet.New(),
		now:    time.Now,
	}
	a.dial = func(ctx context.Context) (chain.Node, error) {
		server := cfg.AlgodServer
		if server == "" {
			server = chain.DefaultServer
		}
		node, err := chain.Dial(server, cfg.AlgodToken)
		if err != nil {
			return nil, err
		}
		return node, nil
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.loadRegistry(); err != nil {
		panic(fmt.Errorf("failed to load block definitions: %w", err))
	}
	if err := a.loadToolbox(); err != nil {
		panic(fmt.Errorf("failed to load toolbox: %w", err))
	}
	if err := a.connectWallet(); err != nil {
		panic(fmt.Errorf("failed to connect wallet: %w", err))
	}

	a.runner = &pipeline.Runner{
		Generator: a.generator,
		Dial:      a.dial,
		Wallet:    a.wallet,
		Log:       a.log,
		Notifier:  pipeline.LogNotifier{},
	}
	logger.Debug("Application assembled.", "command", cfg.Command, "block_types", a.registry.Len())
	return a
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Toolbox returns the assembled toolbox description.
func (a *App) Toolbox() toolbox.Description {
	return a.toolbox
}

// Log returns the execution log shared by every run of this App.
func (a *App) Log() *sandbox.Log {
	return a.log
}
