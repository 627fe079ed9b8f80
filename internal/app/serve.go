package app

import (
	"context"

	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/server"
	"github.com/specialistvlad/algoflow/internal/terminal"
	"golang.org/x/sync/errgroup"
)

// serve runs the HTTP API, and the terminal relay when configured, until
// ctx is cancelled or one of them fails.
func (a *App) serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Configuring HTTP server.", "port", a.config.HTTPPort)

	srv := server.New(ctx, server.Deps{
		Definitions: a.registry,
		Toolbox:     a.toolbox,
		Generator:   a.generator,
		Runner:      a.runner,
		Log:         a.log,
		Mode:        a.config.Mode,
		Now:         a.now,
	}, a.config.HTTPPort)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})

	if a.config.TerminalRelayURL != "" {
		g.Go(func() error {
			relay, err := terminal.DialRelay(gctx, a.config.TerminalRelayURL, "/")
			if err != nil {
				// The API stays useful without a remote viewer.
				logger.Warn("Terminal relay unavailable.", "error", err)
				return nil
			}
			cancel := a.log.Subscribe(relay.Render)
			<-gctx.Done()
			cancel()
			logger.Debug("Closing terminal relay...")
			relay.Close()
			return nil
		})
	}

	return g.Wait()
}
