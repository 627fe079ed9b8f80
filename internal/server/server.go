// Package server exposes the editor's operations over HTTP: block
// definitions, the toolbox, code generation, runs, exports and a live
// stream of the execution log.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/pipeline"
	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/toolbox"
)

const shutdownTimeout = 5 * time.Second

// Definitions lists the registered block types.
type Definitions interface {
	Types() []*block.Type
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Definitions Definitions
	Toolbox     toolbox.Description
	Generator   *codegen.Generator
	Runner      *pipeline.Runner
	Log         *sandbox.Log
	// Mode is the editor mode recorded in exported flows.
	Mode string
	// Now is the clock used for export names; time.Now when nil.
	Now func() time.Time
}

// Server serves the API on one port.
type Server struct {
	deps     Deps
	ctx      context.Context
	http     *http.Server
	upgrader websocket.Upgrader
}

// New builds the router. Requests are served with ctx's logger.
func New(ctx context.Context, deps Deps, port int) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		deps: deps,
		ctx:  ctx,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/blocks", s.handleBlocks).Methods(http.MethodGet)
	api.HandleFunc("/toolbox", s.handleToolbox).Methods(http.MethodGet)
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/run", s.handleRun).Methods(http.MethodPost)
	api.HandleFunc("/export/script", s.handleExportScript).Methods(http.MethodPost)
	api.HandleFunc("/export/flow", s.handleExportFlow).Methods(http.MethodPost)
	api.HandleFunc("/terminal", s.handleTerminal).Methods(http.MethodGet)
	api.HandleFunc("/terminal/snapshot", s.handleTerminalSnapshot).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "address", fmt.Sprintf("http://localhost%s", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logger.Info("Shutting down HTTP server...")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
