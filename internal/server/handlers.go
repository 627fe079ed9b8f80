package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/specialistvlad/algoflow/internal/block"
	"github.com/specialistvlad/algoflow/internal/codegen"
	"github.com/specialistvlad/algoflow/internal/ctxlog"
	"github.com/specialistvlad/algoflow/internal/export"
	"github.com/specialistvlad/algoflow/internal/pipeline"
	"github.com/specialistvlad/algoflow/internal/sandbox"
	"github.com/specialistvlad/algoflow/internal/workspace"
)

// maxWorkspaceBytes bounds the size of a posted workspace.
const maxWorkspaceBytes = 4 << 20

type errorResponse struct {
	Error   string `json:"error"`
	BlockID string `json:"blockId,omitempty"`
	Program string `json:"program,omitempty"`
}

type generateResponse struct {
	Program string `json:"program"`
}

type runResponse struct {
	ID      string `json:"id"`
	Program string `json:"program"`
	OK      bool   `json:"ok"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Log     string `json:"log"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeGenerationError answers a request whose workspace could not be
// generated, with the text produced before the failure.
func writeGenerationError(w http.ResponseWriter, program string, err error) {
	resp := errorResponse{Error: err.Error(), Program: program}
	var genErr *codegen.GenerationError
	if errors.As(err, &genErr) {
		resp.BlockID = genErr.BlockID
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

// readWorkspace decodes the posted editor workspace.
func readWorkspace(w http.ResponseWriter, r *http.Request) ([]*block.Instance, bool) {
	roots, err := workspace.LoadJSON(r.Context(), http.MaxBytesReader(w, r.Body, maxWorkspaceBytes))
	if err != nil {
		ctxlog.FromContext(r.Context()).Debug("Rejected workspace.", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return nil, false
	}
	return roots, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "algoflow",
	})
}

func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Definitions.Types())
}

func (s *Server) handleToolbox(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "xml" {
		w.Header().Set("Content-Type", "application/xml")
		io.WriteString(w, s.deps.Toolbox.XML())
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Toolbox)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	roots, ok := readWorkspace(w, r)
	if !ok {
		return
	}
	program, err := s.deps.Generator.Generate(r.Context(), roots)
	if err != nil {
		writeGenerationError(w, program, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Program: program})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.deps.Runner.Busy() {
		writeError(w, http.StatusConflict, pipeline.ErrRunInFlight)
		return
	}
	roots, ok := readWorkspace(w, r)
	if !ok {
		return
	}
	res, err := s.deps.Runner.Run(r.Context(), roots)
	if errors.Is(err, pipeline.ErrRunInFlight) {
		writeError(w, http.StatusConflict, err)
		return
	}

	resp := runResponse{
		ID:      res.ID,
		Program: res.Program,
		OK:      !res.Outcome.Failed(),
		Log:     s.deps.Log.Snapshot(),
	}
	if res.Outcome.Failed() {
		resp.Error = res.Outcome.Err.Error()
	} else if res.Outcome.Defined() {
		resp.Result = sandbox.Render(res.Outcome.Result)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportScript(w http.ResponseWriter, r *http.Request) {
	roots, ok := readWorkspace(w, r)
	if !ok {
		return
	}
	program, err := s.deps.Generator.Generate(r.Context(), roots)
	if err != nil {
		writeGenerationError(w, program, err)
		return
	}
	attachment(w, "application/javascript", export.ScriptName(s.deps.Now()))
	io.WriteString(w, program)
}

func (s *Server) handleExportFlow(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = s.deps.Mode
	}
	if mode != workspace.ModeContracts && mode != workspace.ModeTransactions {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode %q", mode))
		return
	}
	roots, ok := readWorkspace(w, r)
	if !ok {
		return
	}

	now := s.deps.Now()
	data, err := export.FlowJSON(workspace.NewFlow(roots, mode, now))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	attachment(w, "application/json", export.FlowName(mode, now))
	w.Write(data)
}

func (s *Server) handleTerminalSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, s.deps.Log.Snapshot())
}
