package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	mathpad "github.com/njchilds90/gomathpad"
	"github.com/njchilds90/gomathpad/backend"
)

// server exposes the expression tools and proxies solver requests.
//
//	POST /tool            execute a tool call
//	GET  /schema          tool schema for agent registration
//	GET  /health          liveness check
//	POST /solve/{method}  forward a request to the method's service
type server struct {
	solver       backend.Solver
	logger       *zap.Logger
	maxBodyBytes int64
}

func newServer(solver backend.Solver, logger *zap.Logger, maxBodyBytes int64) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	s := &server{solver: solver, logger: logger, maxBodyBytes: maxBodyBytes}

	mux := http.NewServeMux()
	mux.HandleFunc("/tool", s.recoverer(s.handleTool))
	mux.HandleFunc("/schema", s.handleSchema)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/solve/{method}", s.recoverer(s.handleSolve))
	return mux
}

func (s *server) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic in handler",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (s *server) handleTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req mathpad.ToolRequest
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Ensure there's no trailing junk.
	if dec.More() {
		respondError(w, http.StatusBadRequest, "invalid JSON: trailing data")
		return
	}

	resp := mathpad.HandleToolCall(req)
	if resp.Error != "" {
		s.logger.Debug("tool call failed", zap.String("tool", req.Tool), zap.String("error", resp.Error))
	}
	respond(w, http.StatusOK, resp)
}

func (s *server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, mathpad.MCPToolSpec())
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": mathpad.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleSolve forwards to the configured service. Service failures keep
// their status; an unreachable service is a 502.
func (s *server) handleSolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	m, err := backend.ParseMethod(r.PathValue("method"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	defer r.Body.Close()

	var req backend.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if missing := req.Missing(m); len(missing) > 0 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("missing parameters: %v", missing))
		return
	}

	resp, err := s.solver.Solve(r.Context(), m, req)
	var se *backend.SolveError
	var ce *backend.ConnectionError
	switch {
	case err == nil:
		respond(w, http.StatusOK, resp)
	case errors.As(err, &se):
		status := se.Status
		if status == 0 {
			status = http.StatusUnprocessableEntity
		}
		respondError(w, status, se.Message)
	case errors.As(err, &ce):
		s.logger.Warn("service unreachable", zap.String("method", string(m)), zap.Error(err))
		respondError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, backend.ErrUnknownMethod):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("solve failed", zap.String("method", string(m)), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}
