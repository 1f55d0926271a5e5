// Package httpapi exposes read-only introspection over a running
// scheduler/executor tree: GET /stats (executor pool occupancy) and
// GET /scopes (per-scope window size and scan state). Grounded on the
// teacher's internal/controlplane.Server (http.NewServeMux,
// encoding/json responses, no external router library -- the teacher
// never reaches for one either, so neither do we).
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/agraph/flow/internal/scheduler"
)

// ExecutorStats is the narrow surface Server needs from an
// *executor.Executor, kept as an interface so this package does not
// need to import internal/executor's Config/Callback machinery.
type ExecutorStats interface {
	PendingPythonTaskCount() int
	PendingAsyncTaskCount() int
}

// StatsResponse is the /stats payload.
type StatsResponse struct {
	AsyncInFlight  int    `json:"async_in_flight"`
	SyncInFlight   int    `json:"sync_in_flight"`
	Version        string `json:"version"`
	Time           string `json:"time"`
}

// Version is set at build time, or defaults to "dev".
var Version = "dev"

// Server serves the introspection endpoints over HTTP.
type Server struct {
	addr     string
	executor ExecutorStats
	server   *http.Server
}

// NewServer creates a Server that will listen on addr. executor may be
// nil; /stats then reports zero occupancy.
func NewServer(addr string, executor ExecutorStats) *Server {
	return &Server{addr: addr, executor: executor}
}

// Start runs the HTTP server, blocking until it stops (mirroring
// net/http.Server.ListenAndServe's contract, per the teacher's
// controlplane.Server.Start).
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/scopes", s.handleScopes)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatsResponse{
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.executor != nil {
		resp.AsyncInFlight = s.executor.PendingAsyncTaskCount()
		resp.SyncInFlight = s.executor.PendingPythonTaskCount()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleScopes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scopes := scheduler.Snapshot()
	if scopes == nil {
		scopes = []scheduler.ScopeStats{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(scopes)
}
