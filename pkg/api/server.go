package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stratumhq/stratum/pkg/clusterstate"
	"github.com/stratumhq/stratum/pkg/manager"
	"github.com/stratumhq/stratum/pkg/metrics"
)

// AdminServer provides the HTTP admin surface: health endpoints, the
// Prometheus exposition endpoint, and the control-plane command dispatch.
// It implements clusterstate.CommandRegistry.
type AdminServer struct {
	manager *manager.Manager
	mux     *http.ServeMux
	server  *http.Server

	mu       sync.RWMutex
	commands map[string]registeredCommand
}

type registeredCommand struct {
	desc    string
	handler clusterstate.CommandHandler
}

// NewAdminServer creates an admin server bound to the given manager.
func NewAdminServer(mgr *manager.Manager) *AdminServer {
	mux := http.NewServeMux()
	as := &AdminServer{
		manager:  mgr,
		mux:      mux,
		commands: make(map[string]registeredCommand),
	}

	// Register endpoints
	mux.HandleFunc("/health", as.healthHandler)
	mux.HandleFunc("/ready", as.readyHandler)
	mux.HandleFunc("/admin/command", as.commandHandler)
	mux.Handle("/metrics", metrics.Handler())

	return as
}

// Register implements clusterstate.CommandRegistry.
func (as *AdminServer) Register(prefix, desc string, h clusterstate.CommandHandler) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if _, exists := as.commands[prefix]; exists {
		return fmt.Errorf("command %q already registered", prefix)
	}
	as.commands[prefix] = registeredCommand{desc: desc, handler: h}
	return nil
}

// UnregisterAll implements clusterstate.CommandRegistry.
func (as *AdminServer) UnregisterAll(h clusterstate.CommandHandler) {
	as.mu.Lock()
	defer as.mu.Unlock()

	for prefix, cmd := range as.commands {
		if cmd.handler == h {
			delete(as.commands, prefix)
		}
	}
}

// Start starts the admin HTTP server and blocks until shutdown.
func (as *AdminServer) Start(addr string) error {
	as.server = &http.Server{
		Addr:         addr,
		Handler:      as.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	err := as.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin server.
func (as *AdminServer) Shutdown(ctx context.Context) error {
	if as.server == nil {
		return nil
	}
	return as.server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func (as *AdminServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		as.count("/health", http.StatusMethodNotAllowed)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	as.count("/health", http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

func (as *AdminServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		as.count("/ready", http.StatusMethodNotAllowed)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	status := "ready"
	code := http.StatusOK
	if as.manager == nil {
		checks["manager"] = "not configured"
		status = "not ready"
		code = http.StatusServiceUnavailable
	} else {
		checks["manager"] = "ok"
		checks["statsmap_version"] = strconv.FormatUint(as.manager.State().Version(), 10)
	}

	as.count("/ready", code)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}

// CommandRequest is the POST /admin/command body.
type CommandRequest struct {
	Prefix    string          `json:"prefix"`
	Threshold json.RawMessage `json:"threshold,omitempty"`
}

func (as *AdminServer) commandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		as.count("/admin/command", http.StatusMethodNotAllowed)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		as.count("/admin/command", http.StatusBadRequest)
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	as.mu.RLock()
	cmd, ok := as.commands[req.Prefix]
	as.mu.RUnlock()
	if !ok {
		// Only registered prefixes may reach a handler; everything else
		// stops here so handler dispatch stays unreachable for unknowns.
		as.count("/admin/command", http.StatusNotFound)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{
			"error": fmt.Sprintf("unknown command %q", req.Prefix),
		})
		return
	}

	threshold := parseThreshold(req.Threshold)

	var buf bytes.Buffer
	if err := cmd.handler.Call(req.Prefix, threshold, &buf); err != nil {
		as.count("/admin/command", http.StatusInternalServerError)
		http.Error(w, fmt.Sprintf("command failed: %v", err), http.StatusInternalServerError)
		return
	}

	as.count("/admin/command", http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

// parseThreshold extracts the optional integer parameter. Absent yields
// nil (handler applies its default); anything unparsable clamps to zero.
func parseThreshold(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		zero := int64(0)
		return &zero
	}
	return &v
}

func (as *AdminServer) count(path string, status int) {
	metrics.AdminRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()
}
