// Package api provides the HTTP API for observing an experiment.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/talgya/farmshare/internal/engine"
	"github.com/talgya/farmshare/internal/persistence"
	"github.com/talgya/farmshare/internal/stats"
)

// Server serves experiment state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// InitialResource refills the pool when an experiment is reset without an
	// explicit amount.
	InitialResource float64
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/families", s.handleFamilies)
	mux.HandleFunc("/api/v1/rounds", s.handleRounds)
	mux.HandleFunc("/api/v1/stats", s.handleStats)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/meta", s.adminOnly(s.handleMeta))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no FARMSHARE_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	status := map[string]any{
		"name":           "Farmshare",
		"experiment_id":  snap.ExperimentID,
		"round":          snap.Round,
		"method":         s.Sim.Method,
		"families":       s.Sim.Registry.Len(),
		"members":        s.Sim.Registry.TotalMembers(),
		"labor_force":    s.Sim.Registry.TotalLabor(),
		"pool_total":     snap.PoolTotal,
		"sustainability": snap.SustainabilityIndex,
	}
	if snap.Last != nil {
		status["avg_satisfaction"] = snap.Last.AverageSatisfaction
		status["last_gini"] = snap.Last.Report.Allocation.Gini
	}
	writeJSON(w, status)
}

func (s *Server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Registry.All())
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	if s.DB != nil {
		rows, err := s.DB.RecentRounds(s.Sim.Snapshot().ExperimentID, limit)
		if err != nil {
			slog.Error("rounds query failed", "error", err)
			writeJSON(w, []persistence.RoundRow{})
			return
		}
		if rows == nil {
			rows = []persistence.RoundRow{}
		}
		writeJSON(w, rows)
		return
	}

	writeJSON(w, s.Sim.HistoryTail(limit))
}

// handleStats returns the fairness report for the latest round.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	last := s.Sim.Snapshot().Last
	if last == nil {
		writeJSON(w, stats.Report{})
		return
	}
	writeJSON(w, map[string]any{
		"round":                last.Round,
		"report":               last.Report,
		"avg_satisfaction":     last.AverageSatisfaction,
		"negotiation_success":  last.NegotiationSuccess,
		"final_stage":          last.FinalStage,
		"sustainability_index": last.SustainabilityIndex,
	})
}

// handleMeta reads (GET) or writes (POST) experiment metadata.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if r.Method == http.MethodPost {
		var req struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := s.DB.SaveMeta(req.Key, req.Value); err != nil {
			http.Error(w, "save failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}
	value, err := s.DB.GetMeta(key)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"key": key, "value": value})
}

// handleReset starts a fresh experiment over the same community.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		InitialResource float64 `json:"initial_resource,omitempty"`
	}
	if r.Body != nil {
		// Empty body means reset with the configured pool size.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	pool := req.InitialResource
	if pool <= 0 {
		pool = s.InitialResource
	}
	if pool <= 0 {
		http.Error(w, "initial_resource must be positive", http.StatusBadRequest)
		return
	}

	id := s.Sim.Reset(pool)
	if s.DB != nil {
		if err := s.DB.SaveMeta("experiment_id", id); err != nil {
			slog.Error("failed to save metadata", "error", err)
		}
	}
	slog.Info("experiment reset", "experiment", id, "pool", pool)

	writeJSON(w, map[string]any{
		"experiment_id": id,
		"pool_total":    pool,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
