package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/taxref/internal/logging"
	"github.com/JonMunkholm/taxref/internal/upload"
)

const readyTimeout = 2 * time.Second

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type readyResponse struct {
	Status   string        `json:"status"`
	Database string        `json:"database"`
	Uploads  upload.Status `json:"uploads"`
}

// handleHealth is a liveness probe.
// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady pings the database and reports upload slot usage. It answers
// 503 once shutdown has started.
// GET /readyz
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{Status: "ready", Database: "ok", Uploads: s.limiter.Status()}

	if s.limiter.Closed() {
		resp.Status = "shutting down"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if s.db == nil {
		resp.Database = "not configured"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Warn("readiness check failed", "error", err)
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
