package api

import (
	"context"
	"net/http"
	"time"

	"github.com/odvcencio/pmrhub/internal/database"
)

const healthPingTimeout = 2 * time.Second

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  healthDatabase `json:"database"`
	Errors    []string       `json:"errors,omitempty"`
}

type healthDatabase struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
	WaitDurationMS  int64 `json:"wait_duration_ms"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		resp.Errors = append(resp.Errors, "database")
	}

	if poolProvider, ok := s.db.(database.StatsProvider); ok {
		stats := poolProvider.DBStats()
		resp.Database = healthDatabase{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
			WaitDurationMS:  stats.WaitDuration.Milliseconds(),
		}
	}

	if len(resp.Errors) > 0 {
		resp.Status = "degraded"
		jsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}
