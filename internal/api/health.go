package api

import (
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Services  healthServices `json:"services"`
}

type healthServices struct {
	Database      string `json:"database"`
	SnapshotStore string `json:"snapshot_store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if err := s.db.Ping(r.Context()); err != nil {
		dbStatus = "disconnected"
	}
	kvStatus := "connected"
	if err := s.kv.Ping(r.Context()); err != nil {
		kvStatus = "disconnected"
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  healthServices{Database: dbStatus, SnapshotStore: kvStatus},
	})
}
